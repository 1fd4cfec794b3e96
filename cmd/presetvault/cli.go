package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/presetvault/internal/catalog"
	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/ops"
	"github.com/hpungsan/presetvault/internal/preset"
	"github.com/hpungsan/presetvault/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// v may be nil when only help or version output is needed.
func newCLIApp(v *vault) *cli.App {
	app := &cli.App{
		Name:    "presetvault",
		Usage:   "Local MilkDrop preset library",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(v),
			loadCmd(v),
			listCmd(v),
			deleteCmd(v),
			duplicateCmd(v),
			importCmd(v),
			exportCmd(v),
			shareCmd(v),
			searchCmd(v),
			favoriteCmd(v),
			recentCmd(v),
			collectionCmd(v),
			seedCmd(v),
			scanCmd(),
			reconcileCmd(v),
			serveCmd(v),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// saveCmd creates the save command.
func saveCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save a preset (reads content from --file or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Preset id (generated when omitted; an existing id is overwritten)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name", Required: true},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: string(preset.TypeMilk), Usage: "Dialect: milk|milk2"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read content from this file instead of stdin"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.BoolFlag{Name: "favorite", Usage: "Mark as favorite"},
			&cli.IntFlag{Name: "version", Usage: "Preset version (default 1)"},
		},
		Action: func(c *cli.Context) error {
			content, err := readContent(c.String("file"), v.cfg.PresetMaxBytes)
			if err != nil {
				return outputError(err)
			}

			id := c.String("id")
			if id == "" {
				id = ops.NewID()
			}
			p := &preset.Preset{
				ID:      id,
				Name:    c.String("name"),
				Author:  c.String("author"),
				Type:    preset.Type(c.String("type")),
				Content: content,
				Metadata: preset.Metadata{
					IsFavorite: c.Bool("favorite"),
					Tags:       parseTags(c.String("tags")),
					Version:    c.Int("version"),
				},
			}
			if err := v.repo.Save(c.Context, p); err != nil {
				return outputError(err)
			}
			return outputJSON(p.WithoutContent())
		},
	}
}

// loadCmd creates the load command.
func loadCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Load a preset with its content",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "Print only the preset content"},
			&cli.BoolFlag{Name: "touch", Usage: "Move the preset to the front of the recent list"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return outputError(err)
			}

			p, err := v.repo.Load(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("touch") {
				if err := v.repo.AddToRecent(c.Context, id); err != nil {
					return outputError(err)
				}
			}

			if c.Bool("raw") {
				_, err := io.WriteString(os.Stdout, p.Content)
				return err
			}
			return outputJSON(p)
		},
	}
}

// listCmd creates the list command.
func listCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all presets, newest first",
		Action: func(c *cli.Context) error {
			presets, err := v.repo.GetAll(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(presetList(presets))
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a preset and its favorite/recent entries",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return outputError(err)
			}

			deleted, err := v.repo.Delete(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "deleted": deleted})
		},
	}
}

// duplicateCmd creates the duplicate command.
func duplicateCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:      "duplicate",
		Usage:     "Copy a preset under a new id",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: `Name for the copy (default "<name> (Copy)")`},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return outputError(err)
			}

			newID, err := v.repo.Duplicate(c.Context, id, c.String("name"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": newID, "source_id": id})
		},
	}
}

// importCmd creates the import command.
func importCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a preset file (.milk2 means milk2, anything else milk)",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name (default: file name)"},
		},
		Action: func(c *cli.Context) error {
			path, err := requireArg(c, "path")
			if err != nil {
				return outputError(err)
			}

			id, err := v.repo.ImportFile(c.Context, path, c.String("name"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "path": path})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a preset to the export area",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return outputError(err)
			}

			path, err := v.repo.ExportFile(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "path": path})
		},
	}
}

// shareCmd creates the share command.
func shareCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:      "share",
		Usage:     "Export a preset and pass it to share_command",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return outputError(err)
			}

			shared, err := v.repo.Share(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "shared": shared})
		},
	}
}

// searchCmd creates the search command.
func searchCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Case-insensitive search over name, author and tags",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			presets, err := v.repo.Search(c.Context, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(presetList(presets))
		},
	}
}

// favoriteCmd creates the favorite command group.
func favoriteCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "favorite",
		Usage: "Manage favorites",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a preset to favorites",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					if err := v.repo.AddFavorite(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"id": id, "favorite": true})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a preset from favorites",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					if err := v.repo.RemoveFavorite(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"id": id, "favorite": false})
				},
			},
			{
				Name:  "list",
				Usage: "List favorite presets, newest first",
				Action: func(c *cli.Context) error {
					presets, err := v.repo.GetFavorites(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(presetList(presets))
				},
			},
		},
	}
}

// recentCmd creates the recent command group.
func recentCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "Manage the recently used list",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Move a preset to the front of the recent list",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					if err := v.repo.AddToRecent(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"id": id})
				},
			},
			{
				Name:  "list",
				Usage: "List recently used presets, most recent first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultRecentLimit, Usage: "Maximum presets to return"},
				},
				Action: func(c *cli.Context) error {
					presets, err := v.repo.GetRecent(c.Context, c.Int("limit"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(presetList(presets))
				},
			},
		},
	}
}

// collectionCmd creates the collection command group.
func collectionCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "collection",
		Usage: "Manage named preset collections",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a collection",
				ArgsUsage: "<name> [preset-id...]",
				Action: func(c *cli.Context) error {
					name, err := requireArg(c, "name")
					if err != nil {
						return outputError(err)
					}
					id, err := v.repo.CreateCollection(c.Context, name, c.Args().Tail())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"id": id, "name": name})
				},
			},
			{
				Name:      "add",
				Usage:     "Append a preset to a collection",
				ArgsUsage: "<collection-id> <preset-id>",
				Action: func(c *cli.Context) error {
					return modifyCollection(c, v.repo.AddToCollection)
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a preset from a collection",
				ArgsUsage: "<collection-id> <preset-id>",
				Action: func(c *cli.Context) error {
					return modifyCollection(c, v.repo.RemoveFromCollection)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a collection (its presets are kept)",
				ArgsUsage: "<collection-id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "collection-id")
					if err != nil {
						return outputError(err)
					}
					deleted, err := v.repo.DeleteCollection(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"id": id, "deleted": deleted})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a collection and its live members",
				ArgsUsage: "<collection-id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "collection-id")
					if err != nil {
						return outputError(err)
					}
					col, err := v.repo.GetCollection(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					presets, err := v.repo.CollectionPresets(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"collection": col, "presets": presetList(presets).Presets})
				},
			},
			{
				Name:  "list",
				Usage: "List collections, newest first",
				Action: func(c *cli.Context) error {
					collections, err := v.repo.GetAllCollections(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"collections": collections, "count": len(collections)})
				},
			},
		},
	}
}

// modifyCollection runs an add/remove membership change.
func modifyCollection(c *cli.Context, fn func(ctx context.Context, collectionID, presetID string) (bool, error)) error {
	if c.NArg() < 2 {
		return outputError(errors.NewInvalidRequest("collection-id and preset-id are required"))
	}
	collectionID, presetID := c.Args().Get(0), c.Args().Get(1)

	ok, err := fn(c.Context, collectionID, presetID)
	if err != nil {
		return outputError(err)
	}
	if !ok {
		return outputError(errors.NewCollectionNotFound(collectionID))
	}
	return outputJSON(map[string]any{"collection_id": collectionID, "preset_id": presetID})
}

// seedCmd creates the seed command.
func seedCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Import the bundled preset catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Manifest path (default: catalog.manifest from config)"},
			&cli.BoolFlag{Name: "retry", Usage: "Run even if the catalog was already loaded; retries failed entries"},
			&cli.BoolFlag{Name: "reset", Usage: "Clear the loaded flag and seeded set, then exit"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("reset") {
				if err := v.seeder.ResetSeed(c.Context); err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"reset": true})
			}

			path := c.String("manifest")
			if path == "" {
				path = v.cfg.Catalog.Manifest
			}
			if path == "" {
				return outputError(errors.NewInvalidRequest("no manifest: pass --manifest or set catalog.manifest"))
			}

			m, problems, err := catalog.LoadFile(path)
			if err != nil {
				return outputError(errors.NewIOFailure("load catalog manifest", err))
			}
			report, err := v.seeder.Seed(c.Context, m, catalog.SeedOptions{Force: c.Bool("retry")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"report": report, "invalid_entries": problems})
		},
	}
}

// scanCmd creates the scan command. It works on directories only and
// needs no open library.
func scanCmd() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Build a bundled catalog from preset directories",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "root", Aliases: []string{"r"}, Usage: "Collection root as name=path (repeatable)", Required: true},
			&cli.StringSliceFlag{Name: "category", Usage: "Directory-to-category mapping as dir=category (repeatable)"},
			&cli.IntFlag{Name: "per-category", Value: catalog.DefaultPerCategory, Usage: "Presets kept per category"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory", Required: true},
		},
		Action: func(c *cli.Context) error {
			categories, err := parsePairs(c.StringSlice("category"))
			if err != nil {
				return outputError(err)
			}
			roots := make([]catalog.ScanRoot, 0, len(c.StringSlice("root")))
			for _, value := range c.StringSlice("root") {
				name, path, err := parsePair(value)
				if err != nil {
					return outputError(err)
				}
				roots = append(roots, catalog.ScanRoot{Name: name, Path: path, Categories: categories})
			}

			report, err := catalog.Scan(catalog.ScanOptions{
				Roots:       roots,
				PerCategory: c.Int("per-category"),
				Out:         c.String("out"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(report)
		},
	}
}

// reconcileCmd creates the reconcile command.
func reconcileCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Check blob and metadata stores for leftovers of partial failures",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "fix", Usage: "Repair what was found"},
		},
		Action: func(c *cli.Context) error {
			report, err := v.repo.Reconcile(c.Context, c.Bool("fix"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(report)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(v *vault) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the preset library web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8417, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			v.seedBundled(c.Context)
			srv, err := web.NewServer(v.repo, v.cfg, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv)
		},
	}
}

// Helper functions

// presetListOutput is the JSON shape of every preset listing.
type presetListOutput struct {
	Presets []*preset.Preset `json:"presets"`
	Count   int              `json:"count"`
}

func presetList(presets []*preset.Preset) presetListOutput {
	if presets == nil {
		presets = []*preset.Preset{}
	}
	return presetListOutput{Presets: presets, Count: len(presets)}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// requireArg returns the first positional argument or an INVALID_REQUEST error.
func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", errors.NewInvalidRequest(name + " is required")
	}
	return arg, nil
}

// readContent reads preset content from path, or from stdin when path is empty.
func readContent(path string, limit int) (string, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", errors.NewIOFailure("read "+path, err)
		}
		defer f.Close()
		return readLimited(f, limit)
	}
	if !stdinHasData() {
		return "", errors.NewInvalidRequest("content must be piped via stdin or passed with --file")
	}
	return readStdin(limit)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, up to limit bytes (0 means unlimited).
func readStdin(limit int) (string, error) {
	return readLimited(os.Stdin, limit)
}

func readLimited(r io.Reader, limit int) (string, error) {
	if limit > 0 {
		r = io.LimitReader(r, int64(limit)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewIOFailure("read content", err)
	}
	if limit > 0 && len(data) > limit {
		return "", errors.NewContentTooLarge(limit, len(data))
	}
	return string(data), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parsePair parses one key=value flag value.
func parsePair(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	k, v = strings.TrimSpace(k), strings.TrimSpace(v)
	if !ok || k == "" || v == "" {
		return "", "", errors.NewInvalidRequest(fmt.Sprintf("expected key=value, got %q", s))
	}
	return k, v, nil
}

// parsePairs parses repeated key=value flag values into a map.
func parsePairs(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(values))
	for _, s := range values {
		k, v, err := parsePair(s)
		if err != nil {
			return nil, err
		}
		pairs[k] = v
	}
	return pairs, nil
}
