package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hpungsan/presetvault/internal/blob"
	"github.com/hpungsan/presetvault/internal/boltdb"
	"github.com/hpungsan/presetvault/internal/catalog"
	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/db"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/mcp"
	"github.com/hpungsan/presetvault/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "load": true, "list": true, "delete": true, "duplicate": true,
	"import": true, "export": true, "share": true, "search": true,
	"favorite": true, "recent": true, "collection": true,
	"seed": true, "scan": true, "reconcile": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  presetvault

  Local MilkDrop preset library

  Usage: presetvault <command> [options]
         presetvault --help

  MCP server mode requires piped input.`)
}

// vault is the opened preset library.
type vault struct {
	cfg    *config.Config
	repo   *ops.Repository
	seeder *catalog.Seeder
	closer io.Closer
}

// openVault opens the configured metadata backend and blob store under dataDir.
func openVault(dataDir string, cfg *config.Config) (*vault, error) {
	var (
		meta   ops.MetaStore
		closer io.Closer
	)
	switch cfg.MetadataBackend {
	case config.BackendBolt:
		store, err := boltdb.Open(filepath.Join(dataDir, boltdb.FileName))
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		meta, closer = store, store
	default:
		database, err := db.Init(dataDir)
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		db.ConfigurePool(database, cfg)
		meta, closer = db.NewStore(database), database
	}

	blobs, err := blob.New(filepath.Join(dataDir, blob.DirName))
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	repo, err := ops.New(meta, blobs, cfg,
		ops.WithExportsDir(filepath.Join(dataDir, ops.ExportsDirName)),
		ops.WithSharer(ops.NewExecSharer(cfg.ShareCommand)),
	)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	return &vault{
		cfg:    cfg,
		repo:   repo,
		seeder: catalog.NewSeeder(repo, catalog.NewSource(cfg.Catalog.AssetsDir)),
		closer: closer,
	}, nil
}

// Close releases the metadata store.
func (v *vault) Close() error {
	return v.closer.Close()
}

// seedBundled runs the one-time catalog import when a manifest is configured.
// Failures are logged; startup continues.
func (v *vault) seedBundled(ctx context.Context) {
	path := v.cfg.Catalog.Manifest
	if path == "" {
		return
	}
	m, problems, err := catalog.LoadFile(path)
	if err != nil {
		logging.Warn().Err(err).Str("manifest", path).Msg("bundled catalog unavailable")
		return
	}
	for _, p := range problems {
		logging.Warn().Int("index", p.Index).Str("id", p.ID).Str("error", p.Err).Msg("invalid catalog entry")
	}
	report, err := v.seeder.Seed(ctx, m, catalog.SeedOptions{})
	if err != nil {
		logging.Warn().Err(err).Msg("bundled catalog seeding failed")
		return
	}
	if !report.Skipped {
		logging.Info().Int("imported", len(report.Imported)).Int("failed", len(report.Failed)).Msg("bundled catalog seeded")
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return 0
	}

	// Handle --help/--version before opening any store
	if isHelpOrVersion() {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	dataDir, err := ops.DataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine data directory: %v\n", err)
		return 1
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = dataDir
	}

	cfg, err := config.LoadWithRepo(dataDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return 1
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logging.Warn().Strs("tools", unknown).Msg("ignoring unknown disabled_tools entries")
	}

	v, err := openVault(dataDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer v.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		if err := newCLIApp(v).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'presetvault --help' for usage.\n")
		return 1
	}

	// MCP server mode (default)
	v.seedBundled(context.Background())
	if err := mcp.Run(v.repo, v.seeder, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
