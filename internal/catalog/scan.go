package catalog

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hpungsan/presetvault/internal/blob"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/preset"
)

// Scan defaults
const (
	DefaultPerCategory = 15
	ManifestFileName   = "preset-catalog.json"
	ManifestVersion    = "1.0.0"
)

// ScanRoot is one preset collection on disk.
type ScanRoot struct {
	Name string
	Path string
	// Categories maps a directory name found anywhere in a file's path to a category.
	Categories map[string]string
}

// ScanOptions configures a catalog build.
type ScanOptions struct {
	Roots       []ScanRoot
	PerCategory int
	// Out receives ManifestFileName and presets/<category>/<id>.<ext>.
	Out string
	Now func() time.Time
}

// ScannedPreset is a preset file found during a scan.
type ScannedPreset struct {
	Entry
	FilePath string
	Size     int64
}

// ScanReport summarizes a catalog build.
type ScanReport struct {
	Found        int            `json:"found"`
	Selected     int            `json:"selected"`
	Copied       int            `json:"copied"`
	MissingRoots []string       `json:"missing_roots"`
	ByCollection map[string]int `json:"by_collection"`
	ByCategory   map[string]int `json:"by_category"`
	ManifestPath string         `json:"manifest_path"`
}

// Scan walks every root, keeps the PerCategory smallest files of each
// category, copies them under Out and writes the manifest.
func Scan(opts ScanOptions) (*ScanReport, error) {
	if opts.Out == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if opts.PerCategory <= 0 {
		opts.PerCategory = DefaultPerCategory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	report := &ScanReport{
		MissingRoots: []string{},
		ByCollection: map[string]int{},
		ByCategory:   map[string]int{},
	}

	var all []ScannedPreset
	for _, root := range opts.Roots {
		if info, err := os.Stat(root.Path); err != nil || !info.IsDir() {
			logging.Warn().Str("collection", root.Name).Str("path", root.Path).Msg("collection not found")
			report.MissingRoots = append(report.MissingRoots, root.Name)
			continue
		}
		found := scanRoot(root)
		logging.Info().Str("collection", root.Name).Int("found", len(found)).Msg("scanned collection")
		all = append(all, found...)
	}
	report.Found = len(all)
	for _, p := range all {
		report.ByCollection[p.Collection]++
		report.ByCategory[p.Category]++
	}

	selected, categories := selectPerCategory(all, opts.PerCategory)
	report.Selected = len(selected)

	m := &Manifest{
		Version:      ManifestVersion,
		Generated:    opts.Now().UTC().Format(time.RFC3339),
		Collections:  make([]string, 0, len(opts.Roots)),
		Presets:      make([]Entry, 0, len(selected)),
	}
	for _, root := range opts.Roots {
		m.Collections = append(m.Collections, root.Name)
	}

	for _, p := range selected {
		e := p.Entry
		e.AssetPath = fmt.Sprintf("presets/%s/%s%s", e.Category, e.ID, e.Type.Extension())

		// Only entries whose file landed under Out are listed
		if err := copyFile(p.FilePath, filepath.Join(opts.Out, filepath.FromSlash(e.AssetPath))); err != nil {
			logging.Warn().Str("name", e.Name).Err(err).Msg("failed to copy preset file")
			continue
		}
		m.Presets = append(m.Presets, e)
		report.Copied++
	}
	m.TotalPresets = len(m.Presets)
	m.Categories = writtenCategories(categories, m.Presets)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	report.ManifestPath = filepath.Join(opts.Out, ManifestFileName)
	if err := blob.WriteFileAtomic(report.ManifestPath, data); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	logging.Info().Int("selected", report.Selected).Int("copied", report.Copied).
		Str("manifest", report.ManifestPath).Msg("catalog written")
	return report, nil
}

// scanRoot walks a collection. Unreadable directories are logged and skipped.
func scanRoot(root ScanRoot) []ScannedPreset {
	var found []ScannedPreset
	_ = filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn().Str("path", path).Err(err).Msg("error scanning directory")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".milk") && !strings.HasSuffix(name, ".milk2") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(root.Path, path)
		if err != nil {
			rel = path
		}
		found = append(found, ScannedPreset{
			Entry: Entry{
				ID:         GenerateID(filepath.ToSlash(rel), root.Name),
				Name:       ExtractTitle(name),
				Author:     ExtractAuthor(name),
				Category:   InferCategory(path, root.Categories),
				Type:       preset.TypeFromPath(name),
				Collection: root.Name,
			},
			FilePath: path,
			Size:     info.Size(),
		})
		return nil
	})
	return found
}

// selectPerCategory keeps the perCategory smallest files of each category.
// Categories keep first-seen order in the selection and are returned sorted.
func selectPerCategory(all []ScannedPreset, perCategory int) ([]ScannedPreset, []string) {
	var order []string
	byCategory := map[string][]ScannedPreset{}
	for _, p := range all {
		if _, ok := byCategory[p.Category]; !ok {
			order = append(order, p.Category)
		}
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	var selected []ScannedPreset
	for _, c := range order {
		group := byCategory[c]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Size < group[j].Size })
		if len(group) > perCategory {
			group = group[:perCategory]
		}
		selected = append(selected, group...)
	}

	categories := append([]string{}, order...)
	sort.Strings(categories)
	return selected, categories
}

var authorPattern = regexp.MustCompile(`^([^-_]+)[\s\-_]`)

// ExtractAuthor returns the file name prefix before a separator, or "Unknown".
func ExtractAuthor(filename string) string {
	if m := authorPattern.FindStringSubmatch(filename); m != nil {
		if author := strings.TrimSpace(m[1]); author != "" {
			return author
		}
	}
	return "Unknown"
}

// ExtractTitle strips the extension and anything up to the first " - ".
func ExtractTitle(filename string) string {
	title := strings.TrimSuffix(strings.TrimSuffix(filename, ".milk2"), ".milk")
	if i := strings.Index(title, " - "); i > 0 {
		title = title[i+3:]
	}
	return strings.TrimSpace(title)
}

// GenerateID derives a stable id from a collection-relative path.
func GenerateID(relPath, collection string) string {
	sum := sha256.Sum256([]byte(relPath + collection))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	var b strings.Builder
	for _, r := range encoded {
		if b.Len() == 16 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return "preset_" + b.String()
}

// InferCategory matches a known directory name in path, then falls back to
// the lowercased parent directory, then "general".
func InferCategory(path string, categories map[string]string) string {
	dirs := make([]string, 0, len(categories))
	for dir := range categories {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if strings.Contains(path, dir) {
			return categories[dir]
		}
	}

	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) > 2 {
		return strings.ToLower(parts[len(parts)-2])
	}
	return "general"
}

// writtenCategories drops categories whose every file failed to copy.
func writtenCategories(categories []string, entries []Entry) []string {
	used := map[string]bool{}
	for _, e := range entries {
		used[e.Category] = true
	}
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if used[c] {
			out = append(out, c)
		}
	}
	return out
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return blob.WriteFileAtomic(dst, data)
}
