package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/presetvault/internal/preset"
)

func TestExtractAuthor(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Geiss - Reaction Diffusion.milk", "Geiss"},
		{"Flexi_mindblob.milk", "Flexi"},
		{"martin-liquid.milk2", "martin"},
		{"Solo.milk", "Unknown"},
		{"-leading.milk", "Unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractAuthor(tc.filename))
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Geiss - Reaction Diffusion.milk", "Reaction Diffusion"},
		{"Flexi - a - b.milk2", "a - b"},
		{"Plain.milk", "Plain"},
		{" - Leading.milk", "- Leading"},
	}
	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractTitle(tc.filename))
		})
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID("Fractal/a.milk", "cream")
	require.True(t, strings.HasPrefix(a, "preset_"))
	require.Len(t, a, len("preset_")+16)
	require.Equal(t, a, GenerateID("Fractal/a.milk", "cream"))
	require.NotEqual(t, a, GenerateID("Fractal/b.milk", "cream"))
	require.NotEqual(t, a, GenerateID("Fractal/a.milk", "other"))
}

func TestInferCategory(t *testing.T) {
	categories := map[string]string{"Fractal": "fractal", "! Transition": "transition"}

	require.Equal(t, "fractal", InferCategory("/presets/cream/Fractal/Deep/a.milk", categories))
	require.Equal(t, "transition", InferCategory("/presets/cream/! Transition/a.milk", categories))
	require.Equal(t, "waves", InferCategory("/presets/other/Waves/a.milk", nil))
	require.Equal(t, "general", InferCategory("a.milk", nil))
}

func writePresetFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	body := "[preset00]\n" + strings.Repeat("x", size)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestScan(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	cream := filepath.Join(src, "cream")
	writePresetFile(t, filepath.Join(cream, "Fractal", "Geiss - Big.milk"), 300)
	writePresetFile(t, filepath.Join(cream, "Fractal", "Geiss - Small.milk"), 10)
	writePresetFile(t, filepath.Join(cream, "Fractal", "Flexi - Medium.milk2"), 100)
	writePresetFile(t, filepath.Join(cream, "Waveform", "Martin - Wave.milk"), 50)
	require.NoError(t, os.WriteFile(filepath.Join(cream, "Fractal", "readme.txt"), []byte("skip"), 0600))

	original := filepath.Join(src, "original")
	writePresetFile(t, filepath.Join(original, "Classic", "Rovastar - Old.milk"), 20)

	report, err := Scan(ScanOptions{
		Roots: []ScanRoot{
			{Name: "cream", Path: cream, Categories: map[string]string{"Fractal": "fractal", "Waveform": "waveform"}},
			{Name: "original", Path: original},
			{Name: "missing", Path: filepath.Join(src, "nope")},
		},
		PerCategory: 2,
		Out:         out,
		Now:         func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	require.Equal(t, 5, report.Found)
	require.Equal(t, 4, report.Selected)
	require.Equal(t, 4, report.Copied)
	require.Equal(t, []string{"missing"}, report.MissingRoots)
	require.Equal(t, 4, report.ByCollection["cream"])
	require.Equal(t, 3, report.ByCategory["fractal"])

	m, problems, err := LoadFile(report.ManifestPath)
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Equal(t, ManifestVersion, m.Version)
	require.Equal(t, "2024-05-01T00:00:00Z", m.Generated)
	require.Equal(t, 4, m.TotalPresets)
	require.Equal(t, []string{"cream", "original", "missing"}, m.Collections)
	require.Equal(t, []string{"classic", "fractal", "waveform"}, m.Categories)

	fractal := m.ByCategory("fractal")
	require.Len(t, fractal, 2)
	require.Equal(t, "Small", fractal[0].Name)
	require.Equal(t, "Medium", fractal[1].Name)
	require.Equal(t, preset.TypeMilk2, fractal[1].Type)
	require.Equal(t, "Flexi", fractal[1].Author)

	for _, e := range m.Presets {
		require.Equal(t, "presets/"+e.Category+"/"+e.ID+e.Type.Extension(), e.AssetPath)
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(e.AssetPath)))
		require.NoError(t, err)
	}

	// The written catalog seeds through AssetSource
	content, err := NewSource(out).Content(fractal[0])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(content, "[preset00]"))
}

func TestScan_SkipsEntriesThatFailToCopy(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	root := filepath.Join(src, "cream")
	writePresetFile(t, filepath.Join(root, "Fractal", "Geiss - Deep.milk"), 10)
	writePresetFile(t, filepath.Join(root, "Waveform", "Martin - Wave.milk"), 10)

	// A plain file where the waveform directory should go blocks that copy
	require.NoError(t, os.MkdirAll(filepath.Join(out, "presets"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(out, "presets", "waveform"), []byte("x"), 0600))

	report, err := Scan(ScanOptions{
		Roots: []ScanRoot{{Name: "cream", Path: root, Categories: map[string]string{
			"Fractal": "fractal", "Waveform": "waveform",
		}}},
		Out: out,
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Selected)
	require.Equal(t, 1, report.Copied)

	m, problems, err := LoadFile(report.ManifestPath)
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Equal(t, 1, m.TotalPresets)
	require.Len(t, m.Presets, 1)
	require.Equal(t, "fractal", m.Presets[0].Category)
	require.Equal(t, []string{"fractal"}, m.Categories)

	_, err = NewSource(out).Content(m.Presets[0])
	require.NoError(t, err)
}

func TestScan_RequiresOut(t *testing.T) {
	_, err := Scan(ScanOptions{})
	require.Error(t, err)
}
