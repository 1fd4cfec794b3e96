package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/preset"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "presets", "favorites", "recent", "collections"
}

// ListPageData is the template data for preset listings.
type ListPageData struct {
	PageData
	Heading string
	Presets []*preset.Preset
	Query   string
	Search  bool
}

// DetailPageData is the template data for the preset detail page.
type DetailPageData struct {
	PageData
	Preset       *preset.Preset
	RenderedHTML template.HTML
	Warnings     []string
	Size         int
}

// CollectionsPageData is the template data for the collection index.
type CollectionsPageData struct {
	PageData
	Collections []*preset.Collection
}

// CollectionPageData is the template data for a single collection.
type CollectionPageData struct {
	PageData
	Collection *preset.Collection
	Presets    []*preset.Preset
	Missing    int
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	markdown  goldmark.Markdown
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
		"formatSize": formatSize,
		"join":       strings.Join,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"list":        "list.html",
		"detail":      "detail.html",
		"collections": "collections.html",
		"collection":  "collection.html",
		"error":       "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// page builds the shared page fields.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		logging.Error().Str("template", name).Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		logging.Error().Err(err).Str("template", name).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	vErr, ok := errors.As(err)
	if !ok {
		vErr = errors.NewInternal(err)
	}
	if vErr.Code == errors.ErrInternal {
		logging.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
	}

	status := vErr.Status
	message := vErr.Message

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(vErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// cardParams are the [preset00] values summarized at the top of a card.
var cardParams = []string{
	"fRating", "fDecay", "fGammaAdj", "fVideoEchoZoom", "nWaveMode",
	"zoom", "rot", "warp", "fWarpScale",
}

// renderCard converts a preset into HTML: a summary table followed by each
// section as a code block. Content is never interpreted.
func (r *Renderer) renderCard(p *preset.Preset) template.HTML {
	md := presetMarkdown(p)
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(p.Content) + "</pre>")
	}
	return template.HTML(buf.String())
}

// presetMarkdown builds the card document for p.
func presetMarkdown(p *preset.Preset) string {
	var b strings.Builder
	sections := preset.ParseSections(p.Content)

	if len(sections) > 0 {
		var rows []string
		for _, key := range cardParams {
			if v, ok := sections[0].Lookup(key); ok {
				rows = append(rows, fmt.Sprintf("| %s | %s |", key, escapeMarkdown(v)))
			}
		}
		if len(rows) > 0 {
			b.WriteString("| Parameter | Value |\n|---|---|\n")
			b.WriteString(strings.Join(rows, "\n"))
			b.WriteString("\n\n")
		}
	}

	if len(sections) == 0 {
		b.WriteString("_No sections found._\n\n")
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "### %s\n\n", escapeMarkdown(s.Name))
		lines := make([]string, 0, len(s.Params))
		for _, param := range s.Params {
			lines = append(lines, param.Key+"="+param.Value)
		}
		body := strings.Join(lines, "\n")
		fence := codeFence(body)
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", fence, body, fence)
	}
	return b.String()
}

// escapeMarkdown backslash-escapes ASCII punctuation so preset text renders literally.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c < 128 && strings.ContainsRune("\\`*_{}[]()#+-.!|<>~&\"'", c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// codeFence returns a backtick fence longer than any backtick run in body.
func codeFence(body string) string {
	longest, run := 0, 0
	for _, c := range body {
		if c == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

// formatTime formats a timestamp as "2006-01-02 15:04" UTC.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// formatSize formats a byte count for display.
func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
