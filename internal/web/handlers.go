package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/ops"
	"github.com/hpungsan/presetvault/internal/preset"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	repo     *ops.Repository
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /presets, optionally filtered by ?q=.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var presets []*preset.Preset
	var err error
	if query != "" {
		presets, err = h.repo.Search(r.Context(), query)
	} else {
		presets, err = h.repo.GetAll(r.Context())
	}
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"presets": presets, "count": len(presets)})
		return
	}

	title := "Presets"
	if query != "" {
		title = "Search"
	}
	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: h.renderer.page(title, "presets"),
		Heading:  title,
		Presets:  presets,
		Query:    query,
		Search:   true,
	})
}

// HandleDetail handles GET /presets/{id}. With ?touch=1 the preset also moves
// to the front of the recent list.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := h.repo.Load(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if parseBoolParam(r, "touch") {
		if err := h.repo.AddToRecent(r.Context(), id); err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, p)
		return
	}

	lint := preset.Lint(preset.LintInput{Content: p.Content, MaxBytes: h.cfg.PresetMaxBytes})
	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData:     h.renderer.page(p.Name, "presets"),
		Preset:       p,
		RenderedHTML: h.renderer.renderCard(p),
		Warnings:     lint.Warnings,
		Size:         lint.ActualBytes,
	})
}

// HandleDownload handles GET /presets/{id}/download with the export file name.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	filename := preset.SanitizeFilename(p.Name) + p.Type.Extension()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write([]byte(p.Content))
}

// HandleFavorite handles POST /presets/{id}/favorite with form field favorite=true|false.
func (h *Handlers) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	favorite, err := strconv.ParseBool(r.FormValue("favorite"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(`favorite must be "true" or "false"`))
		return
	}

	if favorite {
		err = h.repo.AddFavorite(r.Context(), id)
	} else {
		err = h.repo.RemoveFavorite(r.Context(), id)
	}
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": favorite})
		return
	}
	http.Redirect(w, r, "/presets/"+id, http.StatusSeeOther)
}

// HandleDelete handles DELETE /presets/{id} and its form fallback.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/presets")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "id": id})
		return
	}

	http.Redirect(w, r, "/presets", http.StatusSeeOther)
}

// HandleFavorites handles GET /favorites.
func (h *Handlers) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	presets, err := h.repo.GetFavorites(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderList(w, r, "Favorites", "favorites", presets)
}

// HandleRecent handles GET /recent?limit=N.
func (h *Handlers) HandleRecent(w http.ResponseWriter, r *http.Request) {
	presets, err := h.repo.GetRecent(r.Context(), parseIntParam(r, "limit", ops.DefaultRecentLimit))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderList(w, r, "Recently used", "recent", presets)
}

func (h *Handlers) renderList(w http.ResponseWriter, r *http.Request, title, nav string, presets []*preset.Preset) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"presets": presets, "count": len(presets)})
		return
	}
	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: h.renderer.page(title, nav),
		Heading:  title,
		Presets:  presets,
	})
}

// HandleCollections handles GET /collections.
func (h *Handlers) HandleCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.repo.GetAllCollections(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"collections": collections, "count": len(collections)})
		return
	}
	h.renderer.renderPage(w, r, "collections", CollectionsPageData{
		PageData:    h.renderer.page("Collections", "collections"),
		Collections: collections,
	})
}

// HandleCollection handles GET /collections/{id}. Members that no longer
// exist are counted but not listed.
func (h *Handlers) HandleCollection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	c, err := h.repo.GetCollection(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	presets, err := h.repo.CollectionPresets(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"collection": c, "presets": presets})
		return
	}
	h.renderer.renderPage(w, r, "collection", CollectionPageData{
		PageData:   h.renderer.page(c.Name, "collections"),
		Collection: c,
		Presets:    presets,
		Missing:    len(c.PresetIDs) - len(presets),
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
