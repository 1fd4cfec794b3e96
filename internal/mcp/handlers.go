package mcp

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/presetvault/internal/catalog"
	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/ops"
	"github.com/hpungsan/presetvault/internal/preset"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	repo   *ops.Repository
	seeder *catalog.Seeder
	cfg    *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(repo *ops.Repository, seeder *catalog.Seeder, cfg *config.Config) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handlers{repo: repo, seeder: seeder, cfg: cfg}
}

// Request types for each tool

// SaveRequest represents the arguments for preset_save.
type SaveRequest struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	Author       string   `json:"author,omitempty"`
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags,omitempty"`
	IsFavorite   bool     `json:"is_favorite,omitempty"`
	Version      int      `json:"version,omitempty"`
	CustomColors *bool    `json:"custom_colors,omitempty"`
}

// IDRequest is used by every tool that takes a single id.
type IDRequest struct {
	ID string `json:"id"`
}

// LoadRequest represents the arguments for preset_load.
type LoadRequest struct {
	ID          string `json:"id"`
	TouchRecent bool   `json:"touch_recent,omitempty"`
}

// DuplicateRequest represents the arguments for preset_duplicate.
type DuplicateRequest struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ImportRequest represents the arguments for preset_import.
type ImportRequest struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// SearchRequest represents the arguments for preset_search.
type SearchRequest struct {
	Query string `json:"query"`
}

// RecentListRequest represents the arguments for recent_list.
type RecentListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// CollectionCreateRequest represents the arguments for collection_create.
type CollectionCreateRequest struct {
	Name      string   `json:"name"`
	PresetIDs []string `json:"preset_ids,omitempty"`
}

// CollectionMemberRequest represents the arguments for collection_add and collection_remove.
type CollectionMemberRequest struct {
	CollectionID string `json:"collection_id"`
	PresetID     string `json:"preset_id"`
}

// SeedRequest represents the arguments for catalog_seed.
type SeedRequest struct {
	Force bool `json:"force,omitempty"`
}

// ReconcileRequest represents the arguments for reconcile.
type ReconcileRequest struct {
	Fix bool `json:"fix,omitempty"`
}

// Response types

// PresetList wraps preset listings.
type PresetList struct {
	Presets []*preset.Preset `json:"presets"`
	Count   int              `json:"count"`
}

func presetList(presets []*preset.Preset) PresetList {
	if presets == nil {
		presets = []*preset.Preset{}
	}
	return PresetList{Presets: presets, Count: len(presets)}
}

// CollectionDetail is a collection with its resolved presets.
type CollectionDetail struct {
	*preset.Collection
	Presets []*preset.Preset `json:"presets"`
}

// Handler implementations

// HandleSave handles the preset_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		input.ID = ops.NewID()
	}

	p := &preset.Preset{
		ID:      input.ID,
		Name:    input.Name,
		Author:  input.Author,
		Type:    preset.Type(input.Type),
		Content: input.Content,
		Metadata: preset.Metadata{
			IsFavorite:   input.IsFavorite,
			Tags:         input.Tags,
			Version:      input.Version,
			CustomColors: input.CustomColors,
		},
	}
	if err := h.repo.Save(ctx, p); err != nil {
		return errorResult(err), nil
	}

	result := map[string]any{"preset": p.WithoutContent()}
	if lint := preset.Lint(preset.LintInput{Content: p.Content}); len(lint.Warnings) > 0 {
		result["warnings"] = lint.Warnings
	}
	return successResult(result)
}

// HandleLoad handles the preset_load tool call.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LoadRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	p, err := h.repo.Load(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	if input.TouchRecent {
		if err := h.repo.AddToRecent(ctx, p.ID); err != nil {
			return errorResult(err), nil
		}
	}
	return successResult(p)
}

// HandleList handles the preset_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	presets, err := h.repo.GetAll(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(presetList(presets))
}

// HandleDelete handles the preset_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	deleted, err := h.repo.Delete(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": deleted})
}

// HandleDuplicate handles the preset_duplicate tool call.
func (h *Handlers) HandleDuplicate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DuplicateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	id, err := h.repo.Duplicate(ctx, input.ID, input.Name)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": id, "source_id": input.ID})
}

// HandleImport handles the preset_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	id, err := h.repo.ImportFile(ctx, input.Path, input.Name)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": id, "path": input.Path})
}

// HandleExport handles the preset_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	path, err := h.repo.ExportFile(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "path": path})
}

// HandleShare handles the preset_share tool call.
func (h *Handlers) HandleShare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	shared, err := h.repo.Share(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "shared": shared})
}

// HandleSearch handles the preset_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	presets, err := h.repo.Search(ctx, input.Query)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(presetList(presets))
}

// HandleFavoriteAdd handles the favorite_add tool call.
func (h *Handlers) HandleFavoriteAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.repo.AddFavorite(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "favorite": true})
}

// HandleFavoriteRemove handles the favorite_remove tool call.
func (h *Handlers) HandleFavoriteRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.repo.RemoveFavorite(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "favorite": false})
}

// HandleFavoriteList handles the favorite_list tool call.
func (h *Handlers) HandleFavoriteList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	presets, err := h.repo.GetFavorites(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(presetList(presets))
}

// HandleRecentAdd handles the recent_add tool call.
func (h *Handlers) HandleRecentAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.repo.AddToRecent(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID})
}

// HandleRecentList handles the recent_list tool call.
func (h *Handlers) HandleRecentList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecentListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	presets, err := h.repo.GetRecent(ctx, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(presetList(presets))
}

// HandleCollectionCreate handles the collection_create tool call.
func (h *Handlers) HandleCollectionCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CollectionCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	id, err := h.repo.CreateCollection(ctx, input.Name, input.PresetIDs)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": id})
}

// HandleCollectionAdd handles the collection_add tool call.
func (h *Handlers) HandleCollectionAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CollectionMemberRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	ok, err := h.repo.AddToCollection(ctx, input.CollectionID, input.PresetID)
	if err != nil {
		return errorResult(err), nil
	}
	if !ok {
		return errorResult(errors.NewCollectionNotFound(input.CollectionID)), nil
	}
	return successResult(map[string]any{"collection_id": input.CollectionID, "preset_id": input.PresetID})
}

// HandleCollectionRemove handles the collection_remove tool call.
func (h *Handlers) HandleCollectionRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CollectionMemberRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	ok, err := h.repo.RemoveFromCollection(ctx, input.CollectionID, input.PresetID)
	if err != nil {
		return errorResult(err), nil
	}
	if !ok {
		return errorResult(errors.NewCollectionNotFound(input.CollectionID)), nil
	}
	return successResult(map[string]any{"collection_id": input.CollectionID, "preset_id": input.PresetID})
}

// HandleCollectionDelete handles the collection_delete tool call.
func (h *Handlers) HandleCollectionDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	deleted, err := h.repo.DeleteCollection(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": deleted})
}

// HandleCollectionGet handles the collection_get tool call.
func (h *Handlers) HandleCollectionGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	c, err := h.repo.GetCollection(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	presets, err := h.repo.CollectionPresets(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(CollectionDetail{Collection: c, Presets: presets})
}

// HandleCollectionList handles the collection_list tool call.
func (h *Handlers) HandleCollectionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections, err := h.repo.GetAllCollections(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"collections": collections, "count": len(collections)})
}

// HandleCatalogSeed handles the catalog_seed tool call.
func (h *Handlers) HandleCatalogSeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SeedRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if h.seeder == nil || h.cfg.Catalog.Manifest == "" {
		return errorResult(errors.NewInvalidRequest("catalog.manifest is not configured")), nil
	}

	m, problems, err := catalog.LoadFile(h.cfg.Catalog.Manifest)
	if err != nil {
		return errorResult(errors.NewIOFailure("load catalog manifest", err)), nil
	}
	report, err := h.seeder.Seed(ctx, m, catalog.SeedOptions{Force: input.Force})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"report": report, "invalid_entries": problems})
}

// HandleCatalogReset handles the catalog_reset tool call.
func (h *Handlers) HandleCatalogReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.seeder == nil {
		return errorResult(errors.NewInvalidRequest("catalog.manifest is not configured")), nil
	}
	if err := h.seeder.ResetSeed(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"reset": true})
}

// HandleReconcile handles the reconcile tool call.
func (h *Handlers) HandleReconcile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReconcileRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	report, err := h.repo.Reconcile(ctx, input.Fix)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(report)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    vErr.Code,
			"message": vErr.Message,
			"status":  vErr.Status,
		}
		if vErr.Code != errors.ErrInternal && vErr.Details != nil {
			errorObj["details"] = vErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
