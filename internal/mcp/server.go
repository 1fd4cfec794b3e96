package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/presetvault/internal/catalog"
	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"preset_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"preset_load": {
		def:     loadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad },
	},
	"preset_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"preset_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"preset_duplicate": {
		def:     duplicateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDuplicate },
	},
	"preset_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"preset_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"preset_share": {
		def:     shareToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShare },
	},
	"preset_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"favorite_add": {
		def:     favoriteAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFavoriteAdd },
	},
	"favorite_remove": {
		def:     favoriteRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFavoriteRemove },
	},
	"favorite_list": {
		def:     favoriteListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFavoriteList },
	},
	"recent_add": {
		def:     recentAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecentAdd },
	},
	"recent_list": {
		def:     recentListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecentList },
	},
	"collection_create": {
		def:     collectionCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionCreate },
	},
	"collection_add": {
		def:     collectionAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionAdd },
	},
	"collection_remove": {
		def:     collectionRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionRemove },
	},
	"collection_delete": {
		def:     collectionDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionDelete },
	},
	"collection_get": {
		def:     collectionGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionGet },
	},
	"collection_list": {
		def:     collectionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionList },
	},
	"catalog_seed": {
		def:     catalogSeedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalogSeed },
	},
	"catalog_reset": {
		def:     catalogResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalogReset },
	},
	"reconcile": {
		def:     reconcileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReconcile },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the preset tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
// seeder may be nil when no catalog is configured.
func NewServer(repo *ops.Repository, seeder *catalog.Seeder, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"presetvault",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(repo, seeder, cfg)

	disabled := make(map[string]bool, len(h.cfg.DisabledTools))
	for _, name := range h.cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(repo *ops.Repository, seeder *catalog.Seeder, cfg *config.Config, version string) error {
	s := NewServer(repo, seeder, cfg, version)
	return server.ServeStdio(s)
}
