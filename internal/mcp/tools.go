package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var saveToolDef = mcp.NewTool("preset_save",
	mcp.WithDescription("Create or replace a preset. Content goes to the blob store, metadata to the metadata store. Omit id to create a new preset."),
	mcp.WithString("id", mcp.Description("Preset id. Generated when omitted.")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
	mcp.WithString("author", mcp.Description("Author")),
	mcp.WithString("type", mcp.Required(), mcp.Enum("milk", "milk2"), mcp.Description("Preset dialect")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Preset text, normally starting with [preset00]")),
	mcp.WithArray("tags", stringItems, mcp.Description("Tags (duplicates dropped)")),
	mcp.WithBoolean("is_favorite", mcp.Description("Favorite flag")),
	mcp.WithNumber("version", mcp.Description("Preset version (default 1)")),
	mcp.WithBoolean("custom_colors", mcp.Description("Whether the preset uses custom colors")),
)

var loadToolDef = mcp.NewTool("preset_load",
	mcp.WithDescription("Load a preset with its content."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Preset id")),
	mcp.WithBoolean("touch_recent", mcp.Description("Also move the preset to the front of the recent list")),
)

var listToolDef = mcp.NewTool("preset_list",
	mcp.WithDescription("List all presets (metadata only), most recently modified first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("preset_delete",
	mcp.WithDescription("Delete a preset's content and metadata and drop it from favorites and recent. Collections keep their references."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Preset id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var duplicateToolDef = mcp.NewTool("preset_duplicate",
	mcp.WithDescription("Copy a preset under a new id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Source preset id")),
	mcp.WithString("name", mcp.Description("Name of the copy (default \"<name> (Copy)\")")),
)

var importToolDef = mcp.NewTool("preset_import",
	mcp.WithDescription("Import a preset file from the exports directory or an allowed path."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source file path (.milk2 imports as milk2, anything else as milk)")),
	mcp.WithString("name", mcp.Description("Preset name (default: file name without extension)")),
)

var exportToolDef = mcp.NewTool("preset_export",
	mcp.WithDescription("Write a preset's content to the exports directory and return the file path."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Preset id")),
)

var shareToolDef = mcp.NewTool("preset_share",
	mcp.WithDescription("Export a preset and hand the file to the configured share command."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Preset id")),
)

var searchToolDef = mcp.NewTool("preset_search",
	mcp.WithDescription("Case-insensitive substring search over preset name, author and tags."),
	mcp.WithString("query", mcp.Description("Search text (empty matches everything)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var favoriteAddToolDef = mcp.NewTool("favorite_add",
	mcp.WithDescription("Mark a preset as favorite. Unknown ids are ignored."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Preset id")),
)

var favoriteRemoveToolDef = mcp.NewTool("favorite_remove",
	mcp.WithDescription("Clear a preset's favorite mark."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Preset id")),
)

var favoriteListToolDef = mcp.NewTool("favorite_list",
	mcp.WithDescription("List favorite presets, most recently modified first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var recentAddToolDef = mcp.NewTool("recent_add",
	mcp.WithDescription("Move a preset to the front of the recent list (max 50 entries)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Preset id")),
)

var recentListToolDef = mcp.NewTool("recent_list",
	mcp.WithDescription("List recently used presets, most recent first."),
	mcp.WithNumber("limit", mcp.Description("Maximum entries (default 20)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var collectionCreateToolDef = mcp.NewTool("collection_create",
	mcp.WithDescription("Create a named collection of presets."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Collection name")),
	mcp.WithArray("preset_ids", stringItems, mcp.Description("Initial preset ids")),
)

var collectionAddToolDef = mcp.NewTool("collection_add",
	mcp.WithDescription("Add a preset to a collection."),
	mcp.WithString("collection_id", mcp.Required(), mcp.Description("Collection id")),
	mcp.WithString("preset_id", mcp.Required(), mcp.Description("Preset id")),
)

var collectionRemoveToolDef = mcp.NewTool("collection_remove",
	mcp.WithDescription("Remove a preset from a collection."),
	mcp.WithString("collection_id", mcp.Required(), mcp.Description("Collection id")),
	mcp.WithString("preset_id", mcp.Required(), mcp.Description("Preset id")),
)

var collectionDeleteToolDef = mcp.NewTool("collection_delete",
	mcp.WithDescription("Delete a collection. Its presets are untouched."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Collection id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var collectionGetToolDef = mcp.NewTool("collection_get",
	mcp.WithDescription("Get a collection and its resolved presets. Deleted presets are skipped."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Collection id")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var collectionListToolDef = mcp.NewTool("collection_list",
	mcp.WithDescription("List all collections, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var catalogSeedToolDef = mcp.NewTool("catalog_seed",
	mcp.WithDescription("Import the bundled preset catalog. Runs once unless force is set; a forced run retries entries that failed before."),
	mcp.WithBoolean("force", mcp.Description("Run even if the catalog was already loaded")),
)

var catalogResetToolDef = mcp.NewTool("catalog_reset",
	mcp.WithDescription("Forget that the bundled catalog was loaded so the next seed re-imports it."),
)

var reconcileToolDef = mcp.NewTool("reconcile",
	mcp.WithDescription("Report (and optionally fix) inconsistencies between preset content and metadata."),
	mcp.WithBoolean("fix", mcp.Description("Remove orphans and prune stale references")),
)
