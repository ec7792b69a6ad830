package tools

type builtinSpec struct {
	description          string
	category             Category
	path                 string
	readOnly             bool
	requiresConfirmation bool
}

// builtinTools is the fixed catalogue preloaded at registry construction,
// grounded on the reference implementation's BUILTIN_TOOLS table.
var builtinTools = map[string]builtinSpec{
	"Read":  {"Read file contents", CategoryFile, "file/read", true, false},
	"Write": {"Write content to a file", CategoryFile, "file/write", false, true},
	"Grep":  {"Search for patterns in files", CategoryFile, "file/grep", true, false},
	"Glob":  {"Find files matching a pattern", CategoryFile, "file/glob", true, false},

	"search_and_replace": {"Edit file using unique anchor block (NOT line numbers)", CategoryCode, "code/edit", false, true},

	"list_symbols":     {"List all symbols (classes, functions) in a file", CategoryNavigation, "navigation/list_symbols", true, false},
	"find_definition":  {"Find where a symbol is defined", CategoryNavigation, "navigation/find_definition", true, false},
	"find_references":  {"Find all references to a symbol", CategoryNavigation, "navigation/find_references", true, false},
	"get_call_graph":    {"Build dependency graph for a function", CategoryNavigation, "navigation/get_call_graph", true, false},

	"Bash":           {"Execute bash commands", CategoryExecution, "execution/bash", false, true},
	"execute_script": {"Execute script in Docker container", CategoryExecution, "execution/docker", false, true},

	"git_status":          {"Get git repository status", CategoryGit, "git/status", true, false},
	"git_diff":            {"Get diff of changes", CategoryGit, "git/diff", true, false},
	"git_commit":          {"Create a commit", CategoryGit, "git/commit", false, true},
	"create_pull_request": {"Create a pull request", CategoryGit, "git/create_pr", false, true},
}

// richSchemas hand-authors fuller JSON schemas for a small allow-listed set of
// tools, matching the reference implementation's _generate_default_schema
// special cases. Every other tool falls back to emptyObjectSchema.
var richSchemas = map[string]func() *Schema{
	"Read": func() *Schema {
		return &Schema{
			Name:        "Read",
			Description: "Read file contents",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{
						"type":        "string",
						"description": "Path to the file to read",
					},
				},
				"required": []string{"file_path"},
			},
		}
	},
	"search_and_replace": func() *Schema {
		return &Schema{
			Name:        "search_and_replace",
			Description: "Edit file using unique anchor block",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{
						"type":        "string",
						"description": "Path to the file to edit",
					},
					"find_block": map[string]any{
						"type":        "string",
						"description": "Unique anchor block to find (3-5 lines context)",
					},
					"replace_block": map[string]any{
						"type":        "string",
						"description": "Content to replace anchor with",
					},
				},
				"required": []string{"file_path", "find_block", "replace_block"},
			},
		}
	},
	"list_symbols": func() *Schema {
		return &Schema{
			Name:        "list_symbols",
			Description: "List all symbols in a file",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string", "description": "Path to the file"},
					"kinds": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Filter by symbol kind (class, function, etc.)",
					},
				},
				"required": []string{"file_path"},
			},
		}
	},
	"find_definition": func() *Schema {
		return &Schema{
			Name:        "find_definition",
			Description: "Find where a symbol is defined",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{"type": "string", "description": "Name of the symbol to find"},
					"scope":  map[string]any{"type": "string", "description": "Optional scope to narrow search"},
				},
				"required": []string{"symbol"},
			},
		}
	},
	"find_references": func() *Schema {
		return &Schema{
			Name:        "find_references",
			Description: "Find all references to a symbol",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{"type": "string", "description": "Name of the symbol"},
					"include_definition": map[string]any{
						"type": "boolean", "description": "Include the definition location", "default": true,
					},
				},
				"required": []string{"symbol"},
			},
		}
	},
}
