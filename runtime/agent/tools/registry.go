package tools

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// SchemaLoader generates a schema for a tool on demand, e.g. by querying an
// MCP server or a codegen-produced description. Registered per tool name via
// SetSchemaLoader.
type SchemaLoader func(name string) *Schema

// SearchResult is returned by SearchTools.
type SearchResult struct {
	Tools             []Descriptor
	Query             string
	TotalMatches      int
	CategoriesSearched []Category
}

// Registry is the Progressive Tool Registry (C2): a catalogue of tools with
// lazy schema loading and meta-tools for discovery. A fresh session only ever
// sees MetaToolNames; every other tool becomes "in context" only once its
// schema has been loaded at least once (I-6).
type Registry struct {
	mu sync.RWMutex

	tools         map[string]*Definition
	byCategory    map[Category][]string
	loadedSchemas map[string]struct{}
	schemaLoaders map[string]SchemaLoader
}

// New constructs a Registry preloaded with the built-in tool catalogue.
func New() *Registry {
	r := &Registry{
		tools:         make(map[string]*Definition),
		byCategory:    make(map[Category][]string),
		loadedSchemas: make(map[string]struct{}),
		schemaLoaders: make(map[string]SchemaLoader),
	}
	for name, spec := range builtinTools {
		r.tools[name] = &Definition{
			Name:                 name,
			Description:          spec.description,
			Category:             spec.category,
			Path:                 spec.path,
			ReadOnly:             spec.readOnly,
			RequiresConfirmation: spec.requiresConfirmation,
			Version:              "1.0.0",
		}
		r.byCategory[spec.category] = append(r.byCategory[spec.category], name)
	}
	return r
}

// RegisterToolOptions configures RegisterTool.
type RegisterToolOptions struct {
	Path                 string
	Server               string
	Schema               *Schema
	ReadOnly             bool
	RequiresConfirmation bool
}

// RegisterTool adds a new tool to the catalogue. When opts.Schema is nil the
// tool's SchemaLoaded flag starts false and the schema is synthesised lazily
// on first GetToolSchema call.
func (r *Registry) RegisterTool(name, description string, category Category, opts RegisterToolOptions) *Definition {
	path := opts.Path
	if path == "" {
		path = string(category) + "/" + name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	def := &Definition{
		Name:                 name,
		Description:          description,
		Category:             category,
		Path:                 path,
		Server:               opts.Server,
		Schema:               opts.Schema,
		SchemaLoaded:         opts.Schema != nil,
		ReadOnly:             opts.ReadOnly,
		RequiresConfirmation: opts.RequiresConfirmation,
		Version:              "1.0.0",
	}
	r.tools[name] = def
	if !contains(r.byCategory[category], name) {
		r.byCategory[category] = append(r.byCategory[category], name)
	}
	return def
}

// MCPToolSpec describes one tool exposed by an MCP server for bulk
// registration via RegisterMCPServer.
type MCPToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// RegisterMCPServer bulk-registers tools from an MCP server under the mcp
// category, each at path "servers/<server>/<tool>".
func (r *Registry) RegisterMCPServer(serverName string, specs []MCPToolSpec) []*Definition {
	registered := make([]*Definition, 0, len(specs))
	for _, spec := range specs {
		var schema *Schema
		if spec.InputSchema != nil {
			schema = &Schema{Name: spec.Name, Description: spec.Description, InputSchema: spec.InputSchema}
		}
		def := r.RegisterTool(spec.Name, spec.Description, CategoryMCP, RegisterToolOptions{
			Path:   "servers/" + serverName + "/" + spec.Name,
			Server: serverName,
			Schema: schema,
		})
		registered = append(registered, def)
	}
	return registered
}

// SetSchemaLoader installs a custom schema loader for a tool, taking priority
// over the built-in default generator.
func (r *Registry) SetSchemaLoader(toolName string, loader SchemaLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemaLoaders[toolName] = loader
}

// ListCategories returns only categories that currently hold at least one
// tool (R-1: a superset of every category ListTools can return).
func (r *Registry) ListCategories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if len(r.byCategory[c]) > 0 {
			out = append(out, string(c))
		}
	}
	return out
}

// ListTools lists tools, optionally filtered by category. By default returns
// tools without full schemas (cheap); includeSchemas forces lazy loading
// before return.
func (r *Registry) ListTools(category string, includeSchemas bool) []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	if category != "" {
		names = r.byCategory[Category(category)]
	} else {
		names = make([]string, 0, len(r.tools))
		for name := range r.tools {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		def, ok := r.tools[name]
		if !ok {
			continue
		}
		if includeSchemas && !def.SchemaLoaded {
			r.loadSchemaLocked(def)
		}
		out = append(out, def.descriptor())
	}
	return out
}

// GetToolSchema loads (if needed) and returns the full schema for a tool,
// bumping its usage counter and stamping LastUsed (R-2: GetLoadedSchemas then
// contains this name). Returns nil, false if the tool is unknown.
func (r *Registry) GetToolSchema(toolName string) (*Schema, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.tools[toolName]
	if !ok {
		return nil, false
	}
	if !def.SchemaLoaded {
		r.loadSchemaLocked(def)
	}
	def.UsageCount++
	now := time.Now()
	def.LastUsed = &now
	r.loadedSchemas[toolName] = struct{}{}
	return def.Schema, true
}

func (r *Registry) loadSchemaLocked(def *Definition) {
	if loader, ok := r.schemaLoaders[def.Name]; ok {
		def.Schema = loader(def.Name)
		def.SchemaLoaded = true
		return
	}
	if gen, ok := richSchemas[def.Name]; ok {
		def.Schema = gen()
	} else {
		def.Schema = emptyObjectSchema(def.Name, def.Description)
	}
	def.SchemaLoaded = true
}

// GetLoadedSchemas returns the names of tools whose schema has been loaded at
// least once.
func (r *Registry) GetLoadedSchemas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loadedSchemas))
	for name := range r.loadedSchemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GetTool returns a tool definition by name, or nil if unknown.
func (r *Registry) GetTool(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// SearchTools performs keyword-weighted scoring search over the catalogue:
// name substring match +10, each query word found in the description +2,
// path substring match +3.
func (r *Registry) SearchTools(query string, categoryFilter []string, limit int) SearchResult {
	if limit <= 0 {
		limit = 10
	}
	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		def   *Definition
		score int
	}
	var matches []scored

	allow := map[string]struct{}{}
	for _, c := range categoryFilter {
		allow[c] = struct{}{}
	}

	for _, def := range r.tools {
		if len(allow) > 0 {
			if _, ok := allow[string(def.Category)]; !ok {
				continue
			}
		}

		score := 0
		nameLower := strings.ToLower(def.Name)
		if strings.Contains(nameLower, queryLower) {
			score += 10
		}
		descLower := strings.ToLower(def.Description)
		for _, w := range queryWords {
			if strings.Contains(descLower, w) {
				score += 2
			}
		}
		if strings.Contains(strings.ToLower(def.Path), queryLower) {
			score += 3
		}
		if score > 0 {
			matches = append(matches, scored{def, score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	searched := make([]Category, 0, len(categoryFilter))
	if len(categoryFilter) > 0 {
		for _, c := range categoryFilter {
			searched = append(searched, Category(c))
		}
	} else {
		for _, c := range r.ListCategoriesLocked() {
			searched = append(searched, Category(c))
		}
	}

	n := len(matches)
	if n > limit {
		n = limit
	}
	out := make([]Descriptor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, matches[i].def.descriptor())
	}

	return SearchResult{
		Tools:              out,
		Query:              query,
		TotalMatches:       len(matches),
		CategoriesSearched: searched,
	}
}

// ListCategoriesLocked is ListCategories without acquiring the lock, for
// internal callers already holding r.mu.
func (r *Registry) ListCategoriesLocked() []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if len(r.byCategory[c]) > 0 {
			out = append(out, string(c))
		}
	}
	return out
}

// GetFilesystemView returns a nested map reflecting each tool's virtual path,
// the "tools as filesystem" projection.
func (r *Registry) GetFilesystemView() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tree := map[string]any{}
	for _, def := range r.tools {
		parts := strings.Split(def.Path, "/")
		cur := tree
		for _, part := range parts[:len(parts)-1] {
			next, ok := cur[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[part] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = map[string]any{
			"name":      def.Name,
			"description": def.Description,
			"read_only": def.ReadOnly,
		}
	}
	return tree
}

// GetMetaTools returns the four meta-tool names exposed to a fresh session
// (I-6). Progressive disclosure means every other tool name is only
// considered "in context" once GetToolSchema has been called for it.
func (r *Registry) GetMetaTools() []string {
	out := make([]string, len(MetaToolNames))
	copy(out, MetaToolNames)
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
