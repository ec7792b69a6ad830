// Package tools implements the Progressive Tool Registry: a virtual
// "tools-as-filesystem" catalogue where only four meta-tools are visible to a
// fresh session and every other tool's full schema is loaded lazily, on first
// use, to keep initial context pressure low.
package tools

import "time"

// Category partitions the catalogue into virtual top-level directories.
type Category string

const (
	CategoryFile       Category = "file"
	CategoryCode       Category = "code"
	CategoryNavigation Category = "navigation"
	CategoryExecution  Category = "execution"
	CategoryGit        Category = "git"
	CategoryAPI        Category = "api"
	CategoryAnalysis   Category = "analysis"
	CategoryMCP        Category = "mcp"
)

// categories lists every known category in stable iteration order.
var categories = []Category{
	CategoryFile, CategoryCode, CategoryNavigation, CategoryExecution,
	CategoryGit, CategoryAPI, CategoryAnalysis, CategoryMCP,
}

// JSONCodec serializes and deserializes strongly typed tool payloads to and
// from JSON. Kept for the small set of built-in tools with hand-authored
// richer schemas; every other tool uses the registry's default schema
// generator instead.
type JSONCodec[T any] struct {
	ToJSON   func(T) ([]byte, error)
	FromJSON func([]byte) (T, error)
}

// Definition describes a tool available to agents. Definitions are shared and
// immutable except for their lazily loaded Schema and monotonic usage counters
// (§3.2 ownership summary).
type Definition struct {
	Name        string
	Description string
	Category    Category

	// Schema is nil until first loaded; see SchemaLoaded.
	Schema       *Schema
	SchemaLoaded bool

	Path    string
	Server  string
	Version string

	UsageCount int
	LastUsed   *time.Time

	ReadOnly             bool
	RequiresConfirmation bool
}

// Descriptor is the cheap, schema-free projection of a Definition returned by
// ListTools/SearchTools by default.
type Descriptor struct {
	Name                 string
	Description          string
	Category             Category
	Path                 string
	Server               string
	ReadOnly             bool
	RequiresConfirmation bool
}

func (d *Definition) descriptor() Descriptor {
	return Descriptor{
		Name:                 d.Name,
		Description:          d.Description,
		Category:             d.Category,
		Path:                 d.Path,
		Server:               d.Server,
		ReadOnly:             d.ReadOnly,
		RequiresConfirmation: d.RequiresConfirmation,
	}
}

// MetaToolNames are the only tools a fresh session exposes (I-6).
var MetaToolNames = []string{"list_categories", "list_tools", "get_tool_schema", "search_tools"}
