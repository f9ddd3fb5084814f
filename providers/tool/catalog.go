package tool

import (
	"fmt"
	"strings"
	"sync"

	"github.com/leofalp/aigoflow/providers/ai"
)

// DuplicateToolNameError reports two tools registered under the same name.
// Names are compared case-insensitively.
type DuplicateToolNameError struct {
	Name string
}

func (e *DuplicateToolNameError) Error() string {
	return fmt.Sprintf("duplicate tool name %q", e.Name)
}

// Catalog is a thread-safe, ordered collection of uniquely named tools.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
	order []string
}

// NewCatalog creates a new empty tool catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tools: make(map[string]GenericTool),
	}
}

// NewCatalogWithTools creates a catalog holding tools, failing on the first
// duplicate name.
func NewCatalogWithTools(tools ...GenericTool) (*Catalog, error) {
	catalog := NewCatalog()
	if err := catalog.Add(tools...); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Add registers tools in order. A name already present, or repeated within
// tools, fails with *DuplicateToolNameError and leaves the catalog unchanged.
func (catalog *Catalog) Add(tools ...GenericTool) error {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	pending := make(map[string]struct{}, len(tools))
	for _, candidate := range tools {
		key := strings.ToLower(candidate.ToolInfo().Name)
		if _, exists := catalog.tools[key]; exists {
			return &DuplicateToolNameError{Name: candidate.ToolInfo().Name}
		}
		if _, exists := pending[key]; exists {
			return &DuplicateToolNameError{Name: candidate.ToolInfo().Name}
		}
		pending[key] = struct{}{}
	}

	for _, candidate := range tools {
		key := strings.ToLower(candidate.ToolInfo().Name)
		catalog.tools[key] = candidate
		catalog.order = append(catalog.order, key)
	}
	return nil
}

// Get retrieves a tool by name (case-insensitive).
func (catalog *Catalog) Get(name string) (GenericTool, bool) {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	found, exists := catalog.tools[strings.ToLower(name)]
	return found, exists
}

// Has checks if a tool with the given name exists (case-insensitive).
func (catalog *Catalog) Has(name string) bool {
	_, exists := catalog.Get(name)
	return exists
}

// Size returns the number of tools in the catalog.
func (catalog *Catalog) Size() int {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return len(catalog.order)
}

// Names returns the advertised tool names in registration order.
func (catalog *Catalog) Names() []string {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	names := make([]string, 0, len(catalog.order))
	for _, key := range catalog.order {
		names = append(names, catalog.tools[key].ToolInfo().Name)
	}
	return names
}

// Descriptions returns the tool descriptions in registration order, ready to
// be placed in an ai.ChatRequest.
func (catalog *Catalog) Descriptions() []ai.ToolDescription {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	descriptions := make([]ai.ToolDescription, 0, len(catalog.order))
	for _, key := range catalog.order {
		descriptions = append(descriptions, catalog.tools[key].ToolInfo())
	}
	return descriptions
}
