package digest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProgramEntry is one self-improvement program of the catalog.
type ProgramEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Catalog is the static id -> display name mapping of programs.
type Catalog struct {
	names map[string]string
	order []string
}

var defaultPrograms = []ProgramEntry{
	{ID: "pastAuthoring", Name: "Past Authoring"},
	{ID: "presentAuthoringFaults", Name: "Present Authoring: Faults"},
	{ID: "presentAuthoringVirtues", Name: "Present Authoring: Virtues"},
	{ID: "futureAuthoring", Name: "Future Authoring"},
	{ID: "understandMyself", Name: "Understand Myself"},
	{ID: "twelveRules", Name: "12 Rules for Life"},
}

// DefaultCatalog returns the built-in program catalog.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(defaultPrograms)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog builds a catalog, rejecting empty and duplicate ids.
func NewCatalog(entries []ProgramEntry) (Catalog, error) {
	c := Catalog{names: make(map[string]string, len(entries))}
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return Catalog{}, fmt.Errorf("program id must not be empty")
		}
		if _, exists := c.names[id]; exists {
			return Catalog{}, fmt.Errorf("program %q: duplicate id", id)
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = id
		}
		c.names[id] = name
		c.order = append(c.order, id)
	}
	return c, nil
}

// catalogFile is the on-disk YAML shape.
type catalogFile struct {
	Programs []ProgramEntry `yaml:"programs"`
}

// LoadCatalog reads a catalog from a YAML file of the form
//
//	programs:
//	  - id: futureAuthoring
//	    name: Future Authoring
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading program catalog %s: %w", path, err)
	}

	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("parsing program catalog %s: %w", path, err)
	}
	if len(raw.Programs) == 0 {
		return Catalog{}, fmt.Errorf("program catalog %s lists no programs", path)
	}

	return NewCatalog(raw.Programs)
}

// Lookup returns the display name of program id.
func (c Catalog) Lookup(id string) (string, bool) {
	name, ok := c.names[id]
	return name, ok
}

// IDs returns the program ids in catalog order.
func (c Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len reports the number of programs.
func (c Catalog) Len() int { return len(c.order) }
