package classifier

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the semantic bucket a label falls into.
type Kind int

const (
	Unclassified Kind = iota
	FarmAnimal
	Human
	Dangerous
)

func (k Kind) String() string {
	switch k {
	case FarmAnimal:
		return "farm_animal"
	case Human:
		return "human"
	case Dangerous:
		return "dangerous"
	default:
		return "unclassified"
	}
}

// Category is the result of classifying one label.
// Name holds the farm-animal or dangerous-animal kind; it is empty for Unclassified.
type Category struct {
	Kind Kind
	Name string
}

// Default label lists used when no table file is configured.
var (
	DefaultFarmAnimals      = []string{"cow", "goat", "horse"}
	DefaultHumans           = []string{"person"}
	DefaultDangerousAnimals = []string{"lion", "tiger", "dog", "fox"}
)

// Table maps detector labels to categories. It is read-only after construction.
type Table struct {
	categories map[string]Category
	farmKinds  []string
}

// TableFile is the YAML layout of a category table.
type TableFile struct {
	FarmAnimals      []string `yaml:"farm_animals"`
	Humans           []string `yaml:"humans"`
	DangerousAnimals []string `yaml:"dangerous_animals"`
}

// NewTable builds a table. A label may appear in only one list.
func NewTable(farmAnimals, humans, dangerous []string) (*Table, error) {
	t := &Table{
		categories: make(map[string]Category),
	}

	add := func(label string, kind Kind) error {
		key := normalize(label)
		if key == "" {
			return fmt.Errorf("empty label in %s list", kind)
		}
		if existing, ok := t.categories[key]; ok {
			return fmt.Errorf("label %q listed as both %s and %s", key, existing.Kind, kind)
		}
		category := Category{Kind: kind}
		if kind != Human {
			category.Name = key
		}
		t.categories[key] = category
		if kind == FarmAnimal {
			t.farmKinds = append(t.farmKinds, key)
		}
		return nil
	}

	for _, label := range farmAnimals {
		if err := add(label, FarmAnimal); err != nil {
			return nil, err
		}
	}
	for _, label := range humans {
		if err := add(label, Human); err != nil {
			return nil, err
		}
	}
	for _, label := range dangerous {
		if err := add(label, Dangerous); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultFarmAnimals, DefaultHumans, DefaultDangerousAnimals)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTable reads a YAML table file. An empty path yields the default table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category table: %w", err)
	}

	return ParseTable(data)
}

// ParseTable decodes a YAML table.
func ParseTable(data []byte) (*Table, error) {
	var file TableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category table: %w", err)
	}

	t, err := NewTable(file.FarmAnimals, file.Humans, file.DangerousAnimals)
	if err != nil {
		return nil, fmt.Errorf("invalid category table: %w", err)
	}
	return t, nil
}

// FarmKinds returns the farm-animal kinds in declaration order.
func (t *Table) FarmKinds() []string {
	return append([]string(nil), t.farmKinds...)
}

// Classify returns the category of label, or the Unclassified zero value.
func (t *Table) Classify(label string) Category {
	return t.categories[normalize(label)]
}

// Len returns the number of labels known to the table.
func (t *Table) Len() int {
	return len(t.categories)
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
