package classifier

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestClassify_DefaultTable(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		label    string
		expected Category
	}{
		{"cow", Category{Kind: FarmAnimal, Name: "cow"}},
		{"goat", Category{Kind: FarmAnimal, Name: "goat"}},
		{"horse", Category{Kind: FarmAnimal, Name: "horse"}},
		{"person", Category{Kind: Human}},
		{"lion", Category{Kind: Dangerous, Name: "lion"}},
		{"tiger", Category{Kind: Dangerous, Name: "tiger"}},
		{"dog", Category{Kind: Dangerous, Name: "dog"}},
		{"fox", Category{Kind: Dangerous, Name: "fox"}},
		{"  Cow ", Category{Kind: FarmAnimal, Name: "cow"}},
		{"bicycle", Category{}},
		{"", Category{}},
	}

	for _, tt := range tests {
		got := Classify(tt.label, table)
		if got != tt.expected {
			t.Errorf("Classify(%q) = %+v, expected %+v", tt.label, got, tt.expected)
		}
	}
}

func TestClassify_NilTable(t *testing.T) {
	if got := Classify("cow", nil); got.Kind != Unclassified {
		t.Errorf("expected Unclassified with nil table, got %v", got.Kind)
	}
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable([]string{"cow", "dog"}, []string{"person"}, []string{"dog"})
	if err == nil {
		t.Fatal("expected duplicate label error")
	}
	if !strings.Contains(err.Error(), "dog") {
		t.Errorf("error should name the label, got %v", err)
	}
}

func TestNewTable_RejectsEmptyLabel(t *testing.T) {
	if _, err := NewTable([]string{"cow", " "}, nil, nil); err == nil {
		t.Fatal("expected empty label error")
	}
}

func TestTable_FarmKindsOrder(t *testing.T) {
	table := DefaultTable()

	expected := []string{"cow", "goat", "horse"}
	if !reflect.DeepEqual(table.FarmKinds(), expected) {
		t.Errorf("FarmKinds() = %v, expected %v", table.FarmKinds(), expected)
	}

	kinds := table.FarmKinds()
	kinds[0] = "pig"
	if table.FarmKinds()[0] != "cow" {
		t.Error("FarmKinds should return a copy")
	}
}

func TestParseTable(t *testing.T) {
	data := []byte(`
farm_animals: [sheep, cow]
humans: [person]
dangerous_animals: [bear, wolf]
`)

	table, err := ParseTable(data)
	if err != nil {
		t.Fatalf("ParseTable failed: %v", err)
	}

	if !reflect.DeepEqual(table.FarmKinds(), []string{"sheep", "cow"}) {
		t.Errorf("unexpected kinds %v", table.FarmKinds())
	}
	if table.Classify("wolf").Kind != Dangerous {
		t.Error("wolf should be dangerous")
	}
	if table.Classify("tiger").Kind != Unclassified {
		t.Error("tiger is not in this table")
	}
	if table.Len() != 5 {
		t.Errorf("expected 5 labels, got %d", table.Len())
	}
}

func TestParseTable_Invalid(t *testing.T) {
	tests := []string{
		"farm_animals: [cow\n",
		"farm_animals: [cow]\nhumans: [cow]\n",
	}

	for _, data := range tests {
		if _, err := ParseTable([]byte(data)); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestLoadTable(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("LoadTable(\"\") failed: %v", err)
	}
	if len(table.FarmKinds()) != 3 {
		t.Errorf("expected default table, got %v", table.FarmKinds())
	}

	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte("farm_animals: [llama]\n"), 0644); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}

	table, err = LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if table.Classify("llama").Kind != FarmAnimal {
		t.Error("llama should be a farm animal")
	}

	if _, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
