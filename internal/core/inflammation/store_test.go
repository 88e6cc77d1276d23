package inflammation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inflammation-planner/internal/pkg/common"
)

const sampleNutrientCSV = "\ufeffIngredient code,Ingredient description,Nutrient description,Nutrient value\n" +
	"1001,Butter,Energy,\"717,0\"\n" +
	"1001,Butter,Total Fat,81.1\n" +
	"1002,\"Fresh Garlic, minced\",Energy,149\n" +
	"1002,\"Fresh Garlic, minced\",Vitamin C,n/a\n" +
	"1001,Butter,Protein,0.85\n"

func TestReadNutrientStoreParsesDecimalCommaAndKeepsOrder(t *testing.T) {
	t.Parallel()

	store, err := ReadNutrientStore(strings.NewReader(sampleNutrientCSV))
	if err != nil {
		t.Fatalf("read store: %v", err)
	}

	if got := store.Ingredients(); len(got) != 2 || got[0] != "Butter" || got[1] != "Fresh Garlic, minced" {
		t.Fatalf("unexpected ingredient order: %v", got)
	}

	butter, ok := store.Lookup("Butter")
	if !ok {
		t.Fatalf("expected Butter profile")
	}
	if butter["Energy"] != 717.0 {
		t.Fatalf("expected comma decimal to parse as 717, got %v", butter["Energy"])
	}
	if len(butter) != 3 {
		t.Fatalf("expected 3 nutrients for Butter, got %d", len(butter))
	}
	if store.Code("Butter") != "1001" {
		t.Fatalf("expected code 1001, got %q", store.Code("Butter"))
	}
}

func TestReadNutrientStoreCoercesMalformedValues(t *testing.T) {
	t.Parallel()

	store, err := ReadNutrientStore(strings.NewReader(sampleNutrientCSV))
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	garlic, _ := store.Lookup("Fresh Garlic, minced")
	if v, ok := garlic["Vitamin C"]; !ok || v != 0 {
		t.Fatalf("expected malformed value to coerce to 0, got %v (present=%v)", v, ok)
	}
	if store.MalformedCount() != 1 {
		t.Fatalf("expected 1 malformed value, got %d", store.MalformedCount())
	}
}

func TestReadNutrientStoreNutrientNamesSorted(t *testing.T) {
	t.Parallel()

	store, err := ReadNutrientStore(strings.NewReader(sampleNutrientCSV))
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	want := []string{"Energy", "Protein", "Total Fat", "Vitamin C"}
	got := store.NutrientNames()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestReadNutrientStoreMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := ReadNutrientStore(strings.NewReader("code,name\n1,x\n"))
	if !errors.Is(err, common.ErrDataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestLoadNutrientStoreMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadNutrientStore(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, common.ErrDataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestLoadNutrientStoreFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nutrients.csv")
	if err := os.WriteFile(path, []byte(sampleNutrientCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	store, err := LoadNutrientStore(path)
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 ingredients, got %d", store.Len())
	}
}

func TestParseDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,5", 1.5, true},
		{" 2.25 ", 2.25, true},
		{"-0,3", -0.3, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseDecimal(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseDecimal(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
