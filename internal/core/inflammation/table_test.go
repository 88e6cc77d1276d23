package inflammation

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strings"
	"testing"

	"inflammation-planner/internal/pkg/common"
)

func generateRows(t *testing.T) (*NutrientStore, *Generator, []Row) {
	t.Helper()

	store, err := ReadNutrientStore(strings.NewReader(sampleNutrientCSV))
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	gen := NewGenerator(nil, NewPersonalizer(WithAvailability(AvailabilitySet{
		"andrea": {"butter": true},
	})))
	rows, err := gen.Generate(store)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return store, gen, rows
}

func TestWriteCSVHeaderAndAbsentValues(t *testing.T) {
	t.Parallel()

	store, gen, rows := generateRows(t)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, store.NutrientNames(), gen.Persons()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	wantHeader := "ingredient,dii_score,matched_nutrients,total_nutrients,match_percentage," +
		"general people inflammation,Sam inflammation,Andrea inflammation," +
		"Energy,Protein,Total Fat,Vitamin C"
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Fatalf("unexpected header:\n got %s\nwant %s", got, wantHeader)
	}
	if len(records) != 3 {
		t.Fatalf("expected 2 data rows, got %d", len(records)-1)
	}

	garlic := records[2]
	if garlic[0] != "Fresh Garlic, minced" {
		t.Fatalf("unexpected row order: %v", garlic)
	}
	if garlic[7] != "" {
		t.Fatalf("expected empty Andrea value for garlic, got %q", garlic[7])
	}
	if garlic[9] != "" || garlic[10] != "" {
		t.Fatalf("expected empty cells for nutrients garlic lacks, got %q %q", garlic[9], garlic[10])
	}
}

func TestGeneratedTableRoundTrip(t *testing.T) {
	t.Parallel()

	store, gen, rows := generateRows(t)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, store.NutrientNames(), gen.Persons()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	table, err := ReadTable(&buf)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}

	if got := table.Persons(); strings.Join(got, ",") != "sam,andrea" {
		t.Fatalf("unexpected persons: %v", got)
	}
	if table.Len() != len(rows) {
		t.Fatalf("expected %d keys, got %d", len(rows), table.Len())
	}
	for _, row := range rows {
		set, ok := table.Lookup(row.Result.Ingredient)
		if !ok {
			t.Fatalf("missing %q after round trip", row.Result.Ingredient)
		}
		if math.Abs(set.General()-row.Result.Score) > 0.00005 {
			t.Fatalf("%q: expected %v, got %v", row.Result.Ingredient, row.Result.Score, set.General())
		}
		_, wantAndrea := row.Scores.Get("andrea")
		if _, gotAndrea := set.Get("andrea"); gotAndrea != wantAndrea {
			t.Fatalf("%q: andrea presence mismatch", row.Result.Ingredient)
		}
	}
}

func TestReadTableLowercasesKeysAndKeepsOrder(t *testing.T) {
	t.Parallel()

	input := "ingredient,general people inflammation,Sam inflammation\n" +
		"  Onion ,-0.5,\n" +
		"Beef,1.25,1.5\n"
	table, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if got := table.Keys(); strings.Join(got, ",") != "onion,beef" {
		t.Fatalf("unexpected keys: %v", got)
	}
	onion, ok := table.Lookup("ONION")
	if !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	if _, ok := onion.Get("sam"); ok {
		t.Fatalf("expected sam absent for onion")
	}
	beef, _ := table.Lookup("beef")
	if v, ok := beef.Get("sam"); !ok || v != 1.5 {
		t.Fatalf("expected sam 1.5 for beef, got %v", v)
	}
}

func TestReadTableMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := ReadTable(strings.NewReader("name,score\nx,1\n"))
	if !errors.Is(err, common.ErrDataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestGenerateEmptyStore(t *testing.T) {
	t.Parallel()

	store, err := ReadNutrientStore(strings.NewReader("Ingredient code,Ingredient description,Nutrient description,Nutrient value\n"))
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if _, err := NewGenerator(nil, nil).Generate(store); !errors.Is(err, common.ErrEmptyCatalog) {
		t.Fatalf("expected EmptyCatalog, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	store, _, rows := generateRows(t)
	summary := Summarize(rows, store.NutrientNames())

	if summary.Ingredients != 2 || summary.Nutrients != 4 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.MaxScore < summary.MinScore {
		t.Fatalf("max below min: %+v", summary)
	}
	if summary.MostInflammatory.Ingredient != "Butter" {
		t.Fatalf("expected Butter most inflammatory, got %q", summary.MostInflammatory.Ingredient)
	}

	var buf bytes.Buffer
	if err := summary.WriteText(&buf); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	if !strings.Contains(buf.String(), "Total ingredients processed: 2") {
		t.Fatalf("summary text missing count: %s", buf.String())
	}
}
