package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const nutrientCSV = "Ingredient code,Ingredient description,Nutrient description,Nutrient value\n" +
	"1,Rolled oats,Fiber (g),10\n" +
	"1,Rolled oats,Energy (kcal),380\n" +
	"2,Whole milk,Saturated fat (g),1.9\n" +
	"3,Fresh ginger,Vitamin C (mg),5\n"

const recipesJSON = `{"recipes":[
 {"id":1,"title":"Porridge","meal_type":["breakfast"],"ingredients":[{"name":"rolled oats","quantity":80,"unit":"g"},{"name":"whole milk","quantity":200,"unit":"ml"}]},
 {"id":2,"title":"Ginger Tea","meal_type":["lunch","dinner"],"ingredients":[{"name":"fresh ginger","quantity":10,"unit":"g"}]}
]}`

func run(t *testing.T, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("dii %s: %v\n%s", strings.Join(args, " "), err, buf.String())
	}
	return buf.String()
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRootHelp(t *testing.T) {
	t.Parallel()

	out := run(t, "--help")
	for _, sub := range []string{"generate", "score", "menu"} {
		if !strings.Contains(out, sub) {
			t.Fatalf("expected %s in help output:\n%s", sub, out)
		}
	}
}

func TestGenerateRequiresNutrients(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--nutrients") {
		t.Fatalf("expected --nutrients error, got %v", err)
	}
}

func TestGenerateScoreAndMenu(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nutrients := writeFixture(t, dir, "nutrients.csv", nutrientCSV)
	recipes := writeFixture(t, dir, "recipes.json", recipesJSON)
	table := filepath.Join(dir, "out", "ingredients_with_inflammation.csv")

	out := run(t, "generate", "--nutrients", nutrients, "--out", table)
	if !strings.Contains(out, "Total ingredients processed: 3") {
		t.Fatalf("expected summary in output:\n%s", out)
	}
	data, err := os.ReadFile(table)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	if !strings.Contains(header, "general people inflammation") || !strings.Contains(header, "Sam inflammation") {
		t.Fatalf("unexpected header %q", header)
	}

	out = run(t, "score", "--table", table, "--recipes", recipes, "--person", "sam")
	if !strings.Contains(out, "Porridge") || !strings.Contains(out, "2/2") {
		t.Fatalf("unexpected score output:\n%s", out)
	}

	menuDir := filepath.Join(dir, "menus")
	out = run(t, "menu", "--table", table, "--recipes", recipes, "--person", "general", "--person", "andrea", "--out-dir", menuDir)
	if !strings.Contains(out, "andrea:") {
		t.Fatalf("unexpected menu output:\n%s", out)
	}
	for _, name := range []string{"weekly_menu_general.json", "shopping_list_general.json", "weekly_menu_andrea.json", "shopping_list_andrea.json"} {
		if _, err := os.Stat(filepath.Join(menuDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	list, err := os.ReadFile(filepath.Join(menuDir, "shopping_list_general.json"))
	if err != nil {
		t.Fatalf("read shopping list: %v", err)
	}
	if !strings.Contains(string(list), `"total_unique_ingredients": 3`) {
		t.Fatalf("unexpected shopping list:\n%s", list)
	}
}

func TestMenuMissingTable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"menu", "--table", filepath.Join(dir, "missing.csv"), "--recipes", filepath.Join(dir, "missing.json"), "--out-dir", dir})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing table")
	}
}
