package schema

import (
	"strings"
	"testing"
)

func TestCoffeeSalesDescriptor(t *testing.T) {
	d := CoffeeSales()
	table, ok := d.Table("COFFEE_SALES")
	if !ok {
		t.Fatal("expected coffee_sales table")
	}
	want := []string{"date", "datetime", "cash_type", "card", "money", "coffee_name"}
	got := table.ColumnNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ColumnNames() = %v, want %v", got, want)
	}
	if !d.HasColumn("Money") {
		t.Fatal("expected case-insensitive column lookup")
	}
	if d.HasColumn("created_at") {
		t.Fatal("created_at is not queryable")
	}
}

func TestRenderListsTablesAndColumns(t *testing.T) {
	rendered := CoffeeSales().Render()
	for _, fragment := range []string{
		"Table coffee_sales:",
		"  - cash_type enum NOT NULL one of ('card', 'cash')",
		"  - card text NULL",
		"  - money decimal NOT NULL",
	} {
		if !strings.Contains(rendered, fragment) {
			t.Fatalf("Render() missing %q:\n%s", fragment, rendered)
		}
	}
}

func TestDescriptorCopiesAreIndependent(t *testing.T) {
	a := CoffeeSales()
	b := CoffeeSales()
	a.Tables[0].Columns[0].Name = "mutated"
	if b.Tables[0].Columns[0].Name != "date" {
		t.Fatal("descriptors must not share backing storage")
	}
}
