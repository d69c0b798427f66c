package schema

import (
	"fmt"
	"strings"
)

type SemanticType string

const (
	TypeDate      SemanticType = "date"
	TypeTimestamp SemanticType = "timestamp"
	TypeEnum      SemanticType = "enum"
	TypeText      SemanticType = "text"
	TypeDecimal   SemanticType = "decimal"
)

type Column struct {
	Name     string       `json:"name"`
	Type     SemanticType `json:"type"`
	Nullable bool         `json:"nullable"`
	Values   []string     `json:"values,omitempty"`
	Note     string       `json:"note,omitempty"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Descriptor struct {
	Version string  `json:"version"`
	Tables  []Table `json:"tables"`
}

const SalesTable = "coffee_sales"

func CoffeeSales() Descriptor {
	return Descriptor{
		Version: "1",
		Tables: []Table{{
			Name: SalesTable,
			Columns: []Column{
				{Name: "date", Type: TypeDate, Note: "calendar date of the sale, YYYY-MM-DD"},
				{Name: "datetime", Type: TypeTimestamp, Note: "sale timestamp, YYYY-MM-DD HH:MM:SS.fff"},
				{Name: "cash_type", Type: TypeEnum, Values: []string{"card", "cash"}},
				{Name: "card", Type: TypeText, Nullable: true, Note: "anonymized card identifier, NULL for cash"},
				{Name: "money", Type: TypeDecimal, Note: "amount paid"},
				{Name: "coffee_name", Type: TypeText},
			},
		}},
	}
}

func (d Descriptor) Table(name string) (Table, bool) {
	for _, table := range d.Tables {
		if strings.EqualFold(table.Name, name) {
			return table, true
		}
	}
	return Table{}, false
}

func (d Descriptor) HasTable(name string) bool {
	_, ok := d.Table(name)
	return ok
}

func (d Descriptor) HasColumn(name string) bool {
	for _, table := range d.Tables {
		if table.HasColumn(name) {
			return true
		}
	}
	return false
}

func (t Table) HasColumn(name string) bool {
	for _, column := range t.Columns {
		if strings.EqualFold(column.Name, name) {
			return true
		}
	}
	return false
}

func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		names = append(names, column.Name)
	}
	return names
}

func (d Descriptor) Render() string {
	var b strings.Builder
	for i, table := range d.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Table %s:\n", table.Name)
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "  - %s %s", column.Name, column.Type)
			if column.Nullable {
				b.WriteString(" NULL")
			} else {
				b.WriteString(" NOT NULL")
			}
			if len(column.Values) > 0 {
				quoted := make([]string, 0, len(column.Values))
				for _, value := range column.Values {
					quoted = append(quoted, "'"+value+"'")
				}
				fmt.Fprintf(&b, " one of (%s)", strings.Join(quoted, ", "))
			}
			if column.Note != "" {
				fmt.Fprintf(&b, " -- %s", column.Note)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
