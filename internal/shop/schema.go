// Package shop describes the fixed e-commerce schema the question pipeline queries.
package shop

import (
	"fmt"
	"strings"
)

type ColumnType string

const (
	Integer ColumnType = "INTEGER"
	Real    ColumnType = "REAL"
	Text    ColumnType = "TEXT"
	// Date columns are stored as ISO-8601 text.
	Date ColumnType = "DATE"
)

type Column struct {
	Name string
	Type ColumnType
}

type Table struct {
	Name    string
	Columns []Column
	// Describe lists the columns shown to the language model. Columns omitted here
	// still exist in the store; they are left out to keep the prompt compact.
	Describe []string
}

func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		names = append(names, column.Name)
	}
	return names
}

func (t Table) Column(name string) (Column, bool) {
	for _, column := range t.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

var tables = []Table{
	{
		Name:     "category",
		Columns:  []Column{{"category_id", Integer}, {"category_name", Text}},
		Describe: []string{"category_id", "category_name"},
	},
	{
		Name:     "customers",
		Columns:  []Column{{"customer_id", Integer}, {"first_name", Text}, {"last_name", Text}, {"state", Text}},
		Describe: []string{"customer_id", "first_name", "last_name", "state"},
	},
	{
		Name:     "sellers",
		Columns:  []Column{{"seller_id", Integer}, {"seller_name", Text}, {"origin", Text}},
		Describe: []string{"seller_id", "seller_name", "origin"},
	},
	{
		Name:     "products",
		Columns:  []Column{{"product_id", Integer}, {"product_name", Text}, {"price", Real}, {"cogs", Real}, {"category_id", Integer}},
		Describe: []string{"product_id", "product_name", "price", "cogs", "category_id"},
	},
	{
		Name:     "orders",
		Columns:  []Column{{"order_id", Integer}, {"order_date", Date}, {"customer_id", Integer}, {"seller_id", Integer}, {"order_status", Text}},
		Describe: []string{"order_id", "order_date", "customer_id", "seller_id", "order_status"},
	},
	{
		Name:     "order_items",
		Columns:  []Column{{"order_item_id", Integer}, {"order_id", Integer}, {"product_id", Integer}, {"quantity", Integer}, {"price_per_unit", Real}},
		Describe: []string{"order_item_id", "order_id", "product_id", "quantity", "price_per_unit"},
	},
	{
		Name:     "payments",
		Columns:  []Column{{"payment_id", Integer}, {"order_id", Integer}, {"payment_date", Date}, {"payment_status", Text}},
		Describe: []string{"payment_id", "order_id", "payment_date", "payment_status"},
	},
	{
		Name: "shippings",
		Columns: []Column{
			{"shipping_id", Integer}, {"order_id", Integer}, {"shipping_date", Date}, {"return_date", Date},
			{"shipping_providers", Text}, {"delivery_status", Text},
		},
		Describe: []string{"shipping_id", "order_id", "shipping_date", "return_date", "delivery_status"},
	},
	{
		Name:     "inventory",
		Columns:  []Column{{"inventory_id", Integer}, {"product_id", Integer}, {"stock", Integer}, {"warehouse_id", Integer}, {"last_stock_date", Date}},
		Describe: []string{"inventory_id", "product_id", "stock", "warehouse_id", "last_stock_date"},
	},
}

// Descriptor is the compact schema text injected into every synthesis prompt.
// It is computed once at package initialization and never changes.
var Descriptor = describe(tables)

// Tables returns the nine tables in load order (parents before children).
func Tables() []Table {
	out := make([]Table, len(tables))
	copy(out, tables)
	return out
}

func Lookup(name string) (Table, bool) {
	for _, table := range tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

func describe(defs []Table) string {
	var b strings.Builder
	for _, table := range defs {
		fmt.Fprintf(&b, "%s(%s)\n", table.Name, strings.Join(table.Describe, ", "))
	}
	return b.String()
}
