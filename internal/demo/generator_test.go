package demo

import (
	"reflect"
	"testing"

	"github.com/shopqa/shopqa/internal/shop"
)

func TestGeneratorDeterministicForSeed(t *testing.T) {
	opts := DefaultOptions()
	opts.Orders = 50

	g1, err := NewGenerator(opts)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	g2, err := NewGenerator(opts)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	if !reflect.DeepEqual(g1.Dataset(), g2.Dataset()) {
		t.Fatal("datasets differ for the same seed")
	}

	opts.Seed = 7
	g3, err := NewGenerator(opts)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	if reflect.DeepEqual(g1.Dataset(), g3.Dataset()) {
		t.Fatal("datasets equal for different seeds")
	}
}

func TestGeneratorRowsMatchSchema(t *testing.T) {
	opts := DefaultOptions()
	opts.Customers, opts.Products, opts.Orders = 10, 5, 40
	g, err := NewGenerator(opts)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	data := g.Dataset()

	for _, table := range shop.Tables() {
		rows := data[table.Name]
		if len(rows) == 0 {
			t.Fatalf("table %s has no rows", table.Name)
		}
		for i, row := range rows {
			if len(row) != len(table.Columns) {
				t.Fatalf("%s row %d has %d values, want %d", table.Name, i, len(row), len(table.Columns))
			}
		}
	}
	if len(data["customers"]) != 10 || len(data["orders"]) != 40 || len(data["payments"]) != 40 {
		t.Fatalf("customers=%d orders=%d payments=%d", len(data["customers"]), len(data["orders"]), len(data["payments"]))
	}

	prices := map[int64]float64{}
	for _, product := range data["products"] {
		prices[product[0].(int64)] = product[2].(float64)
	}
	for _, item := range data["order_items"] {
		product := item[2].(int64)
		if item[4].(float64) != prices[product] {
			t.Fatalf("order item %v price_per_unit %v, product price %v", item[0], item[4], prices[product])
		}
		if order := item[1].(int64); order < 1 || order > 40 {
			t.Fatalf("order item references order %d", order)
		}
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.Products = 0
	if _, err := NewGenerator(opts); err == nil {
		t.Fatal("expected error for zero products")
	}
}
