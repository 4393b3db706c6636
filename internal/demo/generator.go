// Package demo generates a deterministic synthetic shop dataset for local runs
// when no CSV export is at hand.
package demo

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopqa/shopqa/internal/loader"
)

type Options struct {
	Seed      int64
	Customers int
	Sellers   int
	Products  int
	Orders    int
	// Start is the first possible order date; orders spread over the following year.
	Start time.Time
}

func DefaultOptions() Options {
	return Options{
		Seed:      42,
		Customers: 200,
		Sellers:   20,
		Products:  60,
		Orders:    1000,
		Start:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var (
	categories    = []string{"Electronics", "Clothing", "Home & Kitchen", "Sports", "Toys", "Books"}
	firstNames    = []string{"Ava", "Ben", "Cora", "Dev", "Eli", "Fay", "Gus", "Hana", "Ivan", "June", "Kai", "Lena"}
	lastNames     = []string{"Adams", "Brown", "Chen", "Diaz", "Evans", "Ford", "Garcia", "Hill", "Ito", "Jones"}
	states        = []string{"California", "Texas", "New York", "Florida", "Illinois", "Washington", "Ohio", "Georgia"}
	origins       = []string{"USA", "China", "India", "Germany", "Mexico"}
	productNouns  = []string{"Headphones", "Jacket", "Blender", "Yoga Mat", "Puzzle", "Novel", "Monitor", "Sneakers"}
	productAdjs   = []string{"Classic", "Pro", "Eco", "Compact", "Deluxe"}
	orderStatuses = []string{"Completed", "Completed", "Completed", "Inprogress", "Cancelled", "Returned"}
	providers     = []string{"ups", "fedex", "dhl", "bluedart"}
)

type Generator struct {
	rnd  *rand.Rand
	opts Options
}

func NewGenerator(opts Options) (*Generator, error) {
	if opts.Customers <= 0 || opts.Sellers <= 0 || opts.Products <= 0 || opts.Orders < 0 {
		return nil, fmt.Errorf("customers, sellers and products must be > 0 and orders >= 0")
	}
	if opts.Start.IsZero() {
		opts.Start = DefaultOptions().Start
	}
	return &Generator{rnd: rand.New(rand.NewSource(opts.Seed)), opts: opts}, nil
}

// Dataset builds rows for all nine tables in shop column order.
func (g *Generator) Dataset() loader.Dataset {
	data := loader.Dataset{}

	for i, name := range categories {
		data["category"] = append(data["category"], []any{int64(i + 1), name})
	}
	for i := 1; i <= g.opts.Customers; i++ {
		data["customers"] = append(data["customers"], []any{
			int64(i), pickOne(g.rnd, firstNames), pickOne(g.rnd, lastNames), pickOne(g.rnd, states),
		})
	}
	for i := 1; i <= g.opts.Sellers; i++ {
		data["sellers"] = append(data["sellers"], []any{int64(i), fmt.Sprintf("Seller %02d", i), pickOne(g.rnd, origins)})
	}

	prices := make([]float64, g.opts.Products+1)
	for i := 1; i <= g.opts.Products; i++ {
		price := round2(5 + g.rnd.Float64()*995)
		prices[i] = price
		data["products"] = append(data["products"], []any{
			int64(i),
			pickOne(g.rnd, productAdjs) + " " + pickOne(g.rnd, productNouns),
			price,
			round2(price * (0.4 + g.rnd.Float64()*0.3)),
			int64(g.rnd.Intn(len(categories)) + 1),
		})
		data["inventory"] = append(data["inventory"], []any{
			int64(i),
			int64(i),
			int64(g.rnd.Intn(500)),
			int64(g.rnd.Intn(5) + 1),
			g.date(g.rnd.Intn(365)),
		})
	}

	itemID := int64(0)
	for i := 1; i <= g.opts.Orders; i++ {
		orderID := int64(i)
		day := g.rnd.Intn(365)
		status := pickOne(g.rnd, orderStatuses)
		data["orders"] = append(data["orders"], []any{
			orderID,
			g.date(day),
			int64(g.rnd.Intn(g.opts.Customers) + 1),
			int64(g.rnd.Intn(g.opts.Sellers) + 1),
			status,
		})

		for items := g.rnd.Intn(3) + 1; items > 0; items-- {
			itemID++
			product := g.rnd.Intn(g.opts.Products) + 1
			data["order_items"] = append(data["order_items"], []any{
				itemID, orderID, int64(product), int64(g.rnd.Intn(4) + 1), prices[product],
			})
		}

		paymentStatus := "Payment Successed"
		switch status {
		case "Cancelled":
			paymentStatus = "Payment Failed"
		case "Returned":
			paymentStatus = "Refunded"
		case "Inprogress":
			paymentStatus = "Pending"
		}
		data["payments"] = append(data["payments"], []any{orderID, orderID, g.date(day), paymentStatus})

		if status == "Cancelled" {
			continue
		}
		shipDay := day + g.rnd.Intn(5) + 1
		var returnDate any
		delivery := "Delivered"
		switch status {
		case "Returned":
			returnDate = g.date(shipDay + g.rnd.Intn(20) + 3)
			delivery = "Returned"
		case "Inprogress":
			delivery = "Shipped"
		}
		data["shippings"] = append(data["shippings"], []any{
			orderID, orderID, g.date(shipDay), returnDate, pickOne(g.rnd, providers), delivery,
		})
	}
	return data
}

func (g *Generator) date(day int) string {
	return g.opts.Start.AddDate(0, 0, day).Format(time.DateOnly)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
