package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestRecalculateTotals(t *testing.T) {
	q := Quote{
		Tax: money(t, "5.00"),
		LineItems: []LineItem{
			{Quantity: 3, Rate: money(t, "19.99")},
			{Quantity: 1, Rate: money(t, "100.00")},
		},
	}

	RecalculateTotals(&q)

	assert.True(t, q.LineItems[0].Total.Equal(money(t, "59.97")))
	assert.True(t, q.LineItems[1].Total.Equal(money(t, "100.00")))
	assert.True(t, q.Subtotal.Equal(money(t, "159.97")))
	assert.True(t, q.Total.Equal(money(t, "164.97")))
}

func TestRecalculateTotalsRoundsLineTotals(t *testing.T) {
	q := Quote{
		LineItems: []LineItem{
			{Quantity: 3, Rate: money(t, "0.335")},
		},
	}

	RecalculateTotals(&q)

	assert.True(t, q.LineItems[0].Total.Equal(money(t, "1.01")), "got %s", q.LineItems[0].Total)
	assert.True(t, q.Total.Equal(money(t, "1.01")))
}

func TestRecalculateTotalsEmptyQuote(t *testing.T) {
	q := Quote{Tax: money(t, "0")}

	RecalculateTotals(&q)

	assert.True(t, q.Subtotal.IsZero())
	assert.True(t, q.Total.IsZero())
}
