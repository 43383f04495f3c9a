package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalAmount(t *testing.T) {
	assert.Zero(t, TotalAmount(nil).Cents)

	total := TotalAmount([]Expense{
		{Amount: Money{Cents: 1050}},
		{Amount: Money{Cents: 250}},
		{Amount: Money{Cents: 1}},
	})
	assert.Equal(t, int64(1301), total.Cents)
}

func TestSummarizeByCategory(t *testing.T) {
	expenses := []Expense{
		{Category: "Food", Amount: Money{Cents: 3000}},
		{Category: "Transport", Amount: Money{Cents: 1000}},
		{Category: "Food", Amount: Money{Cents: 3000}},
		{Category: "Rent", Amount: Money{Cents: 4000}},
	}

	summaries, grand := SummarizeByCategory(expenses)
	assert.Equal(t, int64(11000), grand.Cents)
	require.Len(t, summaries, 3)

	assert.Equal(t, "Food", summaries[0].Category)
	assert.Equal(t, int64(6000), summaries[0].Total.Cents)
	assert.InDelta(t, 54.5, summaries[0].Percentage, 0.1)

	assert.Equal(t, "Rent", summaries[1].Category)
	assert.Equal(t, "Transport", summaries[2].Category)
	assert.InDelta(t, 9.09, summaries[2].Percentage, 0.01)
}

func TestSummarizeByCategoryEmpty(t *testing.T) {
	summaries, grand := SummarizeByCategory(nil)
	assert.Empty(t, summaries)
	assert.Zero(t, grand.Cents)
}
