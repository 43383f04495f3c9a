package core

import "sort"

// CategorySummary is the aggregate for one category: its total and its share
// of the grand total in percent.
type CategorySummary struct {
	Category   string
	Total      Money
	Percentage float64
}

// TotalAmount sums the amounts of a list of expenses.
func TotalAmount(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// SummarizeByCategory groups expenses by category and returns per-category
// totals with their percentage of the grand total, sorted descending by
// total. A pure function of the input snapshot; the browser UI computes the
// same projection client-side.
func SummarizeByCategory(expenses []Expense) ([]CategorySummary, Money) {
	grand := TotalAmount(expenses)

	totals := make(map[string]Money)
	order := make([]string, 0)
	for _, e := range expenses {
		if _, seen := totals[e.Category]; !seen {
			order = append(order, e.Category)
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}

	summaries := make([]CategorySummary, 0, len(order))
	for _, category := range order {
		total := totals[category]
		var pct float64
		if grand.Cents > 0 {
			pct = float64(total.Cents) / float64(grand.Cents) * 100
		}
		summaries = append(summaries, CategorySummary{
			Category:   category,
			Total:      total,
			Percentage: pct,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Total.Cents > summaries[j].Total.Cents
	})

	return summaries, grand
}
