package calculator

import (
	"math"

	"github.com/mmynk/churchboard/internal/models"
)

// toCents converts a currency amount to integer cents, rounding half away
// from zero.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

// CalculateTitheSummary totals the entries of a tithe task by category, by
// payment method and overall.
//
// Sums are accumulated in cents so that e.g. 0.1 + 0.2 totals exactly 0.3.
// Every known category and method is present in the result, zero if unused.
func CalculateTitheSummary(entries []models.TitheEntry) *models.TitheSummary {
	byCategory := make(map[models.TitheCategory]int64)
	byMethod := make(map[models.PaymentMethod]int64)
	var total int64

	for _, e := range entries {
		c := toCents(e.Amount)
		byCategory[e.Category] += c
		byMethod[e.Method] += c
		total += c
	}

	summary := &models.TitheSummary{
		ByCategory: make(map[models.TitheCategory]float64),
		ByMethod:   make(map[models.PaymentMethod]float64),
		Total:      fromCents(total),
		EntryCount: len(entries),
	}
	for _, cat := range models.TitheCategories {
		summary.ByCategory[cat] = 0
	}
	for _, m := range models.PaymentMethods {
		summary.ByMethod[m] = 0
	}
	for cat, c := range byCategory {
		summary.ByCategory[cat] = fromCents(c)
	}
	for m, c := range byMethod {
		summary.ByMethod[m] = fromCents(c)
	}
	return summary
}
