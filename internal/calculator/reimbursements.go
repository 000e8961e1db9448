package calculator

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mmynk/churchboard/internal/models"
)

// CalculateReimbursementBalances aggregates purchased requirements by the
// user responsible for reimbursement.
//
// Pending requirements and requirements without an amount are skipped. Rows
// are sorted by total descending, then by name, then by user ID. Requirements without an
// accounting category are grouped under "".
func CalculateReimbursementBalances(reqs []*models.Requirement) []models.ReimbursementBalance {
	type acc struct {
		name       string
		total      int64
		count      int
		byCategory map[string]int64
	}
	byUser := make(map[string]*acc)

	for _, r := range reqs {
		if !r.IsPurchased() || r.PurchaseAmount == nil {
			continue
		}
		userID := r.ReimbursementerID
		name := r.ReimbursementerName
		if userID == "" {
			userID = r.PurchaserID
			name = r.PurchaserName
		}

		a, ok := byUser[userID]
		if !ok {
			a = &acc{name: name, byCategory: make(map[string]int64)}
			byUser[userID] = a
		}
		c := toCents(*r.PurchaseAmount)
		a.total += c
		a.count++
		a.byCategory[r.AccountingCategory] += c
	}

	balances := make([]models.ReimbursementBalance, 0, len(byUser))
	for userID, a := range byUser {
		b := models.ReimbursementBalance{
			UserID:     userID,
			UserName:   a.name,
			Total:      fromCents(a.total),
			Count:      a.count,
			ByCategory: make(map[string]float64, len(a.byCategory)),
		}
		for cat, c := range a.byCategory {
			b.ByCategory[cat] = fromCents(c)
		}
		balances = append(balances, b)
	}

	slices.SortFunc(balances, func(a, b models.ReimbursementBalance) int {
		return cmp.Or(
			cmp.Compare(b.Total, a.Total),
			cmp.Compare(strings.ToLower(a.UserName), strings.ToLower(b.UserName)),
			cmp.Compare(a.UserID, b.UserID),
		)
	})
	return balances
}
