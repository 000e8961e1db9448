package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/churchboard/internal/models"
)

func TestReportService_Reimbursements(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := seedUser(t, store, "alice", "Alice", models.UserStatusApproved)
	bob := seedUser(t, store, "bob", "Bob", models.UserStatusApproved, models.RoleReimbursementContact)
	reqs := NewRequirementService(store, &recordingNotifier{}, nil, nil)

	create := func(text, category string) *models.Requirement {
		r, err := reqs.Create(ctx, alice, CreateRequirementInput{Text: text, AccountingCategory: category})
		require.NoError(t, err)
		return r
	}
	buy := func(r *models.Requirement, by *models.User, amount float64, to string) {
		in := purchase(amount)
		if to != "" {
			in.ReimbursementerID = ptr(to)
		}
		_, err := reqs.Update(ctx, by, r.ID, in)
		require.NoError(t, err)
	}

	buy(create("Chairs", "Facilities"), alice, 10.10, "")
	buy(create("Paper", "Office"), alice, 20.20, "bob")
	buy(create("Toner", "Office"), bob, 5.05, "")
	create("Not bought yet", "Office")

	rows, err := NewReportService(store).Reimbursements(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "bob", rows[0].UserID)
	assert.Equal(t, 25.25, rows[0].Total)
	assert.Equal(t, 2, rows[0].Count)
	assert.Equal(t, 25.25, rows[0].ByCategory["Office"])

	assert.Equal(t, "alice", rows[1].UserID)
	assert.Equal(t, 10.10, rows[1].Total)
	assert.Equal(t, 1, rows[1].Count)
}
