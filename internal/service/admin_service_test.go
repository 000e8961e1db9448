package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/models"
)

func TestAdminService(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	admin := seedUser(t, store, "root", "Root", models.UserStatusApproved, models.RoleAdmin)
	seedUser(t, store, "newbie", "Newbie", models.UserStatusPending)
	seedUser(t, store, "alice", "Alice", models.UserStatusApproved)
	svc := NewAdminService(store)

	t.Run("list by status", func(t *testing.T) {
		pending, err := svc.ListUsers(ctx, models.UserStatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "newbie", pending[0].ID)

		all, err := svc.ListUsers(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		_, err = svc.ListUsers(ctx, "banned")
		requireCode(t, err, apperr.CodeInvalidArgument)
	})

	t.Run("set status", func(t *testing.T) {
		u, err := svc.SetStatus(ctx, admin, "newbie", models.UserStatusApproved)
		require.NoError(t, err)
		assert.Equal(t, models.UserStatusApproved, u.Status)

		_, err = svc.SetStatus(ctx, admin, "newbie", models.UserStatusPending)
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = svc.SetStatus(ctx, admin, "root", models.UserStatusRejected)
		requireCode(t, err, apperr.CodeCannotModifySelf)

		_, err = svc.SetStatus(ctx, admin, "ghost", models.UserStatusRejected)
		requireCode(t, err, apperr.CodeNotFound)
	})

	t.Run("set roles", func(t *testing.T) {
		u, err := svc.SetRoles(ctx, admin, "alice", []models.Role{models.RoleTreasurer, models.RoleTreasurer})
		require.NoError(t, err)
		assert.Equal(t, []models.Role{models.RoleUser, models.RoleTreasurer}, u.Roles)

		_, err = svc.SetRoles(ctx, admin, "alice", []models.Role{"pope"})
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = svc.SetRoles(ctx, admin, "root", []models.Role{models.RoleTreasurer})
		requireCode(t, err, apperr.CodeCannotModifySelf)

		u, err = svc.SetRoles(ctx, admin, "root", []models.Role{models.RoleAdmin, models.RoleTreasurer})
		require.NoError(t, err)
		assert.True(t, u.HasRole(models.RoleTreasurer))
	})

	t.Run("delete", func(t *testing.T) {
		requireCode(t, svc.Delete(ctx, admin, "root"), apperr.CodeCannotModifySelf)
		require.NoError(t, svc.Delete(ctx, admin, "newbie"))
		requireCode(t, svc.Delete(ctx, admin, "newbie"), apperr.CodeNotFound)
	})

	t.Run("grant role", func(t *testing.T) {
		seedUser(t, store, "boot", "Boot", models.UserStatusPending)
		u, err := svc.GrantRole(ctx, "BOOT@example.com", models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.UserStatusApproved, u.Status)
		assert.Equal(t, []models.Role{models.RoleUser, models.RoleAdmin}, u.Roles)

		_, err = svc.GrantRole(ctx, "nobody@example.com", models.RoleAdmin)
		requireCode(t, err, apperr.CodeNotFound)

		_, err = svc.GrantRole(ctx, "boot@example.com", "wizard")
		requireCode(t, err, apperr.CodeInvalidArgument)
	})
}
