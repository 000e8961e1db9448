package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/churchboard/internal/dbx"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

const userColumns = `id, email, display_name, status, password_hash,
	email_on_new_requirement, email_on_purchased, created_at, updated_at`

// CreateUser inserts a new user and its roles.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Roles = models.NormalizeRoles(user.Roles)

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			user.ID,
			user.Email,
			user.DisplayName,
			string(user.Status),
			user.PasswordHash,
			user.Preferences.EmailOnNewRequirement,
			user.Preferences.EmailOnPurchased,
			toMillis(user.CreatedAt),
			toMillis(user.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.insertRoles(ctx, tx, user.ID, user.Roles)
	})
}

// GetUserByID retrieves a user by their ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUserByID(ctx, s.db, id, false)
}

func (s *Store) getUserByID(ctx context.Context, db dbx.DBTX, id string, lock bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if lock {
		query += s.forUpdate()
	}
	user, err := scanUser(db.QueryRowContext(ctx, s.q(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	if err := s.loadRoles(ctx, db, map[string]*models.User{user.ID: user}); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`), email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if err := s.loadRoles(ctx, s.db, map[string]*models.User{user.ID: user}); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns users ordered by display name.
func (s *Store) ListUsers(ctx context.Context, filter storage.UserFilter) ([]*models.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Role != "" {
		where = append(where, "EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = users.id AND ur.role = ?)")
		args = append(args, string(filter.Role))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY lower(display_name), lower(email)"

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	byID := make(map[string]*models.User)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
		byID[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	rows.Close()

	if err := s.loadRoles(ctx, s.db, byID); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser applies fn to the current row inside a transaction and
// persists profile, status, preferences and roles.
func (s *Store) UpdateUser(ctx context.Context, id string, fn storage.UserMutation) (*models.User, error) {
	var updated *models.User
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.getUserByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(ctx, user); err != nil {
			return err
		}

		user.UpdatedAt = s.now()
		user.Roles = models.NormalizeRoles(user.Roles)
		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE users
			SET email = ?, display_name = ?, status = ?, password_hash = ?,
				email_on_new_requirement = ?, email_on_purchased = ?, updated_at = ?
			WHERE id = ?`),
			user.Email,
			user.DisplayName,
			string(user.Status),
			user.PasswordHash,
			user.Preferences.EmailOnNewRequirement,
			user.Preferences.EmailOnPurchased,
			toMillis(user.UpdatedAt),
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM user_roles WHERE user_id = ?`), user.ID); err != nil {
			return fmt.Errorf("failed to clear roles: %w", err)
		}
		if err := s.insertRoles(ctx, tx, user.ID, user.Roles); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user and their roles. Requirements and comments keep
// the denormalized name.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM user_roles WHERE user_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete roles: %w", err)
		}
		err := checkAffected(tx.ExecContext(ctx, s.q(`DELETE FROM users WHERE id = ?`), id))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return err
	})
}

func (s *Store) insertRoles(ctx context.Context, tx dbx.DBTX, userID string, roles []models.Role) error {
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`),
			userID, string(role),
		); err != nil {
			return fmt.Errorf("failed to insert role: %w", err)
		}
	}
	return nil
}

// loadRoles fills Roles for every user in byID.
func (s *Store) loadRoles(ctx context.Context, db dbx.DBTX, byID map[string]*models.User) error {
	if len(byID) == 0 {
		return nil
	}

	args := make([]any, 0, len(byID))
	for id := range byID {
		args = append(args, id)
	}
	query := `SELECT user_id, role FROM user_roles WHERE user_id IN (?` + repeatPlaceholder(len(args)-1) + `)`

	rows, err := db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, role string
		if err := rows.Scan(&userID, &role); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.Roles = append(u.Roles, models.Role(role))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating roles: %w", err)
	}

	for _, u := range byID {
		u.Roles = models.NormalizeRoles(u.Roles)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		user               models.User
		status             string
		createdAt, updated int64
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&status,
		&user.PasswordHash,
		&user.Preferences.EmailOnNewRequirement,
		&user.Preferences.EmailOnPurchased,
		&createdAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	user.Status = models.UserStatus(status)
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updated)
	return &user, nil
}
