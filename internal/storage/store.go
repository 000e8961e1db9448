// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/churchboard/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTaskCompleted is returned when entries of a completed tithe task
	// are modified.
	ErrTaskCompleted = errors.New("tithe task completed")
)

// UserFilter narrows ListUsers. Zero values match everything.
type UserFilter struct {
	Status models.UserStatus
	Role   models.Role
}

// RequirementFilter narrows ListRequirements.
type RequirementFilter struct {
	Status models.RequirementStatus
}

// TitheTaskFilter narrows ListTitheTasks. ParticipantID matches either the
// treasurer or the finance staff.
type TitheTaskFilter struct {
	ParticipantID string
}

// TxReader is the read access available inside a transactional update.
type TxReader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// RequirementMutation inspects and modifies a requirement inside a
// transaction. Returning an error aborts the transaction and the error is
// passed through to the caller unchanged.
type RequirementMutation func(ctx context.Context, tx TxReader, req *models.Requirement) error

// RequirementGuard vetoes a requirement delete by returning an error.
type RequirementGuard func(ctx context.Context, req *models.Requirement) error

// TitheTaskMutation is the tithe-task counterpart of RequirementMutation.
type TitheTaskMutation func(ctx context.Context, task *models.TitheTask) error

// UserMutation modifies an account inside a transaction, the same way
// RequirementMutation does for requirements.
type UserMutation func(ctx context.Context, user *models.User) error

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error)

	// UpdateUser reads the account, applies fn and writes profile, status,
	// preferences and roles back in one transaction.
	UpdateUser(ctx context.Context, id string, fn UserMutation) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RequirementStore persists requirements and their comments.
type RequirementStore interface {
	CreateRequirement(ctx context.Context, req *models.Requirement) error

	// GetRequirement returns the requirement with its comments.
	GetRequirement(ctx context.Context, id string) (*models.Requirement, error)

	// ListRequirements returns requirements newest first, each with its
	// comments oldest first.
	ListRequirements(ctx context.Context, filter RequirementFilter) ([]*models.Requirement, error)

	// UpdateRequirement reads the requirement, applies fn and writes the
	// result back, all in one transaction. Concurrent updates of the same
	// requirement are serialized.
	UpdateRequirement(ctx context.Context, id string, fn RequirementMutation) (*models.Requirement, error)

	// DeleteRequirement removes the requirement and all of its comments in
	// one transaction. A non-nil guard sees the locked row first; its error
	// aborts the delete.
	DeleteRequirement(ctx context.Context, id string, guard RequirementGuard) error

	AddComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, requirementID, commentID string) (*models.Comment, error)
	DeleteComment(ctx context.Context, requirementID, commentID string) error
}

// TitheStore persists tithe tasks and their entries.
type TitheStore interface {
	CreateTitheTask(ctx context.Context, task *models.TitheTask) error

	// GetTitheTask returns the task with its entries.
	GetTitheTask(ctx context.Context, id string) (*models.TitheTask, error)
	ListTitheTasks(ctx context.Context, filter TitheTaskFilter) ([]*models.TitheTask, error)
	UpdateTitheTask(ctx context.Context, id string, fn TitheTaskMutation) (*models.TitheTask, error)
	DeleteTitheTask(ctx context.Context, id string) error

	// AddTitheEntry and DeleteTitheEntry fail with ErrTaskCompleted when the
	// task is no longer in progress.
	AddTitheEntry(ctx context.Context, entry *models.TitheEntry) error
	DeleteTitheEntry(ctx context.Context, taskID, entryID string) error
}

// Store defines every storage operation of the application.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	UserStore
	RequirementStore
	TitheStore

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
