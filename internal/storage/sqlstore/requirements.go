package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/churchboard/internal/dbx"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

const requirementColumns = `id, text, description, accounting_category, priority, status,
	requester_id, requester_name, purchase_amount, purchase_date, purchaser_id, purchaser_name,
	reimbursementer_id, reimbursementer_name, receipt_key, created_at, updated_at`

const commentColumns = `id, requirement_id, text, author_name, user_id, created_at`

// CreateRequirement persists a new requirement.
func (s *Store) CreateRequirement(ctx context.Context, req *models.Requirement) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	now := s.now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Comments == nil {
		req.Comments = []models.Comment{}
	}

	args := requirementArgs(req)
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO requirements (`+requirementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		append([]any{req.ID}, append(args, toMillis(req.CreatedAt), toMillis(req.UpdatedAt))...)...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert requirement: %w", err)
	}
	return nil
}

// GetRequirement retrieves a requirement by ID, including its comments.
func (s *Store) GetRequirement(ctx context.Context, id string) (*models.Requirement, error) {
	return s.getRequirement(ctx, s.db, id, false)
}

func (s *Store) getRequirement(ctx context.Context, db dbx.DBTX, id string, lock bool) (*models.Requirement, error) {
	query := `SELECT ` + requirementColumns + ` FROM requirements WHERE id = ?`
	if lock {
		query += s.forUpdate()
	}

	req, err := scanRequirement(db.QueryRowContext(ctx, s.q(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}

	comments, err := s.listComments(ctx, db,
		`SELECT `+commentColumns+` FROM comments WHERE requirement_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}
	req.Comments = comments[id]
	if req.Comments == nil {
		req.Comments = []models.Comment{}
	}
	return req, nil
}

// ListRequirements returns requirements newest first with their comments.
func (s *Store) ListRequirements(ctx context.Context, filter storage.RequirementFilter) ([]*models.Requirement, error) {
	query := `SELECT ` + requirementColumns + ` FROM requirements`
	commentQuery := `SELECT c.id, c.requirement_id, c.text, c.author_name, c.user_id, c.created_at
		FROM comments c`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		commentQuery += ` JOIN requirements r ON r.id = c.requirement_id WHERE r.status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id`
	commentQuery += ` ORDER BY c.created_at, c.id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	defer rows.Close()

	reqs := []*models.Requirement{}
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requirements: %w", err)
	}
	rows.Close()

	comments, err := s.listComments(ctx, s.db, commentQuery, args...)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		req.Comments = comments[req.ID]
		if req.Comments == nil {
			req.Comments = []models.Comment{}
		}
	}
	return reqs, nil
}

// UpdateRequirement applies fn to the current row inside a transaction and
// persists the result.
func (s *Store) UpdateRequirement(ctx context.Context, id string, fn storage.RequirementMutation) (*models.Requirement, error) {
	var updated *models.Requirement
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		req, err := s.getRequirement(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if err := fn(ctx, txReader{s: s, tx: tx}, req); err != nil {
			return err
		}

		req.UpdatedAt = s.now()
		args := requirementArgs(req)
		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE requirements
			SET text = ?, description = ?, accounting_category = ?, priority = ?, status = ?,
				requester_id = ?, requester_name = ?, purchase_amount = ?, purchase_date = ?,
				purchaser_id = ?, purchaser_name = ?, reimbursementer_id = ?, reimbursementer_name = ?,
				receipt_key = ?, updated_at = ?
			WHERE id = ?`),
			append(args, toMillis(req.UpdatedAt), req.ID)...,
		)
		if err != nil {
			return fmt.Errorf("failed to update requirement: %w", err)
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRequirement removes a requirement and its comments in one
// transaction, after guard accepts the locked row.
func (s *Store) DeleteRequirement(ctx context.Context, id string, guard storage.RequirementGuard) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if guard != nil {
			req, err := s.getRequirement(ctx, tx, id, true)
			if err != nil {
				return err
			}
			if err := guard(ctx, req); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM comments WHERE requirement_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		err := checkAffected(tx.ExecContext(ctx, s.q(`DELETE FROM requirements WHERE id = ?`), id))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete requirement: %w", err)
		}
		return err
	})
}

// AddComment appends a comment. It fails with storage.ErrNotFound when the
// requirement does not exist.
func (s *Store) AddComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO comments (`+commentColumns+`)
		SELECT ?, id, ?, ?, ?, CAST(? AS BIGINT) FROM requirements WHERE id = ?`),
		comment.ID,
		comment.Text,
		comment.AuthorName,
		comment.UserID,
		toMillis(comment.CreatedAt),
		comment.RequirementID,
	)
	if err := checkAffected(res, err); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// GetComment retrieves one comment of a requirement.
func (s *Store) GetComment(ctx context.Context, requirementID, commentID string) (*models.Comment, error) {
	var (
		c         models.Comment
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT `+commentColumns+` FROM comments WHERE id = ? AND requirement_id = ?`),
		commentID, requirementID,
	).Scan(&c.ID, &c.RequirementID, &c.Text, &c.AuthorName, &c.UserID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}

// DeleteComment removes one comment of a requirement.
func (s *Store) DeleteComment(ctx context.Context, requirementID, commentID string) error {
	err := checkAffected(s.db.ExecContext(ctx,
		s.q(`DELETE FROM comments WHERE id = ? AND requirement_id = ?`),
		commentID, requirementID,
	))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return err
}

// listComments runs a comment query and groups the result by requirement.
func (s *Store) listComments(ctx context.Context, db dbx.DBTX, query string, args ...any) (map[string][]models.Comment, error) {
	rows, err := db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Comment)
	for rows.Next() {
		var (
			c         models.Comment
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.RequirementID, &c.Text, &c.AuthorName, &c.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		out[c.RequirementID] = append(out[c.RequirementID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return out, nil
}

// requirementArgs returns the column values after id and before the
// timestamps, in requirementColumns order.
func requirementArgs(req *models.Requirement) []any {
	var amount sql.NullFloat64
	if req.PurchaseAmount != nil {
		amount = sql.NullFloat64{Float64: *req.PurchaseAmount, Valid: true}
	}
	var date sql.NullInt64
	if req.PurchaseDate != nil {
		date = sql.NullInt64{Int64: toMillis(*req.PurchaseDate), Valid: true}
	}
	return []any{
		req.Text,
		req.Description,
		req.AccountingCategory,
		string(req.Priority),
		string(req.Status),
		req.RequesterID,
		req.RequesterName,
		amount,
		date,
		nullString(req.PurchaserID),
		nullString(req.PurchaserName),
		nullString(req.ReimbursementerID),
		nullString(req.ReimbursementerName),
		nullString(req.ReceiptKey),
	}
}

func scanRequirement(row scanner) (*models.Requirement, error) {
	var (
		req                                  models.Requirement
		priority, status                     string
		amount                               sql.NullFloat64
		date                                 sql.NullInt64
		purchaserID, purchaserName           sql.NullString
		reimbursementerID, reimbursementerNm sql.NullString
		receiptKey                           sql.NullString
		createdAt, updatedAt                 int64
	)
	err := row.Scan(
		&req.ID,
		&req.Text,
		&req.Description,
		&req.AccountingCategory,
		&priority,
		&status,
		&req.RequesterID,
		&req.RequesterName,
		&amount,
		&date,
		&purchaserID,
		&purchaserName,
		&reimbursementerID,
		&reimbursementerNm,
		&receiptKey,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Priority = models.Priority(priority)
	req.Status = models.RequirementStatus(status)
	if amount.Valid {
		v := amount.Float64
		req.PurchaseAmount = &v
	}
	if date.Valid {
		d := fromMillis(date.Int64)
		req.PurchaseDate = &d
	}
	req.PurchaserID = purchaserID.String
	req.PurchaserName = purchaserName.String
	req.ReimbursementerID = reimbursementerID.String
	req.ReimbursementerName = reimbursementerNm.String
	req.ReceiptKey = receiptKey.String
	req.CreatedAt = fromMillis(createdAt)
	req.UpdatedAt = fromMillis(updatedAt)
	return &req, nil
}

// txReader gives mutations read access through the open transaction.
type txReader struct {
	s  *Store
	tx dbx.DBTX
}

func (r txReader) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.s.getUserByID(ctx, r.tx, id, false)
}
