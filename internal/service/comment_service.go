package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

// CommentService manages comments on requirements.
type CommentService struct {
	store storage.Store
}

// NewCommentService creates a new CommentService with the given storage backend.
func NewCommentService(store storage.Store) *CommentService {
	return &CommentService{store: store}
}

// Add appends a comment authored by caller.
func (s *CommentService) Add(ctx context.Context, caller *models.User, requirementID, text string) (*models.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidArgument("text is required")
	}

	comment := &models.Comment{
		RequirementID: requirementID,
		Text:          text,
		AuthorName:    caller.Name(),
		UserID:        caller.ID,
	}
	if err := s.store.AddComment(ctx, comment); err != nil {
		slog.Error("AddComment failed", "requirement_id", requirementID, "error", err)
		return nil, storeErr(err, "requirement")
	}

	slog.Info("Comment added", "requirement_id", requirementID, "comment_id", comment.ID)
	return comment, nil
}

// Delete removes a comment. Allowed for its author or an admin.
func (s *CommentService) Delete(ctx context.Context, caller *models.User, requirementID, commentID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	comment, err := s.store.GetComment(ctx, requirementID, commentID)
	if err != nil {
		return storeErr(err, "comment")
	}
	if comment.UserID != caller.ID && !caller.HasRole(models.RoleAdmin) {
		return apperr.PermissionDenied("only the author or an admin can delete this comment")
	}
	if err := s.store.DeleteComment(ctx, requirementID, commentID); err != nil {
		return storeErr(err, "comment")
	}

	slog.Info("Comment deleted", "requirement_id", requirementID, "comment_id", commentID, "user_id", caller.ID)
	return nil
}
