package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/calculator"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

// TitheService implements the tithe counting workflow.
type TitheService struct {
	store storage.Store
	now   func() time.Time
}

// NewTitheService creates a new TitheService with the given storage backend.
func NewTitheService(store storage.Store) *TitheService {
	return &TitheService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ListFinanceStaff returns approved finance staff a treasurer can pair with.
func (s *TitheService) ListFinanceStaff(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.store.ListUsers(ctx, storage.UserFilter{
		Status: models.UserStatusApproved,
		Role:   models.RoleFinanceStaff,
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// List returns the tasks visible to caller: all of them for admins, the
// ones they take part in for everyone else.
func (s *TitheService) List(ctx context.Context, caller *models.User) ([]*models.TitheTask, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var filter storage.TitheTaskFilter
	if !caller.HasRole(models.RoleAdmin) {
		filter.ParticipantID = caller.ID
	}
	tasks, err := s.store.ListTitheTasks(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "tithe task")
	}
	return tasks, nil
}

// Create starts a task pairing caller, as treasurer, with a finance staff
// member.
func (s *TitheService) Create(ctx context.Context, caller *models.User, financeStaffID string) (*models.TitheTask, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if financeStaffID == "" {
		return nil, invalidTarget("financeStaffId is required")
	}
	partner, err := s.store.GetUserByID(ctx, financeStaffID)
	if err != nil {
		if apperr.Is(storeErr(err, "user"), apperr.CodeNotFound) {
			return nil, invalidTarget("finance staff user does not exist")
		}
		return nil, apperr.Internal(err)
	}
	if !partner.IsApproved() || !partner.HasRole(models.RoleFinanceStaff) {
		return nil, invalidTarget("target user is not approved finance staff")
	}

	task := &models.TitheTask{
		TreasurerID:      caller.ID,
		TreasurerName:    caller.Name(),
		FinanceStaffID:   partner.ID,
		FinanceStaffName: partner.Name(),
		Status:           models.TitheTaskInProgress,
	}
	if err := s.store.CreateTitheTask(ctx, task); err != nil {
		return nil, storeErr(err, "tithe task")
	}
	task.Entries = []models.TitheEntry{}
	task.Summary = calculator.CalculateTitheSummary(nil)

	slog.Info("Tithe task created", "task_id", task.ID, "treasurer_id", caller.ID, "finance_staff_id", partner.ID)
	return task, nil
}

// Get returns a task with its entries and summary.
func (s *TitheService) Get(ctx context.Context, caller *models.User, id string) (*models.TitheTask, error) {
	task, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	task.Summary = calculator.CalculateTitheSummary(task.Entries)
	return task, nil
}

// load fetches a task and checks that caller may see it.
func (s *TitheService) load(ctx context.Context, caller *models.User, id string) (*models.TitheTask, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	task, err := s.store.GetTitheTask(ctx, id)
	if err != nil {
		return nil, storeErr(err, "tithe task")
	}
	if !task.IsParticipant(caller.ID) && !caller.HasRole(models.RoleAdmin) {
		return nil, apperr.PermissionDenied("only participants of this task can access it")
	}
	return task, nil
}

// EntryInput is a new tithe entry.
type EntryInput struct {
	DonorName string               `json:"donorName"`
	Category  models.TitheCategory `json:"category"`
	Method    models.PaymentMethod `json:"method"`
	Amount    float64              `json:"amount"`
}

// AddEntry records a donation on an in-progress task.
func (s *TitheService) AddEntry(ctx context.Context, caller *models.User, taskID string, in EntryInput) (*models.TitheEntry, error) {
	task, err := s.load(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsParticipant(caller.ID) {
		return nil, apperr.PermissionDenied("only participants can edit this task")
	}
	if !validAmount(in.Amount) {
		return nil, errInvalidAmount
	}
	if in.Category == "" {
		in.Category = models.TitheCategoryTithe
	}
	if !in.Category.Valid() {
		return nil, apperr.InvalidArgument("unknown category")
	}
	if !in.Method.Valid() {
		return nil, apperr.InvalidArgument("method must be cash, check or transfer")
	}

	entry := &models.TitheEntry{
		TaskID:    taskID,
		DonorName: strings.TrimSpace(in.DonorName),
		Category:  in.Category,
		Method:    in.Method,
		Amount:    in.Amount,
		CreatedBy: caller.ID,
	}
	if err := s.store.AddTitheEntry(ctx, entry); err != nil {
		return nil, storeErr(err, "tithe task")
	}

	slog.Info("Tithe entry added", "task_id", taskID, "entry_id", entry.ID, "user_id", caller.ID)
	return entry, nil
}

// DeleteEntry removes an entry from an in-progress task.
func (s *TitheService) DeleteEntry(ctx context.Context, caller *models.User, taskID, entryID string) error {
	task, err := s.load(ctx, caller, taskID)
	if err != nil {
		return err
	}
	if !task.IsParticipant(caller.ID) {
		return apperr.PermissionDenied("only participants can edit this task")
	}
	if err := s.store.DeleteTitheEntry(ctx, taskID, entryID); err != nil {
		return storeErr(err, "tithe entry")
	}

	slog.Info("Tithe entry deleted", "task_id", taskID, "entry_id", entryID, "user_id", caller.ID)
	return nil
}

// Complete closes a task and stamps the calculation time. Entries are
// frozen afterwards.
func (s *TitheService) Complete(ctx context.Context, caller *models.User, id string) (*models.TitheTask, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	_, err := s.store.UpdateTitheTask(ctx, id, func(ctx context.Context, task *models.TitheTask) error {
		if !task.IsParticipant(caller.ID) {
			return apperr.PermissionDenied("only participants can complete this task")
		}
		if task.IsCompleted() {
			return errTaskCompleted
		}
		now := s.now()
		task.Status = models.TitheTaskCompleted
		task.CalculatedAt = &now
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "tithe task")
	}

	slog.Info("Tithe task completed", "task_id", id, "user_id", caller.ID)
	return s.Get(ctx, caller, id)
}

// Delete removes a task and its entries. Allowed for the task's treasurer
// or an admin.
func (s *TitheService) Delete(ctx context.Context, caller *models.User, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	task, err := s.store.GetTitheTask(ctx, id)
	if err != nil {
		return storeErr(err, "tithe task")
	}
	if task.TreasurerID != caller.ID && !caller.HasRole(models.RoleAdmin) {
		return apperr.PermissionDenied("only the treasurer of this task or an admin can delete it")
	}
	if err := s.store.DeleteTitheTask(ctx, id); err != nil {
		return storeErr(err, "tithe task")
	}

	slog.Info("Tithe task deleted", "task_id", id, "user_id", caller.ID)
	return nil
}
