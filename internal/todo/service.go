package todo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrLimitReached = errors.New("todo limit reached")
	ErrNoFields     = errors.New("no fields to update")
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	DB         *gorm.DB
	MaxPerUser int
}

type CreateInput struct {
	TaskName         string
	Description      *string
	Status           string
	ReminderTime     *Clock
	ReminderDeadline *Clock
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	TaskName         *string
	Description      *string
	ReminderTime     *Clock
	ReminderDeadline *Clock
}

func (in CreateInput) normalize() (CreateInput, error) {
	in.TaskName = strings.TrimSpace(in.TaskName)
	if in.TaskName == "" || in.ReminderDeadline == nil {
		return in, ErrInvalidInput
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	if !ValidStatus(in.Status) {
		return in, ErrInvalidInput
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		in.Description = nil
	}
	return in, nil
}

func (s *Service) Create(ctx context.Context, userID uint64, in CreateInput) (uint64, error) {
	in, err := in.normalize()
	if err != nil {
		return 0, err
	}

	var id uint64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serialize creates per user so the limit holds
		if err := tx.Exec(`select id from users where id = ? for update`, userID).Error; err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&Task{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if s.MaxPerUser > 0 && n >= int64(s.MaxPerUser) {
			return ErrLimitReached
		}

		t := Task{
			UserID:           userID,
			TaskName:         in.TaskName,
			Description:      in.Description,
			Status:           in.Status,
			ReminderTime:     in.ReminderTime,
			ReminderDeadline: in.ReminderDeadline,
			TaskProgress:     ProgressOnProgress,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		id = t.ID
		return nil
	})
	return id, err
}

func (s *Service) List(ctx context.Context, userID uint64) ([]Task, error) {
	var out []Task
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, userID, id uint64) (*Task, error) {
	return s.get(s.DB.WithContext(ctx), userID, id)
}

func (s *Service) get(db *gorm.DB, userID, id uint64) (*Task, error) {
	var t Task
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Service) Update(ctx context.Context, userID, id uint64, in UpdateInput) error {
	fields := map[string]any{}
	if in.TaskName != nil {
		name := strings.TrimSpace(*in.TaskName)
		if name == "" {
			return ErrInvalidInput
		}
		fields["task_name"] = name
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.ReminderTime != nil {
		fields["reminder_time"] = *in.ReminderTime
	}
	if in.ReminderDeadline != nil {
		fields["reminder_deadline"] = *in.ReminderDeadline
	}
	if len(fields) == 0 {
		return ErrNoFields
	}
	fields["updated_at"] = time.Now()

	return s.updateOwned(ctx, userID, id, fields)
}

// SetStatus switches a task between active and disabled. Re-enabling starts
// the failure counter from zero.
func (s *Service) SetStatus(ctx context.Context, userID, id uint64, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidInput
	}
	fields := map[string]any{"status": status, "updated_at": time.Now()}
	if status == StatusActive {
		fields["failed_count"] = 0
	}
	return s.updateOwned(ctx, userID, id, fields)
}

func (s *Service) SetProgress(ctx context.Context, userID, id uint64, progress string) error {
	if !ValidProgress(progress) {
		return ErrInvalidInput
	}
	return s.updateOwned(ctx, userID, id, map[string]any{
		"task_progress": progress,
		"updated_at":    time.Now(),
	})
}

func (s *Service) updateOwned(ctx context.Context, userID, id uint64, fields map[string]any) error {
	res := s.DB.WithContext(ctx).Model(&Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, userID, id uint64) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// History returns the audit trail of one task, oldest first.
func (s *Service) History(ctx context.Context, userID, id uint64) ([]HistoryRecord, error) {
	db := s.DB.WithContext(ctx)
	if _, err := s.get(db, userID, id); err != nil {
		return nil, err
	}

	var out []HistoryRecord
	err := db.Where("todo_id = ? AND user_id = ?", id, userID).Order("id asc").Find(&out).Error
	return out, err
}
