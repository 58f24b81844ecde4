package todo

import "time"

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"

	ProgressOnProgress = "on progress"
	ProgressDone       = "done"
)

const (
	ActionReminderSent = "reminder_sent"
	ActionFailed       = "failed"
	ActionDisabled     = "disabled"
)

// Task is a reminder item. The jobs own IsReminded, FailedCount,
// LastProgressReset and the active→disabled transition.
type Task struct {
	ID          uint64  `gorm:"primaryKey"`
	UserID      uint64  `gorm:"index;not null"`
	TaskName    string  `gorm:"type:text;not null"`
	Description *string `gorm:"type:text"`
	Status      string  `gorm:"type:text;not null;default:'active'"`

	ReminderTime     *Clock `gorm:"type:time"`
	ReminderDeadline *Clock `gorm:"type:time"`

	IsReminded        bool       `gorm:"not null;default:false"`
	FailedCount       int        `gorm:"not null;default:0"`
	LastProgressReset *time.Time `gorm:"type:date"`
	TaskProgress      string     `gorm:"type:text;not null;default:'on progress'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Task) TableName() string { return "todos" }

// HistoryRecord is append-only.
type HistoryRecord struct {
	ID         uint64    `gorm:"primaryKey"`
	TodoID     uint64    `gorm:"index;not null"`
	UserID     uint64    `gorm:"index;not null"`
	ActionType string    `gorm:"type:text;not null"`
	ActionTime time.Time `gorm:"not null;default:now()"`
	Notes      string    `gorm:"type:text;not null;default:''"`
}

func (HistoryRecord) TableName() string { return "todo_history" }

func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusDisabled
}

func ValidProgress(s string) bool {
	return s == ProgressOnProgress || s == ProgressDone
}
