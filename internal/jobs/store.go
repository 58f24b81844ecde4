package jobs

import (
	"context"
	"time"

	"ingetin/internal/todo"
)

// Store is what the reminder and deadline jobs need from the database.
type Store interface {
	// DueReminders returns active, not yet reminded tasks whose reminder
	// time is at or before at. A task reset today is left out unless its
	// reminder time comes after its deadline, since the reset then happens
	// before the day's reminder is due.
	DueReminders(ctx context.Context, at todo.Clock, today time.Time) ([]todo.Task, error)
	// ChannelIdentity returns the owner's raw chat identity, "" if unlinked.
	ChannelIdentity(ctx context.Context, userID uint64) (string, error)
	MarkReminded(ctx context.Context, taskID uint64) error
	AppendHistory(ctx context.Context, rec todo.HistoryRecord) error
	AddErrorTimes(ctx context.Context, userIDs []uint64) error

	// WithinTx runs fn in one transaction, committed only if fn returns nil.
	WithinTx(ctx context.Context, fn func(tx DeadlineTx) error) error
}

// DeadlineTx is the transactional view used by the reconciler.
type DeadlineTx interface {
	// MissedDeadlines selects active tasks whose deadline lies in
	// [at-lookback, at] and which were not reset on today.
	MissedDeadlines(at todo.Clock, today time.Time, lookback time.Duration) ([]todo.Task, error)
	IncrementFailed(taskID uint64) error
	FailedCount(taskID uint64) (int, error)
	Disable(taskID uint64) error
	AppendHistory(rec todo.HistoryRecord) error
	// AddFailedTimes bumps user_statistics.failed_times by count per user.
	AddFailedTimes(counts map[uint64]int) error
	// ResetProgress re-arms the given tasks for the next day.
	ResetProgress(taskIDs []uint64, today time.Time) error
}

const dateLayout = "2006-01-02"
