package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"ingetin/internal/logging"
	"ingetin/internal/todo"
)

const (
	DefaultLookback  = 90 * time.Second
	DefaultThreshold = 3
)

// Reconciler penalizes missed deadlines, disables tasks that keep missing
// and re-arms the rest for the next day. A run is all or nothing.
//
// The lookback window bounds how late a deadline may still be processed, so
// a restart hours later does not treat every old deadline as just missed.
// Deadlines missed while the service was down longer than the window are
// never penalized.
type Reconciler struct {
	Store     Store
	Now       func() time.Time
	Lookback  time.Duration
	Threshold int
	Log       *slog.Logger
}

type ReconcileResult struct {
	Matched   int
	Penalized int
	Disabled  int
	Reset     int
}

// RunDeadlineCheck is the scheduler entry point. It never panics and never
// returns an error; problems are logged.
func (r *Reconciler) RunDeadlineCheck(ctx context.Context) {
	log := logging.Or(r.Log).With("job", "deadline")
	defer func() {
		if p := recover(); p != nil {
			log.Error("deadline check panicked", "panic", p)
		}
	}()

	res, err := r.Reconcile(ctx)
	if err != nil {
		log.Error("deadline check failed, batch rolled back", "err", err)
		return
	}
	if res.Matched == 0 {
		log.Debug("no missed deadlines")
		return
	}
	log.Info("deadline check done",
		"matched", res.Matched,
		"penalized", res.Penalized,
		"disabled", res.Disabled,
		"reset", res.Reset,
	)
}

func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	now := r.now()
	at, today := todo.ClockOf(now), todo.DateOf(now)

	var (
		res      ReconcileResult
		affected map[uint64]struct{}
	)
	err := r.Store.WithinTx(ctx, func(tx DeadlineTx) error {
		res = ReconcileResult{}
		affected = map[uint64]struct{}{}

		tasks, err := tx.MissedDeadlines(at, today, r.lookback())
		if err != nil {
			return fmt.Errorf("select missed deadlines: %w", err)
		}
		res.Matched = len(tasks)
		for _, t := range tasks {
			affected[t.UserID] = struct{}{}
		}

		failures := map[uint64]int{}
		reset := make([]uint64, 0, len(tasks))
		for _, t := range tasks {
			disabled, err := r.penalize(tx, t, now)
			if err != nil {
				return fmt.Errorf("todo %d: %w", t.ID, err)
			}
			res.Penalized++
			failures[t.UserID]++
			if disabled {
				res.Disabled++
				continue
			}
			reset = append(reset, t.ID)
		}

		if err := tx.AddFailedTimes(failures); err != nil {
			return fmt.Errorf("update user statistics: %w", err)
		}
		if err := tx.ResetProgress(reset, today); err != nil {
			return fmt.Errorf("reset progress: %w", err)
		}
		res.Reset = len(reset)
		return nil
	})
	if err != nil {
		r.recordErrors(ctx, affected)
		return ReconcileResult{}, err
	}
	return res, nil
}

// penalize counts one missed deadline and disables the task once the
// failure threshold is reached. It reports whether the task was disabled.
func (r *Reconciler) penalize(tx DeadlineTx, t todo.Task, now time.Time) (bool, error) {
	if err := tx.IncrementFailed(t.ID); err != nil {
		return false, fmt.Errorf("increment failed count: %w", err)
	}

	deadline := ""
	if t.ReminderDeadline != nil {
		deadline = t.ReminderDeadline.String()
	}
	if err := tx.AppendHistory(todo.HistoryRecord{
		TodoID:     t.ID,
		UserID:     t.UserID,
		ActionType: todo.ActionFailed,
		ActionTime: now,
		Notes:      fmt.Sprintf("deadline %s missed, progress reset", deadline),
	}); err != nil {
		return false, fmt.Errorf("append failed history: %w", err)
	}

	count, err := tx.FailedCount(t.ID)
	if err != nil {
		return false, fmt.Errorf("read failed count: %w", err)
	}
	if count < r.threshold() {
		return false, nil
	}

	if err := tx.Disable(t.ID); err != nil {
		return false, fmt.Errorf("disable: %w", err)
	}
	if err := tx.AppendHistory(todo.HistoryRecord{
		TodoID:     t.ID,
		UserID:     t.UserID,
		ActionType: todo.ActionDisabled,
		ActionTime: now,
		Notes:      fmt.Sprintf("disabled automatically after %d failures", count),
	}); err != nil {
		return false, fmt.Errorf("append disabled history: %w", err)
	}
	return true, nil
}

// recordErrors bumps error_times for the owners of a rolled back batch.
func (r *Reconciler) recordErrors(ctx context.Context, users map[uint64]struct{}) {
	if len(users) == 0 {
		return
	}
	ids := make([]uint64, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := r.Store.AddErrorTimes(ctx, ids); err != nil {
		logging.Or(r.Log).Error("record error times", "job", "deadline", "users", ids, "err", err)
	}
}

func (r *Reconciler) lookback() time.Duration {
	if r.Lookback > 0 {
		return r.Lookback
	}
	return DefaultLookback
}

func (r *Reconciler) threshold() int {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return DefaultThreshold
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
