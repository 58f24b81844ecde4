package jobs

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"ingetin/internal/todo"
)

// Repo is the postgres Store. It runs plain SQL through gorm.
type Repo struct {
	DB *gorm.DB
}

var _ Store = (*Repo)(nil)

func (r *Repo) DueReminders(ctx context.Context, at todo.Clock, today time.Time) ([]todo.Task, error) {
	var out []todo.Task
	err := r.DB.WithContext(ctx).Raw(`
select *
from todos
where status = 'active'
  and is_reminded = false
  and reminder_time is not null
  and reminder_time <= ?::time
  and (last_progress_reset is null
       or last_progress_reset < ?::date
       or reminder_time > reminder_deadline)
order by reminder_time asc, id asc
`, at.String(), today.Format(dateLayout)).Scan(&out).Error
	return out, err
}

func (r *Repo) ChannelIdentity(ctx context.Context, userID uint64) (string, error) {
	var row struct {
		TelegramChatID *string
	}
	res := r.DB.WithContext(ctx).Raw(`select telegram_chat_id from users where id = ?`, userID).Scan(&row)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	if row.TelegramChatID == nil {
		return "", nil
	}
	return *row.TelegramChatID, nil
}

func (r *Repo) MarkReminded(ctx context.Context, taskID uint64) error {
	res := r.DB.WithContext(ctx).Exec(`update todos set is_reminded = true, updated_at = now() where id = ?`, taskID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) AppendHistory(ctx context.Context, rec todo.HistoryRecord) error {
	return appendHistory(r.DB.WithContext(ctx), rec)
}

func (r *Repo) AddErrorTimes(ctx context.Context, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Exec(
		`update user_statistics set error_times = error_times + 1 where user_id in ?`, userIDs,
	).Error
}

func (r *Repo) WithinTx(ctx context.Context, fn func(tx DeadlineTx) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepo{tx: tx})
	})
}

type txRepo struct {
	tx *gorm.DB
}

func (t *txRepo) MissedDeadlines(at todo.Clock, today time.Time, lookback time.Duration) ([]todo.Task, error) {
	var out []todo.Task
	// rows stay locked until commit so the dispatcher can't flip them mid-batch
	err := t.tx.Raw(`
select *
from todos
where status = 'active'
  and reminder_deadline is not null
  and reminder_deadline <= ?::time
  and extract(epoch from (?::time - reminder_deadline)) <= ?
  and (last_progress_reset is null or last_progress_reset < ?::date)
order by id asc
for update
`, at.String(), at.String(), int64(lookback/time.Second), today.Format(dateLayout)).Scan(&out).Error
	return out, err
}

func (t *txRepo) IncrementFailed(taskID uint64) error {
	return t.exec1(`update todos set failed_count = failed_count + 1, updated_at = now() where id = ?`, taskID)
}

func (t *txRepo) FailedCount(taskID uint64) (int, error) {
	var n int
	res := t.tx.Raw(`select failed_count from todos where id = ?`, taskID).Scan(&n)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return n, nil
}

func (t *txRepo) Disable(taskID uint64) error {
	return t.exec1(`update todos set status = 'disabled', updated_at = now() where id = ?`, taskID)
}

func (t *txRepo) AppendHistory(rec todo.HistoryRecord) error {
	return appendHistory(t.tx, rec)
}

func (t *txRepo) AddFailedTimes(counts map[uint64]int) error {
	if len(counts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, int64(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	cnts := make([]int64, len(ids))
	for i, id := range ids {
		cnts[i] = int64(counts[uint64(id)])
	}

	return t.tx.Exec(`
update user_statistics s
set failed_times = s.failed_times + x.cnt
from (
  select unnest(?::bigint[]) as user_id, unnest(?::bigint[]) as cnt
) x
where s.user_id = x.user_id
`, pq.Array(ids), pq.Array(cnts)).Error
}

func (t *txRepo) ResetProgress(taskIDs []uint64, today time.Time) error {
	if len(taskIDs) == 0 {
		return nil
	}
	return t.tx.Exec(`
update todos
set task_progress = ?,
    is_reminded = false,
    last_progress_reset = ?::date,
    updated_at = now()
where id in ? and status = 'active'
`, todo.ProgressOnProgress, today.Format(dateLayout), taskIDs).Error
}

func (t *txRepo) exec1(sql string, args ...any) error {
	res := t.tx.Exec(sql, args...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return errors.New("expected exactly one row to change")
	}
	return nil
}

func appendHistory(db *gorm.DB, rec todo.HistoryRecord) error {
	if rec.ActionTime.IsZero() {
		rec.ActionTime = time.Now()
	}
	return db.Create(&rec).Error
}
