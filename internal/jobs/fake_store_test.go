package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ingetin/internal/todo"
)

// memStore is an in-memory Store. Transactions work on the live maps and
// are undone from a snapshot when fn fails.
type memStore struct {
	mu sync.Mutex

	tasks   map[uint64]*todo.Task
	chats   map[uint64]*string
	failed  map[uint64]int
	errors  map[uint64]int
	history []todo.HistoryRecord

	// fail makes the named method return the error.
	fail map[string]error
	// failFor makes ChannelIdentity fail for one user only.
	failFor map[uint64]error

	calls map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		tasks:   map[uint64]*todo.Task{},
		chats:   map[uint64]*string{},
		failed:  map[uint64]int{},
		errors:  map[uint64]int{},
		fail:    map[string]error{},
		failFor: map[uint64]error{},
		calls:   map[string]int{},
	}
}

func (m *memStore) addUser(id uint64, chat *string) {
	m.chats[id] = chat
	m.failed[id] = 0
	m.errors[id] = 0
}

func (m *memStore) addTask(t todo.Task) {
	if t.Status == "" {
		t.Status = todo.StatusActive
	}
	if t.TaskProgress == "" {
		t.TaskProgress = todo.ProgressOnProgress
	}
	m.tasks[t.ID] = &t
}

func (m *memStore) task(id uint64) todo.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tasks[id]
}

func (m *memStore) historyFor(id uint64) []todo.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []todo.HistoryRecord
	for _, h := range m.history {
		if h.TodoID == id {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStore) check(method string) error {
	m.calls[method]++
	return m.fail[method]
}

func (m *memStore) sorted(keep func(*todo.Task) bool) []todo.Task {
	var out []todo.Task
	for _, t := range m.tasks {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func resetBefore(t *todo.Task, today time.Time) bool {
	return t.LastProgressReset == nil || t.LastProgressReset.Before(today)
}

func remindsAfterDeadline(t *todo.Task) bool {
	return t.ReminderTime != nil && t.ReminderDeadline != nil && *t.ReminderTime > *t.ReminderDeadline
}

func (m *memStore) DueReminders(_ context.Context, at todo.Clock, today time.Time) ([]todo.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("DueReminders"); err != nil {
		return nil, err
	}
	return m.sorted(func(t *todo.Task) bool {
		return t.Status == todo.StatusActive &&
			!t.IsReminded &&
			t.ReminderTime != nil && *t.ReminderTime <= at &&
			(resetBefore(t, today) || remindsAfterDeadline(t))
	}), nil
}

func (m *memStore) ChannelIdentity(_ context.Context, userID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ChannelIdentity"); err != nil {
		return "", err
	}
	if err := m.failFor[userID]; err != nil {
		return "", err
	}
	chat, ok := m.chats[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	if chat == nil {
		return "", nil
	}
	return *chat, nil
}

func (m *memStore) MarkReminded(_ context.Context, taskID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("MarkReminded"); err != nil {
		return err
	}
	m.tasks[taskID].IsReminded = true
	return nil
}

func (m *memStore) AppendHistory(_ context.Context, rec todo.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendHistory(rec)
}

func (m *memStore) appendHistory(rec todo.HistoryRecord) error {
	if err := m.check("AppendHistory"); err != nil {
		return err
	}
	rec.ID = uint64(len(m.history) + 1)
	m.history = append(m.history, rec)
	return nil
}

func (m *memStore) AddErrorTimes(_ context.Context, userIDs []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("AddErrorTimes"); err != nil {
		return err
	}
	for _, id := range userIDs {
		m.errors[id]++
	}
	return nil
}

type snapshot struct {
	tasks   map[uint64]todo.Task
	failed  map[uint64]int
	history []todo.HistoryRecord
}

func (m *memStore) snapshot() snapshot {
	s := snapshot{tasks: map[uint64]todo.Task{}, failed: map[uint64]int{}}
	for id, t := range m.tasks {
		s.tasks[id] = *t
	}
	for id, n := range m.failed {
		s.failed[id] = n
	}
	s.history = append([]todo.HistoryRecord(nil), m.history...)
	return s
}

func (m *memStore) restore(s snapshot) {
	for id, t := range s.tasks {
		t := t
		m.tasks[id] = &t
	}
	m.failed = s.failed
	m.history = s.history
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx DeadlineTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("Begin"); err != nil {
		return err
	}

	snap := m.snapshot()
	if err := fn(memTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	if err := m.check("Commit"); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memTx struct {
	m *memStore
}

func (tx memTx) MissedDeadlines(at todo.Clock, today time.Time, lookback time.Duration) ([]todo.Task, error) {
	if err := tx.m.check("MissedDeadlines"); err != nil {
		return nil, err
	}
	return tx.m.sorted(func(t *todo.Task) bool {
		return t.Status == todo.StatusActive &&
			t.ReminderDeadline != nil &&
			*t.ReminderDeadline <= at &&
			at.Sub(*t.ReminderDeadline) <= lookback &&
			resetBefore(t, today)
	}), nil
}

func (tx memTx) IncrementFailed(taskID uint64) error {
	if err := tx.m.check("IncrementFailed"); err != nil {
		return err
	}
	tx.m.tasks[taskID].FailedCount++
	return nil
}

func (tx memTx) FailedCount(taskID uint64) (int, error) {
	if err := tx.m.check("FailedCount"); err != nil {
		return 0, err
	}
	return tx.m.tasks[taskID].FailedCount, nil
}

func (tx memTx) Disable(taskID uint64) error {
	if err := tx.m.check("Disable"); err != nil {
		return err
	}
	tx.m.tasks[taskID].Status = todo.StatusDisabled
	return nil
}

func (tx memTx) AppendHistory(rec todo.HistoryRecord) error {
	return tx.m.appendHistory(rec)
}

func (tx memTx) AddFailedTimes(counts map[uint64]int) error {
	if err := tx.m.check("AddFailedTimes"); err != nil {
		return err
	}
	for id, n := range counts {
		tx.m.failed[id] += n
	}
	return nil
}

func (tx memTx) ResetProgress(taskIDs []uint64, today time.Time) error {
	if err := tx.m.check("ResetProgress"); err != nil {
		return err
	}
	for _, id := range taskIDs {
		t := tx.m.tasks[id]
		if t.Status != todo.StatusActive {
			continue
		}
		d := today
		t.TaskProgress = todo.ProgressOnProgress
		t.IsReminded = false
		t.LastProgressReset = &d
	}
	return nil
}

// fakeSender records sends and answers with ok unless the identity is in
// fail. A panic identity makes Send panic.
type fakeSender struct {
	mu    sync.Mutex
	fail  map[string]bool
	panic map[string]bool
	sent  []sentMessage
}

type sentMessage struct {
	identity string
	text     string
}

func (s *fakeSender) Send(_ context.Context, identity, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panic[identity] {
		panic("sender exploded")
	}
	s.sent = append(s.sent, sentMessage{identity: identity, text: text})
	return !s.fail[identity]
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func clockAt(s string) *todo.Clock {
	c, err := todo.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return &c
}

func strPtr(s string) *string { return &s }

// fixedNow returns a clock function for the given day and time of day.
func fixedNow(day int, hhmmss string) func() time.Time {
	c := clockAt(hhmmss)
	t := time.Date(2026, time.March, day, c.Hour(), c.Minute(), c.Second(), 0, time.UTC)
	return func() time.Time { return t }
}
