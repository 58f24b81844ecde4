package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ingetin/internal/logging"
	"ingetin/internal/notify"
	"ingetin/internal/todo"
)

const (
	noteNoIdentity = "no channel identity"
	noteSendFailed = "send failed"
)

// Dispatcher sends due reminders. Each task is handled on its own: a failed
// send or write never stops the rest of the batch and is retried by virtue
// of the task still matching on the next tick.
type Dispatcher struct {
	Store  Store
	Sender notify.Sender
	Now    func() time.Time
	Log    *slog.Logger
}

type DispatchResult struct {
	Selected   int
	Sent       int
	NoIdentity int
	SendFailed int
	Errored    int
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeNoIdentity
	outcomeSendFailed
	outcomeErrored
)

func (r *DispatchResult) add(o outcome) {
	switch o {
	case outcomeSent:
		r.Sent++
	case outcomeNoIdentity:
		r.NoIdentity++
	case outcomeSendFailed:
		r.SendFailed++
	case outcomeErrored:
		r.Errored++
	}
}

// RunReminderCheck is the scheduler entry point. It never panics and never
// returns an error; problems are logged.
func (d *Dispatcher) RunReminderCheck(ctx context.Context) {
	log := logging.Or(d.Log).With("job", "reminder")
	defer func() {
		if r := recover(); r != nil {
			log.Error("reminder check panicked", "panic", r)
		}
	}()

	res, err := d.Dispatch(ctx)
	if err != nil {
		log.Error("reminder check failed", "err", err)
		return
	}
	if res.Selected == 0 {
		log.Debug("no reminders due")
		return
	}
	log.Info("reminder check done",
		"selected", res.Selected,
		"sent", res.Sent,
		"no_identity", res.NoIdentity,
		"send_failed", res.SendFailed,
		"errored", res.Errored,
	)
}

// Dispatch runs one pass. The returned error covers selection only.
func (d *Dispatcher) Dispatch(ctx context.Context) (DispatchResult, error) {
	now := d.now()
	tasks, err := d.Store.DueReminders(ctx, todo.ClockOf(now), todo.DateOf(now))
	if err != nil {
		return DispatchResult{}, fmt.Errorf("select due reminders: %w", err)
	}

	res := DispatchResult{Selected: len(tasks)}
	for _, t := range tasks {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.add(d.process(ctx, t))
	}
	return res, nil
}

func (d *Dispatcher) process(ctx context.Context, t todo.Task) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(ctx, t, fmt.Sprintf("panic: %v", r))
			out = outcomeErrored
		}
	}()

	out, err := d.deliver(ctx, t)
	if err != nil {
		d.fail(ctx, t, err.Error())
		return outcomeErrored
	}
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, t todo.Task) (outcome, error) {
	raw, err := d.Store.ChannelIdentity(ctx, t.UserID)
	if err != nil {
		return outcomeErrored, fmt.Errorf("resolve channel identity: %w", err)
	}

	identity := notify.NormalizeIdentity(raw)
	if identity == "" {
		if err := d.record(ctx, t, todo.ActionFailed, noteNoIdentity); err != nil {
			return outcomeErrored, err
		}
		return outcomeNoIdentity, nil
	}

	desc := ""
	if t.Description != nil {
		desc = *t.Description
	}
	at := ""
	if t.ReminderTime != nil {
		at = t.ReminderTime.Short()
	}

	if !d.Sender.Send(ctx, identity, notify.ReminderText(t.TaskName, desc, at)) {
		if err := d.record(ctx, t, todo.ActionFailed, noteSendFailed); err != nil {
			return outcomeErrored, err
		}
		return outcomeSendFailed, nil
	}

	// a failure from here on means the user may be reminded twice
	if err := d.Store.MarkReminded(ctx, t.ID); err != nil {
		return outcomeErrored, fmt.Errorf("mark reminded: %w", err)
	}
	if err := d.record(ctx, t, todo.ActionReminderSent, fmt.Sprintf("Reminder sent for task %q", t.TaskName)); err != nil {
		return outcomeErrored, err
	}
	return outcomeSent, nil
}

func (d *Dispatcher) record(ctx context.Context, t todo.Task, action, note string) error {
	err := d.Store.AppendHistory(ctx, todo.HistoryRecord{
		TodoID:     t.ID,
		UserID:     t.UserID,
		ActionType: action,
		ActionTime: d.now(),
		Notes:      note,
	})
	if err != nil {
		return fmt.Errorf("append %s history: %w", action, err)
	}
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, t todo.Task, msg string) {
	log := logging.Or(d.Log).With("job", "reminder", "todo_id", t.ID, "user_id", t.UserID)
	log.Warn("reminder processing failed", "err", msg)
	if err := d.record(ctx, t, todo.ActionFailed, msg); err != nil {
		log.Error("record failure", "err", err)
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
