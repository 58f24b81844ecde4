// Package notify delivers reminder texts to a user's chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode"

	"ingetin/internal/logging"
)

// Sender delivers text to an external chat identity. It reports success
// only; failures are logged by the implementation.
type Sender interface {
	Send(ctx context.Context, identity, text string) bool
}

// NormalizeIdentity keeps the digits of a chat identity, plus a leading
// minus so group and supergroup chat ids stay negative. The result is empty
// when there are no digits.
func NormalizeIdentity(s string) string {
	s = strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r <= unicode.MaxASCII {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return ""
	}
	return sign + digits
}

// ReminderText renders the HTML message for a due task. description may be
// empty.
func ReminderText(taskName, description, at string) string {
	var b strings.Builder
	b.WriteString("⏰ <b>Reminder</b>\n\n")
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(taskName))
	if d := strings.TrimSpace(description); d != "" {
		fmt.Fprintf(&b, "%s\n", html.EscapeString(d))
	}
	fmt.Fprintf(&b, "\nTime: %s", html.EscapeString(at))
	return b.String()
}

// LogSender writes reminders to the log instead of a chat. It is used when
// no bot token is configured and always succeeds.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, identity, text string) bool {
	logging.Or(s.Log).Info("reminder", "identity", identity, "text", text)
	return true
}
