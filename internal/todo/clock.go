package todo

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

var ErrInvalidClock = errors.New("invalid time of day")

// Clock is a time of day with second precision, stored as seconds since
// midnight. It maps to a postgres `time` column.
type Clock int

// ParseClock accepts "HH:MM" and "HH:MM:SS" (fractional seconds are dropped).
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	limits := []int{23, 59, 59}
	total := 0
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		total = total*60 + n
	}
	if len(parts) == 2 {
		total *= 60
	}
	return Clock(total), nil
}

func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (c Clock) Hour() int   { return int(c) / 3600 }
func (c Clock) Minute() int { return int(c) % 3600 / 60 }
func (c Clock) Second() int { return int(c) % 60 }

// Sub returns c-o. Negative when o is later in the day.
func (c Clock) Sub(o Clock) time.Duration {
	return time.Duration(int(c)-int(o)) * time.Second
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

// Short formats as HH:MM.
func (c Clock) Short() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) Value() (driver.Value, error) {
	if c < 0 || c >= secondsPerDay {
		return nil, fmt.Errorf("%w: %d seconds", ErrInvalidClock, int(c))
	}
	return c.String(), nil
}

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case string:
		p, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = p
	case []byte:
		p, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = p
	case time.Time:
		*c = ClockOf(v)
	default:
		return fmt.Errorf("todo: cannot scan %T into Clock", src)
	}
	return nil
}

// DateOf truncates t to midnight in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
