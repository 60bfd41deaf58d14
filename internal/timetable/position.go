package timetable

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

// Day is a school day, Monday through Friday.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var dayShortNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

var dayNameIndex = map[string]Day{
	"MON":       Monday,
	"TUE":       Tuesday,
	"WED":       Wednesday,
	"THU":       Thursday,
	"FRI":       Friday,
	"MONDAY":    Monday,
	"TUESDAY":   Tuesday,
	"WEDNESDAY": Wednesday,
	"THURSDAY":  Thursday,
	"FRIDAY":    Friday,
}

// Days lists every school day in week order.
func Days() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// Valid reports whether d is one of Monday..Friday.
func (d Day) Valid() bool {
	return d >= Monday && d <= Friday
}

// String returns the short wire name, e.g. "Mon".
func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayShortNames[d]
}

// MarshalText encodes the day by its short name.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts short or long day names in any case.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDay resolves "Mon", "mon" or "MONDAY" to a Day.
func ParseDay(raw string) (Day, error) {
	day, ok := dayNameIndex[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", raw))
	}
	return day, nil
}

// Position identifies one grid cell. Period is zero-based.
type Position struct {
	ClassID int64 `json:"classId"`
	Day     Day   `json:"day"`
	Period  int   `json:"period"`
}

// Key is the deterministic string form of a Position.
type Key string

// Key encodes the position as "<classId>:<Day>:<period>".
func (p Position) Key() Key {
	return Key(strconv.FormatInt(p.ClassID, 10) + ":" + p.Day.String() + ":" + strconv.Itoa(p.Period))
}

// At returns the same class moved to another day and period.
func (p Position) At(day Day, period int) Position {
	return Position{ClassID: p.ClassID, Day: day, Period: period}
}

// SameTime reports whether both positions fall on the same day and period.
func (p Position) SameTime(other Position) bool {
	return p.Day == other.Day && p.Period == other.Period
}

func (p Position) String() string {
	return string(p.Key())
}

// ParseKey is the inverse of Position.Key.
func ParseKey(key Key) (Position, error) {
	parts := strings.Split(string(key), ":")
	if len(parts) != 3 {
		return Position{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("malformed position key %q", key))
	}
	classID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Position{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("malformed class in position key %q", key))
	}
	day, err := ParseDay(parts[1])
	if err != nil {
		return Position{}, err
	}
	period, err := strconv.Atoi(parts[2])
	if err != nil || period < 0 {
		return Position{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("malformed period in position key %q", key))
	}
	return Position{ClassID: classID, Day: day, Period: period}, nil
}

// less orders positions by day, period, then class.
func (p Position) less(other Position) bool {
	if p.Day != other.Day {
		return p.Day < other.Day
	}
	if p.Period != other.Period {
		return p.Period < other.Period
	}
	return p.ClassID < other.ClassID
}
