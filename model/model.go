package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for due dates.
const DateLayout = "2006-01-02"

// Priority is the importance of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority converts user input into a Priority, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("priority must be Low, Medium, or High, got %q", s)
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Status is the completion state of a task as shown to the user.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// ParseStatus converts user input into a Status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "completed":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("status must be Pending or Completed, got %q", s)
	}
}

// Date is a calendar date without a time component.
// It marshals to and from the ISO-8601 form "2006-01-02" exactly.
type Date struct {
	t time.Time
}

// ParseDate parses a date in the "2006-01-02" layout.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("date must be in YYYY-MM-DD format: %w", err)
	}
	return Date{t: t}, nil
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return Date{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.t.Format(DateLayout)
}

func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Equal(o Date) bool     { return d.t.Equal(o.t) }
func (d Date) Before(o Date) bool    { return d.t.Before(o.t) }
func (d Date) After(o Date) bool     { return d.t.After(o.t) }
func (d Date) AddDays(days int) Date { return Date{t: d.t.AddDate(0, 0, days)} }

// MarshalJSON writes the date as a quoted "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts only a quoted "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("date must be a JSON string")
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is one unit of work.
type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Priority  Priority `json:"priority"`
	DueDate   Date     `json:"due_date"`
	Completed bool     `json:"completed"`
}

// Status derives the display status from the completion flag.
func (t Task) Status() Status {
	if t.Completed {
		return StatusCompleted
	}
	return StatusPending
}

// Validate is the schema check applied to persisted records: every field
// must be present and well formed.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("missing id")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("missing title")
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if t.DueDate.IsZero() {
		return errors.New("missing due date")
	}
	return nil
}

// DueWindow is a due-date filter window relative to the current date.
type DueWindow string

const (
	DueAny      DueWindow = ""
	DueToday    DueWindow = "Today"
	DueThisWeek DueWindow = "ThisWeek"
)

// Criteria is a filter predicate combination. Zero values mean "any".
// Status and Due combine with logical AND.
type Criteria struct {
	Status Status
	Due    DueWindow
}

// Matches reports whether a task satisfies the criteria, evaluating due
// windows against the given reference date. ThisWeek is the rolling
// inclusive window [today, today+7 days].
func (c Criteria) Matches(t Task, today Date) bool {
	if c.Status != "" && t.Status() != c.Status {
		return false
	}
	switch c.Due {
	case DueToday:
		if !t.DueDate.Equal(today) {
			return false
		}
	case DueThisWeek:
		if t.DueDate.Before(today) || t.DueDate.After(today.AddDays(7)) {
			return false
		}
	}
	return true
}
