// Package app holds the task manager: domain rules, the in-memory
// collection, and the persist-after-every-mutation contract.
package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskforge/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidInput is the root of the validation error family; every
	// rejected input wraps it so callers can match the whole class.
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyTitle       = fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	ErrInvalidPriority  = fmt.Errorf("%w: priority", ErrInvalidInput)
	ErrInvalidDueDate   = fmt.Errorf("%w: due date", ErrInvalidInput)
	ErrInvalidStatus    = fmt.Errorf("%w: status filter", ErrInvalidInput)
	ErrInvalidDueWindow = fmt.Errorf("%w: due window", ErrInvalidInput)
)

// Store is the persistence port the service drives after every mutation.
type Store interface {
	Load() ([]model.Task, error)
	Save([]model.Task) error
}

// Service owns the in-memory task collection. Every mutating operation
// validates first, applies the change, then persists synchronously; a failed
// save rolls the mutation back so memory and disk never diverge after a
// successful return.
type Service struct {
	store Store
	tasks []model.Task
	today func() model.Date
}

// NewService loads the collection from the store and wraps it in a service.
func NewService(st Store) (*Service, error) {
	tasks, err := st.Load()
	if err != nil {
		return nil, err
	}
	return NewServiceWith(st, tasks), nil
}

// NewServiceWith wraps an already-loaded collection, e.g. one produced by
// store recovery.
func NewServiceWith(st Store, tasks []model.Task) *Service {
	owned := make([]model.Task, len(tasks))
	copy(owned, tasks)
	return &Service{store: st, tasks: owned, today: model.Today}
}

// Tasks returns all tasks in insertion order as a copy.
func (s *Service) Tasks() []model.Task {
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns a task by id.
func (s *Service) Get(id string) (model.Task, error) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// Add validates the fields, inserts a new pending task with a fresh id, and
// persists the collection.
func (s *Service) Add(title, priority, due string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	pri, err := model.ParsePriority(priority)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidPriority, err)
	}
	dueDate, err := model.ParseDate(due)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidDueDate, err)
	}

	task := model.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Priority:  pri,
		DueDate:   dueDate,
		Completed: false,
	}

	prev := s.tasks
	s.tasks = append(s.Tasks(), task)
	if err := s.persist(prev); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Fields carries the optional values for Update. Nil means keep the current
// value; supplied values are validated exactly as in Add.
type Fields struct {
	Title    *string
	Priority *string
	DueDate  *string
}

// Update applies the supplied fields to a task and persists. All fields are
// validated before any is applied, so an invalid input never leaves a
// partially updated task behind.
func (s *Service) Update(id string, f Fields) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}

	updated := s.tasks[idx]
	if f.Title != nil {
		title := strings.TrimSpace(*f.Title)
		if title == "" {
			return model.Task{}, ErrEmptyTitle
		}
		updated.Title = title
	}
	if f.Priority != nil {
		pri, err := model.ParsePriority(*f.Priority)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidPriority, err)
		}
		updated.Priority = pri
	}
	if f.DueDate != nil {
		dueDate, err := model.ParseDate(*f.DueDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidDueDate, err)
		}
		updated.DueDate = dueDate
	}

	prev := s.tasks
	s.tasks = s.Tasks()
	s.tasks[idx] = updated
	if err := s.persist(prev); err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

// Complete marks a task completed and persists. Completing an
// already-completed task is a no-op success.
func (s *Service) Complete(id string) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, ErrTaskNotFound
	}
	if s.tasks[idx].Completed {
		return s.tasks[idx], nil
	}

	prev := s.tasks
	s.tasks = s.Tasks()
	s.tasks[idx].Completed = true
	done := s.tasks[idx]
	if err := s.persist(prev); err != nil {
		return model.Task{}, err
	}
	return done, nil
}

// Delete removes a task and persists. The id is never reused.
func (s *Service) Delete(id string) error {
	idx := s.indexOf(id)
	if idx == -1 {
		return ErrTaskNotFound
	}

	prev := s.tasks
	kept := make([]model.Task, 0, len(s.tasks)-1)
	kept = append(kept, s.tasks[:idx]...)
	kept = append(kept, s.tasks[idx+1:]...)
	s.tasks = kept
	return s.persist(prev)
}

// Filter returns the tasks matching the criteria, in insertion order.
// An empty result is not an error.
func (s *Service) Filter(c model.Criteria) ([]model.Task, error) {
	switch c.Status {
	case "", model.StatusPending, model.StatusCompleted:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	switch c.Due {
	case model.DueAny, model.DueToday, model.DueThisWeek:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDueWindow, c.Due)
	}

	today := s.today()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if c.Matches(t, today) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) persist(prev []model.Task) error {
	if err := s.store.Save(s.tasks); err != nil {
		s.tasks = prev
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}
