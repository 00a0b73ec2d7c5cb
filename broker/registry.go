package broker

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

func newTaskID() string {
	return uuid.New().String()
}

// CreateTask registers a task and makes it the active one.
//
// Names are unique since the last reset: reusing one fails with ErrDuplicateTask.
// On success every earlier task is marked COMPLETE and the roster, pending joins
// and mailboxes are cleared, so members of the previous task must join again.
func (s *Store) CreateTask(name string, definition []byte) (Task, error) {
	if name == "" {
		return Task{}, ErrInvalidTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.ContainsBy(s.tasks, func(t Task) bool { return t.Name == name }) {
		return Task{}, fmt.Errorf("%w: %q", ErrDuplicateTask, name)
	}

	for i := range s.tasks {
		s.tasks[i].Status = TaskComplete
	}
	s.clearMembershipLocked()

	task := Task{
		ID:        s.newID(),
		Name:      name,
		Status:    TaskCreated,
		CreatedAt: s.now(),
	}
	s.tasks = append(s.tasks, task)
	s.definition = clonePayload(definition)
	s.hasDef = true
	s.notifyLocked()

	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("task_name", name),
		zap.Int("definition_bytes", len(definition)),
	)
	return task, nil
}

// TaskInfo returns the definition of the active task. ok is false when no
// task was created since the last reset.
func (s *Store) TaskInfo() (definition []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasDef {
		return nil, false
	}
	return clonePayload(s.definition), true
}

// ListTasks returns the task records in insertion order.
func (s *Store) ListTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// CompleteTask marks the active task COMPLETE. It reports whether a task existed.
func (s *Store) CompleteTask() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.completeLocked()
}

func (s *Store) completeLocked() bool {
	if len(s.tasks) == 0 {
		return false
	}
	s.tasks[len(s.tasks)-1].Status = TaskComplete
	return true
}
