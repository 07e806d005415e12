package kernel

import (
	"errors"
	"fmt"
)

var (
	ErrNoAvailableSlots = errors.New("no available slots")
	ErrInvalidID        = errors.New("invalid resource id")
	ErrNotAllocated     = errors.New("resource not allocated")
	ErrInvalidTaskID    = errors.New("invalid task id")
	ErrTaskNotFound     = errors.New("task not found")
)

// SlotError reports a capacity or identity failure on one of the fixed tables.
// Kind is one of the sentinel errors above and is what errors.Is matches.
type SlotError struct {
	Kind  error
	Table string
	ID    int
}

func (e *SlotError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID < 0 {
		return fmt.Sprintf("%s: %s", e.Table, e.Kind.Error())
	}
	return fmt.Sprintf("%s %d: %s", e.Table, e.ID, e.Kind.Error())
}

func (e *SlotError) Unwrap() error { return e.Kind }

func slotErr(kind error, table string, id int) error {
	return &SlotError{Kind: kind, Table: table, ID: id}
}
