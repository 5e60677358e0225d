package periodic

import "errors"

var (
	ErrTaskAlreadyRegistered = errors.New("periodic: task already registered")
	ErrTaskNotFound          = errors.New("periodic: task not found")
	ErrNoTasks               = errors.New("periodic: runner has no registered tasks")
	ErrInvalidTask           = errors.New("periodic: task requires a name, schedule and func")
)
