package ops

import (
	"fmt"
	"strings"
)

// Operation identifies one editing operation.
type Operation string

const (
	Trim    Operation = "trim"
	Concat  Operation = "concat"
	Overlay Operation = "overlay"
	Mixdown Operation = "mixdown"
)

const taskPrefix = "video."

// All lists every supported operation in a stable order.
func All() []Operation {
	return []Operation{Concat, Overlay, Trim, Mixdown}
}

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case Trim, Concat, Overlay, Mixdown:
		return true
	}
	return false
}

// TaskName returns the queue task identifier for op, e.g. "video.concat".
func (op Operation) TaskName() string {
	return taskPrefix + string(op)
}

func (op Operation) String() string { return string(op) }

// Parse converts a user supplied name into an Operation.
func Parse(value string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(value)))
	if !op.Valid() {
		return "", fmt.Errorf("unknown operation %q", value)
	}
	return op, nil
}

// FromTaskName resolves a queue task identifier back into an Operation.
func FromTaskName(name string) (Operation, error) {
	trimmed, ok := strings.CutPrefix(name, taskPrefix)
	if !ok {
		return "", fmt.Errorf("unknown task %q", name)
	}
	return Parse(trimmed)
}
