package state

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateEntity = errors.New("duplicate entity")
	ErrNoOp            = errors.New("no-op")
	ErrIllegalMove     = errors.New("illegal move")
	ErrConsistency     = errors.New("consistency fault")
	ErrBug             = errors.New("bug")
)

// GameFault is a player-facing failure of a single transition. The turn that
// produced it is rolled back and the message is shown to the player.
type GameFault struct {
	Kind    error
	Message string
}

func (f *GameFault) Error() string { return f.Message }
func (f *GameFault) Unwrap() error { return f.Kind }

// ConsistencyFault means the world graph already violates one of its
// invariants. It must never be swallowed.
type ConsistencyFault struct {
	Check   string
	Message string
}

func (f *ConsistencyFault) Error() string {
	if f.Check == "" {
		return fmt.Sprintf("consistency fault: %s", f.Message)
	}
	return fmt.Sprintf("consistency fault [%s]: %s", f.Check, f.Message)
}

func (f *ConsistencyFault) Unwrap() error { return ErrConsistency }

// BugFault means a caller handed the engine something it can never accept,
// like a connection that does not touch the room being created.
type BugFault struct {
	Message string
}

func (f *BugFault) Error() string { return "bug: " + f.Message }
func (f *BugFault) Unwrap() error { return ErrBug }

func notFound(format string, args ...any) error {
	return &GameFault{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func duplicate(format string, args ...any) error {
	return &GameFault{Kind: ErrDuplicateEntity, Message: fmt.Sprintf(format, args...)}
}

func noOp(format string, args ...any) error {
	return &GameFault{Kind: ErrNoOp, Message: fmt.Sprintf(format, args...)}
}

func illegalMove(format string, args ...any) error {
	return &GameFault{Kind: ErrIllegalMove, Message: fmt.Sprintf(format, args...)}
}

func inconsistent(check, format string, args ...any) error {
	return &ConsistencyFault{Check: check, Message: fmt.Sprintf(format, args...)}
}

func bug(format string, args ...any) error {
	return &BugFault{Message: fmt.Sprintf(format, args...)}
}

// IsGameFault reports whether err is a recoverable, player-facing fault.
func IsGameFault(err error) bool {
	var gf *GameFault
	return errors.As(err, &gf)
}

// IsFatal reports whether err signals a broken invariant or a caller bug.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConsistency) || errors.Is(err, ErrBug)
}
