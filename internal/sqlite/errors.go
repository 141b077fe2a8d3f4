package sqlite

import (
	"strings"

	"github.com/axpulse/axpulse/internal/repository"
)

// constraintSentinel maps a SQLite constraint failure onto the matching
// repository sentinel. It returns nil for any other error, leaving the
// caller to wrap it with context.
func constraintSentinel(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return repository.ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return repository.ErrForeignKeyViolation
	}
	return nil
}
