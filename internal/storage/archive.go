package storage

import (
	"context"
	"errors"

	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
)

// ErrUserRequired is returned when listing without a user id.
var ErrUserRequired = errors.New("user id is required")

// ArchiveStore keeps sessions after their connection is gone.
type ArchiveStore interface {
	// Save upserts the session by connection id.
	Save(ctx context.Context, s interview.Session) error
	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string) ([]interview.Session, error)
	Close() error
}
