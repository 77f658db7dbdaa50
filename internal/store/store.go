// Package store defines the persistence contracts for per-user
// language preference and the durable message log, with Postgres and
// in-memory implementations.
package store

import (
	"context"

	"github.com/Dmann24/quantina-core/internal/models"
)

// PreferenceStore is the durable mapping from user identity to
// preferred language.
type PreferenceStore interface {
	// Get returns the user's preferred language. An unknown user is
	// provisioned with the default language and that default is
	// returned; lookups never return an absence.
	Get(ctx context.Context, userID string) (string, error)

	// Set upserts the user's preferred language. Last write wins.
	Set(ctx context.Context, userID, language string) error
}

// MessageLog is the append-only record of processed messages.
type MessageLog interface {
	// Append stores one processed message.
	Append(ctx context.Context, msg *models.Message) error

	// Recent returns up to limit messages, newest-last.
	Recent(ctx context.Context, limit int) ([]models.Message, error)
}

// Manager bundles the stores behind one construction point so the
// Postgres and in-memory variants swap in one place.
type Manager interface {
	Preferences() PreferenceStore
	Messages() MessageLog
	Close() error
}
