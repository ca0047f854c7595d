package session

import "context"

// Repository defines the interface for trip snapshot persistence. At most
// one snapshot exists at a time; Save overwrites, never appends.
type Repository interface {
	// Save stores the trip snapshot, replacing any prior one.
	Save(ctx context.Context, trip *Trip) error

	// Load retrieves the stored snapshot.
	// Returns ErrNoActiveTrip when none exists.
	Load(ctx context.Context) (*Trip, error)

	// Clear removes the snapshot atomically; a subsequent Load must never
	// observe a partial record.
	Clear(ctx context.Context) error
}
