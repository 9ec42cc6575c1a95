package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned by a Repository for a key it does not store.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores flag overrides. Keys absent from the repository take their
// default value.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)
	// SetFlags upserts all flags or none.
	SetFlags(ctx context.Context, flags []*Flag) error
	// DeleteFlag removes an override, returning ErrFlagNotFound if none was stored.
	DeleteFlag(ctx context.Context, key string) error
}
