package service

import "context"

// Store is the opaque key-value persistence the widget state lives in.
// Implementations must return entities.ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Logical keys used by the converter.
const (
	SnapshotKey  = "rates:snapshot"
	HistoryKey   = "conversion:history"
	FavoritesKey = "favorite:pairs"
)
