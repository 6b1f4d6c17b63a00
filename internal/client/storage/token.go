package storage

import (
	"context"
)

//go:generate moq -out token_mock.go . TokenStorage

// TokenStorage defines interface for persisting the session bearer token.
// The token is the only piece of auth state that survives a restart;
// absence of a stored token is the sole signal that the session starts
// anonymous.
type TokenStorage interface {
	// SaveToken stores the bearer token, replacing any previous one
	SaveToken(ctx context.Context, token string) error

	// GetToken retrieves the stored bearer token
	// Returns ErrTokenNotFound if no token exists
	GetToken(ctx context.Context) (string, error)

	// DeleteToken removes the stored token (logout).
	// Deleting an absent token is not an error — logout always succeeds.
	DeleteToken(ctx context.Context) error
}

// TokenRecord represents the stored token value.
// Kept as a struct so the record can grow (e.g. SavedAt for diagnostics)
// without a storage format migration.
type TokenRecord struct {
	Token   string `json:"token"`
	SavedAt int64  `json:"saved_at"` // unix seconds
}
