package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/storage"
)

var tokenKey = []byte("token")

// Compile-time check that Storage implements TokenStorage
var _ storage.TokenStorage = (*Storage)(nil)

// SaveToken stores the bearer token, replacing any previous one
func (s *Storage) SaveToken(ctx context.Context, token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		record := storage.TokenRecord{
			Token:   token,
			SavedAt: time.Now().Unix(),
		}

		// Сериализуем данные в JSON
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal token record: %w", err)
		}

		// Сохраняем в bucket
		if err := bucket.Put(tokenKey, data); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		return nil
	})
}

// GetToken retrieves the stored bearer token
func (s *Storage) GetToken(ctx context.Context) (string, error) {
	var token string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		data := bucket.Get(tokenKey)
		if data == nil {
			return storage.ErrTokenNotFound
		}

		// Десериализуем
		var record storage.TokenRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to unmarshal token record: %w", err)
		}

		token = record.Token
		return nil
	})

	if err != nil {
		return "", err
	}

	return token, nil
}

// DeleteToken removes the stored token.
// Deleting an absent token is not an error (logout always succeeds).
func (s *Storage) DeleteToken(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		if err := bucket.Delete(tokenKey); err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}

		return nil
	})
}
