package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys for the persisted trust state. Each key holds one JSON document.
const (
	KeySenderTrust      = "otpshield:trust_scores"
	KeySenderFeedback   = "otpshield:user_feedback"
	KeyCallTrust        = "otpshield:call_trust_scores"
	KeyCallHistory      = "otpshield:call_history"
	KeyCallFeedback     = "otpshield:call_feedback"
	KeyRatingTimestamps = "otpshield:user_rating_timestamps"
)

// KVStore is a durable string-keyed blob store
type KVStore interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// LoadJSON decodes the document under key into dst. It reports false, with
// no error, when the key is absent.
func LoadJSON(ctx context.Context, kv KVStore, key string, dst interface{}) (bool, error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, kv KVStore, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
