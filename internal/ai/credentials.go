package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// StateKeyAPIKey is the sync_state key the Gemini API key is stored
// under.
const StateKeyAPIKey = "gemini_api_key"

// ErrAPIKeyMissing signals that no API key has been configured. Callers
// should prompt for a key rather than retry.
var ErrAPIKeyMissing = errors.New("ai: api key not set")

// StateStore is the scalar key/value slice of the persistence layer.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
}

// CredentialStore owns the cached API key with an explicit get/set
// contract, backed by the durable sync_state table.
type CredentialStore struct {
	store StateStore

	mu     sync.Mutex
	cached string
}

func NewCredentialStore(store StateStore) *CredentialStore {
	return &CredentialStore{store: store}
}

// APIKey returns the configured key, reading through to storage on
// first use. Returns ErrAPIKeyMissing when none is set.
func (c *CredentialStore) APIKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != "" {
		return c.cached, nil
	}
	key, err := c.store.GetState(ctx, StateKeyAPIKey)
	if err != nil {
		return "", fmt.Errorf("load api key: %w", err)
	}
	if key == "" {
		return "", ErrAPIKeyMissing
	}
	c.cached = key
	return key, nil
}

// SetAPIKey persists the key and refreshes the cached copy.
func (c *CredentialStore) SetAPIKey(ctx context.Context, key string) error {
	if err := c.store.SetState(ctx, StateKeyAPIKey, key); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	c.mu.Lock()
	c.cached = key
	c.mu.Unlock()
	return nil
}
