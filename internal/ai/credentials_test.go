package ai

import (
	"context"
	"errors"
	"testing"
)

type fakeStateStore struct {
	data     map[string]string
	getCalls int
	getErr   error
	setErr   error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{data: make(map[string]string)}
}

func (s *fakeStateStore) GetState(_ context.Context, key string) (string, error) {
	s.getCalls++
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.data[key], nil
}

func (s *fakeStateStore) SetState(_ context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func TestCredentialStore_MissingKey(t *testing.T) {
	creds := NewCredentialStore(newFakeStateStore())

	if _, err := creds.APIKey(context.Background()); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("APIKey error = %v, want ErrAPIKeyMissing", err)
	}
}

func TestCredentialStore_ReadThroughAndCache(t *testing.T) {
	store := newFakeStateStore()
	store.data[StateKeyAPIKey] = "key-123"
	creds := NewCredentialStore(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		key, err := creds.APIKey(ctx)
		if err != nil {
			t.Fatalf("APIKey: %v", err)
		}
		if key != "key-123" {
			t.Fatalf("APIKey = %q, want key-123", key)
		}
	}
	if store.getCalls != 1 {
		t.Errorf("storage reads = %d, want 1 (cached afterwards)", store.getCalls)
	}
}

func TestCredentialStore_SetPersistsAndRefreshes(t *testing.T) {
	store := newFakeStateStore()
	creds := NewCredentialStore(store)
	ctx := context.Background()

	if err := creds.SetAPIKey(ctx, "new-key"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if store.data[StateKeyAPIKey] != "new-key" {
		t.Error("SetAPIKey did not persist to storage")
	}

	key, err := creds.APIKey(ctx)
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "new-key" {
		t.Errorf("APIKey = %q, want new-key", key)
	}
	if store.getCalls != 0 {
		t.Errorf("storage reads = %d, want 0 (served from cache)", store.getCalls)
	}
}

func TestCredentialStore_SetFailureKeepsOldKey(t *testing.T) {
	store := newFakeStateStore()
	creds := NewCredentialStore(store)
	ctx := context.Background()

	if err := creds.SetAPIKey(ctx, "first"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	store.setErr = errors.New("disk full")
	if err := creds.SetAPIKey(ctx, "second"); err == nil {
		t.Fatal("SetAPIKey succeeded despite store failure")
	}

	key, err := creds.APIKey(ctx)
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "first" {
		t.Errorf("APIKey = %q, want first (failed set must not overwrite cache)", key)
	}
}
