package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSyncer struct {
	mu    sync.Mutex
	calls int
	n     int
	err   error
}

func (f *fakeSyncer) Sync(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.n, f.err
}

func (f *fakeSyncer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCheckpoints struct{ ts int64 }

func (f *fakeCheckpoints) LastScannedTimestamp(context.Context) (int64, error) {
	return f.ts, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []int
}

func (f *fakePublisher) PublishSyncCompleted(_ context.Context, inserted int, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, inserted)
	return nil
}

func (f *fakePublisher) Published() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.published...)
}

func TestScheduler_StartStop(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewScheduler(syncer, &fakeCheckpoints{}, nil, SchedulerConfig{Interval: time.Hour})
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning = false after Start")
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start succeeded, want error")
	}

	// The startup pass runs immediately.
	deadline := time.After(2 * time.Second)
	for syncer.Calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("startup sync pass never ran")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning = true after Stop")
	}

	// Stopping again is a no-op.
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestScheduler_ConcurrentStop(t *testing.T) {
	s := NewScheduler(&fakeSyncer{}, &fakeCheckpoints{}, nil, SchedulerConfig{Interval: time.Hour})
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Racing Stop calls must not double-close the stop channel.
	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Stop(stopCtx)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Stop #%d: %v", i, err)
		}
	}
	if s.IsRunning() {
		t.Error("IsRunning = true after Stop")
	}

	// The scheduler restarts cleanly and can be stopped again.
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop after restart: %v", err)
	}
}

func TestScheduler_PublishesWhenInserted(t *testing.T) {
	syncer := &fakeSyncer{n: 4}
	pub := &fakePublisher{}
	s := NewScheduler(syncer, &fakeCheckpoints{ts: 123}, pub, SchedulerConfig{Interval: time.Hour})

	s.runOnce(context.Background())

	got := pub.Published()
	if len(got) != 1 || got[0] != 4 {
		t.Errorf("published = %v, want [4]", got)
	}
}

func TestScheduler_SkipsPublishWhenNothingNew(t *testing.T) {
	pub := &fakePublisher{}
	s := NewScheduler(&fakeSyncer{n: 0}, &fakeCheckpoints{}, pub, SchedulerConfig{Interval: time.Hour})

	s.runOnce(context.Background())

	if got := pub.Published(); len(got) != 0 {
		t.Errorf("published = %v, want none", got)
	}
}

func TestScheduler_SyncErrorDoesNotPublish(t *testing.T) {
	pub := &fakePublisher{}
	s := NewScheduler(&fakeSyncer{err: errors.New("inbox down")}, &fakeCheckpoints{}, pub, SchedulerConfig{Interval: time.Hour})

	s.runOnce(context.Background())

	if got := pub.Published(); len(got) != 0 {
		t.Errorf("published = %v, want none after sync failure", got)
	}
}

func TestScheduler_NilPublisher(t *testing.T) {
	s := NewScheduler(&fakeSyncer{n: 2}, &fakeCheckpoints{}, nil, SchedulerConfig{})

	// Must not panic without a publisher.
	s.runOnce(context.Background())
}
