package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRefresher) RefreshRecent(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 3, f.err
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantJobs []string
		wantErr  bool
	}{
		{
			name:     "both jobs",
			cfg:      Config{RefreshSchedule: "0 2 * * 1", RetentionDays: 14, RetentionDirs: []string{t.TempDir()}},
			wantJobs: []string{JobWeeklyRefresh, JobLogRetention},
		},
		{
			name:     "retention disabled",
			cfg:      Config{RefreshSchedule: "0 2 * * 1"},
			wantJobs: []string{JobWeeklyRefresh},
		},
		{
			name:    "invalid refresh schedule",
			cfg:     Config{RefreshSchedule: "every monday"},
			wantErr: true,
		},
		{
			name:    "invalid retention schedule",
			cfg:     Config{RetentionSchedule: "@sometimes", RetentionDays: 1, RetentionDirs: []string{"logs"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, &fakeRefresher{}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantJobs, s.Jobs())
		})
	}
}

func TestRunLogRetention(t *testing.T) {
	uploads := t.TempDir()
	logs := t.TempDir()

	old := filepath.Join(uploads, "old.pdf")
	recent := filepath.Join(logs, "recent.log")
	for _, path := range []string{old, recent} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("failed to age file: %v", err)
	}

	s, err := New(Config{RetentionDays: 14, RetentionDirs: []string{uploads, logs, filepath.Join(logs, "missing")}}, nil, nil)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, 1, s.RunLogRetention())

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}

func TestRunWeeklyRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	s, err := New(Config{RefreshSchedule: "0 2 * * 1"}, refresher, nil)
	if !assert.NoError(t, err) {
		return
	}
	s.RunWeeklyRefresh(context.Background())
	refresher.err = errors.New("database is locked")
	s.RunWeeklyRefresh(context.Background())
	assert.Equal(t, 2, refresher.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New(Config{RefreshSchedule: "0 2 * * 1"}, &fakeRefresher{}, nil)
	if !assert.NoError(t, err) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !s.Next(JobWeeklyRefresh).IsZero() }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
