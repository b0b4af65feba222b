package daemon

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"clipd/internal/config"
	"clipd/internal/dialogue"
	"clipd/internal/logging"
	"clipd/internal/pipeline"
	"clipd/internal/session"
	"clipd/internal/telegram"
	"clipd/internal/testsupport"
)

type scriptedSource struct {
	batches chan []telegram.Update
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{batches: make(chan []telegram.Update, 8)}
}

func (s *scriptedSource) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]telegram.Update, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case batch := <-s.batches:
		return batch, nil
	}
}

type recordingReplier struct {
	mu      sync.Mutex
	replies []string
	notify  chan struct{}
}

func newRecordingReplier() *recordingReplier {
	return &recordingReplier{notify: make(chan struct{}, 8)}
}

func (r *recordingReplier) SendMessage(_ context.Context, _ int64, text string) (int, error) {
	r.mu.Lock()
	r.replies = append(r.replies, text)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return 1, nil
}

func (r *recordingReplier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}

type noopRunner struct{}

func (noopRunner) Run(context.Context, pipeline.Request) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config, source UpdateSource) (*Daemon, *recordingReplier) {
	t.Helper()
	replier := newRecordingReplier()
	router, err := dialogue.New(session.NewStore(), noopRunner{}, replier, 0, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("dialogue.New: %v", err)
	}
	d, err := New(cfg, source, router, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, replier
}

func textUpdate(updateID int64, userID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: int(updateID),
			From:      &telegram.User{ID: userID},
			Chat:      telegram.Chat{ID: userID, Type: "private"},
			Text:      text,
		},
	}
}

func TestDaemonRoutesUpdates(t *testing.T) {
	source := newScriptedSource()
	d, replier := newTestDaemon(t, testConfig(t), source)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	source.batches <- []telegram.Update{textUpdate(1, 42, "/start")}

	select {
	case <-replier.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
	}

	replies := replier.all()
	if len(replies) != 1 || !strings.Contains(replies[0], "Send me a video") {
		t.Errorf("replies = %v", replies)
	}
}

func TestDaemonIgnoresBotSenders(t *testing.T) {
	source := newScriptedSource()
	d, replier := newTestDaemon(t, testConfig(t), source)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	botUpdate := textUpdate(1, 99, "/start")
	botUpdate.Message.From.IsBot = true
	source.batches <- []telegram.Update{botUpdate, textUpdate(2, 42, "/start")}

	select {
	case <-replier.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
	}

	if got := replier.all(); len(got) != 1 {
		t.Errorf("expected exactly one reply, got %v", got)
	}
}

func TestDaemonStartTwice(t *testing.T) {
	source := newScriptedSource()
	d, _ := newTestDaemon(t, testConfig(t), source)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testConfig(t)
	source := newScriptedSource()
	first, _ := newTestDaemon(t, cfg, source)
	second, _ := newTestDaemon(t, cfg, newScriptedSource())

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock conflict for second instance")
	}
}

func TestDaemonStopIdempotent(t *testing.T) {
	d, _ := newTestDaemon(t, testConfig(t), newScriptedSource())

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
	d.Stop()
	if d.Running() {
		t.Error("daemon should not be running after Stop")
	}
}
