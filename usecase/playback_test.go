package usecase

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
)

func tempResource(t *testing.T) *entities.PlayableResource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer.wav")
	if err := os.WriteFile(path, []byte("audio"), 0o600); err != nil {
		t.Fatal(err)
	}
	return &entities.PlayableResource{Path: path}
}

func waitForState(t *testing.T, p *PlaybackController, want PlaybackState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, currently %s", want, p.State())
}

func TestPlaybackLifecycle(t *testing.T) {
	output := &fakeOutput{}
	p := NewPlaybackController(output, zaptest.NewLogger(t))

	if p.State() != PlaybackEmpty {
		t.Fatalf("fresh controller must be empty, got %s", p.State())
	}
	// Play with nothing loaded is a silent no-op.
	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if output.plays() != 0 {
		t.Error("no playback should start while empty")
	}

	p.Load(tempResource(t))
	if p.State() != PlaybackIdle {
		t.Fatalf("loaded controller must be idle, got %s", p.State())
	}

	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !p.IsPlaying() {
		t.Fatal("controller must be playing")
	}

	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}
	if p.State() != PlaybackPaused {
		t.Fatalf("expected paused, got %s", p.State())
	}
	if output.handle(0).paused != 1 {
		t.Error("pause must reach the handle")
	}

	// Play from paused resumes rather than restarting.
	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if output.plays() != 1 {
		t.Errorf("resume must not start a new playback, got %d", output.plays())
	}
	if output.handle(0).resumed != 1 {
		t.Error("resume must reach the handle")
	}
}

func TestPlaybackEndKeepsResourceForReplay(t *testing.T) {
	output := &fakeOutput{}
	p := NewPlaybackController(output, zaptest.NewLogger(t))
	resource := tempResource(t)

	p.Load(resource)
	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}

	output.handle(0).finish()
	waitForState(t, p, PlaybackEnded)

	if p.Resource() != resource {
		t.Fatal("ended playback must keep its resource loaded")
	}
	if _, err := os.Stat(resource.Path); err != nil {
		t.Fatal("resource file must survive until replaced")
	}

	// Replay starts a fresh playback of the same resource.
	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if output.plays() != 2 {
		t.Errorf("replay must start a new playback, got %d", output.plays())
	}
	if !p.IsPlaying() {
		t.Error("controller must be playing after replay")
	}
}

func TestPlaybackLoadReleasesPreviousResource(t *testing.T) {
	output := &fakeOutput{}
	p := NewPlaybackController(output, zaptest.NewLogger(t))

	first := tempResource(t)
	p.Load(first)
	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	firstPath := first.Path

	second := tempResource(t)
	p.Load(second)

	if _, err := os.Stat(firstPath); !os.IsNotExist(err) {
		t.Error("replaced resource must be released")
	}
	if !output.handle(0).isClosed() {
		t.Error("replaced playback must be stopped")
	}
	if p.State() != PlaybackIdle {
		t.Errorf("controller must be idle with the new resource, got %s", p.State())
	}

	// A late done signal from the replaced handle must not change state.
	output.handle(0).finish()
	time.Sleep(20 * time.Millisecond)
	if p.State() != PlaybackIdle {
		t.Errorf("stale done event must be ignored, got %s", p.State())
	}
}

func TestSupersededPlaybacksDoNotLeakGoroutines(t *testing.T) {
	output := &fakeOutput{}
	p := NewPlaybackController(output, zaptest.NewLogger(t))

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		p.Load(tempResource(t))
		if err := p.Play(context.Background()); err != nil {
			t.Fatal(err)
		}
		p.Clear()
	}

	// Closing a handle completes its done channel, so every watcher must
	// unwind shortly after its playback is superseded.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && runtime.NumGoroutine() > before+2 {
		time.Sleep(10 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > before+2 {
		t.Errorf("watcher goroutines leaked: before=%d after=%d", before, after)
	}
}

func TestPlaybackPauseOutsidePlayingIsNoop(t *testing.T) {
	p := NewPlaybackController(&fakeOutput{}, zaptest.NewLogger(t))
	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}
	p.Load(tempResource(t))
	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}
	if p.State() != PlaybackIdle {
		t.Errorf("pause while idle must not change state, got %s", p.State())
	}
}

func TestPlaybackClear(t *testing.T) {
	output := &fakeOutput{}
	p := NewPlaybackController(output, zaptest.NewLogger(t))
	resource := tempResource(t)

	p.Load(resource)
	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	path := resource.Path
	p.Clear()

	if p.State() != PlaybackEmpty {
		t.Errorf("expected empty, got %s", p.State())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleared resource must be released")
	}
	if !output.handle(0).isClosed() {
		t.Error("cleared playback must be stopped")
	}
}
