package eventloop

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-shot/src/singleinstance"
)

type fakeConn struct {
	req     singleinstance.Request
	mu      sync.Mutex
	success string
	errMsg  string
	done    chan struct{}
}

func newFakeConn(monitor int) *fakeConn {
	return &fakeConn{req: singleinstance.Request{Monitor: monitor}, done: make(chan struct{})}
}

func (c *fakeConn) Request() singleinstance.Request { return c.req }
func (c *fakeConn) RespondSuccess(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.success = text
	return nil
}
func (c *fakeConn) RespondError(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = msg
	return nil
}
func (c *fakeConn) Close() error { close(c.done); return nil }

type fakeServer struct {
	startErr error
	conns    chan singleinstance.Conn
	closed   bool
}

func (s *fakeServer) Start(ctx context.Context) error { return s.startErr }
func (s *fakeServer) Port() int                       { return 49560 }
func (s *fakeServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case c := <-s.conns:
		return c, nil
	}
}
func (s *fakeServer) Close() error { s.closed = true; return nil }

type fakeSpawner struct {
	mu   sync.Mutex
	err  error
	args [][]string
}

func (f *fakeSpawner) Spawn(args ...string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.args = append(f.args, args)
	return 1000 + len(f.args), nil
}

func (f *fakeSpawner) calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.args...)
}

type chanHotkey chan struct{}

func (h chanHotkey) Run(ctx context.Context, onTrigger func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h:
			onTrigger()
		}
	}
}

type fixture struct {
	loop     *Loop
	server   *fakeServer
	spawner  *fakeSpawner
	hotkey   chanHotkey
	saved    chan string
	captured chan int
}

func newFixture(t *testing.T, captureErr error) *fixture {
	f := &fixture{
		server:   &fakeServer{conns: make(chan singleinstance.Conn, 1)},
		spawner:  &fakeSpawner{},
		hotkey:   make(chanHotkey, 1),
		saved:    make(chan string, 4),
		captured: make(chan int, 4),
	}
	f.loop = New(Options{
		Monitor: 0,
		Hotkey:  f.hotkey,
		Server:  f.server,
		Spawner: f.spawner,
		Capture: func(monitor int) (image.Image, error) {
			f.captured <- monitor
			if captureErr != nil {
				return nil, captureErr
			}
			return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
		},
		SavePNG: func(img image.Image, path string) error {
			f.saved <- path
			return nil
		},
		TempPath:  filepath.Join(t.TempDir(), TempImageName),
		ExtraArgs: []string{"--copy"},
		Logger:    zerolog.Nop(),
	})
	return f
}

func (f *fixture) run(t *testing.T) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.loop.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func TestHotkeyCapturesAndSpawns(t *testing.T) {
	f := newFixture(t, nil)
	cancel, errCh := f.run(t)

	f.hotkey <- struct{}{}
	assert.Equal(t, 0, <-f.captured)
	assert.Equal(t, f.loop.TempPath(), <-f.saved)
	require.Eventually(t, func() bool { return len(f.spawner.calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"--image-path", f.loop.TempPath(), "--copy"}, f.spawner.calls()[0])

	cancel()
	assert.NoError(t, <-errCh)
	assert.True(t, f.server.closed)
}

func TestDelegatedCaptureReportsSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	conn := newFakeConn(1)
	f.server.conns <- conn
	<-conn.done

	assert.Equal(t, 1, <-f.captured)
	assert.Equal(t, "overlay started (pid 1001)", conn.success)
	assert.Empty(t, conn.errMsg)
}

func TestDelegatedCaptureReportsError(t *testing.T) {
	f := newFixture(t, errors.New("monitor not found"))
	f.run(t)

	conn := newFakeConn(7)
	f.server.conns <- conn
	<-conn.done

	assert.Equal(t, "monitor not found", conn.errMsg)
	assert.Empty(t, f.spawner.calls())
}

func TestSpawnFailureIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.spawner.err = errors.New("exec format error")
	f.run(t)

	conn := newFakeConn(0)
	f.server.conns <- conn
	<-conn.done
	assert.Equal(t, "spawn overlay: exec format error", conn.errMsg)
}

func TestServerStartFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.server.startErr = errors.New("address in use")
	err := f.loop.Run(context.Background())
	assert.ErrorContains(t, err, "address in use")
}

func TestTriggerQueueIsBounded(t *testing.T) {
	f := newFixture(t, nil)
	accepted := 0
	for i := 0; i < 10; i++ {
		if f.loop.Trigger(0) {
			accepted++
		}
	}
	assert.Equal(t, cap(f.loop.triggers), accepted)
}
