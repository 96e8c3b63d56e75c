// Package eventloop runs the resident daemon: hotkey presses and delegated
// capture requests become a screenshot on disk plus a freshly spawned overlay.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-shot/src/screenshot"
	"ai-shot/src/singleinstance"
)

// TempImageName is the file the daemon writes each capture to.
const TempImageName = "ai_shot_rapid_capture.png"

// ErrBusy is reported when a capture is requested while another is running.
var ErrBusy = errors.New("busy: capture already in progress")

// HotkeyListener blocks until ctx is done, calling onTrigger per press.
type HotkeyListener interface {
	Run(ctx context.Context, onTrigger func()) error
}

// Spawner starts a detached overlay process.
type Spawner interface {
	Spawn(args ...string) (int, error)
}

// Options wires the loop. Server and Spawner are required.
type Options struct {
	Monitor  int
	Hotkey   HotkeyListener
	Server   singleinstance.Server
	Spawner  Spawner
	Capture  func(monitor int) (image.Image, error)
	SavePNG  func(img image.Image, path string) error
	TempPath string
	// ExtraArgs are appended to every spawned overlay command line.
	ExtraArgs []string
	OnReady   func(port int)
	Logger    zerolog.Logger
}

// Loop is the single-threaded coordinator for hotkey and IPC triggers.
type Loop struct {
	opts     Options
	log      zerolog.Logger
	triggers chan trigger
}

type trigger struct {
	monitor int
	conn    singleinstance.Conn
}

// New fills defaults for capture, encoding and the temp path.
func New(opts Options) *Loop {
	if opts.Capture == nil {
		opts.Capture = func(monitor int) (image.Image, error) {
			img, err := screenshot.Capture(monitor)
			if err != nil {
				return nil, err
			}
			return img, nil
		}
	}
	if opts.SavePNG == nil {
		opts.SavePNG = screenshot.SavePNG
	}
	if opts.TempPath == "" {
		opts.TempPath = filepath.Join(os.TempDir(), TempImageName)
	}
	return &Loop{
		opts:     opts,
		log:      opts.Logger.With().Str("component", "eventloop").Logger(),
		triggers: make(chan trigger, 4),
	}
}

// TempPath returns where captures are written.
func (l *Loop) TempPath() string { return l.opts.TempPath }

// Trigger queues a capture of monitor. It reports false when the queue is full.
func (l *Loop) Trigger(monitor int) bool {
	select {
	case l.triggers <- trigger{monitor: monitor}:
		return true
	default:
		l.log.Warn().Int("monitor", monitor).Msg("trigger dropped, queue full")
		return false
	}
}

// Run starts the resident server and blocks until ctx is cancelled or a
// component fails.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.opts.Server.Start(ctx); err != nil {
		return fmt.Errorf("start resident server: %w", err)
	}
	defer l.opts.Server.Close()
	port := l.opts.Server.Port()
	l.log.Info().Int("port", port).Str("temp_path", l.opts.TempPath).Msg("daemon ready")
	if l.opts.OnReady != nil {
		l.opts.OnReady(port)
	}

	g, ctx := errgroup.WithContext(ctx)
	if l.opts.Hotkey != nil {
		g.Go(func() error {
			err := l.opts.Hotkey.Run(ctx, func() { l.Trigger(l.opts.Monitor) })
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		for {
			conn, err := l.opts.Server.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case l.triggers <- trigger{monitor: conn.Request().Monitor, conn: conn}:
			default:
				_ = conn.RespondError(ErrBusy.Error())
				_ = conn.Close()
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case t := <-l.triggers:
				l.handle(t)
			}
		}
	})
	return g.Wait()
}

func (l *Loop) handle(t trigger) {
	pid, err := l.captureAndSpawn(t.monitor)
	if t.conn == nil {
		return
	}
	defer t.conn.Close()
	if err != nil {
		_ = t.conn.RespondError(err.Error())
		return
	}
	_ = t.conn.RespondSuccess(fmt.Sprintf("overlay started (pid %d)", pid))
}

// captureAndSpawn writes the capture to the temp path and spawns the overlay
// pointed at it.
func (l *Loop) captureAndSpawn(monitor int) (int, error) {
	start := time.Now()
	log := l.log.With().Int("monitor", monitor).Logger()

	img, err := l.opts.Capture(monitor)
	if err != nil {
		log.Error().Err(err).Msg("capture failed")
		return 0, err
	}
	if err := l.opts.SavePNG(img, l.opts.TempPath); err != nil {
		log.Error().Err(err).Msg("failed to save capture")
		return 0, fmt.Errorf("save capture: %w", err)
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("capture saved")

	args := append([]string{"--image-path", l.opts.TempPath}, l.opts.ExtraArgs...)
	pid, err := l.opts.Spawner.Spawn(args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to spawn overlay")
		return 0, fmt.Errorf("spawn overlay: %w", err)
	}
	log.Info().Int("pid", pid).Dur("elapsed", time.Since(start)).Msg("overlay spawned")
	return pid, nil
}
