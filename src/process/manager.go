// Package process launches and tracks overlay child processes for the daemon.
package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrStopped is returned by Spawn after StopAll.
var ErrStopped = errors.New("process manager stopped")

// State is the lifecycle state of a child process.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateExited
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Info describes one child.
type Info struct {
	PID       int
	Args      []string
	State     State
	StartTime time.Time
	LastError error
}

// CommandFunc builds the command for a child. The default runs the current
// executable with args.
type CommandFunc func(args []string) (*exec.Cmd, error)

// Manager starts children and reaps them when they exit.
type Manager struct {
	command CommandFunc
	log     zerolog.Logger

	mu       sync.Mutex
	children map[int]*child
	stopped  bool
	wg       sync.WaitGroup
}

type child struct {
	info Info
	cmd  *exec.Cmd
}

// NewManager returns a manager. command may be nil.
func NewManager(command CommandFunc, log zerolog.Logger) *Manager {
	if command == nil {
		command = selfCommand
	}
	return &Manager{
		command:  command,
		log:      log.With().Str("component", "process").Logger(),
		children: make(map[int]*child),
	}
}

func selfCommand(args []string) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// Spawn starts a child and returns its PID without waiting for it.
func (m *Manager) Spawn(args ...string) (int, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return 0, ErrStopped
	}
	m.mu.Unlock()

	cmd, err := m.command(args)
	if err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		m.log.Error().Err(err).Strs("args", args).Msg("failed to start child")
		return 0, fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	pid := cmd.Process.Pid
	c := &child{
		cmd:  cmd,
		info: Info{PID: pid, Args: args, State: StateRunning, StartTime: time.Now()},
	}
	m.mu.Lock()
	m.children[pid] = c
	m.mu.Unlock()
	m.log.Info().Int("pid", pid).Strs("args", args).Msg("child started")

	m.wg.Add(1)
	go m.reap(c)
	return pid, nil
}

func (m *Manager) reap(c *child) {
	defer m.wg.Done()
	err := c.cmd.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	c.info.LastError = err
	if err != nil {
		c.info.State = StateCrashed
		m.log.Warn().Err(err).Int("pid", c.info.PID).Dur("uptime", time.Since(c.info.StartTime)).Msg("child exited with error")
	} else {
		c.info.State = StateExited
		m.log.Debug().Int("pid", c.info.PID).Dur("uptime", time.Since(c.info.StartTime)).Msg("child exited")
	}
	delete(m.children, c.info.PID)
}

// Running returns the children that have not exited yet.
func (m *Manager) Running() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.children))
	for _, c := range m.children {
		out = append(out, c.info)
	}
	return out
}

// StopAll kills every running child and waits up to timeout for them to be
// reaped. It reports whether all children were reaped in time.
func (m *Manager) StopAll(timeout time.Duration) bool {
	m.mu.Lock()
	m.stopped = true
	for pid, c := range m.children {
		if err := c.cmd.Process.Kill(); err != nil {
			m.log.Warn().Err(err).Int("pid", pid).Msg("failed to kill child")
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
