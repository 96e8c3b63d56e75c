package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"ai-shot", "-daemon", "-api-key-path", "/tmp/key"},
			out:  []string{"ai-shot", "--daemon", "--api-key-path", "/tmp/key"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"ai-shot", "-model=gemini-2.5-pro", "-monitor=1"},
			out:  []string{"ai-shot", "--model=gemini-2.5-pro", "--monitor=1"},
		},
		{
			name: "Leaves short flags and prompts unchanged",
			in:   []string{"ai-shot", "-c", "--copy", "what", "is", "this"},
			out:  []string{"ai-shot", "-c", "--copy", "what", "is", "this"},
		},
		{
			name: "Stops at double dash",
			in:   []string{"ai-shot", "--", "-daemon"},
			out:  []string{"ai-shot", "--", "-daemon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, normalizeLegacyArgs(tt.in))
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	err := cmd.ParseFlags([]string{
		"--model", "gemini-2.5-pro", "-c", "--monitor", "2", "--daemon",
		"--image-path", "/tmp/shot.png", "--trigger", "-v", "--provider", "openrouter",
	})
	require.NoError(t, err)

	assert.Equal(t, mainOptions{
		model:     "gemini-2.5-pro",
		provider:  "openrouter",
		copy:      true,
		monitor:   2,
		daemon:    true,
		imagePath: "/tmp/shot.png",
		trigger:   true,
		verbose:   true,
	}, *opts)
}

type fakeClient struct {
	delegated bool
	err       error
	called    bool
	monitor   int
}

func (f *fakeClient) TryCapture(ctx context.Context, monitor int) (bool, string, error) {
	f.called = true
	f.monitor = monitor
	return f.delegated, "overlay started", f.err
}

func TestHandleTriggerWithDelegation(t *testing.T) {
	tests := []struct {
		name         string
		client       *fakeClient
		wantFallback bool
	}{
		{"delegated", &fakeClient{delegated: true}, false},
		{"no resident", &fakeClient{}, true},
		{"delegation error", &fakeClient{delegated: true, err: errors.New("busy")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallbackCalled := false
			err := handleTriggerWithDelegation(1, tt.client, zerolog.Nop(), func() error {
				fallbackCalled = true
				return nil
			})
			require.NoError(t, err)
			assert.True(t, tt.client.called)
			assert.Equal(t, 1, tt.client.monitor)
			assert.Equal(t, tt.wantFallback, fallbackCalled)
		})
	}
}

func TestFallbackErrorIsReturned(t *testing.T) {
	boom := errors.New("capture failed")
	err := handleTriggerWithDelegation(0, &fakeClient{}, zerolog.Nop(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestLoadScreenshotFromImagePath(t *testing.T) {
	_, err := loadScreenshot(mainOptions{imagePath: t.TempDir() + "/missing.png"})
	assert.Error(t, err)
}

func TestListMonitorsWritesLines(t *testing.T) {
	var out bytes.Buffer
	if err := listMonitors(&out); err != nil {
		t.Skipf("no display available: %v", err)
	}
	assert.Contains(t, out.String(), "Monitor 0:")
}
