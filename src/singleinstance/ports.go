package singleinstance

import (
	"os"
	"strconv"
)

const (
	defaultPortStart = 49560
	defaultPortEnd   = 49580
)

// portRange returns the effective TCP port range. Explicit options win, then
// AI_SHOT_PORT_START and AI_SHOT_PORT_END (integers, inclusive), then the
// defaults. The result is clamped to [1024, 65535].
func portRange(opts Options) (int, int) {
	start := defaultPortStart
	end := defaultPortEnd
	if v := os.Getenv("AI_SHOT_PORT_START"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			start = n
		}
	}
	if v := os.Getenv("AI_SHOT_PORT_END"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			end = n
		}
	}
	if opts.PortStart > 0 {
		start = opts.PortStart
	}
	if opts.PortEnd > 0 {
		end = opts.PortEnd
	}
	if start < 1024 {
		start = 1024
	}
	if end > 65535 {
		end = 65535
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}

// PortRangeForDebug exposes the effective port range for logging.
func PortRangeForDebug(opts Options) (int, int) { return portRange(opts) }
