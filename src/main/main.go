package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ai-shot/src/clipboard"
	"ai-shot/src/config"
	"ai-shot/src/eventloop"
	"ai-shot/src/gui"
	"ai-shot/src/hotkey"
	"ai-shot/src/notification"
	"ai-shot/src/process"
	"ai-shot/src/request"
	"ai-shot/src/runtimeinit"
	"ai-shot/src/screenshot"
	"ai-shot/src/session"
	"ai-shot/src/settings"
	"ai-shot/src/singleinstance"
	"ai-shot/src/tray"
)

type mainOptions struct {
	model        string
	provider     string
	copy         bool
	monitor      int
	listMonitors bool
	daemon       bool
	imagePath    string
	trigger      bool
	verbose      bool
	apiKeyPath   string
}

func main() {
	// Fyne and systray both want the main OS thread.
	runtime.LockOSThread()
	enableDPIAwareness()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ai-shot"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ai-shot [prompt...]",
		Short:         "Select part of the screen and ask an AI about it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, args, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "Model to use (overrides the saved setting)")
	f.StringVar(&opts.provider, "provider", "", "Completion provider: gemini or openrouter")
	f.BoolVarP(&opts.copy, "copy", "c", false, "Copy the answer to the clipboard when it finishes")
	f.IntVar(&opts.monitor, "monitor", 0, "Monitor index to capture")
	f.BoolVar(&opts.listMonitors, "list-monitors", false, "List monitors and exit")
	f.BoolVar(&opts.daemon, "daemon", false, "Stay resident and capture on the global hotkey")
	f.StringVar(&opts.imagePath, "image-path", "", "Open the overlay on an existing image instead of capturing")
	f.BoolVar(&opts.trigger, "trigger", false, "Ask a running daemon to capture, or capture directly if none runs")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging to stderr")
	f.StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to Gemini API key file (highest precedence)")
	return cmd
}

func runWithOptions(opts mainOptions, args []string, stdout io.Writer) error {
	if opts.listMonitors {
		return listMonitors(stdout)
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			APIKeyPathOverride: opts.apiKeyPath,
			ModelOverride:      opts.model,
			ProviderOverride:   opts.provider,
		},
		Verbose:       opts.verbose,
		InitClipboard: clipboard.Init,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	switch {
	case opts.daemon:
		err = runDaemon(rt, opts)
	case opts.trigger:
		client := singleinstance.NewClient(ipcOptions(rt))
		err = handleTriggerWithDelegation(opts.monitor, client, rt.Logger, func() error {
			return runOverlay(rt, opts, args, stdout)
		})
	default:
		err = runOverlay(rt, opts, args, stdout)
	}
	if err != nil {
		rt.Logger.Error().Err(err).Msg("ai-shot failed")
		if opts.daemon || opts.imagePath != "" {
			// no console is attached when launched from the hotkey
			notification.ShowBlockingError("ai-shot", err.Error())
		}
	}
	return err
}

func listMonitors(w io.Writer) error {
	monitors := screenshot.Enumerate()
	if len(monitors) == 0 {
		return errors.New("no active displays found")
	}
	for _, m := range monitors {
		fmt.Fprintln(w, m.String())
	}
	return nil
}

func ipcOptions(rt *runtimeinit.Runtime) singleinstance.Options {
	return singleinstance.Options{
		PortStart: rt.Config.PortStart,
		PortEnd:   rt.Config.PortEnd,
		Logger:    rt.Logger,
	}
}

// handleTriggerWithDelegation asks a resident daemon to capture and falls
// back to a standalone overlay when none answers.
func handleTriggerWithDelegation(monitor int, client singleinstance.Client, log zerolog.Logger, fallback func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	delegated, detail, err := client.TryCapture(ctx, monitor)
	if err != nil {
		log.Warn().Err(err).Msg("delegation failed, capturing directly")
		return fallback()
	}
	if !delegated {
		log.Info().Msg("no resident daemon, capturing directly")
		return fallback()
	}
	log.Info().Str("detail", detail).Msg("delegated to resident")
	return nil
}

// loadScreenshot reads --image-path or captures the requested monitor.
func loadScreenshot(opts mainOptions) (image.Image, error) {
	if opts.imagePath != "" {
		return screenshot.Load(opts.imagePath)
	}
	img, err := screenshot.Capture(opts.monitor)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func runOverlay(rt *runtimeinit.Runtime, opts mainOptions, args []string, stdout io.Writer) error {
	start := time.Now()
	shot, err := loadScreenshot(opts)
	if err != nil {
		return err
	}
	rt.Logger.Debug().Dur("elapsed", time.Since(start)).
		Int("width", shot.Bounds().Dx()).Int("height", shot.Bounds().Dy()).Msg("screenshot ready")

	sess := session.New(session.Options{
		Screenshot: shot,
		Store:      openStore(rt),
		Request: request.Options{
			Credentials: rt.Credentials(),
			Deadline:    rt.Deadline(),
		},
		Clipboard:     clipboard.System{},
		AutoCopy:      opts.copy,
		InitialPrompt: strings.Join(args, " "),
		Logger:        rt.Logger,
	})
	sess.UpdateSettings(func(s *settings.Settings) {
		if opts.model != "" {
			s.Model = opts.model
		}
		if opts.provider != "" {
			s.Provider = strings.ToLower(opts.provider)
		}
	})

	res := gui.Run(gui.Options{Session: sess, Screenshot: shot, Logger: rt.Logger})
	if res.Answer != "" {
		fmt.Fprintln(stdout, res.Answer)
	}
	return nil
}

// openStore uses the per-user settings file, or memory when no config
// directory is available.
func openStore(rt *runtimeinit.Runtime) settings.Store {
	fs, err := settings.NewFileStore(rt.Config.Model)
	if err != nil {
		rt.Logger.Warn().Err(err).Msg("settings file unavailable, using defaults")
		return settings.NewMemoryStore(settings.Defaults(rt.Config.Model))
	}
	return fs
}

func runDaemon(rt *runtimeinit.Runtime, opts mainOptions) error {
	ipc := ipcOptions(rt)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probe, cancelProbe := context.WithTimeout(ctx, time.Second)
	port, running := singleinstance.DetectResidentPort(probe, ipc)
	cancelProbe()
	if running {
		return fmt.Errorf("ai-shot daemon already running on port %d", port)
	}

	listener, err := hotkey.New(rt.Config.Hotkey, rt.Logger)
	if err != nil {
		return err
	}

	var extra []string
	if opts.model != "" {
		extra = append(extra, "--model", opts.model)
	}
	if opts.copy {
		extra = append(extra, "--copy")
	}
	if opts.verbose {
		extra = append(extra, "--verbose")
	}

	procs := process.NewManager(nil, rt.Logger)
	defer procs.StopAll(2 * time.Second)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New(tray.Options{
		Hotkey: rt.Config.Hotkey,
		OnQuit: cancel,
		Logger: rt.Logger,
	})
	loop := eventloop.New(eventloop.Options{
		Monitor:   opts.monitor,
		Hotkey:    listener,
		Server:    singleinstance.NewServer(ipc),
		Spawner:   procs,
		ExtraArgs: extra,
		OnReady: func(port int) {
			t.SetAboutExtra(fmt.Sprintf("Resident TCP port: %d", port))
		},
		Logger: rt.Logger,
	})
	t.SetOnCapture(func() { loop.Trigger(opts.monitor) })

	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
		t.Quit()
	}()
	rt.Logger.Info().Str("hotkey", rt.Config.Hotkey).Msg("daemon started")
	t.Run()

	cancel()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	rt.Logger.Info().Msg("daemon stopped")
	return nil
}

// normalizeLegacyArgs maps single-dash long flags to the double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	long := []string{
		"model", "provider", "copy", "monitor", "list-monitors", "daemon",
		"image-path", "trigger", "verbose", "api-key-path",
	}

	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if arg == "--" {
			break
		}
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}
