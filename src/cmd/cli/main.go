package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ai-shot/src/config"
	"ai-shot/src/llm"
	"ai-shot/src/presentation"
	"ai-shot/src/request"
	"ai-shot/src/runtimeinit"
	"ai-shot/src/selection"
	"ai-shot/src/session"
	"ai-shot/src/settings"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	rect       string
	uiSize     string
	jsonOutput bool
	model      string
	provider   string
	thinking   bool
	search     bool
	verbose    bool
	apiKeyPath string
}

func main() {
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
		args = []string{"ai-shot-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ai-shot-cli [prompt]",
		Short:         "Ask the model about a region of an image file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.rect, "rect", "", "Selection as x,y,w,h in UI coordinates (default: whole image)")
	cmd.Flags().StringVar(&opts.uiSize, "ui-size", "", "UI surface size as WxH (default: image size)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model override")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Provider override (gemini|openrouter)")
	cmd.Flags().BoolVar(&opts.thinking, "thinking", false, "Request model reasoning")
	cmd.Flags().BoolVar(&opts.search, "search", false, "Enable web search grounding")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, prompt string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			APIKeyPathOverride: opts.apiKeyPath,
			ModelOverride:      opts.model,
			ProviderOverride:   opts.provider,
		},
		Verbose:     opts.verbose,
		Stderr:      stderr,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	data, err := readInput(opts.filePath, os.Stdin)
	if err != nil {
		return err
	}
	img, err := decodePNG(data)
	if err != nil {
		return err
	}

	s := settings.Defaults(rt.Config.Model)
	s.Provider = rt.Config.Provider
	s.ThinkingEnabled = opts.thinking
	s.SearchEnabled = opts.search

	job, err := buildJob(img, opts.rect, opts.uiSize, prompt, s)
	if err != nil {
		return err
	}
	job.source = opts.filePath
	job.creds = rt.Credentials()
	job.deadline = rt.Deadline()

	res, err := analyze(ctx, job, nil, streamTarget(stdout, opts.jsonOutput), rt.Logger)
	if err != nil {
		return err
	}
	return outputResult(stdout, res, opts.jsonOutput)
}

// job is one headless request.
type job struct {
	img      image.Image
	sel      selection.Rect
	ui       selection.Size
	prompt   string
	settings settings.Settings
	creds    llm.Credentials
	deadline time.Duration
	source   string
}

func buildJob(img image.Image, rect, uiSize, prompt string, s settings.Settings) (job, error) {
	b := img.Bounds()
	j := job{
		img:      img,
		ui:       selection.Size{Width: float64(b.Dx()), Height: float64(b.Dy())},
		prompt:   strings.TrimSpace(prompt),
		settings: s,
	}
	if j.prompt == "" {
		j.prompt = session.DefaultPrompt
	}
	if uiSize != "" {
		ui, err := parseSize(uiSize)
		if err != nil {
			return job{}, err
		}
		j.ui = ui
	}
	j.sel = selection.Rect{Max: selection.Point{X: j.ui.Width, Y: j.ui.Height}}
	if rect != "" {
		sel, err := parseRect(rect)
		if err != nil {
			return job{}, err
		}
		j.sel = sel
	}
	return j, nil
}

func parseRect(v string) (selection.Rect, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return selection.Rect{}, fmt.Errorf("invalid --rect %q: want x,y,w,h", v)
	}
	var n [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return selection.Rect{}, fmt.Errorf("invalid --rect %q: %w", v, err)
		}
		n[i] = f
	}
	if n[2] <= 0 || n[3] <= 0 {
		return selection.Rect{}, fmt.Errorf("invalid --rect %q: width and height must be positive", v)
	}
	return selection.Rect{
		Min: selection.Point{X: n[0], Y: n[1]},
		Max: selection.Point{X: n[0] + n[2], Y: n[1] + n[3]},
	}, nil
}

func parseSize(v string) (selection.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(v), "x")
	if !ok {
		return selection.Size{}, fmt.Errorf("invalid --ui-size %q: want WxH", v)
	}
	wf, err1 := strconv.ParseFloat(strings.TrimSpace(w), 64)
	hf, err2 := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err1 != nil || err2 != nil || wf <= 0 || hf <= 0 {
		return selection.Size{}, fmt.Errorf("invalid --ui-size %q: want positive WxH", v)
	}
	return selection.Size{Width: wf, Height: hf}, nil
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

func decodePNG(data []byte) (image.Image, error) {
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return nil, fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// Result is the JSON shape of a finished request.
type Result struct {
	Text      string  `json:"text"`
	Thoughts  string  `json:"thoughts,omitempty"`
	Source    string  `json:"source"`
	Model     string  `json:"model"`
	Provider  string  `json:"provider"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func streamTarget(stdout io.Writer, jsonOutput bool) io.Writer {
	if jsonOutput {
		return nil
	}
	return stdout
}

// analyze runs j through a request controller and drains it until the
// generation finishes or fails. Text is copied to stream as it arrives.
func analyze(ctx context.Context, j job, factory request.ClientFactory, stream io.Writer, log zerolog.Logger) (Result, error) {
	ctrl := request.New(request.Options{
		Screenshot:  j.img,
		Store:       settings.NewMemoryStore(j.settings),
		Credentials: j.creds,
		NewClient:   factory,
		Logger:      log,
		Deadline:    j.deadline,
	})
	defer ctrl.Close()

	state := presentation.New()
	start := time.Now()
	ctrl.Submit(j.sel, j.ui, j.prompt, j.settings, state)

	written := 0
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ctrl.Ready():
		case <-time.After(100 * time.Millisecond):
		}
		res := ctrl.Drain(state)
		if state.Kind() == presentation.Error {
			return Result{}, errors.New(state.Message())
		}
		if stream != nil {
			if text := state.Text(); len(text) > written {
				if _, err := io.WriteString(stream, text[written:]); err != nil {
					return Result{}, fmt.Errorf("write output: %w", err)
				}
				written = len(text)
			}
		}
		if res.Finished {
			break
		}
	}

	text := state.Text()
	return Result{
		Text:      text,
		Thoughts:  state.Thoughts(),
		Source:    j.source,
		Model:     j.settings.Model,
		Provider:  j.settings.Provider,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  time.Since(start).Seconds(),
		CharCount: len(text),
	}, nil
}

func outputResult(w io.Writer, res Result, jsonOutput bool) error {
	if !jsonOutput {
		if !strings.HasSuffix(res.Text, "\n") {
			fmt.Fprintln(w)
		}
		return nil
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(res); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"file", "rect", "ui-size", "json", "model", "provider", "thinking", "search", "verbose", "api-key-path"}
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
