// Package request runs analysis requests in the background and reconciles
// their streamed results with what the overlay shows. Every submission gets
// a new generation; events from any other generation are dropped on drain.
package request

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ai-shot/src/bus"
	"ai-shot/src/llm"
	"ai-shot/src/logutil"
	"ai-shot/src/messages"
	"ai-shot/src/presentation"
	"ai-shot/src/screenshot"
	"ai-shot/src/selection"
	"ai-shot/src/settings"
	"ai-shot/src/worker"
)

const defaultCloseTimeout = 2 * time.Second

// ClientFactory builds a completion client from a per-submission config.
type ClientFactory func(cfg llm.Config) (llm.Client, error)

// Options wires the controller's collaborators. Screenshot and Store are
// required; everything else has a default.
type Options struct {
	Screenshot  image.Image
	Store       settings.Store
	Credentials llm.Credentials
	NewClient   ClientFactory
	Encoder     screenshot.Encoder
	Bus         *bus.Bus
	Runner      *worker.Runner
	Logger      zerolog.Logger
	// Deadline bounds a single request end to end. Zero means no deadline.
	Deadline     time.Duration
	CloseTimeout time.Duration
}

// DrainResult summarises one Drain call.
type DrainResult struct {
	Applied  int
	Dropped  int
	Finished bool
}

// Controller is driven from the UI goroutine. Submit, Drain, Abandon and
// Current must not be called concurrently with each other.
type Controller struct {
	shot     image.Image
	imgSize  selection.Size
	store    settings.Store
	creds    llm.Credentials
	factory  ClientFactory
	encoder  screenshot.Encoder
	bus      *bus.Bus
	runner   *worker.Runner
	log      zerolog.Logger
	deadline time.Duration
	closeTO  time.Duration

	next    messages.Generation
	current messages.Generation
	cancel  context.CancelFunc
}

// New creates a controller for one overlay session.
func New(opts Options) *Controller {
	c := &Controller{
		shot:     opts.Screenshot,
		store:    opts.Store,
		creds:    opts.Credentials,
		factory:  opts.NewClient,
		encoder:  opts.Encoder,
		bus:      opts.Bus,
		runner:   opts.Runner,
		log:      opts.Logger.With().Str("component", "request").Logger(),
		deadline: opts.Deadline,
		closeTO:  opts.CloseTimeout,
	}
	if c.factory == nil {
		c.factory = llm.New
	}
	if c.encoder == nil {
		c.encoder = screenshot.NewJPEGEncoder()
	}
	if c.bus == nil {
		c.bus = bus.New()
	}
	if c.runner == nil {
		c.runner = worker.New(opts.Logger)
	}
	if c.closeTO <= 0 {
		c.closeTO = defaultCloseTimeout
	}
	if c.shot != nil {
		b := c.shot.Bounds()
		c.imgSize = selection.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}
	return c
}

// Ready is signalled when workers have queued events.
func (c *Controller) Ready() <-chan struct{} { return c.bus.Ready() }

// Current returns the current generation, zero when none.
func (c *Controller) Current() messages.Generation { return c.current }

// job is everything a worker owns. All fields are value copies except the
// screenshot, which is never written after capture.
type job struct {
	gen      messages.Generation
	sel      selection.Rect
	uiSize   selection.Size
	prompt   string
	settings settings.Settings
}

// Submit starts a request for sel and makes it current. The previous
// generation, if any, becomes stale and its worker is cancelled. state moves
// to Streaming with empty text and thoughts.
func (c *Controller) Submit(sel selection.Rect, uiSize selection.Size, prompt string, s settings.Settings, state *presentation.State) messages.Generation {
	if err := c.store.Save(s); err != nil {
		c.log.Warn().Err(err).Msg("failed to save settings")
	}

	c.retire()
	c.next++
	gen := c.next
	c.current = gen
	state.BeginStreaming()

	j := job{gen: gen, sel: sel, uiSize: uiSize, prompt: prompt, settings: s}
	c.log.Info().
		Uint64("generation", uint64(gen)).
		Str("model", s.Model).
		Str("provider", s.Provider).
		Str("api_key", logutil.RedactKey(s.APIKey)).
		Str("prompt", logutil.Sanitize(prompt, 80)).
		Msg("submitting request")

	cancel, ok := c.runner.Go(fmt.Sprintf("generation-%d", gen), func(ctx context.Context) {
		c.run(ctx, j)
	}, func(v any) {
		c.bus.Send(messages.Failed{Gen: gen, Message: fmt.Sprintf("Internal error: %v", v)})
	})
	if !ok {
		c.bus.Send(messages.Failed{Gen: gen, Message: "Internal error: request runner is closed"})
	}
	c.cancel = cancel
	return gen
}

// Abandon makes the current generation stale without starting a new one.
func (c *Controller) Abandon() {
	if c.current == 0 {
		return
	}
	c.log.Debug().Uint64("generation", uint64(c.current)).Msg("abandoning request")
	c.retire()
	c.current = 0
}

func (c *Controller) retire() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Drain applies every queued event to state without blocking. Events whose
// generation is not current are counted as dropped.
func (c *Controller) Drain(state *presentation.State) DrainResult {
	var res DrainResult
	for _, ev := range c.bus.Drain() {
		if c.current == 0 || ev.Generation() != c.current {
			res.Dropped++
			continue
		}
		res.Applied++
		switch e := ev.(type) {
		case messages.TextChunk:
			state.AppendText(e.Text)
		case messages.ThoughtChunk:
			state.AppendThought(e.Text)
		case messages.Failed:
			state.Fail(e.Message)
			c.cancel = nil
		case messages.Finished:
			res.Finished = true
			c.cancel = nil
		default:
			c.log.Warn().Str("type", ev.Type()).Msg("unknown event type")
		}
	}
	if res.Dropped > 0 {
		c.log.Debug().Int("dropped", res.Dropped).Uint64("current", uint64(c.current)).Msg("dropped stale events")
	}
	return res
}

// Close abandons the current request, closes the bus and waits briefly for
// running workers.
func (c *Controller) Close() {
	c.Abandon()
	c.bus.Close()
	c.runner.Close(c.closeTO)
}

// run is the worker body. Each failure ends the generation with a single
// Failed event.
func (c *Controller) run(ctx context.Context, j job) {
	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}
	log := c.log.With().Uint64("generation", uint64(j.gen)).Logger()
	fail := func(msg string) {
		log.Warn().Str("message", msg).Msg("request failed")
		c.bus.Send(messages.Failed{Gen: j.gen, Message: msg})
	}

	region, err := selection.MapToPixels(j.sel, j.uiSize, c.imgSize)
	if err != nil {
		fail(fmt.Sprintf("Image processing failed: %v", err))
		return
	}
	data, err := c.encoder.CropAndEncode(c.shot, region)
	if err != nil {
		fail(fmt.Sprintf("Image processing failed: %v", err))
		return
	}
	log.Debug().Int("x", region.X).Int("y", region.Y).Int("w", region.Width).Int("h", region.Height).
		Int("jpeg_bytes", len(data)).Msg("region encoded")

	cfg := llm.ConfigFor(j.settings, c.creds)
	cfg.Logger = c.log
	client, err := c.factory(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrConfig) {
			fail(fmt.Sprintf("Configuration error: %v", err))
		} else {
			fail(fmt.Sprintf("Client initialization failed: %v", err))
		}
		return
	}

	stream, err := client.OpenStream(ctx, llm.Request{
		Prompt:       j.prompt,
		SystemPrompt: j.settings.SystemPrompt,
		ImageJPEG:    data,
		Thinking:     j.settings.ThinkingEnabled,
		Search:       j.settings.SearchEnabled,
	})
	if err != nil {
		fail(fmt.Sprintf("%s API error: %v", providerLabel(cfg.Provider), err))
		return
	}
	defer stream.Close()

	chunks := 0
	for {
		ch, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(fmt.Sprintf("Stream error: %v", err))
			return
		}
		chunks++
		var ev messages.Event = messages.TextChunk{Gen: j.gen, Text: ch.Text}
		if ch.Kind == llm.ChunkThought {
			ev = messages.ThoughtChunk{Gen: j.gen, Text: ch.Text}
		}
		if !c.bus.Send(ev) {
			log.Debug().Msg("bus closed, stopping stream")
			return
		}
	}
	log.Info().Int("chunks", chunks).Msg("request finished")
	c.bus.Send(messages.Finished{Gen: j.gen})
}

func providerLabel(provider string) string {
	if provider == settings.ProviderOpenRouter {
		return "OpenRouter"
	}
	return "Gemini"
}
