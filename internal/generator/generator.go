package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/tagproto"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

const (
	// DefaultOpenRetries is how often opening a stream is retried.
	DefaultOpenRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 10 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = time.Minute
)

// BackoffFunc creates the retry policy for one Open call.
type BackoffFunc func(ctx context.Context, retries int) backoff.BackOff

// newRetryBackoff creates an exponential backoff with jitter for opening
// streams.
func newRetryBackoff(ctx context.Context, retries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Generator turns prompts into streamed server templates.
type Generator struct {
	registry    *provider.Registry
	bus         *event.Bus
	model       string
	matcher     tagproto.Matcher
	temperature float64
	maxTokens   int
	retries     int
	backoff     BackoffFunc
	transcript  io.Writer
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel selects the "provider/model" to generate with. Empty selects the
// registry default.
func WithModel(ref string) Option {
	return func(g *Generator) {
		g.model = ref
	}
}

// WithBus publishes run events to bus instead of the global bus.
func WithBus(bus *event.Bus) Option {
	return func(g *Generator) {
		g.bus = bus
	}
}

// WithMatcher selects the decoder's matching strategy for every run.
func WithMatcher(m tagproto.Matcher) Option {
	return func(g *Generator) {
		g.matcher = m
	}
}

// WithGeneration applies sampling and retry settings from config.
func WithGeneration(cfg *types.GenerationConfig) Option {
	return func(g *Generator) {
		if cfg == nil {
			return
		}
		if cfg.Temperature != nil {
			g.temperature = *cfg.Temperature
		}
		if cfg.MaxTokens > 0 {
			g.maxTokens = cfg.MaxTokens
		}
		if cfg.OpenRetries != nil {
			g.retries = *cfg.OpenRetries
		}
	}
}

// WithBackoff replaces the retry policy.
func WithBackoff(fn BackoffFunc) Option {
	return func(g *Generator) {
		g.backoff = fn
	}
}

// WithTranscript copies the raw model output to w as it arrives. Write
// errors are logged once and otherwise ignored.
func WithTranscript(w io.Writer) Option {
	return func(g *Generator) {
		g.transcript = w
	}
}

// New creates a generator that resolves models from registry.
func New(registry *provider.Registry, opts ...Option) *Generator {
	g := &Generator{
		registry: registry,
		bus:      event.Default(),
		matcher:  tagproto.ScanMatcher{},
		retries:  DefaultOpenRetries,
		backoff:  newRetryBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stream is an opened model response. The first fragment has already been
// read so that failures before any output could be retried.
type Stream struct {
	Model *types.Model

	cs    *provider.CompletionStream
	src   session.TokenSource
	first *string
}

// Recv implements session.TokenSource.
func (s *Stream) Recv() (string, error) {
	if s.first != nil {
		text := *s.first
		s.first = nil
		return text, nil
	}
	if s.src == nil {
		return "", io.EOF
	}
	return s.src.Recv()
}

// Close releases the underlying completion stream.
func (s *Stream) Close() {
	if s.cs != nil {
		s.cs.Close()
	}
}

// Open validates prompt and opens a model stream for it. Opening is retried
// with backoff until the model produced its first fragment. Once output
// has started, failures are left to the caller.
func (g *Generator) Open(ctx context.Context, prompt string) (*Stream, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	p, model, err := g.registry.Resolve(g.model)
	if err != nil {
		return nil, fmt.Errorf("resolve model: %w", err)
	}

	req := provider.NewPromptRequest("", BuildTemplatePrompt(prompt))
	req.Model = model.ID
	req.MaxTokens = g.maxTokens
	req.Temperature = g.temperature

	log := logging.With().Str("provider", p.ID()).Str("model", model.ID).Logger()

	var stream *Stream
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		cs, err := p.CreateCompletion(ctx, req)
		if err != nil {
			return err
		}

		msg, err := cs.Recv()
		switch {
		case errors.Is(err, io.EOF):
			cs.Close()
			stream = &Stream{Model: model}
			return nil
		case err != nil:
			cs.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			return err
		}

		var text string
		if msg != nil {
			text = msg.Content
		}
		stream = &Stream{
			Model: model,
			cs:    cs,
			src:   session.FromCompletion(cs),
			first: &text,
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retryIn", wait).Msg("opening stream failed, retrying")
	}

	if err := backoff.RetryNotify(op, g.backoff(ctx, g.retries), notify); err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return stream, nil
}

// Generate streams a template for prompt, calling fn after every applied
// unit and once more when the template is final. Extra session options are
// applied after the generator's own.
func (g *Generator) Generate(ctx context.Context, prompt string, fn session.UpdateFunc, opts ...session.Option) (*session.Result, error) {
	stream, err := g.Open(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ErrInvalidPrompt) {
			logging.Error().Err(err).Msg("template generation failed to start")
		}
		g.bus.Publish(event.Event{
			Type: event.TemplateFailed,
			Data: event.TemplateFinishedData{
				Outcome: session.OutcomeFailed.String(),
				Error:   err.Error(),
			},
		})
		return nil, err
	}
	defer stream.Close()

	base := []session.Option{
		session.WithBus(g.bus),
		session.WithMatcher(g.matcher),
		session.WithOrigin(prompt, stream.Model.ProviderID+"/"+stream.Model.ID),
	}
	s := session.New(append(base, opts...)...)

	var src session.TokenSource = stream
	if g.transcript != nil {
		src = &recorder{src: stream, w: g.transcript}
	}
	return s.Run(ctx, src, fn)
}

// recorder tees fragments to a transcript writer.
type recorder struct {
	src    session.TokenSource
	w      io.Writer
	failed bool
}

func (r *recorder) Recv() (string, error) {
	text, err := r.src.Recv()
	if err == nil && text != "" && !r.failed {
		if _, werr := io.WriteString(r.w, text); werr != nil {
			r.failed = true
			logging.Warn().Err(werr).Msg("transcript write failed")
		}
	}
	return text, err
}
