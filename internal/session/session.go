package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/accumulator"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/tagproto"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalizing
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Action is returned by an UpdateFunc to steer the session.
type Action int

const (
	// Continue keeps the session reading.
	Continue Action = iota
	// Cancel stops the session before the next read.
	Cancel
)

// UpdateFunc receives a snapshot of the template after every applied unit
// and once more at finalization. The snapshot belongs to the callee.
type UpdateFunc func(*types.ServerTemplate) Action

// Outcome tells how a run ended.
type Outcome int

const (
	// OutcomeCompleted means the producer emitted its done-marker.
	OutcomeCompleted Outcome = iota
	// OutcomeTruncated means the source ended without a done-marker.
	OutcomeTruncated
	// OutcomeCancelled means the callback or the context stopped the run.
	OutcomeCancelled
	// OutcomeFailed means the token source returned an error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTruncated:
		return "truncated"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is what a run produced. Template is always set, even when the run
// was cancelled or failed.
type Result struct {
	Template *types.ServerTemplate `json:"template"`
	Outcome  Outcome               `json:"outcome"`
	// Units counts applied units, including the done-marker.
	Units int `json:"units"`
	// Skipped counts malformed units that were dropped.
	Skipped int `json:"skipped"`
	// Discarded is the unconsumed buffer at the end of the run.
	Discarded string `json:"discarded,omitempty"`
}

// Session drives one decoder and accumulator pair against a token source.
// Run is single-goroutine; State and Snapshot may be called concurrently.
type Session struct {
	id      string
	matcher tagproto.Matcher
	bus     *event.Bus
	log     zerolog.Logger
	prompt  string
	model   string

	mu    sync.Mutex
	state State
	acc   *accumulator.Accumulator
	dec   *tagproto.Decoder
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session ID. The default is a fresh ULID.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithMatcher selects the decoder's matching strategy.
func WithMatcher(m tagproto.Matcher) Option {
	return func(s *Session) {
		s.matcher = m
	}
}

// WithOrigin records the prompt and model behind the run in the started
// event.
func WithOrigin(prompt, model string) Option {
	return func(s *Session) {
		s.prompt = prompt
		s.model = model
	}
}

// WithBus publishes session events to bus instead of the global bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// New creates an idle session.
func New(opts ...Option) *Session {
	s := &Session{
		id:      ulid.Make().String(),
		matcher: tagproto.ScanMatcher{},
		bus:     event.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.With().Str("sessionID", s.id).Logger()
	s.acc = accumulator.New()
	s.dec = tagproto.NewDecoder(tagproto.WithMatcher(s.matcher))
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the template as it is now.
func (s *Session) Snapshot() *types.ServerTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Snapshot()
}

// Reset returns the session to idle with an empty template. It must not be
// called while Run is in progress.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.acc.Reset()
	s.dec.Reset()
}

// Run reads src until the template is finalized, the callback cancels, ctx
// is done, or src fails.
//
// On cancellation by the callback Run returns OutcomeCancelled and a nil
// error without a final callback. When ctx is done it returns
// OutcomeCancelled and ctx.Err(). A source failure yields OutcomeFailed and a
// *SourceError. In every case the Result carries the accumulated template.
func (s *Session) Run(ctx context.Context, src TokenSource, fn UpdateFunc) (*Result, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, ErrSessionUsed
	}
	s.state = StateStreaming
	s.acc.Template().Streaming = true
	s.mu.Unlock()

	s.log.Debug().Msg("session started")
	s.bus.Publish(event.Event{
		Type: event.TemplateStarted,
		Data: event.TemplateStartedData{SessionID: s.id, Prompt: s.prompt, Model: s.model},
	})

	res := &Result{}
	for {
		if err := ctx.Err(); err != nil {
			return s.cancel(res, err), err
		}

		chunk, err := src.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.cancel(res, ctxErr), ctxErr
			}
			return s.fail(res, err)
		}

		s.dec.Write(chunk)
		done, action := s.drain(res, fn)
		if action == Cancel {
			return s.cancel(res, nil), nil
		}
		if done {
			break
		}
		if s.dec.HasTerminal() {
			// The marker sits behind a unit that will never close. A marker
			// quoted inside that unit's value ends the run too; whether the
			// closer arrived in the same chunk decides which way it goes.
			s.apply(tagproto.Unit{Kind: tagproto.KindDone})
			res.Units++
			break
		}
	}

	return s.finalize(res, fn), nil
}

// drain applies every complete unit in the buffer. done reports that the
// done-marker was applied.
func (s *Session) drain(res *Result, fn UpdateFunc) (done bool, action Action) {
	for {
		u, ok := s.dec.Next()
		if !ok {
			return false, Continue
		}
		if skipped := strings.TrimSpace(u.Skipped); skipped != "" {
			s.log.Debug().Str("text", skipped).Msg("skipped text before unit")
		}

		orphan := u.Kind == tagproto.KindChannel && !s.acc.HasCategory()
		if err := s.apply(u); err != nil {
			res.Skipped++
			s.log.Warn().Err(err).Str("unit", u.Kind.String()).Msg("skipping malformed unit")
			s.bus.Publish(event.Event{
				Type: event.TemplateSkipped,
				Data: event.TemplateSkippedData{
					SessionID: s.id,
					Unit:      u.Kind.String(),
					Value:     u.Value,
					Reason:    err.Error(),
				},
			})
			continue
		}
		res.Units++

		if u.Kind == tagproto.KindDone {
			return true, Continue
		}
		if orphan {
			continue
		}

		snap := s.Snapshot()
		s.bus.Publish(event.Event{
			Type: event.TemplateUpdated,
			Data: event.TemplateUpdatedData{SessionID: s.id, Unit: u.Kind.String(), Template: snap},
		})
		if fn != nil && fn(snap) == Cancel {
			return false, Cancel
		}
	}
}

func (s *Session) apply(u tagproto.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Apply(u)
}

// finish moves the session to a terminal state and returns the result
// template.
func (s *Session) finish(state State, res *Result) *types.ServerTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.acc.Template().Streaming = false
	res.Discarded = s.dec.Discard()
	res.Template = s.acc.Snapshot()
	return res.Template
}

func (s *Session) finalize(res *Result, fn UpdateFunc) *Result {
	s.mu.Lock()
	s.state = StateFinalizing
	s.mu.Unlock()

	tmpl := s.finish(StateDone, res)
	if res.Discarded != "" {
		s.log.Debug().Str("remainder", res.Discarded).Msg("discarding unfinished output")
	}
	res.Outcome = OutcomeTruncated
	if tmpl.Complete {
		res.Outcome = OutcomeCompleted
	}

	if fn != nil {
		// The run is over; a Cancel here has nothing left to stop.
		_ = fn(tmpl.Clone())
	}

	s.log.Debug().Str("outcome", res.Outcome.String()).Int("units", res.Units).Msg("session finalized")
	s.bus.Publish(event.Event{
		Type: event.TemplateCompleted,
		Data: event.TemplateFinishedData{
			SessionID: s.id,
			Outcome:   res.Outcome.String(),
			Units:     res.Units,
			Template:  tmpl.Clone(),
		},
	})
	return res
}

func (s *Session) cancel(res *Result, cause error) *Result {
	tmpl := s.finish(StateCancelled, res)
	res.Outcome = OutcomeCancelled

	data := event.TemplateFinishedData{
		SessionID: s.id,
		Outcome:   res.Outcome.String(),
		Units:     res.Units,
		Template:  tmpl.Clone(),
	}
	if cause != nil {
		data.Error = cause.Error()
	}
	s.log.Debug().Err(cause).Msg("session cancelled")
	s.bus.Publish(event.Event{Type: event.TemplateCancelled, Data: data})
	return res
}

func (s *Session) fail(res *Result, cause error) (*Result, error) {
	tmpl := s.finish(StateFailed, res)
	res.Outcome = OutcomeFailed

	s.log.Error().Err(cause).Int("units", res.Units).Msg("token source failed")
	s.bus.Publish(event.Event{
		Type: event.TemplateFailed,
		Data: event.TemplateFinishedData{
			SessionID: s.id,
			Outcome:   res.Outcome.String(),
			Units:     res.Units,
			Template:  tmpl.Clone(),
			Error:     cause.Error(),
		},
	})
	return res, &SourceError{Err: cause}
}
