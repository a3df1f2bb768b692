package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/weather-assistant/internal/weather"
)

// Resolver is the weather lookup a conversation depends on.
type Resolver interface {
	Resolve(ctx context.Context, city string, target time.Time, creds weather.Credentials, now time.Time) (*weather.Observation, error)
}

// Turn is one query and its reply.
type Turn struct {
	Query       string               `json:"query"`
	Intent      Intent               `json:"intent"`
	Observation *weather.Observation `json:"observation,omitempty"`
	Reply       string               `json:"reply"`
	Outcome     string               `json:"outcome"`
	At          time.Time            `json:"at"`
}

// Assistant wires the three stages together and hands out conversations.
type Assistant struct {
	interpreter *Interpreter
	resolver    Resolver
	composer    *Composer
	creds       weather.Credentials
	clock       func() time.Time
	logger      *slog.Logger
}

// Deps are the collaborators of an Assistant. Clock defaults to time.Now.
type Deps struct {
	Interpreter *Interpreter
	Resolver    Resolver
	Composer    *Composer
	Credentials weather.Credentials
	Clock       func() time.Time
	Logger      *slog.Logger
}

func New(d Deps) *Assistant {
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		interpreter: d.Interpreter,
		resolver:    d.Resolver,
		composer:    d.Composer,
		creds:       d.Credentials,
		clock:       clock,
		logger:      logger,
	}
}

// NewConversation starts an empty transcript.
func (a *Assistant) NewConversation() *Conversation {
	return &Conversation{assistant: a}
}

// Conversation runs turns one at a time and keeps an append-only transcript.
type Conversation struct {
	assistant *Assistant

	mu         sync.Mutex
	transcript []Turn
}

// Ask runs interpretation, lookup and composition for one query.
// It always produces a reply.
func (c *Conversation) Ask(ctx context.Context, query string) Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.assistant
	now := a.clock()

	intent := a.interpreter.Extract(ctx, query, now)
	turn := Turn{Query: query, Intent: intent, At: now}

	obs, err := a.resolver.Resolve(ctx, intent.City, intent.Target, a.creds, now)
	turn.Outcome = weather.Outcome(err)
	if err != nil {
		a.logger.Info("turn answered with apology",
			"city", intent.City,
			"target", weather.FormatCanonical(intent.Target),
			"outcome", turn.Outcome)
		turn.Reply = Apology
	} else {
		turn.Observation = obs
		turn.Reply = a.composer.Compose(ctx, obs)
	}

	c.transcript = append(c.transcript, turn)
	return turn
}

// Transcript returns a copy of the turns so far.
func (c *Conversation) Transcript() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.transcript))
	copy(out, c.transcript)
	return out
}
