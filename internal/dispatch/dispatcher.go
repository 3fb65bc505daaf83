package dispatch

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
)

// unknownPhrases are the canned responses for a message no module recognised.
var unknownPhrases = []string{
	"`%s`? Never heard of it.",
	"I don't know any `%s`.",
	"`%s` is not a command I answer to.",
	"No idea what `%s` is supposed to do.",
}

// Dispatcher drives one incoming message through every registered manager and
// turns the aggregated outcome into at most one channel response.
type Dispatcher struct {
	prefix   string
	managers []Manager
	gate     Gate
	intn     func(n int) int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRandSource replaces the random source used to pick unknown-command
// phrasings. Tests inject a deterministic one.
func WithRandSource(intn func(n int) int) Option {
	return func(d *Dispatcher) { d.intn = intn }
}

// New builds a dispatcher over the given managers. gate may be nil; it is
// only used to name the permission shortfall in blocked responses.
func New(prefix string, managers []Manager, gate Gate, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		prefix:   prefix,
		managers: managers,
		gate:     gate,
		intn:     rand.Intn,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleRaw normalizes one raw event and, when it survives validation,
// dispatches it and emits the user-facing response.
func (d *Dispatcher) HandleRaw(raw RawMessage) {
	m, ok := Normalize(raw, d.prefix)
	if !ok {
		return
	}
	d.respond(m, d.Dispatch(m))
}

// Dispatch fans the message out to every manager concurrently and aggregates
// the per-manager results. Each manager only touches its own state, so the
// fan-out is race-free across modules.
func (d *Dispatcher) Dispatch(m *command.ValidMessage) Result {
	results := make([]Result, len(d.managers))
	var wg sync.WaitGroup
	for i, mgr := range d.managers {
		wg.Add(1)
		go func(i int, mgr Manager) {
			defer wg.Done()
			results[i] = mgr.GiveMessage(m)
		}(i, mgr)
	}
	wg.Wait()

	for i, mgr := range d.managers {
		log.Debug().
			Str("bot", mgr.Name()).
			Str("command", m.CommandText()).
			Stringer("result", results[i]).
			Msg("manager result")
	}
	return Aggregate(results)
}

// respond emits the single user-visible outcome. Success and Fail are log
// only; Blocked names the shortfall; NotRecognised picks a canned phrase.
func (d *Dispatcher) respond(m *command.ValidMessage, agg Result) {
	switch agg {
	case Success:
		log.Info().Str("command", m.CommandText()).Str("guild", m.Guild.ID).Msg("command succeeded")
	case Fail:
		log.Info().Str("command", m.CommandText()).Str("guild", m.Guild.ID).Msg("command failed")
	case Blocked:
		log.Info().Str("command", m.CommandText()).Str("guild", m.Guild.ID).Msg("command blocked")
		d.send(m, d.blockedMessage(m))
	case NotRecognised:
		log.Info().Str("command", m.CommandText()).Str("guild", m.Guild.ID).Msg("command not recognised")
		phrase := unknownPhrases[d.intn(len(unknownPhrases))]
		d.send(m, fmt.Sprintf(phrase, m.CommandText()))
	}
}

// blockedMessage names the command and the level it currently requires, when
// a matching prototype can be found across the managers.
func (d *Dispatcher) blockedMessage(m *command.ValidMessage) string {
	for _, mgr := range d.managers {
		proto, ok := mgr.MatchingPrototype(m)
		if !ok {
			continue
		}
		if d.gate != nil {
			level := d.gate.PermissionLevelFor(m.Guild.ID, proto)
			return fmt.Sprintf("Sorry %s, `%s` needs %s permission on this server.",
				m.Author.Mention(), proto.AliasString(), level)
		}
		return fmt.Sprintf("Sorry %s, you are not allowed to use `%s` here.",
			m.Author.Mention(), proto.AliasString())
	}
	return fmt.Sprintf("Sorry %s, you are not allowed to do that here.", m.Author.Mention())
}

func (d *Dispatcher) send(m *command.ValidMessage, text string) {
	if err := m.Channel.Send(text); err != nil {
		log.Error().Err(err).Str("guild", m.Guild.ID).Msg("failed to send response")
	}
}
