package dispatch

import (
	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
)

// Manager is the contract every bot module implements. The dispatcher depends
// only on this interface, never on concrete module types, so new bots plug in
// without touching the core.
type Manager interface {
	// GiveMessage drives one message through the module: match, authorize,
	// execute, persist. It must never let a handler fault escape.
	GiveMessage(m *command.ValidMessage) Result

	// CommandPrototypes exposes the declared command table for help and
	// permission introspection without running any handler.
	CommandPrototypes() []command.Prototype

	// MatchingPrototype reports which prototype, if any, the message matches.
	MatchingPrototype(m *command.ValidMessage) (command.Prototype, bool)

	Name() string
	Emoji() string

	// RegisterGate installs the permission resolver. A manager with no gate
	// default-allows every matched command.
	RegisterGate(g Gate)

	// LoadPersistentData restores saved state, reporting success. A false
	// return is not fatal; the module runs on with default state.
	LoadPersistentData() bool
}

// Register wires a manager to the gate and loads its saved state. Every
// module goes through this once at startup, before validation.
func Register(m Manager, g Gate) {
	g.RegisterManager(m)
	m.RegisterGate(g)
	if !m.LoadPersistentData() {
		log.Warn().Str("bot", m.Name()).Msg("no persistent data loaded, starting with defaults")
	}
}

// Core implements the Manager mechanics shared by every module: two-stage
// command matching, gate consultation, per-guild state materialization, and
// post-handler persistence. Concrete managers embed a Core and supply their
// command table plus state hooks.
type Core[S any] struct {
	name     string
	emoji    string
	gate     Gate
	commands []command.Command[S]

	// stateFor returns the module state a handler runs against, creating it
	// for the guild on first reference.
	stateFor func(m *command.ValidMessage) S

	// persist writes the module's state out after a handled command. May be
	// nil for modules with nothing to save.
	persist func()
}

// NewCore builds the shared manager mechanics for one module.
func NewCore[S any](name, emoji string, commands []command.Command[S], stateFor func(*command.ValidMessage) S, persist func()) *Core[S] {
	return &Core[S]{
		name:     name,
		emoji:    emoji,
		commands: commands,
		stateFor: stateFor,
		persist:  persist,
	}
}

func (c *Core[S]) Name() string  { return c.name }
func (c *Core[S]) Emoji() string { return c.emoji }

func (c *Core[S]) RegisterGate(g Gate) { c.gate = g }

// Gate returns the registered gate, or nil.
func (c *Core[S]) Gate() Gate { return c.gate }

// SetCommands replaces the command table. Only used by managers whose table
// depends on other managers (help) and only before validation.
func (c *Core[S]) SetCommands(commands []command.Command[S]) { c.commands = commands }

func (c *Core[S]) CommandPrototypes() []command.Prototype {
	protos := make([]command.Prototype, len(c.commands))
	for i, cmd := range c.commands {
		protos[i] = cmd.Prototype
	}
	return protos
}

func (c *Core[S]) MatchingPrototype(m *command.ValidMessage) (command.Prototype, bool) {
	cmd, ok := c.match(m)
	if !ok {
		return command.Prototype{}, false
	}
	return cmd.Prototype, true
}

// GiveMessage implements the module side of the dispatch protocol.
func (c *Core[S]) GiveMessage(m *command.ValidMessage) Result {
	cmd, ok := c.match(m)
	if !ok {
		return NotRecognised
	}

	if c.gate != nil && !c.gate.Check(m, cmd.Prototype, c.name) {
		return Blocked
	}

	state := c.stateFor(m)
	ok = c.run(cmd, m, state)
	if c.persist != nil {
		c.persist()
	}
	if ok {
		return Success
	}
	return Fail
}

// run invokes the handler, converting a panic into a false return. Handlers
// own their error handling; this is the hard backstop the dispatcher relies on.
func (c *Core[S]) run(cmd command.Command[S], m *command.ValidMessage, state S) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("bot", c.name).
				Str("command", cmd.ID()).
				Interface("panic", r).
				Msg("handler panicked")
			ok = false
		}
	}()
	return cmd.Run(m, state)
}

// match finds at most one command for the message: filter by alias, then take
// the first (declaration order) whose arity interval contains NumArgs. Ties
// between arity ranges are broken by declaration order on purpose, so modules
// declare more specific ranges first.
func (c *Core[S]) match(m *command.ValidMessage) (command.Command[S], bool) {
	text := m.CommandText()
	n := m.NumArgs()
	for _, cmd := range c.commands {
		if cmd.HasName(text) && cmd.AcceptsArgCount(n) {
			return cmd, true
		}
	}
	return command.Command[S]{}, false
}
