// Package command defines the vocabulary shared by every bot module: command
// descriptors, permission levels, and the normalized message they consume.
// How commands are matched and dispatched lives in internal/dispatch.
package command

import (
	"fmt"
	"math"
	"strings"
)

// PermissionLevel orders who may invoke a command, from least to most authority.
type PermissionLevel int

const (
	Anyone PermissionLevel = iota
	Mod
	Owner
)

func (p PermissionLevel) String() string {
	switch p {
	case Anyone:
		return "anyone"
	case Mod:
		return "mod"
	case Owner:
		return "owner"
	default:
		return fmt.Sprintf("permission(%d)", int(p))
	}
}

// ParsePermissionLevel parses a user-supplied level name, case-insensitively.
func ParsePermissionLevel(s string) (PermissionLevel, bool) {
	switch strings.ToLower(s) {
	case "anyone":
		return Anyone, true
	case "mod":
		return Mod, true
	case "owner":
		return Owner, true
	default:
		return Anyone, false
	}
}

// UnlimitedArgs marks a command that accepts any number of trailing arguments.
const UnlimitedArgs = math.MaxInt

// Prototype is the immutable descriptor of a command: its alias names (stored
// lowercase), argument labels for help text, the inclusive argument-count
// interval it accepts, and the default permission level required to run it.
type Prototype struct {
	Names    []string
	ArgNames []string
	MinArgs  int
	MaxArgs  int
	Level    PermissionLevel
}

// ID is the stable identity a guild overrides permissions under. Two
// prototypes sharing a first name must not share a MinArgs; the startup
// validator enforces the stronger arity-disjointness invariant.
func (p Prototype) ID() string {
	return fmt.Sprintf("%s%d", p.Names[0], p.MinArgs)
}

// AliasString joins all alias names for display.
func (p Prototype) AliasString() string {
	return strings.Join(p.Names, " / ")
}

// FullDescription is the alias string followed by bracketed argument labels.
func (p Prototype) FullDescription() string {
	if len(p.ArgNames) == 0 {
		return p.AliasString()
	}
	labels := make([]string, len(p.ArgNames))
	for i, n := range p.ArgNames {
		labels[i] = "<" + n + ">"
	}
	return p.AliasString() + " " + strings.Join(labels, " ")
}

// HasName reports whether name is one of the prototype's aliases. Aliases are
// canonical lowercase, so the caller passes an already-lowercased token.
func (p Prototype) HasName(name string) bool {
	for _, n := range p.Names {
		if n == name {
			return true
		}
	}
	return false
}

// AcceptsArgCount reports whether n falls in the [MinArgs, MaxArgs] interval.
func (p Prototype) AcceptsArgCount(n int) bool {
	return p.MinArgs <= n && n <= p.MaxArgs
}

// Handler runs a matched command against a module's per-guild state. The
// returned flag is the only failure channel a handler has; modules convert
// internal errors into false rather than letting them escape.
type Handler[S any] func(m *ValidMessage, state S) bool

// Command binds a prototype to its handler. Commands are created once at
// startup and never mutated.
type Command[S any] struct {
	Prototype
	Run Handler[S]
}

// New builds a command. Names must already be lowercase; maxArgs may be
// UnlimitedArgs.
func New[S any](names []string, run Handler[S], argNames []string, minArgs, maxArgs int, level PermissionLevel) Command[S] {
	return Command[S]{
		Prototype: Prototype{
			Names:    names,
			ArgNames: argNames,
			MinArgs:  minArgs,
			MaxArgs:  maxArgs,
			Level:    level,
		},
		Run: run,
	}
}
