package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/botcrew/internal/command"
)

// protoManager is a minimal Manager exposing only a command table.
type protoManager struct {
	protos []command.Prototype
}

func (p *protoManager) GiveMessage(*command.ValidMessage) Result { return NotRecognised }
func (p *protoManager) CommandPrototypes() []command.Prototype   { return p.protos }
func (p *protoManager) MatchingPrototype(*command.ValidMessage) (command.Prototype, bool) {
	return command.Prototype{}, false
}
func (p *protoManager) Name() string             { return "Proto" }
func (p *protoManager) Emoji() string            { return "🤖" }
func (p *protoManager) RegisterGate(Gate)        {}
func (p *protoManager) LoadPersistentData() bool { return true }

func proto(name string, minArgs, maxArgs int) command.Prototype {
	return command.Prototype{Names: []string{name}, MinArgs: minArgs, MaxArgs: maxArgs}
}

func TestValidateAcceptsDisjointArityOverloads(t *testing.T) {
	mgr := &protoManager{protos: []command.Prototype{
		proto("play", 0, 0),
		proto("play", 1, command.UnlimitedArgs),
		proto("status", 0, 0),
	}}
	assert.NoError(t, Validate([]Manager{mgr}))
}

func TestValidateRejectsUppercaseAlias(t *testing.T) {
	mgr := &protoManager{protos: []command.Prototype{
		{Names: []string{"Play"}, MinArgs: 0, MaxArgs: 0},
	}}
	err := Validate([]Manager{mgr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not lowercase")
}

func TestValidateRejectsOverlappingArity(t *testing.T) {
	mgr := &protoManager{protos: []command.Prototype{
		proto("play", 0, 2),
		proto("play", 2, command.UnlimitedArgs),
	}}
	err := Validate([]Manager{mgr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping arity")
}

func TestValidateCatchesCollisionsAcrossManagers(t *testing.T) {
	a := &protoManager{protos: []command.Prototype{proto("help", 0, command.UnlimitedArgs)}}
	b := &protoManager{protos: []command.Prototype{proto("help", 0, 0)}}
	assert.Error(t, Validate([]Manager{a, b}))
}

func TestValidateChecksEveryAliasPair(t *testing.T) {
	// The shared alias is the second name on both sides.
	a := &protoManager{protos: []command.Prototype{
		{Names: []string{"getin", "join"}, MinArgs: 0, MaxArgs: 0},
	}}
	b := &protoManager{protos: []command.Prototype{
		{Names: []string{"enter", "join"}, MinArgs: 0, MaxArgs: 0},
	}}
	assert.Error(t, Validate([]Manager{a, b}))
}

func TestValidateReportsAllProblems(t *testing.T) {
	mgr := &protoManager{protos: []command.Prototype{
		{Names: []string{"BAD"}, MinArgs: 0, MaxArgs: 0},
		proto("play", 0, 1),
		proto("play", 1, 1),
	}}
	err := Validate([]Manager{mgr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not lowercase")
	assert.Contains(t, err.Error(), "overlapping arity")
}

func TestIntervalsOverlap(t *testing.T) {
	assert.True(t, intervalsOverlap(0, 2, 2, 5))
	assert.True(t, intervalsOverlap(0, command.UnlimitedArgs, 3, 3))
	assert.False(t, intervalsOverlap(0, 0, 1, command.UnlimitedArgs))
	assert.False(t, intervalsOverlap(2, 3, 4, 5))
}
