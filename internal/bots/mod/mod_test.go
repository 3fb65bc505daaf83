package mod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
)

type fakeChannel struct {
	sent []string
}

func (c *fakeChannel) Send(text string) error { c.sent = append(c.sent, text); return nil }
func (c *fakeChannel) SendAttachment(text string, atts ...command.Attachment) error {
	c.sent = append(c.sent, text)
	return nil
}

// stubManager stands in for another bot module during gate tests.
type stubManager struct {
	name   string
	protos []command.Prototype
}

func (s *stubManager) GiveMessage(*command.ValidMessage) dispatch.Result { return dispatch.NotRecognised }
func (s *stubManager) CommandPrototypes() []command.Prototype            { return s.protos }
func (s *stubManager) MatchingPrototype(*command.ValidMessage) (command.Prototype, bool) {
	return command.Prototype{}, false
}
func (s *stubManager) Name() string               { return s.name }
func (s *stubManager) Emoji() string              { return "🤖" }
func (s *stubManager) RegisterGate(dispatch.Gate) {}
func (s *stubManager) LoadPersistentData() bool   { return true }

func anyoneProto(name string) command.Prototype {
	return command.Prototype{Names: []string{name}, MinArgs: 0, MaxArgs: 0, Level: command.Anyone}
}

func message(content string, author command.Member, ch command.Channel) *command.ValidMessage {
	guild := command.Guild{ID: "guild1", OwnerID: "owner1", RoleNames: []string{"DJMod", "Regular"}}
	return command.NewValidMessage(content, guild, ch, author, nil, "!")
}

var (
	owner     = command.Member{User: command.User{ID: "owner1", Username: "boss"}}
	moderator = command.Member{User: command.User{ID: "mod1", Username: "keeper"}, RoleNames: []string{"DJMod"}}
	plainUser = command.Member{User: command.User{ID: "user1", Username: "sam"}}
)

func TestCheckUnrestricted(t *testing.T) {
	m := New(nil)
	anyone := anyoneProto("cat")
	modOnly := command.Prototype{Names: []string{"clearqueue"}, Level: command.Mod}
	ownerOnly := command.Prototype{Names: []string{"addmodrole"}, Level: command.Owner}

	for _, tc := range []struct {
		name   string
		author command.Member
		proto  command.Prototype
		want   bool
	}{
		{"plain user runs open command", plainUser, anyone, true},
		{"plain user blocked from mod command", plainUser, modOnly, false},
		{"plain user blocked from owner command", plainUser, ownerOnly, false},
		{"moderator runs mod command", moderator, modOnly, true},
		{"moderator blocked from owner command", moderator, ownerOnly, false},
		{"owner runs everything", owner, ownerOnly, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			msg := message("!x", tc.author, &fakeChannel{})
			assert.Equal(t, tc.want, m.Check(msg, tc.proto, "DJ"))
		})
	}
}

func TestCheckRestrictedModuleRaisesBar(t *testing.T) {
	m := New(nil)
	m.getOrCreate("guild1").AddRestrictedBot("DJ")

	anyone := anyoneProto("play")
	modOnly := command.Prototype{Names: []string{"clearqueue"}, Level: command.Mod}
	ownerOnly := command.Prototype{Names: []string{"addmodrole"}, Level: command.Owner}

	for _, tc := range []struct {
		name   string
		author command.Member
		proto  command.Prototype
		want   bool
	}{
		{"plain user blocked from open command", plainUser, anyone, false},
		{"moderator runs open command", moderator, anyone, true},
		{"moderator runs mod command", moderator, modOnly, true},
		{"moderator still blocked from owner command", moderator, ownerOnly, false},
		{"owner unaffected", owner, ownerOnly, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			msg := message("!x", tc.author, &fakeChannel{})
			assert.Equal(t, tc.want, m.Check(msg, tc.proto, "DJ"))
		})
	}

	// Restriction is scoped to the named module.
	msg := message("!x", plainUser, &fakeChannel{})
	assert.True(t, m.Check(msg, anyoneProto("cat"), "Image"))
}

func TestCheckNoModuleIdentityIgnoresRestriction(t *testing.T) {
	m := New(nil)
	m.getOrCreate("guild1").AddRestrictedBot("DJ")

	msg := message("!x", plainUser, &fakeChannel{})
	assert.True(t, m.Check(msg, anyoneProto("play"), ""))
}

func TestSetPermissionLevelDefaultRemovesOverride(t *testing.T) {
	state := newState()
	proto := command.Prototype{Names: []string{"play"}, MinArgs: 0, MaxArgs: 0, Level: command.Anyone}

	state.SetPermissionLevel(proto, command.Mod)
	assert.Equal(t, command.Mod, state.PermissionLevelFor(proto))
	require.Len(t, state.saveData().Permissions, 1)

	state.SetPermissionLevel(proto, command.Anyone)
	assert.Equal(t, command.Anyone, state.PermissionLevelFor(proto))
	assert.Empty(t, state.saveData().Permissions)
}

func TestOverrideChangesCheckOutcome(t *testing.T) {
	m := New(nil)
	proto := anyoneProto("cat")
	m.getOrCreate("guild1").SetPermissionLevel(proto, command.Mod)

	blocked := message("!cat", plainUser, &fakeChannel{})
	assert.False(t, m.Check(blocked, proto, "Image"))

	allowed := message("!cat", moderator, &fakeChannel{})
	assert.True(t, m.Check(allowed, proto, "Image"))
}

func TestSaveDataRoundTrip(t *testing.T) {
	state := newState()
	proto := anyoneProto("cat")
	state.SetPermissionLevel(proto, command.Owner)
	state.AddModRole("Wardens")
	state.AddRestrictedBot("DJ")

	restored := newState()
	restored.loadData(state.saveData())
	assert.Equal(t, command.Owner, restored.PermissionLevelFor(proto))
	assert.Equal(t, []string{"DJMod", "Wardens"}, restored.ModRoles())
	assert.True(t, restored.IsRestricted("DJ"))
}

func TestModRoleListSeededWithDefault(t *testing.T) {
	state := newState()
	assert.Equal(t, []string{"DJMod"}, state.ModRoles())

	state.AddModRole("DJMod")
	assert.Len(t, state.ModRoles(), 1)

	assert.True(t, state.RemoveModRole("DJMod"))
	assert.False(t, state.RemoveModRole("DJMod"))
}

func TestSetPermissionCommandSingleMatch(t *testing.T) {
	m := New(nil)
	dispatch.Register(m, m)
	dispatch.Register(&stubManager{name: "Image", protos: []command.Prototype{anyoneProto("cat")}}, m)

	ch := &fakeChannel{}
	res := m.GiveMessage(message("!setpermission cat owner", moderator, ch))
	require.Equal(t, dispatch.Success, res)
	require.NotEmpty(t, ch.sent)
	assert.Contains(t, ch.sent[0], "`cat`")
	assert.Contains(t, ch.sent[0], "owner")

	assert.False(t, m.Check(message("!cat", moderator, &fakeChannel{}), anyoneProto("cat"), "Image"))
}

func TestSetPermissionCommandAmbiguousMatch(t *testing.T) {
	m := New(nil)
	dispatch.Register(m, m)
	play0 := command.Prototype{Names: []string{"play"}, MinArgs: 0, MaxArgs: 0, Level: command.Anyone}
	playN := command.Prototype{Names: []string{"play"}, ArgNames: []string{"song"}, MinArgs: 1, MaxArgs: command.UnlimitedArgs, Level: command.Anyone}
	dispatch.Register(&stubManager{name: "DJ", protos: []command.Prototype{play0, playN}}, m)

	// First attempt lists the options.
	ch := &fakeChannel{}
	res := m.GiveMessage(message("!setpermission play mod", moderator, ch))
	require.Equal(t, dispatch.Success, res)
	require.NotEmpty(t, ch.sent)
	assert.Contains(t, ch.sent[0], "1. play")
	assert.Contains(t, ch.sent[0], "2. play <song>")

	// Rerunning with the number picks one.
	ch = &fakeChannel{}
	res = m.GiveMessage(message("!setpermission play mod 2", moderator, ch))
	require.Equal(t, dispatch.Success, res)

	state := m.getOrCreate("guild1")
	assert.Equal(t, command.Anyone, state.PermissionLevelFor(play0))
	assert.Equal(t, command.Mod, state.PermissionLevelFor(playN))
}

func TestSetPermissionCommandRejectsBadLevel(t *testing.T) {
	m := New(nil)
	dispatch.Register(m, m)

	ch := &fakeChannel{}
	res := m.GiveMessage(message("!setpermission cat admin", moderator, ch))
	require.Equal(t, dispatch.Success, res)
	require.NotEmpty(t, ch.sent)
	assert.Contains(t, ch.sent[0], "not a valid permission level")
}

func TestRestrictCommands(t *testing.T) {
	m := New(nil)
	dispatch.Register(m, m)
	dispatch.Register(&stubManager{name: "DJ", protos: []command.Prototype{anyoneProto("play")}}, m)

	ch := &fakeChannel{}
	require.Equal(t, dispatch.Success, m.GiveMessage(message("!restrict dj", moderator, ch)))
	assert.True(t, m.getOrCreate("guild1").IsRestricted("DJ"))

	require.Equal(t, dispatch.Success, m.GiveMessage(message("!derestrict dj", moderator, &fakeChannel{})))
	assert.False(t, m.getOrCreate("guild1").IsRestricted("DJ"))

	ch = &fakeChannel{}
	require.Equal(t, dispatch.Fail, m.GiveMessage(message("!restrict nosuchbot", moderator, ch)))
	require.NotEmpty(t, ch.sent)
	assert.Contains(t, ch.sent[0], "nosuchbot")
}

func TestRestrictMusicShorthand(t *testing.T) {
	m := New(nil)
	dispatch.Register(m, m)

	require.Equal(t, dispatch.Success, m.GiveMessage(message("!restrictmusic", moderator, &fakeChannel{})))
	assert.True(t, m.getOrCreate("guild1").IsRestricted("DJ"))

	require.Equal(t, dispatch.Success, m.GiveMessage(message("!derestrictmusic", moderator, &fakeChannel{})))
	assert.False(t, m.getOrCreate("guild1").IsRestricted("DJ"))
}

func TestAddRemoveModRoleCommands(t *testing.T) {
	m := New(nil)
	dispatch.Register(m, m)

	ch := &fakeChannel{}
	require.Equal(t, dispatch.Success, m.GiveMessage(message("!addmodrole Regular", owner, ch)))
	assert.Contains(t, m.getOrCreate("guild1").ModRoles(), "Regular")

	// Unknown role names are accepted with a warning.
	ch = &fakeChannel{}
	require.Equal(t, dispatch.Success, m.GiveMessage(message("!addmodrole Ghost Role", owner, ch)))
	require.NotEmpty(t, ch.sent)
	assert.Contains(t, ch.sent[0], "Warning")
	assert.Contains(t, m.getOrCreate("guild1").ModRoles(), "Ghost Role")

	require.Equal(t, dispatch.Success, m.GiveMessage(message("!removemodrole Ghost Role", owner, &fakeChannel{})))
	assert.NotContains(t, m.getOrCreate("guild1").ModRoles(), "Ghost Role")

	require.Equal(t, dispatch.Fail, m.GiveMessage(message("!removemodrole Nobody", owner, &fakeChannel{})))
}

func TestModCommandsGatedBySelf(t *testing.T) {
	m := New(nil)
	dispatch.Register(m, m)

	assert.Equal(t, dispatch.Blocked, m.GiveMessage(message("!setpermission cat mod", plainUser, &fakeChannel{})))
	assert.Equal(t, dispatch.Blocked, m.GiveMessage(message("!addmodrole Wardens", moderator, &fakeChannel{})))
	assert.Equal(t, dispatch.Success, m.GiveMessage(message("!listmodroles", plainUser, &fakeChannel{})))
}
