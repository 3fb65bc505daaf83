package mod

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
	"github.com/keshon/botcrew/internal/storage"
)

// Manager is the moderation bot module and, at the same time, the permission
// gate for every registered module (itself included).
type Manager struct {
	*dispatch.Core[*State]

	mu       sync.Mutex
	states   map[string]*State
	managers []dispatch.Manager
	store    *storage.Storage
}

var _ dispatch.Manager = (*Manager)(nil)
var _ dispatch.Gate = (*Manager)(nil)

// New builds the mod manager. store may be nil in tests; state then lives in
// memory only.
func New(store *storage.Storage) *Manager {
	m := &Manager{
		states: make(map[string]*State),
		store:  store,
	}
	m.Core = dispatch.NewCore("Mod", "⚔️", m.commandTable(), m.stateFor, m.save)
	return m
}

//
// Gate
//

func (m *Manager) PermissionLevelFor(guildID string, proto command.Prototype) command.PermissionLevel {
	return m.getOrCreate(guildID).PermissionLevelFor(proto)
}

func (m *Manager) HasPermissionLevel(guildID string, level command.PermissionLevel, managers []dispatch.Manager) bool {
	state := m.getOrCreate(guildID)
	for _, mgr := range managers {
		for _, proto := range mgr.CommandPrototypes() {
			if state.PermissionLevelFor(proto) == level {
				return true
			}
		}
	}
	return false
}

func (m *Manager) RegisterManager(mgr dispatch.Manager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.managers {
		if have == mgr {
			return
		}
	}
	m.managers = append(m.managers, mgr)
}

// Check authorizes one invocation attempt. Restriction of a module only ever
// raises the bar for its otherwise-open commands; owner authority always
// passes.
func (m *Manager) Check(msg *command.ValidMessage, proto command.Prototype, moduleName string) bool {
	state := m.getOrCreate(msg.Guild.ID)
	p := state.PermissionLevelFor(proto)
	isOwner := msg.Author.ID == msg.Guild.OwnerID
	isMod := msg.Author.HasAnyRole(state.ModRoles())

	if moduleName != "" && state.IsRestricted(moduleName) {
		return isOwner || ((p == command.Anyone || p == command.Mod) && isMod)
	}
	return p == command.Anyone || isOwner || (p == command.Mod && isMod)
}

//
// Persistence
//

func (m *Manager) LoadPersistentData() bool {
	if m.store == nil {
		return true
	}
	sec, ok, err := storage.LoadSection[section](m.store, storage.SectionMod)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load mod section")
		return false
	}
	if !ok {
		return false
	}
	for _, entry := range sec {
		m.getOrCreate(entry.GuildID).loadData(entry.Data)
	}
	return true
}

func (m *Manager) save() {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	sec := make(section, 0, len(m.states))
	for guildID, state := range m.states {
		sec = append(sec, storage.GuildData[SaveData]{GuildID: guildID, Data: state.saveData()})
	}
	m.mu.Unlock()
	sort.Slice(sec, func(i, j int) bool { return sec[i].GuildID < sec[j].GuildID })

	if err := storage.SaveSection(m.store, storage.SectionMod, sec); err != nil {
		log.Error().Err(err).Msg("failed to save mod section")
	}
}

func (m *Manager) stateFor(msg *command.ValidMessage) *State {
	return m.getOrCreate(msg.Guild.ID)
}

// getOrCreate is the single atomic lookup-or-construct for a guild's state.
func (m *Manager) getOrCreate(guildID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[guildID]; ok {
		return state
	}
	log.Debug().Str("guild", guildID).Msg("creating mod state")
	state := newState()
	m.states[guildID] = state
	return state
}

// registeredManagers snapshots the managers known to the gate.
func (m *Manager) registeredManagers() []dispatch.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dispatch.Manager(nil), m.managers...)
}
