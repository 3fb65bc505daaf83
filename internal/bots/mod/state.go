// Package mod implements the moderation bot. Its manager doubles as the
// permission gate every other module consults.
package mod

import (
	"sync"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/storage"
)

// defaultModRole seeds every new guild's moderator role list.
const defaultModRole = "DJMod"

// PermissionEntry is one persisted override, keyed by the prototype's stable
// identity so it survives restarts.
type PermissionEntry struct {
	CommandID string `json:"command_id"`
	Level     string `json:"level"`
}

// SaveData is the per-guild persisted form of the mod state. Overrides are a
// pair list rather than a map for serialization stability.
type SaveData struct {
	Permissions    []PermissionEntry `json:"permissions"`
	ModRoles       []string          `json:"mod_roles"`
	RestrictedBots []string          `json:"restricted_bots"`
}

// State is one guild's moderation settings: permission overrides by command
// identity, moderator role names, and the bot modules currently restricted.
// Gate checks from other modules' dispatch goroutines read this while mod
// commands mutate it, so access is mutex-guarded.
type State struct {
	mu         sync.Mutex
	overrides  map[string]command.PermissionLevel
	modRoles   []string
	restricted []string
}

func newState() *State {
	return &State{
		overrides: make(map[string]command.PermissionLevel),
		modRoles:  []string{defaultModRole},
	}
}

// PermissionLevelFor returns the override for the command if present, else
// its compiled-in default.
func (s *State) PermissionLevelFor(proto command.Prototype) command.PermissionLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level, ok := s.overrides[proto.ID()]; ok {
		return level
	}
	return proto.Level
}

// SetPermissionLevel records an override. Setting a command back to its
// default removes the entry, so the override set stays minimal.
func (s *State) SetPermissionLevel(proto command.Prototype, level command.PermissionLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if proto.Level == level {
		delete(s.overrides, proto.ID())
	} else {
		s.overrides[proto.ID()] = level
	}
}

// ModRoles returns a copy of the guild's moderator role names.
func (s *State) ModRoles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := make([]string, len(s.modRoles))
	copy(roles, s.modRoles)
	return roles
}

// AddModRole adds a role name; adding an existing name is a no-op.
func (s *State) AddModRole(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.modRoles {
		if r == name {
			return
		}
	}
	s.modRoles = append(s.modRoles, name)
}

// RemoveModRole removes a role name, reporting whether it was present.
func (s *State) RemoveModRole(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.modRoles {
		if r == name {
			s.modRoles = append(s.modRoles[:i], s.modRoles[i+1:]...)
			return true
		}
	}
	return false
}

// RestrictedBots returns a copy of the restricted module names.
func (s *State) RestrictedBots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	bots := make([]string, len(s.restricted))
	copy(bots, s.restricted)
	return bots
}

// IsRestricted reports whether the named module is restricted in this guild.
func (s *State) IsRestricted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.restricted {
		if b == name {
			return true
		}
	}
	return false
}

// AddRestrictedBot flags a module as restricted; idempotent.
func (s *State) AddRestrictedBot(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.restricted {
		if b == name {
			return
		}
	}
	s.restricted = append(s.restricted, name)
}

// RemoveRestrictedBot clears the flag, reporting whether it was set.
func (s *State) RemoveRestrictedBot(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.restricted {
		if b == name {
			s.restricted = append(s.restricted[:i], s.restricted[i+1:]...)
			return true
		}
	}
	return false
}

// saveData snapshots the state for persistence.
func (s *State) saveData() SaveData {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := SaveData{
		ModRoles:       append([]string(nil), s.modRoles...),
		RestrictedBots: append([]string(nil), s.restricted...),
	}
	for id, level := range s.overrides {
		data.Permissions = append(data.Permissions, PermissionEntry{CommandID: id, Level: level.String()})
	}
	return data
}

// loadData replaces the state with persisted values.
func (s *State) loadData(data SaveData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]command.PermissionLevel, len(data.Permissions))
	for _, entry := range data.Permissions {
		if level, ok := command.ParsePermissionLevel(entry.Level); ok {
			s.overrides[entry.CommandID] = level
		}
	}
	s.modRoles = append([]string(nil), data.ModRoles...)
	s.restricted = append([]string(nil), data.RestrictedBots...)
}

// section is the save-file shape for the whole module.
type section = []storage.GuildData[SaveData]
