package dispatch

import "github.com/keshon/botcrew/internal/command"

// Gate is the per-guild authority resolver consulted before any handler runs.
// The Mod bot manager is the one implementation; managers hold it behind this
// interface so the dispatch core never depends on a concrete module.
type Gate interface {
	// PermissionLevelFor resolves the level currently required for a command
	// in a guild: the guild's override when present, else the prototype default.
	PermissionLevelFor(guildID string, proto command.Prototype) command.PermissionLevel

	// HasPermissionLevel reports whether any command across the given managers
	// currently resolves to exactly level for the guild. Help text uses this
	// to decide whether an annotation needs explaining.
	HasPermissionLevel(guildID string, level command.PermissionLevel, managers []Manager) bool

	// RegisterManager makes a manager's command table visible to the gate for
	// cross-module lookups such as setpermission.
	RegisterManager(m Manager)

	// Check is the authorization decision for one invocation attempt.
	// moduleName is the invoking module's name, or "" when the caller has no
	// module identity. A restricted module raises the bar for its open
	// commands; it never lowers it, and owner authority always passes.
	Check(msg *command.ValidMessage, proto command.Prototype, moduleName string) bool
}
