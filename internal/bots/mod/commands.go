package mod

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
)

func (m *Manager) commandTable() []command.Command[*State] {
	return []command.Command[*State]{
		command.New([]string{"setpermission"}, m.setPermission, []string{"command", "anyone|mod|owner"}, 2, command.UnlimitedArgs, command.Mod),
		command.New([]string{"addmodrole"}, m.addModRole, []string{"roleName"}, 1, command.UnlimitedArgs, command.Owner),
		command.New([]string{"removemodrole"}, m.removeModRole, []string{"roleName"}, 1, command.UnlimitedArgs, command.Owner),
		command.New([]string{"listmodroles"}, listModRoles, nil, 0, command.UnlimitedArgs, command.Anyone),
		command.New([]string{"restrict"}, m.restrict, []string{"botName"}, 1, 1, command.Mod),
		command.New([]string{"derestrict"}, m.derestrict, []string{"botName"}, 1, 1, command.Mod),
		command.New([]string{"restrictmusic"}, m.restrictMusic, nil, 0, 0, command.Mod),
		command.New([]string{"derestrictmusic"}, m.derestrictMusic, nil, 0, 0, command.Mod),
	}
}

// setPermission changes the level a command requires in this guild. When the
// name matches several prototypes (same alias, different arity) the user is
// shown a numbered list and reruns with the number as a third argument.
func (m *Manager) setPermission(msg *command.ValidMessage, state *State) bool {
	args := msg.Args()
	level, ok := command.ParsePermissionLevel(args[1])
	if !ok {
		send(msg, fmt.Sprintf("%s is not a valid permission level. Options are \"anyone\", \"mod\", and \"owner\".", args[1]))
		return true
	}

	name := strings.ToLower(args[0])
	var matches []command.Prototype
	for _, mgr := range m.registeredManagers() {
		for _, proto := range mgr.CommandPrototypes() {
			if proto.HasName(name) {
				matches = append(matches, proto)
			}
		}
	}

	switch {
	case len(matches) == 0:
		send(msg, "No matching command found.")
		return true
	case len(matches) == 1:
		state.SetPermissionLevel(matches[0], level)
		send(msg, fmt.Sprintf("Set permission level for `%s` to %s.", matches[0].AliasString(), level))
		return true
	}

	if len(args) >= 3 {
		choice, err := strconv.Atoi(args[2])
		if err != nil || choice < 1 || choice > len(matches) {
			send(msg, fmt.Sprintf("%s is not one of the available options (1-%d).", args[2], len(matches)))
			return false
		}
		state.SetPermissionLevel(matches[choice-1], level)
		send(msg, fmt.Sprintf("Set permission level for `%s` to %s.", matches[choice-1].FullDescription(), level))
		return true
	}

	var list strings.Builder
	fmt.Fprintf(&list, "Multiple commands match %s:\n", name)
	for i, proto := range matches {
		fmt.Fprintf(&list, "%d. %s\n", i+1, proto.FullDescription())
	}
	fmt.Fprintf(&list, "Rerun as `setpermission %s %s <number>` to pick one, %s.", name, args[1], msg.Author.Mention())
	send(msg, list.String())
	return true
}

func (m *Manager) addModRole(msg *command.ValidMessage, state *State) bool {
	role := strings.Join(msg.Args(), " ")
	exists := false
	for _, r := range msg.Guild.RoleNames {
		if r == role {
			exists = true
			break
		}
	}
	if !exists {
		send(msg, fmt.Sprintf("Warning: %s is not an existing role name on this server.", role))
	}
	state.AddModRole(role)
	return listModRoles(msg, state)
}

func (m *Manager) removeModRole(msg *command.ValidMessage, state *State) bool {
	role := strings.Join(msg.Args(), " ")
	removed := state.RemoveModRole(role)
	if !removed {
		send(msg, fmt.Sprintf("%s is not a mod role here.", role))
	}
	listModRoles(msg, state)
	return removed
}

func listModRoles(msg *command.ValidMessage, state *State) bool {
	send(msg, "Mod roles: "+strings.Join(state.ModRoles(), ", "))
	return true
}

func (m *Manager) restrict(msg *command.ValidMessage, state *State) bool {
	mgr, ok := m.managerNamed(msg.Args()[0])
	if !ok {
		send(msg, fmt.Sprintf("I don't run a bot called %s.", msg.Args()[0]))
		return false
	}
	return restrictNamed(msg, state, mgr.Name())
}

func (m *Manager) derestrict(msg *command.ValidMessage, state *State) bool {
	mgr, ok := m.managerNamed(msg.Args()[0])
	if !ok {
		send(msg, fmt.Sprintf("I don't run a bot called %s.", msg.Args()[0]))
		return false
	}
	return derestrictNamed(msg, state, mgr.Name())
}

// restrictmusic and derestrictmusic are shorthands for the DJ module.
func (m *Manager) restrictMusic(msg *command.ValidMessage, state *State) bool {
	return restrictNamed(msg, state, "DJ")
}

func (m *Manager) derestrictMusic(msg *command.ValidMessage, state *State) bool {
	return derestrictNamed(msg, state, "DJ")
}

func restrictNamed(msg *command.ValidMessage, state *State, name string) bool {
	if state.IsRestricted(name) {
		send(msg, fmt.Sprintf("%s is already restricted on this server.", name))
		return true
	}
	state.AddRestrictedBot(name)
	send(msg, fmt.Sprintf("%s commands are now restricted to mods only.", name))
	return true
}

func derestrictNamed(msg *command.ValidMessage, state *State, name string) bool {
	if !state.RemoveRestrictedBot(name) {
		send(msg, fmt.Sprintf("%s was not restricted on this server.", name))
		return true
	}
	send(msg, fmt.Sprintf("%s commands are now unrestricted.", name))
	return true
}

func (m *Manager) managerNamed(name string) (dispatch.Manager, bool) {
	for _, mgr := range m.registeredManagers() {
		if strings.EqualFold(mgr.Name(), name) {
			return mgr, true
		}
	}
	return nil, false
}

func send(msg *command.ValidMessage, text string) {
	// Channel errors are not the handler's outcome; they are logged by the
	// channel implementation.
	_ = msg.Channel.Send(text)
}
