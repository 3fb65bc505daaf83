package imitate

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
	"github.com/keshon/botcrew/internal/storage"
)

// UserModel pairs a user with their learned chain, in the persisted form.
type UserModel struct {
	UserID string `json:"user_id"`
	Chain  *Chain `json:"chain"`
}

// State holds one guild's models, keyed by user ID.
type State struct {
	mu     sync.Mutex
	models map[string]*Chain
}

func newState() *State {
	return &State{models: make(map[string]*Chain)}
}

func (s *State) observe(userID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.models[userID]
	if !ok {
		chain = NewChain()
		s.models[userID] = chain
	}
	chain.Observe(text)
}

func (s *State) generate(userID string, intn func(n int) int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.models[userID]
	if !ok || chain.Empty() {
		return "", false
	}
	return chain.Generate(intn), true
}

// Manager is the imitation bot module.
type Manager struct {
	*dispatch.Core[*State]

	mu     sync.Mutex
	states map[string]*State
	store  *storage.Storage
	intn   func(n int) int
}

var _ dispatch.Manager = (*Manager)(nil)

// New builds the imitation manager. store may be nil in tests.
func New(store *storage.Storage) *Manager {
	m := &Manager{
		states: make(map[string]*State),
		store:  store,
		intn:   rand.Intn,
	}
	m.Core = dispatch.NewCore("Imitation", "🦜", []command.Command[*State]{
		// Two prototypes share the alias; disjoint arity intervals pick one.
		command.New([]string{"imitate"}, m.imitateSelf, nil, 0, 0, command.Anyone),
		command.New([]string{"imitate"}, m.imitateTarget, []string{"@target"}, 1, command.UnlimitedArgs, command.Anyone),
	}, m.stateFor, m.save)
	return m
}

// Observe trains on one non-command guild message. The Discord layer calls
// this for every ordinary message it sees.
func (m *Manager) Observe(guildID, userID, content string) {
	m.getOrCreate(guildID).observe(userID, content)
}

func (m *Manager) imitateSelf(msg *command.ValidMessage, state *State) bool {
	return m.imitate(msg, state, msg.Author.User)
}

func (m *Manager) imitateTarget(msg *command.ValidMessage, state *State) bool {
	target := msg.Author.User
	if len(msg.Mentions) > 0 {
		target = msg.Mentions[0]
	}
	return m.imitate(msg, state, target)
}

func (m *Manager) imitate(msg *command.ValidMessage, state *State, target command.User) bool {
	generated, ok := state.generate(target.ID, m.intn)
	if !ok {
		_ = msg.Channel.Send(fmt.Sprintf("I haven't heard %s say anything yet.", target.Mention()))
		return false
	}
	_ = msg.Channel.Send(fmt.Sprintf("My impression of %s:\n%s", target.Mention(), generated))
	return true
}

//
// Persistence and state
//

func (m *Manager) LoadPersistentData() bool {
	if m.store == nil {
		return true
	}
	sec, ok, err := storage.LoadSection[section](m.store, storage.SectionImitate)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load imitate section")
		return false
	}
	if !ok {
		return false
	}
	for _, entry := range sec {
		state := m.getOrCreate(entry.GuildID)
		state.mu.Lock()
		for _, model := range entry.Data {
			if model.Chain != nil {
				if model.Chain.Followers == nil {
					model.Chain.Followers = make(map[string][]string)
				}
				state.models[model.UserID] = model.Chain
			}
		}
		state.mu.Unlock()
	}
	return true
}

func (m *Manager) save() {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	guilds := make(map[string]*State, len(m.states))
	for guildID, state := range m.states {
		guilds[guildID] = state
	}
	m.mu.Unlock()

	sec := make(section, 0, len(guilds))
	for guildID, state := range guilds {
		// Chains are copied under the lock; Observe keeps mutating the live
		// ones while the snapshot is marshalled.
		state.mu.Lock()
		models := make([]UserModel, 0, len(state.models))
		for userID, chain := range state.models {
			models = append(models, UserModel{UserID: userID, Chain: chain.clone()})
		}
		state.mu.Unlock()
		sort.Slice(models, func(i, j int) bool { return models[i].UserID < models[j].UserID })
		sec = append(sec, storage.GuildData[[]UserModel]{GuildID: guildID, Data: models})
	}
	sort.Slice(sec, func(i, j int) bool { return sec[i].GuildID < sec[j].GuildID })

	if err := storage.SaveSection(m.store, storage.SectionImitate, sec); err != nil {
		log.Error().Err(err).Msg("failed to save imitate section")
	}
}

func (m *Manager) stateFor(msg *command.ValidMessage) *State {
	return m.getOrCreate(msg.Guild.ID)
}

func (m *Manager) getOrCreate(guildID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[guildID]; ok {
		return state
	}
	state := newState()
	m.states[guildID] = state
	return state
}

type section = []storage.GuildData[[]UserModel]
