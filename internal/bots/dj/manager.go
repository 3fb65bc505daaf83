package dj

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
	"github.com/keshon/botcrew/internal/storage"
)

const resolveTimeout = 15 * time.Second

// Manager is the DJ bot module.
type Manager struct {
	*dispatch.Core[*State]

	mu       sync.Mutex
	states   map[string]*State
	store    *storage.Storage
	resolver Resolver
}

var _ dispatch.Manager = (*Manager)(nil)

// New builds the DJ manager. store and resolver may be nil in tests.
func New(store *storage.Storage, resolver Resolver) *Manager {
	m := &Manager{
		states:   make(map[string]*State),
		store:    store,
		resolver: resolver,
	}
	m.Core = dispatch.NewCore("DJ", "🎶", m.commandTable(), m.stateFor, m.save)
	return m
}

func (m *Manager) commandTable() []command.Command[*State] {
	return []command.Command[*State]{
		command.New([]string{"getin"}, getIn, nil, 0, 0, command.Anyone),
		command.New([]string{"getout"}, getOut, nil, 0, 0, command.Anyone),
		command.New([]string{"add"}, m.add, []string{"song"}, 1, command.UnlimitedArgs, command.Anyone),
		// The zero-arg overload resumes the queue; the open overload queues
		// first. Declared specific-first so arity disambiguates.
		command.New([]string{"play"}, m.playQueued, nil, 0, 0, command.Anyone),
		command.New([]string{"play"}, m.playRequested, []string{"song"}, 1, command.UnlimitedArgs, command.Anyone),
		command.New([]string{"pause"}, pause, nil, 0, 0, command.Anyone),
		command.New([]string{"stop"}, stop, nil, 0, 0, command.Anyone),
		command.New([]string{"skip"}, skip, nil, 0, 0, command.Anyone),
		command.New([]string{"status"}, status, nil, 0, 0, command.Anyone),
		command.New([]string{"queue"}, printQueue, nil, 0, 0, command.Anyone),
		command.New([]string{"volume"}, volume, []string{"0-100"}, 0, 1, command.Anyone),
		command.New([]string{"maxvolume"}, maxVolume, []string{"0-100"}, 0, 1, command.Anyone),
		command.New([]string{"maxlength"}, maxLength, []string{"duration|none"}, 0, 1, command.Anyone),
		command.New([]string{"clearqueue"}, clearQueue, nil, 0, 0, command.Mod),
	}
}

//
// Handlers
//

func getIn(msg *command.ValidMessage, state *State) bool {
	if msg.Author.VoiceChannelID == "" {
		send(msg, "Please do not tell me to get in when you yourself are not in.")
		return false
	}
	state.JoinVoice(msg.Author.VoiceChannelID)
	send(msg, "Getting in.")
	return true
}

func getOut(msg *command.ValidMessage, state *State) bool {
	if state.VoiceChannel() == "" {
		send(msg, "I'm not currently in.")
		return true
	}
	state.LeaveVoice()
	send(msg, "Getting out.")
	return true
}

func (m *Manager) add(msg *command.ValidMessage, state *State) bool {
	track, ok := m.resolve(msg)
	if !ok {
		return false
	}
	if !state.Enqueue(track) {
		send(msg, "That track exceeds this server's maximum length.")
		return false
	}
	send(msg, "Queued "+track.String())
	return true
}

func (m *Manager) playQueued(msg *command.ValidMessage, state *State) bool {
	return m.startPlayback(msg, state)
}

func (m *Manager) playRequested(msg *command.ValidMessage, state *State) bool {
	track, ok := m.resolve(msg)
	if !ok {
		return false
	}
	if !state.Enqueue(track) {
		send(msg, "That track exceeds this server's maximum length.")
		return false
	}
	return m.startPlayback(msg, state)
}

func (m *Manager) startPlayback(msg *command.ValidMessage, state *State) bool {
	if state.VoiceChannel() == "" {
		if msg.Author.VoiceChannelID == "" {
			send(msg, "Neither of us is in a voice channel.")
			return false
		}
		state.JoinVoice(msg.Author.VoiceChannelID)
	}
	track, ok := state.StartPlayback()
	if !ok {
		send(msg, "There is nothing to play.")
		return false
	}
	send(msg, "Playing "+track.String())
	return true
}

func pause(msg *command.ValidMessage, state *State) bool {
	if !state.Pause() {
		send(msg, "Nothing is playing.")
		return false
	}
	send(msg, "Paused.")
	return true
}

func stop(msg *command.ValidMessage, state *State) bool {
	state.Stop()
	send(msg, "Stopped.")
	return true
}

func skip(msg *command.ValidMessage, state *State) bool {
	skipped, votesLeft := state.VoteSkip(msg.Author.ID)
	if skipped {
		send(msg, "Skipped.")
		return true
	}
	if votesLeft == skipVotesNeeded {
		send(msg, "Nothing is playing.")
		return false
	}
	send(msg, fmt.Sprintf("Skip vote registered, %d more needed.", votesLeft))
	return true
}

func status(msg *command.ValidMessage, state *State) bool {
	send(msg, state.Status())
	return true
}

func volume(msg *command.ValidMessage, state *State) bool {
	if msg.NumArgs() == 0 {
		send(msg, fmt.Sprintf("Current volume: %d", state.Volume()))
		return true
	}
	v, err := strconv.Atoi(msg.Args()[0])
	if err != nil || v < 0 || v > 100 {
		send(msg, fmt.Sprintf("%s is not a volume between 0 and 100.", msg.Args()[0]))
		return false
	}
	if limit := state.MaxVolume(); v > limit {
		state.SetVolume(limit)
		send(msg, fmt.Sprintf("Volume limit is set at %d.", limit))
		return false
	}
	state.SetVolume(v)
	send(msg, fmt.Sprintf("Volume set to %d.", v))
	return true
}

func maxVolume(msg *command.ValidMessage, state *State) bool {
	if msg.NumArgs() == 0 {
		send(msg, fmt.Sprintf("Max volume: %d", state.MaxVolume()))
		return true
	}
	v, err := strconv.Atoi(msg.Args()[0])
	if err != nil || v < 0 || v > 100 {
		send(msg, fmt.Sprintf("%s is not a volume between 0 and 100.", msg.Args()[0]))
		return false
	}
	lowered := state.SetMaxVolume(v)
	send(msg, fmt.Sprintf("Max volume set to %d.", v))
	if lowered {
		send(msg, fmt.Sprintf("Volume lowered to %d.", v))
	}
	return true
}

func maxLength(msg *command.ValidMessage, state *State) bool {
	if msg.NumArgs() == 0 {
		if limit := state.MaxLength(); limit > 0 {
			send(msg, "Max track length: "+formatDuration(limit))
		} else {
			send(msg, "No max track length set.")
		}
		return true
	}
	arg := msg.Args()[0]
	if strings.EqualFold(arg, "none") {
		state.SetMaxLength(0)
		send(msg, "Removed max track length.")
		return true
	}
	d, ok := parseTrackDuration(arg)
	if !ok {
		send(msg, fmt.Sprintf("%s is not a track length; use m:ss, h:mm:ss, or \"none\".", arg))
		return false
	}
	dropped := state.SetMaxLength(d)
	send(msg, "Max track length set to "+formatDuration(d)+".")
	if dropped > 0 {
		send(msg, fmt.Sprintf("Dropped %d queued tracks over the limit.", dropped))
	}
	return true
}

func printQueue(msg *command.ValidMessage, state *State) bool {
	tracks := state.Queue()
	if len(tracks) == 0 {
		send(msg, "The queue is empty.")
		return true
	}
	var list strings.Builder
	list.WriteString("Current queue:\n")
	for i, t := range tracks {
		fmt.Fprintf(&list, "%d. %s\n", i+1, t.String())
	}
	send(msg, strings.TrimRight(list.String(), "\n"))
	return true
}

func clearQueue(msg *command.ValidMessage, state *State) bool {
	n := state.ClearQueue()
	send(msg, fmt.Sprintf("Cleared %d queued tracks.", n))
	return true
}

func (m *Manager) resolve(msg *command.ValidMessage) (Track, bool) {
	query := strings.Join(msg.Args(), " ")
	if m.resolver == nil {
		return Track{Title: query}, true
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	track, err := m.resolver.Resolve(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("failed to resolve track")
		send(msg, "Failed to find that song.")
		return Track{}, false
	}
	return track, true
}

//
// Persistence and state
//

func (m *Manager) LoadPersistentData() bool {
	if m.store == nil {
		return true
	}
	sec, ok, err := storage.LoadSection[section](m.store, storage.SectionDJ)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load dj section")
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

	if err := storage.SaveSection(m.store, storage.SectionDJ, sec); err != nil {
		log.Error().Err(err).Msg("failed to save dj section")
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

func send(msg *command.ValidMessage, text string) {
	_ = msg.Channel.Send(text)
}
