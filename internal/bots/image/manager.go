package image

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
	"github.com/keshon/botcrew/internal/storage"
)

const (
	cacheTTL     = time.Hour
	fetchTimeout = 20 * time.Second
)

// subredditCommands maps command names to the subreddit they draw from.
var subredditCommands = map[string]string{
	"horse":    "Horses",
	"pokemon":  "ImaginaryKanto",
	"mushroom": "ShroomID",
	"cat":      "cat",
	"cheese":   "cheese",
	"cheetah":  "Cheetahs",
	"wall":     "wall",
	"awoo":     "wolves",
}

// localCommands maps command names to image files under the image directory.
var localCommands = map[string]string{
	"teeth": "teeth",
	"wind":  "yall_hear_sumn",
}

// SubredditCache is the persisted listing snapshot for one subreddit.
type SubredditCache struct {
	Subreddit string    `json:"subreddit"`
	URLs      []string  `json:"urls"`
	FetchedAt time.Time `json:"fetched_at"`
}

// State is the image bot's cache. Unlike the other modules it is shared
// across guilds; subreddit content is not guild-specific.
type State struct {
	mu    sync.Mutex
	cache map[string]SubredditCache
}

// Manager is the image bot module.
type Manager struct {
	*dispatch.Core[*State]

	state    *State
	store    *storage.Storage
	fetcher  Fetcher
	imageDir string
	intn     func(n int) int
}

var _ dispatch.Manager = (*Manager)(nil)

// New builds the image manager. store and fetcher may be nil in tests.
func New(store *storage.Storage, fetcher Fetcher, imageDir string) *Manager {
	m := &Manager{
		state:    &State{cache: make(map[string]SubredditCache)},
		store:    store,
		fetcher:  fetcher,
		imageDir: imageDir,
		intn:     rand.Intn,
	}
	m.Core = dispatch.NewCore("Image", "📷", m.commandTable(), m.stateFor, m.save)
	return m
}

func (m *Manager) commandTable() []command.Command[*State] {
	var cmds []command.Command[*State]
	for _, name := range []string{"horse", "pokemon", "mushroom", "cat", "cheese", "cheetah", "wall", "awoo"} {
		subreddit := subredditCommands[name]
		cmds = append(cmds, command.New([]string{name}, m.fromSubreddit(subreddit), nil, 0, 0, command.Anyone))
	}
	for _, name := range []string{"teeth", "wind"} {
		file := localCommands[name]
		cmds = append(cmds, command.New([]string{name}, m.fromLocal(file), nil, 0, 0, command.Anyone))
	}
	return cmds
}

func (m *Manager) fromSubreddit(subreddit string) command.Handler[*State] {
	return func(msg *command.ValidMessage, state *State) bool {
		url, err := m.pickImage(state, subreddit)
		if err != nil {
			log.Warn().Err(err).Str("subreddit", subreddit).Msg("image lookup failed")
			_ = msg.Channel.Send("Unable to find image.")
			return false
		}
		if err := msg.Channel.Send(url); err != nil {
			_ = msg.Channel.Send("Failed to post image :'(")
			return false
		}
		return true
	}
}

func (m *Manager) fromLocal(name string) command.Handler[*State] {
	return func(msg *command.ValidMessage, state *State) bool {
		path, err := m.findLocal(name)
		if err != nil {
			log.Warn().Err(err).Str("image", name).Msg("local image lookup failed")
			_ = msg.Channel.Send(fmt.Sprintf("Unable to find %s.", name))
			return false
		}
		file, err := os.Open(path)
		if err != nil {
			_ = msg.Channel.Send(fmt.Sprintf("Unable to find %s.", name))
			return false
		}
		defer file.Close()
		if err := msg.Channel.SendAttachment("", command.Attachment{Name: filepath.Base(path), Reader: file}); err != nil {
			_ = msg.Channel.Send("Failed to post image :'(")
			return false
		}
		return true
	}
}

// pickImage returns a random image URL for the subreddit, refreshing the
// cached listing when it is stale or empty.
func (m *Manager) pickImage(state *State, subreddit string) (string, error) {
	state.mu.Lock()
	cached, ok := state.cache[subreddit]
	state.mu.Unlock()

	if !ok || len(cached.URLs) == 0 || time.Since(cached.FetchedAt) > cacheTTL {
		if m.fetcher == nil {
			return "", fmt.Errorf("no fetcher configured")
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		urls, err := m.fetcher.FetchImageURLs(ctx, subreddit)
		if err != nil {
			// A stale cache beats no image at all.
			if ok && len(cached.URLs) > 0 {
				return cached.URLs[m.intn(len(cached.URLs))], nil
			}
			return "", err
		}
		if len(urls) == 0 {
			return "", fmt.Errorf("r/%s listing has no images", subreddit)
		}
		cached = SubredditCache{Subreddit: subreddit, URLs: urls, FetchedAt: time.Now()}
		state.mu.Lock()
		state.cache[subreddit] = cached
		state.mu.Unlock()
	}

	return cached.URLs[m.intn(len(cached.URLs))], nil
}

func (m *Manager) findLocal(name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(m.imageDir, name+".*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no local image named %q in %s", name, m.imageDir)
	}
	return matches[0], nil
}

//
// Persistence and state
//

func (m *Manager) LoadPersistentData() bool {
	if m.store == nil {
		return true
	}
	sec, ok, err := storage.LoadSection[[]SubredditCache](m.store, storage.SectionImage)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load image section")
		return false
	}
	if !ok {
		return false
	}
	m.state.mu.Lock()
	for _, entry := range sec {
		m.state.cache[entry.Subreddit] = entry
	}
	m.state.mu.Unlock()
	return true
}

func (m *Manager) save() {
	if m.store == nil {
		return
	}
	m.state.mu.Lock()
	sec := make([]SubredditCache, 0, len(m.state.cache))
	for _, entry := range m.state.cache {
		sec = append(sec, entry)
	}
	m.state.mu.Unlock()
	sort.Slice(sec, func(i, j int) bool { return sec[i].Subreddit < sec[j].Subreddit })

	if err := storage.SaveSection(m.store, storage.SectionImage, sec); err != nil {
		log.Error().Err(err).Msg("failed to save image section")
	}
}

func (m *Manager) stateFor(*command.ValidMessage) *State {
	return m.state
}
