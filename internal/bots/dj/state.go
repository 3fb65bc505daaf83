// Package dj implements the music bot's command surface: per-guild queue,
// volume, and voice-channel bookkeeping. Actual audio streaming is handled by
// the playback engine behind these handlers and is not part of this module.
package dj

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/keshon/botcrew/internal/storage"
)

// skipVotesNeeded is how many distinct listeners must vote before the current
// track is skipped.
const skipVotesNeeded = 2

// Track is one queued song.
type Track struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func (t Track) String() string {
	s := t.Title
	if t.Duration != "" {
		s += fmt.Sprintf(" (%s)", t.Duration)
	}
	if t.Artist != "" {
		s += " by " + t.Artist
	}
	return s
}

// SaveData is the persisted slice of a guild's DJ state. Transient playback
// state (votes, voice channel) is deliberately not saved. MaxLength is in
// seconds, zero meaning no limit.
type SaveData struct {
	Queue     []Track `json:"queue"`
	Volume    int     `json:"volume"`
	MaxVolume int     `json:"max_volume"`
	MaxLength int     `json:"max_length,omitempty"`
}

// State is one guild's DJ.
type State struct {
	mu             sync.Mutex
	queue          []Track
	current        *Track
	volume         int
	maxVolume      int
	maxLength      time.Duration
	voiceChannelID string
	playing        bool
	paused         bool
	skipVotes      map[string]struct{}
}

func newState() *State {
	return &State{volume: 100, maxVolume: 100, skipVotes: make(map[string]struct{})}
}

func (s *State) VoiceChannel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceChannelID
}

func (s *State) JoinVoice(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceChannelID = channelID
}

func (s *State) LeaveVoice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceChannelID = ""
	s.playing = false
	s.paused = false
}

// Enqueue adds a track to the queue, rejecting it when a maximum track
// length is set and the track is known to exceed it. Tracks without a parsed
// duration always pass.
func (s *State) Enqueue(t Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxLength > 0 {
		if d, ok := parseTrackDuration(t.Duration); ok && d > s.maxLength {
			return false
		}
	}
	s.queue = append(s.queue, t)
	return true
}

// Queue returns a copy of the queued tracks in play order.
func (s *State) Queue() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Track(nil), s.queue...)
}

// StartPlayback promotes the next queued track when nothing is playing.
// Returns the now-current track, or false when the queue is dry.
func (s *State) StartPlayback() (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing && s.current != nil {
		s.paused = false
		return *s.current, true
	}
	if len(s.queue) == 0 {
		return Track{}, false
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.current = &next
	s.playing = true
	s.paused = false
	s.skipVotes = make(map[string]struct{})
	return next, true
}

func (s *State) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.paused {
		return false
	}
	s.paused = true
	return true
}

func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.paused = false
	s.current = nil
	s.skipVotes = make(map[string]struct{})
}

// VoteSkip records one listener's vote. When enough votes are in, the current
// track is dropped and the remaining vote count resets.
func (s *State) VoteSkip(userID string) (skipped bool, votesLeft int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.current == nil {
		return false, skipVotesNeeded
	}
	s.skipVotes[userID] = struct{}{}
	if len(s.skipVotes) < skipVotesNeeded {
		return false, skipVotesNeeded - len(s.skipVotes)
	}
	s.current = nil
	s.playing = false
	s.skipVotes = make(map[string]struct{})
	return true, 0
}

func (s *State) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetVolume sets the volume, capped at the guild's maximum.
func (s *State) SetVolume(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.maxVolume {
		v = s.maxVolume
	}
	s.volume = v
}

func (s *State) MaxVolume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxVolume
}

// SetMaxVolume lowers or raises the volume ceiling, pulling the current
// volume down with it when needed. Reports whether the volume was lowered.
func (s *State) SetMaxVolume(v int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxVolume = v
	if s.volume > v {
		s.volume = v
		return true
	}
	return false
}

// MaxLength returns the maximum track length, zero meaning no limit.
func (s *State) MaxLength() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLength
}

// SetMaxLength sets (or with zero, clears) the maximum track length and
// drops queued tracks that exceed it, returning how many were dropped.
func (s *State) SetMaxLength(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxLength = d
	if d == 0 {
		return 0
	}
	kept := s.queue[:0]
	dropped := 0
	for _, t := range s.queue {
		if td, ok := parseTrackDuration(t.Duration); ok && td > d {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	s.queue = kept
	return dropped
}

func (s *State) ClearQueue() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	s.queue = nil
	return n
}

// Status renders the human-readable playback summary.
func (s *State) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out string
	switch {
	case s.current == nil:
		out = "Nothing is playing."
	case s.paused:
		out = "Paused: " + s.current.String()
	default:
		out = "Now playing: " + s.current.String()
	}
	out += fmt.Sprintf("\nQueue length: %d, volume: %d", len(s.queue), s.volume)
	return out
}

func (s *State) saveData() SaveData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SaveData{
		Queue:     append([]Track(nil), s.queue...),
		Volume:    s.volume,
		MaxVolume: s.maxVolume,
		MaxLength: int(s.maxLength / time.Second),
	}
}

func (s *State) loadData(data SaveData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]Track(nil), data.Queue...)
	if data.MaxVolume > 0 {
		s.maxVolume = data.MaxVolume
	}
	if data.Volume > 0 {
		s.volume = data.Volume
	}
	if s.volume > s.maxVolume {
		s.volume = s.maxVolume
	}
	s.maxLength = time.Duration(data.MaxLength) * time.Second
}

// parseTrackDuration reads colon-separated durations the resolver produces,
// "3:05" or "1:02:40". Unknown or empty strings report false.
func parseTrackDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, true
}

type section = []storage.GuildData[SaveData]
