// Package storage maps the shared save file onto per-module sections. The
// document is one JSON object with a section per bot module; guild-scoped
// sections hold an array of {guild_id, data} pairs for serialization
// stability. All module saves funnel through one store, so concurrent
// dispatches never race on the file.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/keshon/botcrew/datastore"
)

// Section names, one per persisting bot module.
const (
	SectionMod     = "mod"
	SectionDJ      = "dj"
	SectionImage   = "image"
	SectionImitate = "imitate"
)

// GuildData pairs a guild with that guild's slice of a module's state.
type GuildData[T any] struct {
	GuildID string `json:"guild_id"`
	Data    T      `json:"data"`
}

// Storage wraps the datastore with typed section access.
type Storage struct {
	ds *datastore.Store
}

// New opens the save file at path.
func New(path string) (*Storage, error) {
	ds, err := datastore.New(path)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return &Storage{ds: ds}, nil
}

// Close flushes and closes the underlying store.
func (s *Storage) Close() error {
	return s.ds.Close()
}

// LoadSection unmarshals one module's section. A missing section is not an
// error; it returns the zero value and false.
func LoadSection[T any](s *Storage, name string) (T, bool, error) {
	var out T
	raw, ok := s.ds.Get(name)
	if !ok {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("unmarshal section %q: %w", name, err)
	}
	return out, true, nil
}

// SaveSection replaces one module's section and schedules it for the next
// disk write.
func SaveSection[T any](s *Storage, name string, data T) error {
	if err := s.ds.Set(name, data); err != nil {
		return fmt.Errorf("set section %q: %w", name, err)
	}
	return nil
}
