// Package devices keeps the dashboard's device list in a single JSON file.
//
// Every call reads the file again; nothing is cached between requests. Writes
// rewrite the whole array. Add and Update hold an in-process mutex and an
// advisory file lock across load-modify-save so concurrent edits do not drop
// each other's changes.
package devices

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relaydash/internal/fsatomic"
	"relaydash/internal/observability"
)

// ErrNotFound is returned by Update when no device has the requested IP.
var ErrNotFound = errors.New("device not found")

type Store struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  logger.With().Str("component", "devices").Str("path", path).Logger(),
	}
}

func (s *Store) Path() string { return s.path }

// Load returns the stored devices. A missing file or one that does not hold
// a JSON array yields an empty list.
func (s *Store) Load() []Device {
	var list []Device
	if _, err := fsatomic.LoadJSON(s.path, &list); err != nil {
		s.log.Debug().Err(err).Msg("device file unreadable, using empty list")
		return []Device{}
	}
	if list == nil {
		list = []Device{}
	}
	return list
}

// Save overwrites the file with list.
func (s *Store) Save(ctx context.Context, list []Device) error {
	if list == nil {
		list = []Device{}
	}
	return fsatomic.SaveJSON(ctx, s.path, list, 0o644)
}

// Find returns the first device whose ip equals ip.
func (s *Store) Find(ip string) (Device, bool) {
	list := s.Load()
	if i := indexOf(list, ip); i >= 0 {
		return list[i], true
	}
	return Device{}, false
}

// Add appends d and persists the list.
func (s *Store) Add(ctx context.Context, d Device) (Device, error) {
	err := s.mutate(ctx, "add", func(list []Device) ([]Device, error) {
		return append(list, d), nil
	})
	if err != nil {
		return Device{}, err
	}
	s.log.Info().Str("ip", d.IP).Str("name", d.Name).Msg("device added")
	return d, nil
}

// Update overwrites all four fields of the first device whose ip equals ip,
// including the ip itself. The file is left untouched when nothing matches.
func (s *Store) Update(ctx context.Context, ip string, next Device) (Device, error) {
	var out Device
	err := s.mutate(ctx, "update", func(list []Device) ([]Device, error) {
		i := indexOf(list, ip)
		if i < 0 {
			return nil, ErrNotFound
		}
		list[i].Assign(next.Name, next.IP, next.Type, next.Channel)
		out = list[i]
		return list, nil
	})
	if err != nil {
		return Device{}, err
	}
	s.log.Info().Str("ip", ip).Str("new_ip", out.IP).Msg("device updated")
	return out, nil
}

func (s *Store) mutate(ctx context.Context, op string, fn func([]Device) ([]Device, error)) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fsatomic.WithLock(s.path, func() error {
		list, err := fn(s.Load())
		if err != nil {
			return err
		}
		return s.Save(ctx, list)
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	observability.ObserveStoreWrite(op, err, start)
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("device file write failed")
	}
	return err
}

func indexOf(list []Device, ip string) int {
	for i := range list {
		if !list[i].Opaque() && list[i].IP == ip {
			return i
		}
	}
	return -1
}
