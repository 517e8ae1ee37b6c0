// Package alarms keeps the local alarm list and pushes alarms to the light.
package alarms

import (
	"sync"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/bradfitz/slice"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("alarm not found")

// Store persists alarms keyed by id
type Store interface {
	// Upsert assigns a fresh id when alarm.ID is zero and returns the stored alarm
	Upsert(alarm models.Alarm) (models.Alarm, error)
	Get(id int64) (models.Alarm, error)
	Delete(id int64) error
	// List returns every alarm ordered by id
	List() ([]models.Alarm, error)
	ListEnabled() ([]models.Alarm, error)
	Close() error
}

type MemoryStore struct {
	mu     sync.RWMutex
	alarms map[int64]models.Alarm
	next   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{alarms: map[int64]models.Alarm{}}
}

func (s *MemoryStore) Upsert(alarm models.Alarm) (models.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alarm.ID == 0 {
		s.next++
		alarm.ID = s.next
	} else if alarm.ID > s.next {
		s.next = alarm.ID
	}
	s.alarms[alarm.ID] = alarm
	return alarm, nil
}

func (s *MemoryStore) Get(id int64) (models.Alarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alarm, ok := s.alarms[id]
	if !ok {
		return models.Alarm{}, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return alarm, nil
}

func (s *MemoryStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alarms[id]; !ok {
		return errors.Wrapf(ErrNotFound, "id %d", id)
	}
	delete(s.alarms, id)
	return nil
}

func (s *MemoryStore) List() ([]models.Alarm, error) {
	return s.filter(func(models.Alarm) bool { return true }), nil
}

func (s *MemoryStore) ListEnabled() ([]models.Alarm, error) {
	return s.filter(func(a models.Alarm) bool { return a.Enabled }), nil
}

func (s *MemoryStore) filter(keep func(models.Alarm) bool) []models.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := []models.Alarm{}
	for _, a := range s.alarms {
		if keep(a) {
			ret = append(ret, a)
		}
	}
	slice.Sort(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

func (s *MemoryStore) Close() error { return nil }
