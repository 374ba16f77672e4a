package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// Account is a trading account.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Broker    string    `json:"broker"`
	Currency  string    `json:"currency"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reservation is a pending order placed against an account.
type Reservation struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EconomicEvent is a calendar entry.
type EconomicEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Country     string    `json:"country"`
	Importance  string    `json:"importance"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Forecast    string    `json:"forecast,omitempty"`
	Previous    string    `json:"previous,omitempty"`
}

// Reservation statuses accepted by the status endpoint.
const (
	StatusPending   = "pending"
	StatusArmed     = "armed"
	StatusFilled    = "filled"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusArmed:     true,
	StatusFilled:    true,
	StatusCancelled: true,
}

// Fixture is the initial content of a Store.
type Fixture struct {
	Accounts     []Account
	Reservations []Reservation
	Events       []EconomicEvent
}

// Store is the in-memory data set served by the mock backend. It is safe
// for concurrent use and can be reset to its fixture between tests.
type Store struct {
	mu           sync.RWMutex
	fixture      Fixture
	now          func() time.Time
	newID        func() string
	accounts     map[string]Account
	reservations map[string]Reservation
	events       map[string]EconomicEvent
}

// NewStore returns a store loaded with fixture.
func NewStore(fixture Fixture) *Store {
	s := &Store{fixture: fixture, now: time.Now, newID: uuid.NewString}
	s.Reset()
	return s
}

// Reset discards every change and reloads the fixture.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]Account, len(s.fixture.Accounts))
	for _, a := range s.fixture.Accounts {
		s.accounts[a.ID] = a
	}
	s.reservations = make(map[string]Reservation, len(s.fixture.Reservations))
	for _, r := range s.fixture.Reservations {
		s.reservations[r.ID] = r
	}
	s.events = make(map[string]EconomicEvent, len(s.fixture.Events))
	for _, e := range s.fixture.Events {
		s.events[e.ID] = e
	}
}

// Accounts lists accounts ordered by id.
func (s *Store) Accounts() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.accounts, func(a Account) string { return a.ID })
}

// Account returns one account.
func (s *Store) Account(id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

// CreateAccount assigns an id and timestamps and stores a.
func (s *Store) CreateAccount(a Account) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	a.ID = s.newID()
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts[a.ID] = a
	return a
}

// UpdateAccount applies fn to the stored account.
func (s *Store) UpdateAccount(id string, fn func(*Account)) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	fn(&a)
	a.ID = id
	a.UpdatedAt = s.now().UTC()
	s.accounts[id] = a
	return a, nil
}

// DeleteAccount removes an account and its reservations.
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	for rid, r := range s.reservations {
		if r.AccountID == id {
			delete(s.reservations, rid)
		}
	}
	return nil
}

// Reservations lists reservations, optionally filtered by account and status.
func (s *Store) Reservations(accountID, status string) []Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedValues(s.reservations, func(r Reservation) string { return r.ID })
	out := all[:0]
	for _, r := range all {
		if accountID != "" && r.AccountID != accountID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Reservation returns one reservation.
func (s *Store) Reservation(id string) (Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

// CreateReservation stores r as pending. The account must exist.
func (s *Store) CreateReservation(r Reservation) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[r.AccountID]; !ok {
		return Reservation{}, ErrNotFound
	}
	now := s.now().UTC()
	r.ID = s.newID()
	r.Status = StatusPending
	r.CreatedAt, r.UpdatedAt = now, now
	s.reservations[r.ID] = r
	return r, nil
}

// UpdateReservation applies fn to the stored reservation.
func (s *Store) UpdateReservation(id string, fn func(*Reservation)) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	fn(&r)
	r.ID = id
	r.UpdatedAt = s.now().UTC()
	s.reservations[id] = r
	return r, nil
}

// DeleteReservation removes a reservation.
func (s *Store) DeleteReservation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

// Events lists calendar events ordered by schedule. Empty filters match all;
// countries match case-insensitively.
func (s *Store) Events(countries []string, importance string) []EconomicEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(countries))
	for _, c := range countries {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			wanted[c] = true
		}
	}

	out := make([]EconomicEvent, 0, len(s.events))
	for _, e := range s.events {
		if len(wanted) > 0 && !wanted[strings.ToUpper(e.Country)] {
			continue
		}
		if importance != "" && !strings.EqualFold(e.Importance, importance) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

// Event returns one calendar event.
func (s *Store) Event(id string) (EconomicEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return EconomicEvent{}, ErrNotFound
	}
	return e, nil
}

func sortedValues[T any](m map[string]T, id func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}
