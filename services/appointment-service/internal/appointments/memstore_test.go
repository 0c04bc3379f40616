package appointments

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/outbox"
)

// memStore is an in-memory Store. Atomic holds one lock for the whole
// transaction and works on a copy that replaces the state only on success.
type memStore struct {
	mu     sync.Mutex
	state  memState
	names  map[string]string
	failOn string
}

type memState struct {
	nextID int64
	order  []int64
	rows   map[int64]model.Appointment
	events []outbox.Event
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{nextID: 1, rows: map[int64]model.Appointment{}},
		names: map[string]string{},
	}
}

func (s *memState) clone() memState {
	c := memState{nextID: s.nextID, rows: make(map[int64]model.Appointment, len(s.rows))}
	c.order = append(c.order, s.order...)
	c.events = append(c.events, s.events...)
	for id, a := range s.rows {
		c.rows[id] = a.Clone()
	}
	return c
}

func (m *memStore) Atomic(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memTx{store: m, state: &work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) events() []outbox.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]outbox.Event(nil), m.state.events...)
}

type memTx struct {
	store *memStore
	state *memState
}

func (t *memTx) withName(a model.Appointment) model.Appointment {
	a = a.Clone()
	a.OwnerName = t.store.names[a.OwnerID]
	return a
}

func (t *memTx) LockDate(context.Context, civil.Date) error { return nil }

func (t *memTx) List(context.Context) ([]model.Appointment, error) {
	out := []model.Appointment{}
	for _, id := range t.state.order {
		if a, ok := t.state.rows[id]; ok {
			out = append(out, t.withName(a))
		}
	}
	return out, nil
}

func (t *memTx) ListByDate(ctx context.Context, d civil.Date) ([]model.Appointment, error) {
	all, _ := t.List(ctx)
	out := []model.Appointment{}
	for _, a := range all {
		if a.RequestedDate == d {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memTx) ListByUser(ctx context.Context, userID string) ([]model.Appointment, error) {
	all, _ := t.List(ctx)
	out := []model.Appointment{}
	for _, a := range all {
		if a.OwnerID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memTx) Get(_ context.Context, id int64) (model.Appointment, error) {
	a, ok := t.state.rows[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("%w: appointment %d", model.ErrNotFound, id)
	}
	return t.withName(a), nil
}

func (t *memTx) Save(_ context.Context, a *model.Appointment) error {
	if t.store.failOn == "save" {
		return fmt.Errorf("store unavailable")
	}
	if a.ID == 0 {
		a.ID = t.state.nextID
		t.state.nextID++
		t.state.order = append(t.state.order, a.ID)
	} else if _, ok := t.state.rows[a.ID]; !ok {
		return fmt.Errorf("%w: appointment %d", model.ErrNotFound, a.ID)
	}
	t.state.rows[a.ID] = a.Clone()
	return nil
}

func (t *memTx) Delete(_ context.Context, id int64) error {
	if _, ok := t.state.rows[id]; !ok {
		return fmt.Errorf("%w: appointment %d", model.ErrNotFound, id)
	}
	delete(t.state.rows, id)
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	if t.store.failOn == "event" {
		return fmt.Errorf("outbox unavailable")
	}
	t.state.events = append(t.state.events, evt)
	return nil
}
