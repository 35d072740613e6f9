package addresses

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/bygglarm/internal/model"
)

// memState is the whole crawl state. Transactions work on a deep copy.
type memState struct {
	queries []model.Query
	chars   []string
	raws    []model.RawEntry
	entries []model.Entry
	numbers []model.EntryNumber
	seq     int64
}

func (s *memState) clone() *memState {
	c := &memState{
		queries: slices.Clone(s.queries),
		chars:   slices.Clone(s.chars),
		raws:    slices.Clone(s.raws),
		entries: slices.Clone(s.entries),
		numbers: slices.Clone(s.numbers),
		seq:     s.seq,
	}
	for i, e := range c.entries {
		if e.Bounds != nil {
			b := *e.Bounds
			c.entries[i].Bounds = &b
		}
	}
	for i, n := range c.numbers {
		if n.Coord != nil {
			p := *n.Coord
			c.numbers[i].Coord = &p
		}
	}
	return c
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

// memStore is an in-memory Store with all-or-nothing transactions.
type memStore struct {
	mu      sync.Mutex
	state   *memState
	commits int

	// failOn makes the named Tx method fail inside Update.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{state: &memState{}}
}

func (m *memStore) Update(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{s: work, failOn: m.failOn}); err != nil {
		return err
	}
	m.state = work
	m.commits++
	return nil
}

func (m *memStore) View(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{s: m.state.clone()})
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) query(prefix string, fullEntry bool) (model.Query, bool) {
	for _, q := range m.snapshot().queries {
		if q.Prefix == prefix && q.FullEntry == fullEntry {
			return q, true
		}
	}
	return model.Query{}, false
}

type memTx struct {
	s      *memState
	failOn string
}

var errInjected = errors.New("injected failure")

func (t *memTx) fail(method string) error {
	if t.failOn == method {
		return errInjected
	}
	return nil
}

func (t *memTx) CountQueries() (int, error) {
	return len(t.s.queries), nil
}

func (t *memTx) NextQuery() (*model.Query, error) {
	var pending []model.Query
	for _, q := range t.s.queries {
		if q.Status.Pending() {
			pending = append(pending, q)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	slices.SortFunc(pending, func(a, b model.Query) int {
		if a.FullEntry != b.FullEntry {
			if a.FullEntry {
				return -1
			}
			return 1
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	q := pending[0]
	return &q, nil
}

func (t *memTx) AddQuery(q model.Query) (bool, error) {
	if err := t.fail("AddQuery"); err != nil {
		return false, err
	}
	for _, existing := range t.s.queries {
		if existing.Prefix == q.Prefix && existing.FullEntry == q.FullEntry {
			return false, nil
		}
	}
	q.ID = t.s.nextID()
	q.CreatedAt = time.Unix(0, 0).Add(time.Duration(q.ID) * time.Millisecond)
	t.s.queries = append(t.s.queries, q)
	return true, nil
}

func (t *memTx) UpdateQueryStatus(id int64, from, to model.QueryStatus, numResults int) error {
	if err := t.fail("UpdateQueryStatus"); err != nil {
		return err
	}
	if !from.CanTransitionTo(to) {
		return ErrStatusRegression
	}
	for i, q := range t.s.queries {
		if q.ID != id {
			continue
		}
		if q.Status != from {
			return ErrStaleQuery
		}
		t.s.queries[i].Status = to
		t.s.queries[i].NumResults = numResults
		return nil
	}
	return ErrStaleQuery
}

func (t *memTx) Characters() ([]string, error) {
	return slices.Clone(t.s.chars), nil
}

func (t *memTx) AddCharacter(c string) (bool, error) {
	if slices.Contains(t.s.chars, c) {
		return false, nil
	}
	t.s.chars = append(t.s.chars, c)
	return true, nil
}

func (t *memTx) FirstRawEntry(name string) (*model.RawEntry, error) {
	for _, r := range t.s.raws {
		if r.Name == name && r.First {
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertRawEntry(e model.RawEntry) (int64, error) {
	e.ID = t.s.nextID()
	t.s.raws = append(t.s.raws, e)
	return e.ID, nil
}

func (t *memTx) EntryByName(name string) (*model.Entry, error) {
	for _, e := range t.s.entries {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertEntry(e model.Entry) (int64, error) {
	e.ID = t.s.nextID()
	t.s.entries = append(t.s.entries, e)
	return e.ID, nil
}

func (t *memTx) UpdateEntryBounds(id int64, b model.Bounds) error {
	for i, e := range t.s.entries {
		if e.ID == id {
			t.s.entries[i].Bounds = &b
			return nil
		}
	}
	return nil
}

func (t *memTx) EntryNumber(entryID int64, name string) (*model.EntryNumber, error) {
	for _, n := range t.s.numbers {
		if n.EntryID == entryID && n.Name == name {
			return &n, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertEntryNumber(n model.EntryNumber) (int64, error) {
	if err := t.fail("InsertEntryNumber"); err != nil {
		return 0, err
	}
	n.ID = t.s.nextID()
	t.s.numbers = append(t.s.numbers, n)
	return n.ID, nil
}
