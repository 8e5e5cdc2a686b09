package leave

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/hrerr"
)

// MemStore is an in-memory Store. A single mutex serializes
// transactions, which gives the same effective isolation as the
// database row locks: two racing Approve calls cannot interleave their
// balance check and update. Used in tests and demo mode.
type MemStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*Request
	balances map[balanceKey]*Balance
}

type balanceKey struct {
	employeeID string
	typ        Type
	year       int
}

// NewMemStore creates an empty in-memory leave store.
func NewMemStore() *MemStore {
	return &MemStore{
		requests: make(map[uuid.UUID]*Request),
		balances: make(map[balanceKey]*Balance),
	}
}

// InTx runs fn under the store mutex. Mutations are staged and only
// applied if fn succeeds, mirroring transactional rollback.
func (s *MemStore) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// Request returns a request by ID.
func (s *MemStore) Request(_ context.Context, id uuid.UUID) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, hrerr.NotFoundf("leave request %s", id)
	}
	cp := *r
	return &cp, nil
}

// Requests lists an employee's requests, newest first.
func (s *MemStore) Requests(_ context.Context, employeeID string, status Status) ([]*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Request
	for _, r := range s.requests {
		if r.EmployeeID != employeeID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sortRequestsNewestFirst(out)
	return out, nil
}

// Balances returns an employee's ledger rows for a year.
func (s *MemStore) Balances(_ context.Context, employeeID string, year int) ([]*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Balance
	for _, b := range s.balances {
		if b.EmployeeID == employeeID && b.Year == year {
			cp := *b
			out = append(out, &cp)
		}
	}
	sortBalancesByType(out)
	return out, nil
}

// memTx stages writes until apply. Reads see staged writes first, then
// committed state, like READ COMMITTED inside one transaction.
type memTx struct {
	store          *MemStore
	stagedRequests map[uuid.UUID]*Request
	stagedBalances map[balanceKey]*Balance
}

func (t *memTx) RequestForUpdate(_ context.Context, id uuid.UUID) (*Request, error) {
	if r, ok := t.stagedRequests[id]; ok {
		cp := *r
		return &cp, nil
	}
	r, ok := t.store.requests[id]
	if !ok {
		return nil, hrerr.NotFoundf("leave request %s", id)
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) BalanceForUpdate(_ context.Context, employeeID string, typ Type, year int) (*Balance, error) {
	key := balanceKey{employeeID, typ, year}
	if b, ok := t.stagedBalances[key]; ok {
		cp := *b
		return &cp, nil
	}
	b, ok := t.store.balances[key]
	if !ok {
		return nil, hrerr.NotFoundf("no %s leave balance for employee %s in %d", typ, employeeID, year)
	}
	cp := *b
	return &cp, nil
}

func (t *memTx) InsertRequest(_ context.Context, r *Request) error {
	if t.stagedRequests == nil {
		t.stagedRequests = make(map[uuid.UUID]*Request)
	}
	cp := *r
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	t.stagedRequests[r.ID] = &cp
	return nil
}

func (t *memTx) UpdateRequest(_ context.Context, r *Request) error {
	if _, ok := t.stagedRequests[r.ID]; !ok {
		if _, ok := t.store.requests[r.ID]; !ok {
			return hrerr.NotFoundf("leave request %s", r.ID)
		}
	}
	if t.stagedRequests == nil {
		t.stagedRequests = make(map[uuid.UUID]*Request)
	}
	cp := *r
	cp.UpdatedAt = time.Now().UTC()
	t.stagedRequests[r.ID] = &cp
	return nil
}

func (t *memTx) UpsertBalance(_ context.Context, b *Balance) error {
	if t.stagedBalances == nil {
		t.stagedBalances = make(map[balanceKey]*Balance)
	}
	cp := *b
	cp.UpdatedAt = time.Now().UTC()
	t.stagedBalances[balanceKey{b.EmployeeID, b.Type, b.Year}] = &cp
	return nil
}

// apply commits staged writes. Caller holds the store mutex.
func (t *memTx) apply() {
	for id, r := range t.stagedRequests {
		t.store.requests[id] = r
	}
	for key, b := range t.stagedBalances {
		t.store.balances[key] = b
	}
}

func sortRequestsNewestFirst(rs []*Request) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}

func sortBalancesByType(bs []*Balance) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Type < bs[j].Type })
}
