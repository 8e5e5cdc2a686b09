package leave

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence boundary for the leave ledger.
//
// InTx runs fn inside a transaction; reads through the Tx take row
// locks so a balance-check-then-update sequence cannot interleave with
// a concurrent one for the same row. fn returning an error rolls the
// transaction back.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error

	// Read-only paths outside any transaction.
	Request(ctx context.Context, id uuid.UUID) (*Request, error)
	Requests(ctx context.Context, employeeID string, status Status) ([]*Request, error)
	Balances(ctx context.Context, employeeID string, year int) ([]*Balance, error)
}

// Tx is the transactional view of the ledger. ForUpdate reads lock the
// row until the transaction ends.
type Tx interface {
	RequestForUpdate(ctx context.Context, id uuid.UUID) (*Request, error)
	BalanceForUpdate(ctx context.Context, employeeID string, t Type, year int) (*Balance, error)

	InsertRequest(ctx context.Context, r *Request) error
	UpdateRequest(ctx context.Context, r *Request) error
	UpsertBalance(ctx context.Context, b *Balance) error
}
