package ledger

import (
	"context"
	"errors"
	"math/big"
)

// ErrNoSettlementAddress means the user holds no settlement address for the
// requested token.
var ErrNoSettlementAddress = errors.New("no settlement address for user and token")

// Service is the ledger collaborator. Debit and Credit are irreversible
// burn/mint operations; submission mechanics (nonces, fees, retries) live
// behind this interface, and every call returns exactly one terminal
// outcome — the core never observes an in-progress state.
type Service interface {
	// ResolveSettlementAddress returns the address holding the given token
	// for the user, or ErrNoSettlementAddress. Idempotent: the same
	// (user, token) pair always resolves to the same address.
	ResolveSettlementAddress(ctx context.Context, userID, token string) (string, error)

	// GetBalance reads the current balance in the token's smallest unit.
	GetBalance(ctx context.Context, network, token, address string) (*big.Int, error)

	// Debit burns amount from the address and returns a transaction
	// reference. The idempotency key guards against double submission.
	Debit(ctx context.Context, network, token, address string, amount *big.Int, idempotencyKey string) (string, error)

	// Credit mints amount to the address and returns a transaction
	// reference. Same idempotency contract as Debit.
	Credit(ctx context.Context, network, token, address string, amount *big.Int, idempotencyKey string) (string, error)
}
