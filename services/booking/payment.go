package booking

import (
	"context"
	"errors"
	"math/big"
	"time"

	"commonroom/models"
	"commonroom/services/ledger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentSettlement checks a user's balance and issues the irreversible
// debit that backs a booking.
type PaymentSettlement interface {
	CheckAndDebit(ctx context.Context, userID string, token models.Token, amount *big.Int) (*models.PaymentReceipt, error)
	Balance(ctx context.Context, userID string, token models.Token) (*big.Int, error)
}

// DefaultPaymentSettlement implements PaymentSettlement over the ledger
// collaborator.
type DefaultPaymentSettlement struct {
	Ledger  ledger.Service
	Network string
	Logger  *zap.Logger
}

// Balance reads the user's spendable balance for a token. A user without a
// settlement address has a zero balance.
func (p *DefaultPaymentSettlement) Balance(ctx context.Context, userID string, token models.Token) (*big.Int, error) {
	address, err := p.Ledger.ResolveSettlementAddress(ctx, userID, token.Symbol)
	if errors.Is(err, ledger.ErrNoSettlementAddress) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return p.Ledger.GetBalance(ctx, p.Network, token.Symbol, address)
}

// CheckAndDebit resolves the settlement address, compares the balance to
// the exact required amount and, only if sufficient, submits the debit.
// On an insufficient balance the ledger is never touched. A reservation
// commit may only be attempted after this returns a receipt.
func (p *DefaultPaymentSettlement) CheckAndDebit(ctx context.Context, userID string, token models.Token, amount *big.Int) (*models.PaymentReceipt, error) {
	address, err := p.Ledger.ResolveSettlementAddress(ctx, userID, token.Symbol)
	if errors.Is(err, ledger.ErrNoSettlementAddress) {
		return nil, &InsufficientBalanceError{
			Token:     token.Symbol,
			Required:  amount,
			Available: big.NewInt(0),
		}
	}
	if err != nil {
		return nil, &PaymentFailedError{Reason: "could not resolve settlement address", Err: err}
	}

	available, err := p.Ledger.GetBalance(ctx, p.Network, token.Symbol, address)
	if err != nil {
		return nil, &PaymentFailedError{Reason: "could not read balance", Err: err}
	}
	if available.Cmp(amount) < 0 {
		return nil, &InsufficientBalanceError{
			Token:     token.Symbol,
			Required:  amount,
			Available: available,
		}
	}

	idemKey := "booking:" + uuid.New().String()
	txRef, err := p.Ledger.Debit(ctx, p.Network, token.Symbol, address, amount, idemKey)
	if err != nil {
		// The balance may have moved between the read and the debit; the
		// ledger's own conditional decrement is authoritative.
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, &InsufficientBalanceError{
				Token:     token.Symbol,
				Required:  amount,
				Available: available,
			}
		}
		return nil, &PaymentFailedError{Reason: "ledger debit failed", Err: err}
	}

	p.Logger.Info("debit confirmed",
		zap.String("userID", userID),
		zap.String("token", token.Symbol),
		zap.String("amount", amount.String()),
		zap.String("txRef", txRef))

	return &models.PaymentReceipt{
		TxRef:     txRef,
		UserID:    userID,
		Token:     token.Symbol,
		Network:   p.Network,
		Address:   address,
		Amount:    amount,
		AmountRaw: amount.String(),
		CreatedAt: time.Now(),
	}, nil
}
