package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"commonroom/database"
	"commonroom/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrInsufficientFunds is returned when a debit would overdraw the address.
var ErrInsufficientFunds = errors.New("insufficient funds at settlement address")

// MongoLedger is the custodial token ledger. Balances are kept as
// Decimal128 in the token's smallest unit so conditional debits can be done
// in a single atomic update. Every movement is recorded as an append-only
// entry keyed by idempotency key.
type MongoLedger struct {
	accounts *mongo.Collection
	entries  *mongo.Collection
}

type ledgerEntry struct {
	IdempotencyKey string               `bson:"idempotency_key"`
	Kind           string               `bson:"kind"` // "debit" or "credit"
	Network        string               `bson:"network"`
	Token          string               `bson:"token"`
	Address        string               `bson:"address"`
	Amount         primitive.Decimal128 `bson:"amount"`
	TxRef          string               `bson:"tx_ref"`
	CreatedAt      time.Time            `bson:"created_at"`
}

// NewMongoLedger builds the ledger over the application database and
// ensures its indexes.
func NewMongoLedger() *MongoLedger {
	db := database.DB()
	l := &MongoLedger{
		accounts: db.Collection("ledger_accounts"),
		entries:  db.Collection("ledger_entries"),
	}
	l.ensureIndexes()
	return l
}

func (l *MongoLedger) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := l.entries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		utils.GetLogger().Warn("failed to ensure ledger entry index", zap.Error(err))
	}
	_, err = l.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "token", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		utils.GetLogger().Warn("failed to ensure ledger account index", zap.Error(err))
	}
}

func (l *MongoLedger) ResolveSettlementAddress(ctx context.Context, userID, token string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc struct {
		Address string `bson:"address"`
	}
	err := l.accounts.FindOne(opCtx, bson.M{"user_id": userID, "token": token}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNoSettlementAddress
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve settlement address: %w", err)
	}
	return doc.Address, nil
}

func (l *MongoLedger) GetBalance(ctx context.Context, network, token, address string) (*big.Int, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc struct {
		Balance primitive.Decimal128 `bson:"balance"`
	}
	err := l.accounts.FindOne(opCtx, bson.M{"network": network, "token": token, "address": address}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	return decimal128ToBig(doc.Balance)
}

func (l *MongoLedger) Debit(ctx context.Context, network, token, address string, amount *big.Int, idempotencyKey string) (string, error) {
	return l.move(ctx, "debit", network, token, address, amount, idempotencyKey)
}

func (l *MongoLedger) Credit(ctx context.Context, network, token, address string, amount *big.Int, idempotencyKey string) (string, error) {
	return l.move(ctx, "credit", network, token, address, amount, idempotencyKey)
}

func (l *MongoLedger) move(ctx context.Context, kind, network, token, address string, amount *big.Int, idempotencyKey string) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("invalid %s amount", kind)
	}
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Replay with the same idempotency key returns the original reference.
	if idempotencyKey != "" {
		var prior ledgerEntry
		err := l.entries.FindOne(opCtx, bson.M{"idempotency_key": idempotencyKey}).Decode(&prior)
		if err == nil {
			return prior.TxRef, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	dec, err := bigToDecimal128(amount)
	if err != nil {
		return "", err
	}
	negDec, err := bigToDecimal128(new(big.Int).Neg(amount))
	if err != nil {
		return "", err
	}

	filter := bson.M{"network": network, "token": token, "address": address}
	update := bson.M{"$inc": bson.M{"balance": dec}}
	if kind == "debit" {
		// A debit only applies when the balance covers the amount; the
		// filter and decrement are one atomic operation.
		filter["balance"] = bson.M{"$gte": dec}
		update = bson.M{"$inc": bson.M{"balance": negDec}}
	}

	opts := options.Update()
	if kind == "credit" {
		opts = opts.SetUpsert(true)
	}
	result, err := l.accounts.UpdateOne(opCtx, filter, update, opts)
	if err != nil {
		return "", fmt.Errorf("ledger %s failed: %w", kind, err)
	}
	if kind == "debit" && result.ModifiedCount == 0 {
		return "", ErrInsufficientFunds
	}

	txRef := "tx_" + uuid.New().String()
	entry := ledgerEntry{
		IdempotencyKey: idempotencyKey,
		Kind:           kind,
		Network:        network,
		Token:          token,
		Address:        address,
		Amount:         dec,
		TxRef:          txRef,
		CreatedAt:      time.Now(),
	}
	if entry.IdempotencyKey == "" {
		entry.IdempotencyKey = txRef
	}
	if _, err := l.entries.InsertOne(opCtx, entry); err != nil {
		// The balance already moved; the missing entry is an audit gap, not
		// a reversal. Log for reconciliation.
		utils.GetLogger().Error("ledger entry write failed after balance update",
			zap.String("kind", kind),
			zap.String("token", token),
			zap.String("address", address),
			zap.String("amount", amount.String()),
			zap.String("txRef", txRef),
			zap.Error(err))
	}
	return txRef, nil
}

func bigToDecimal128(v *big.Int) (primitive.Decimal128, error) {
	dec, err := primitive.ParseDecimal128(v.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("amount %s does not fit Decimal128: %w", v.String(), err)
	}
	return dec, nil
}

func decimal128ToBig(dec primitive.Decimal128) (*big.Int, error) {
	v, ok := new(big.Int).SetString(dec.String(), 10)
	if !ok {
		return nil, fmt.Errorf("ledger balance %s is not an integer", dec.String())
	}
	return v, nil
}
