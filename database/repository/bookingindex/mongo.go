package bookingindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commonroom/database"
	"commonroom/models"
	"commonroom/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoBookingIndexRepo implements Repository over MongoDB.
type MongoBookingIndexRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingIndexRepo builds the repo and ensures its indexes.
func NewMongoBookingIndexRepo() *MongoBookingIndexRepo {
	repo := &MongoBookingIndexRepo{
		coll: database.DB().Collection("booking_index"),
	}
	repo.ensureIndexes()
	return repo
}

func (r *MongoBookingIndexRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reservation_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "owner_id", Value: 1}},
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		utils.GetLogger().Warn("failed to ensure booking index indexes", zap.Error(err))
	}
}

func (r *MongoBookingIndexRepo) Insert(ctx context.Context, entry models.BookingIndexEntry) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(opCtx, entry); err != nil {
		return fmt.Errorf("failed to insert booking index entry: %w", err)
	}
	return nil
}

func (r *MongoBookingIndexRepo) GetByReservationID(ctx context.Context, reservationID string) (*models.BookingIndexEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var entry models.BookingIndexEntry
	err := r.coll.FindOne(opCtx, bson.M{"reservation_id": reservationID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking index entry: %w", err)
	}
	return &entry, nil
}

func (r *MongoBookingIndexRepo) ListByOwner(ctx context.Context, guildID, ownerID string) ([]models.BookingIndexEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(opCtx, bson.M{"guild_id": guildID, "owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list booking index entries: %w", err)
	}
	defer cursor.Close(opCtx)

	var entries []models.BookingIndexEntry
	if err := cursor.All(opCtx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode booking index entries: %w", err)
	}
	return entries, nil
}

func (r *MongoBookingIndexRepo) MarkRefunded(ctx context.Context, reservationID string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(opCtx,
		bson.M{"reservation_id": reservationID, "refunded": false},
		bson.M{"$set": bson.M{"refunded": true, "refunded_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark reservation refunded: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *MongoBookingIndexRepo) UnmarkRefunded(ctx context.Context, reservationID string) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.UpdateOne(opCtx,
		bson.M{"reservation_id": reservationID},
		bson.M{"$set": bson.M{"refunded": false}, "$unset": bson.M{"refunded_at": ""}},
	)
	if err != nil {
		return fmt.Errorf("failed to unmark refunded reservation: %w", err)
	}
	return nil
}

func (r *MongoBookingIndexRepo) SetRefundRef(ctx context.Context, reservationID, refundRef string) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.UpdateOne(opCtx,
		bson.M{"reservation_id": reservationID},
		bson.M{"$set": bson.M{"refund_ref": refundRef}},
	)
	if err != nil {
		return fmt.Errorf("failed to record refund reference: %w", err)
	}
	return nil
}
