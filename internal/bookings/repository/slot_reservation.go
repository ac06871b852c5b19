package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "cardetail/internal/bookings/errors"
	"cardetail/pkg/config"
	mongotx "cardetail/pkg/db/mongo"
	"cardetail/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const ReservationCollectionName = "Slot_reservations"

// SlotReservationRepository claims (date, bucket) keys for bookings. The key
// is the document _id, so the unique index arbitrates concurrent claims.
type SlotReservationRepository interface {
	// Reserve claims every bucket for bookingID and returns the keys it
	// newly inserted. Buckets already held by the same booking are kept.
	// On collision the keys inserted by this call are removed again.
	Reserve(ctx context.Context, bookingID, date string, buckets []string, expiresAt time.Time) ([]string, error)
	Release(ctx context.Context, keys []string) error
	// ReleaseForBooking drops the booking's reservations except the keep keys.
	ReleaseForBooking(ctx context.Context, bookingID string, keep []string) error
}

type mongoSlotReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotReservationRepository(cfg *config.Config) SlotReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotReservationRepository{
		cfg:        cfg,
		collection: db.Collection(ReservationCollectionName),
	}
}

func (r *mongoSlotReservationRepository) Reserve(ctx context.Context, bookingID, date string, buckets []string, expiresAt time.Time) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	inserted := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		key := model.SlotKey(date, bucket)
		reservation := model.SlotReservation{
			ID:        key,
			BookingID: bookingID,
			Date:      date,
			Time:      bucket,
			ExpiresAt: expiresAt.UTC(),
			CreatedAt: now,
		}

		_, err := r.collection.InsertOne(ctx, reservation)
		if err == nil {
			inserted = append(inserted, key)
			continue
		}
		if mongo.IsDuplicateKeyError(err) {
			owned, ownErr := r.heldBy(ctx, key, bookingID)
			if ownErr == nil && owned {
				continue
			}
			err = fmt.Errorf("%w: %s", bookingserrors.ErrSlotTaken, key)
		} else {
			err = fmt.Errorf("failed to reserve slot %s: %w", key, err)
		}

		if releaseErr := r.Release(context.WithoutCancel(ctx), inserted); releaseErr != nil {
			return nil, errors.Join(err, releaseErr)
		}
		return nil, err
	}
	return inserted, nil
}

func (r *mongoSlotReservationRepository) heldBy(ctx context.Context, key, bookingID string) (bool, error) {
	var existing model.SlotReservation
	if err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&existing); err != nil {
		return false, err
	}
	return existing.BookingID == bookingID, nil
}

func (r *mongoSlotReservationRepository) Release(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}}); err != nil {
		return fmt.Errorf("failed to release slot reservations: %w", err)
	}
	return nil
}

func (r *mongoSlotReservationRepository) ReleaseForBooking(ctx context.Context, bookingID string, keep []string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"booking_id": bookingID}
	if len(keep) > 0 {
		filter["_id"] = bson.M{"$nin": keep}
	}
	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to release reservations for booking %s: %w", bookingID, err)
	}
	return nil
}
