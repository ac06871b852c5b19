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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	FindByDate(ctx context.Context, date string, statuses ...string) ([]*model.Booking, error)
	FindOpenUntil(ctx context.Context, date string) ([]*model.Booking, error)
	// Update replaces the booking if it still carries expectedUpdatedAt.
	Update(ctx context.Context, booking *model.Booking, expectedUpdatedAt time.Time) error
	AddNote(ctx context.Context, id string, note model.Note) error
	MarkOverdue(ctx context.Context, ids []string) (int64, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, from, to string) (*model.BookingStats, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config, txManager mongotx.TransactionManager) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  txManager,
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = primitive.NewObjectID().Hex()
	}
	if booking.Notes == nil {
		booking.Notes = []model.Note{}
	}
	booking.CreatedAt = now()
	booking.UpdatedAt = booking.CreatedAt

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func buildFilter(f model.BookingFilter) bson.M {
	filter := bson.M{}
	if f.CustomerID != "" {
		filter["customer_id"] = f.CustomerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.DateFrom != "" || f.DateTo != "" {
		dates := bson.M{}
		if f.DateFrom != "" {
			dates["$gte"] = f.DateFrom
		}
		if f.DateTo != "" {
			dates["$lte"] = f.DateTo
		}
		filter["scheduled_date"] = dates
	}
	return filter
}

var scheduleSort = bson.D{{Key: "scheduled_date", Value: 1}, {Key: "scheduled_time", Value: 1}}

func (r *mongoBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(scheduleSort).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, buildFilter(filter), opts)
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// FindByDate returns the bookings on date, optionally restricted to statuses.
func (r *mongoBookingRepository) FindByDate(ctx context.Context, date string, statuses ...string) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"scheduled_date": date}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.find(ctx, filter, options.Find().SetSort(scheduleSort))
}

// FindOpenUntil returns non-terminal bookings not yet flagged overdue that
// are scheduled on or before date.
func (r *mongoBookingRepository) FindOpenUntil(ctx context.Context, date string) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"scheduled_date": bson.M{"$lte": date},
		"status": bson.M{"$in": []string{
			model.BookingStatusPending,
			model.BookingStatusConfirmed,
			model.BookingStatusInProgress,
		}},
		"overdue": bson.M{"$ne": true},
	}
	return r.find(ctx, filter, options.Find().SetSort(scheduleSort))
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Update(ctx context.Context, booking *model.Booking, expectedUpdatedAt time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if !primitive.IsValidObjectID(booking.ID) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	previous := booking.UpdatedAt
	booking.UpdatedAt = now()
	filter := bson.M{"_id": booking.ID, "updated_at": expectedUpdatedAt.UTC()}

	result, err := r.collection.ReplaceOne(ctx, filter, booking)
	if err != nil {
		booking.UpdatedAt = previous
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		booking.UpdatedAt = previous
		return r.missOrConflict(ctx, booking.ID)
	}
	return nil
}

func (r *mongoBookingRepository) missOrConflict(ctx context.Context, id string) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check booking existence: %w", err)
	}
	if count == 0 {
		return bookingserrors.ErrNotFound
	}
	return fmt.Errorf("%w: %s", bookingserrors.ErrConcurrentModification, id)
}

func (r *mongoBookingRepository) AddNote(ctx context.Context, id string, note model.Note) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if !primitive.IsValidObjectID(id) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"updated_at": now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) MarkOverdue(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"overdue": true, "updated_at": now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to flag overdue bookings: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

type statusBucket struct {
	Status  string `bson:"_id"`
	Count   int64  `bson:"count"`
	Revenue int64  `bson:"revenue"`
}

// Stats counts bookings per status in [from, to] and sums the total of completed ones.
func (r *mongoBookingRepository) Stats(ctx context.Context, from, to string) (*model.BookingStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(model.BookingFilter{DateFrom: from, DateTo: to})}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total_amount"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate booking stats: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []statusBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode booking stats: %w", err)
	}

	return summarizeStats(from, to, buckets), nil
}

func summarizeStats(from, to string, buckets []statusBucket) *model.BookingStats {
	stats := &model.BookingStats{From: from, To: to, ByStatus: map[string]int64{}}
	for _, b := range buckets {
		stats.ByStatus[b.Status] = b.Count
		stats.Total += b.Count
		if b.Status == model.BookingStatusCompleted {
			stats.Revenue = b.Revenue
		}
	}
	return stats
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
