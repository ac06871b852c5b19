package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	promoerrors "cardetail/internal/promocodes/errors"
	"cardetail/pkg/config"
	mongotx "cardetail/pkg/db/mongo"
	"cardetail/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Promo_codes"
)

type PromoCodeRepository interface {
	Create(ctx context.Context, promo *model.PromoCode) error
	FindByCode(ctx context.Context, code string) (*model.PromoCode, error)
	FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.PromoCode, error)
	Count(ctx context.Context, activeOnly bool) (int64, error)
	Update(ctx context.Context, promo *model.PromoCode) error
	ApplyUsage(ctx context.Context, code string, usage model.PromoUsage, maxUsage *int, maxUsagePerUser int) error
}

type mongoPromoCodeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPromoCodeRepository(cfg *config.Config) PromoCodeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPromoCodeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPromoCodeRepository) Create(ctx context.Context, promo *model.PromoCode) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if promo.ID == "" {
		promo.ID = primitive.NewObjectID().Hex()
	}
	if promo.UsageHistory == nil {
		promo.UsageHistory = []model.PromoUsage{}
	}
	promo.CreatedAt = now
	promo.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, promo); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", promoerrors.ErrDuplicateCode, promo.Code)
		}
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	return nil
}

func (r *mongoPromoCodeRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var promo model.PromoCode
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&promo)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, promoerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find promo code: %w", err)
	}
	return &promo, nil
}

func listFilter(activeOnly bool) bson.M {
	if activeOnly {
		return bson.M{"is_active": true}
	}
	return bson.M{}
}

func (r *mongoPromoCodeRepository) FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.PromoCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetProjection(bson.M{"usage_history": 0})

	cursor, err := r.collection.Find(ctx, listFilter(activeOnly), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find promo codes: %w", err)
	}
	defer cursor.Close(ctx)

	var promos []*model.PromoCode
	if err = cursor.All(ctx, &promos); err != nil {
		return nil, fmt.Errorf("failed to decode promo codes: %w", err)
	}
	return promos, nil
}

func (r *mongoPromoCodeRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, listFilter(activeOnly))
	if err != nil {
		return 0, fmt.Errorf("failed to count promo codes: %w", err)
	}
	return count, nil
}

// Update writes the administrator-controlled fields. Usage counters are
// only ever changed by ApplyUsage.
func (r *mongoPromoCodeRepository) Update(ctx context.Context, promo *model.PromoCode) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	promo.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"name":                 promo.Name,
		"description":          promo.Description,
		"type":                 promo.Type,
		"value":                promo.Value,
		"minimum_order_amount": promo.MinimumOrderAmount,
		"max_usage_per_user":   promo.MaxUsagePerUser,
		"is_active":            promo.IsActive,
		"valid_from":           promo.ValidFrom,
		"valid_until":          promo.ValidUntil,
		"applicable_services":  promo.ApplicableServices,
		"applicable_users":     promo.ApplicableUsers,
		"excluded_users":       promo.ExcludedUsers,
		"updated_at":           promo.UpdatedAt,
	}
	unset := bson.M{}
	if promo.MaximumDiscountAmount != nil {
		set["maximum_discount_amount"] = *promo.MaximumDiscountAmount
	} else {
		unset["maximum_discount_amount"] = ""
	}
	if promo.MaxUsage != nil {
		set["max_usage"] = *promo.MaxUsage
	} else {
		unset["max_usage"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"code": promo.Code}, update)
	if err != nil {
		return fmt.Errorf("failed to update promo code: %w", err)
	}
	if result.MatchedCount == 0 {
		return promoerrors.ErrNotFound
	}
	return nil
}

// ApplyUsage records one usage in a single conditional update. The filter
// re-checks the global cap, the per-user cap and booking uniqueness, so
// concurrent applies cannot overshoot and currentUsage stays equal to the
// length of usage_history.
func (r *mongoPromoCodeRepository) ApplyUsage(ctx context.Context, code string, usage model.PromoUsage, maxUsage *int, maxUsagePerUser int) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := applyUsageFilter(code, usage, maxUsage, maxUsagePerUser)
	update := bson.M{
		"$inc":  bson.M{"current_usage": 1},
		"$push": bson.M{"usage_history": usage},
		"$set":  bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to apply promo code usage: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", promoerrors.ErrUsageRejected, code)
	}
	return nil
}

func applyUsageFilter(code string, usage model.PromoUsage, maxUsage *int, maxUsagePerUser int) bson.M {
	userUses := bson.M{"$size": bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$usage_history", bson.A{}}},
		"as":    "u",
		"cond":  bson.M{"$eq": bson.A{"$$u.user_id", usage.UserID}},
	}}}

	filter := bson.M{
		"code":                     code,
		"is_active":                true,
		"usage_history.booking_id": bson.M{"$ne": usage.BookingID},
		"$expr":                    bson.M{"$lt": bson.A{userUses, maxUsagePerUser}},
	}
	if maxUsage != nil {
		filter["current_usage"] = bson.M{"$lt": *maxUsage}
	}
	return filter
}
