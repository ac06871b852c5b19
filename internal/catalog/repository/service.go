package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogerrors "cardetail/internal/catalog/errors"
	"cardetail/pkg/config"
	mongotx "cardetail/pkg/db/mongo"
	"cardetail/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Services"
)

// nameCollation makes name lookups and the unique name index case-insensitive.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

type ServiceFilter struct {
	ActiveOnly bool
	Category   string
}

type ServiceRepository interface {
	Create(ctx context.Context, svc *model.Service) error
	FindByID(ctx context.Context, id string) (*model.Service, error)
	FindActiveByName(ctx context.Context, name string) (*model.Service, error)
	FindBySlug(ctx context.Context, slug string) (*model.Service, error)
	FindAll(ctx context.Context, filter ServiceFilter, limit int, offset int64) ([]*model.Service, error)
	Count(ctx context.Context, filter ServiceFilter) (int64, error)
	Update(ctx context.Context, svc *model.Service) error
}

type mongoServiceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoServiceRepository(cfg *config.Config) ServiceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoServiceRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoServiceRepository) Create(ctx context.Context, svc *model.Service) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	svc.ID = primitive.NewObjectID().Hex()
	svc.CreatedAt = now
	svc.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, svc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", catalogerrors.ErrDuplicateName, svc.Name)
		}
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *mongoServiceRepository) FindByID(ctx context.Context, id string) (*model.Service, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var svc model.Service
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&svc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &svc, nil
}

func (r *mongoServiceRepository) FindActiveByName(ctx context.Context, name string) (*model.Service, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetCollation(nameCollation)

	var svc model.Service
	err := r.collection.FindOne(ctx, bson.M{"name": name, "is_active": true}, opts).Decode(&svc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find service by name: %w", err)
	}
	return &svc, nil
}

func (r *mongoServiceRepository) FindBySlug(ctx context.Context, slug string) (*model.Service, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var svc model.Service
	if err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&svc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find service by slug: %w", err)
	}
	return &svc, nil
}

func listFilter(f ServiceFilter) bson.M {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["is_active"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	return filter
}

func (r *mongoServiceRepository) FindAll(ctx context.Context, filter ServiceFilter, limit int, offset int64) ([]*model.Service, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, listFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []*model.Service
	if err = cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}

func (r *mongoServiceRepository) Count(ctx context.Context, filter ServiceFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, listFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count services: %w", err)
	}
	return count, nil
}

func (r *mongoServiceRepository) Update(ctx context.Context, svc *model.Service) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	svc.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": svc.ID}, svc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", catalogerrors.ErrDuplicateName, svc.Name)
		}
		return fmt.Errorf("failed to update service: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalogerrors.ErrNotFound
	}
	return nil
}
