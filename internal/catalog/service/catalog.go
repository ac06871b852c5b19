package service

import (
	"context"
	"errors"
	"sync"

	catalogerrors "cardetail/internal/catalog/errors"
	"cardetail/internal/catalog/repository"
	"cardetail/internal/catalog/validator"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"
	"cardetail/pkg/sanitizer"
	"cardetail/pkg/validation"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CatalogService interface {
	Create(ctx context.Context, svc *model.Service, actor model.Actor) error
	GetByID(ctx context.Context, id string) (*model.Service, error)
	GetAll(ctx context.Context, filter repository.ServiceFilter, limit int, offset int64) ([]*model.Service, int64, error)
	Update(ctx context.Context, id string, updates *model.ServiceUpdate, actor model.Actor) (*model.Service, error)
	Resolve(ctx context.Context, req model.ServiceRequest) (*model.Service, error)
}

type catalogService struct {
	repo      repository.ServiceRepository
	validator *validator.ServiceValidator
	log       *logger.Logger
}

func NewCatalogService(repo repository.ServiceRepository, validator *validator.ServiceValidator, log *logger.Logger) CatalogService {
	return &catalogService{
		repo:      repo,
		validator: validator,
		log:       log,
	}
}

func (s *catalogService) Create(ctx context.Context, svc *model.Service, actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can manage the service catalog")
	}

	sanitizeService(svc)
	if err := s.validator.Validate(svc); err != nil {
		s.log.Warn("Service validation failed", "name", svc.Name, "error", err)
		return validation.AsAppError(err)
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		if errors.Is(err, catalogerrors.ErrDuplicateName) {
			return apperrors.Conflict("Service " + svc.Name + " already exists")
		}
		s.log.Error("Failed to create service", "name", svc.Name, "error", err)
		return apperrors.Internal("Failed to create service", err)
	}

	s.log.Info("Service created", "id", svc.ID, "name", svc.Name, "category", svc.Category)
	return nil
}

// GetByID accepts either the hex id or the service's slug.
func (s *catalogService) GetByID(ctx context.Context, id string) (*model.Service, error) {
	if !primitive.IsValidObjectID(id) {
		svc, err := s.repo.FindBySlug(ctx, slug.Make(id))
		if err != nil {
			return nil, translateError(err, id)
		}
		return svc, nil
	}

	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, id)
	}
	return svc, nil
}

func (s *catalogService) GetAll(ctx context.Context, filter repository.ServiceFilter, limit int, offset int64) ([]*model.Service, int64, error) {
	filter.Category = sanitizer.NormalizeKeyword(filter.Category)

	var count int64
	var services []*model.Service
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		services, errFind = s.repo.FindAll(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		s.log.Error("Failed to count services", "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count services", errCount)
	}
	if errFind != nil {
		s.log.Error("Failed to list services", "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve services", errFind)
	}
	return services, count, nil
}

func (s *catalogService) Update(ctx context.Context, id string, updates *model.ServiceUpdate, actor model.Actor) (*model.Service, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can manage the service catalog")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validation.AsAppError(err)
	}

	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, id)
	}

	mergeServiceUpdate(svc, updates)
	sanitizeService(svc)
	if err := s.validator.Validate(svc); err != nil {
		s.log.Warn("Service update validation failed", "id", id, "error", err)
		return nil, validation.AsAppError(err)
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		if errors.Is(err, catalogerrors.ErrDuplicateName) {
			return nil, apperrors.Conflict("Service " + svc.Name + " already exists")
		}
		s.log.Error("Failed to update service", "id", id, "error", err)
		return nil, translateError(err, id)
	}

	s.log.Info("Service updated", "id", id)
	return svc, nil
}

// Resolve finds the service a booking line refers to: by id first, then by
// name among active services. Inactive services are treated as missing.
func (s *catalogService) Resolve(ctx context.Context, req model.ServiceRequest) (*model.Service, error) {
	ref := req.ServiceID
	if ref != "" {
		svc, err := s.repo.FindByID(ctx, ref)
		switch {
		case err == nil:
			if !svc.IsActive {
				return nil, apperrors.NotFound("Service " + svc.Name + " is not available")
			}
			return svc, nil
		case errors.Is(err, catalogerrors.ErrNotFound), errors.Is(err, catalogerrors.ErrInvalidID):
			if req.Name == "" {
				return nil, apperrors.NotFoundWithID("Service", ref)
			}
		default:
			s.log.Error("Failed to resolve service", "service_id", ref, "error", err)
			return nil, apperrors.Internal("Failed to resolve service", err)
		}
	}

	name := sanitizer.NormalizeName(req.Name)
	svc, err := s.repo.FindActiveByName(ctx, name)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return nil, apperrors.NotFound("Service " + name + " not found")
		}
		s.log.Error("Failed to resolve service", "name", name, "error", err)
		return nil, apperrors.Internal("Failed to resolve service", err)
	}
	return svc, nil
}

func translateError(err error, id string) error {
	switch {
	case errors.Is(err, catalogerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Service", id)
	case errors.Is(err, catalogerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid service ID: " + id)
	default:
		return apperrors.Internal("Failed to retrieve service", err)
	}
}

func sanitizeService(svc *model.Service) {
	svc.Name = sanitizer.NormalizeName(svc.Name)
	svc.Slug = slug.Make(svc.Name)
	svc.Description = sanitizer.NormalizeFreeText(svc.Description)
	svc.Category = sanitizer.NormalizeKeyword(svc.Category)
	if len(svc.VehiclePrices) > 0 {
		prices := make(map[string]int64, len(svc.VehiclePrices))
		for vehicleType, price := range svc.VehiclePrices {
			prices[sanitizer.NormalizeVehicleType(vehicleType)] = price
		}
		svc.VehiclePrices = prices
	}
}

func mergeServiceUpdate(svc *model.Service, u *model.ServiceUpdate) {
	if u.Name != "" {
		svc.Name = u.Name
	}
	if u.Description != nil {
		svc.Description = *u.Description
	}
	if u.Category != "" {
		svc.Category = u.Category
	}
	if u.BasePrice != nil {
		svc.BasePrice = *u.BasePrice
	}
	if u.VehiclePrices != nil {
		svc.VehiclePrices = u.VehiclePrices
	}
	if u.SeasonalAdjustments != nil {
		svc.SeasonalAdjustments = *u.SeasonalAdjustments
	}
	if u.Duration != nil {
		svc.Duration = *u.Duration
	}
	if u.IsActive != nil {
		svc.IsActive = *u.IsActive
	}
}
