package service

import (
	"context"
	"errors"
	"sync"
	"time"

	promoerrors "cardetail/internal/promocodes/errors"
	"cardetail/internal/promocodes/evaluator"
	"cardetail/internal/promocodes/repository"
	"cardetail/internal/promocodes/validator"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"
	"cardetail/pkg/sanitizer"
	"cardetail/pkg/validation"
)

type PromoCodeService interface {
	Create(ctx context.Context, promo *model.PromoCode, actor model.Actor) error
	GetByCode(ctx context.Context, code string, actor model.Actor) (*model.PromoCode, error)
	GetAll(ctx context.Context, activeOnly bool, limit int, offset int64, actor model.Actor) ([]*model.PromoCode, int64, error)
	Update(ctx context.Context, code string, updates *model.PromoCodeUpdate, actor model.Actor) (*model.PromoCode, error)
	Deactivate(ctx context.Context, code string, actor model.Actor) error
	Check(ctx context.Context, req *model.ValidatePromoRequest) (*model.ValidatePromoResponse, error)
	Quote(ctx context.Context, code, userID string, orderAmount int64, serviceIDs []string) (int64, error)
	Apply(ctx context.Context, code, userID, bookingID string, orderAmount, discountAmount int64, serviceIDs []string) error
}

type promoCodeService struct {
	repo      repository.PromoCodeRepository
	validator *validator.PromoCodeValidator
	log       *logger.Logger
	now       func() time.Time
}

func NewPromoCodeService(repo repository.PromoCodeRepository, validator *validator.PromoCodeValidator, log *logger.Logger) PromoCodeService {
	return &promoCodeService{
		repo:      repo,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
}

func (s *promoCodeService) Create(ctx context.Context, promo *model.PromoCode, actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can create promo codes")
	}

	s.sanitize(promo)
	if promo.MaxUsagePerUser == 0 {
		promo.MaxUsagePerUser = model.DefaultMaxUsagePerUser
	}
	promo.ID = ""
	promo.CurrentUsage = 0
	promo.UsageHistory = []model.PromoUsage{}
	promo.CreatedBy = actor.ID

	if err := s.validator.Validate(promo); err != nil {
		s.log.Warn("Promo code validation failed", "code", promo.Code, "error", err)
		return validation.AsAppError(err)
	}

	if err := s.repo.Create(ctx, promo); err != nil {
		if errors.Is(err, promoerrors.ErrDuplicateCode) {
			return apperrors.Conflict("Promo code " + promo.Code + " already exists")
		}
		s.log.Error("Failed to create promo code", "code", promo.Code, "error", err)
		return apperrors.Internal("Failed to create promo code", err)
	}

	s.log.Info("Promo code created", "code", promo.Code, "type", promo.Type, "value", promo.Value)
	return nil
}

func (s *promoCodeService) GetByCode(ctx context.Context, code string, actor model.Actor) (*model.PromoCode, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can view promo codes")
	}
	return s.find(ctx, code)
}

func (s *promoCodeService) find(ctx context.Context, code string) (*model.PromoCode, error) {
	code = sanitizer.NormalizePromoCode(code)
	if code == "" {
		return nil, apperrors.InvalidInput("Promo code cannot be empty")
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, promoerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Promo code", code)
		}
		return nil, apperrors.Internal("Failed to retrieve promo code", err)
	}
	return promo, nil
}

func (s *promoCodeService) GetAll(ctx context.Context, activeOnly bool, limit int, offset int64, actor model.Actor) ([]*model.PromoCode, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only administrators can list promo codes")
	}

	var count int64
	var promos []*model.PromoCode
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, activeOnly)
	}()

	go func() {
		defer wg.Done()
		promos, errFind = s.repo.FindAll(ctx, activeOnly, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		s.log.Error("Failed to count promo codes", "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count promo codes", errCount)
	}
	if errFind != nil {
		s.log.Error("Failed to list promo codes", "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve promo codes", errFind)
	}
	return promos, count, nil
}

func (s *promoCodeService) Update(ctx context.Context, code string, updates *model.PromoCodeUpdate, actor model.Actor) (*model.PromoCode, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can update promo codes")
	}
	if updates == nil {
		return nil, apperrors.InvalidInput("Update body is required")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validation.AsAppError(err)
	}

	promo, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}

	mergePromoUpdate(promo, updates)
	s.sanitize(promo)

	if err := s.validator.Validate(promo); err != nil {
		s.log.Warn("Promo code update validation failed", "code", promo.Code, "error", err)
		return nil, validation.AsAppError(err)
	}

	if err := s.repo.Update(ctx, promo); err != nil {
		if errors.Is(err, promoerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Promo code", promo.Code)
		}
		s.log.Error("Failed to update promo code", "code", promo.Code, "error", err)
		return nil, apperrors.Internal("Failed to update promo code", err)
	}

	s.log.Info("Promo code updated", "code", promo.Code)
	return promo, nil
}

func (s *promoCodeService) Deactivate(ctx context.Context, code string, actor model.Actor) error {
	inactive := false
	_, err := s.Update(ctx, code, &model.PromoCodeUpdate{IsActive: &inactive}, actor)
	return err
}

// Check answers "would this code apply" without consuming it.
func (s *promoCodeService) Check(ctx context.Context, req *model.ValidatePromoRequest) (*model.ValidatePromoResponse, error) {
	req.Code = sanitizer.NormalizePromoCode(req.Code)
	req.ServiceIDs = sanitizer.NormalizeIDs(req.ServiceIDs)
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, validation.AsAppError(err)
	}

	promo, err := s.find(ctx, req.Code)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return &model.ValidatePromoResponse{Valid: false, Reason: "Invalid promo code"}, nil
		}
		return nil, err
	}

	res := evaluator.Validate(promo, req.UserID, req.OrderAmount, req.ServiceIDs, s.now())
	if !res.Valid {
		return &model.ValidatePromoResponse{Valid: false, Reason: res.Reason}, nil
	}
	return &model.ValidatePromoResponse{
		Valid:          true,
		DiscountAmount: evaluator.CalculateDiscount(promo, req.OrderAmount),
	}, nil
}

// Quote validates the code for an order and returns the discount it grants.
// An ineligible code is a validation error carrying the evaluator's reason.
func (s *promoCodeService) Quote(ctx context.Context, code, userID string, orderAmount int64, serviceIDs []string) (int64, error) {
	promo, err := s.find(ctx, code)
	if err != nil {
		return 0, err
	}

	res := evaluator.Validate(promo, userID, orderAmount, serviceIDs, s.now())
	if !res.Valid {
		s.log.Warn("Promo code rejected", "code", promo.Code, "user_id", userID, "reason", res.Reason)
		return 0, apperrors.Validation(res.Reason, map[string]any{"promo_code": promo.Code})
	}
	return evaluator.CalculateDiscount(promo, orderAmount), nil
}

// Apply re-runs the eligibility checks, then records the usage atomically.
func (s *promoCodeService) Apply(ctx context.Context, code, userID, bookingID string, orderAmount, discountAmount int64, serviceIDs []string) error {
	promo, err := s.find(ctx, code)
	if err != nil {
		return err
	}

	now := s.now()
	candidate := *promo
	candidate.UsageHistory = append([]model.PromoUsage(nil), promo.UsageHistory...)
	if res := evaluator.Apply(&candidate, userID, bookingID, orderAmount, discountAmount, serviceIDs, now); !res.Valid {
		s.log.Warn("Promo code apply rejected", "code", promo.Code, "booking_id", bookingID, "reason", res.Reason)
		return apperrors.Validation(res.Reason, map[string]any{"promo_code": promo.Code})
	}

	usage := candidate.UsageHistory[len(candidate.UsageHistory)-1]
	perUser := max(promo.MaxUsagePerUser, model.DefaultMaxUsagePerUser)
	if err := s.repo.ApplyUsage(ctx, promo.Code, usage, promo.MaxUsage, perUser); err != nil {
		if errors.Is(err, promoerrors.ErrUsageRejected) {
			s.log.Warn("Promo code usage lost a concurrent race", "code", promo.Code, "booking_id", bookingID)
			return apperrors.Conflict("Promo code can no longer be applied")
		}
		s.log.Error("Failed to apply promo code", "code", promo.Code, "booking_id", bookingID, "error", err)
		return apperrors.Internal("Failed to apply promo code", err)
	}

	s.log.Info("Promo code applied",
		"code", promo.Code,
		"user_id", userID,
		"booking_id", bookingID,
		"discount_amount", discountAmount,
	)
	return nil
}

func (s *promoCodeService) sanitize(promo *model.PromoCode) {
	promo.Code = sanitizer.NormalizePromoCode(promo.Code)
	promo.Name = sanitizer.NormalizeName(promo.Name)
	promo.Description = sanitizer.NormalizeFreeText(promo.Description)
	promo.Type = sanitizer.NormalizeKeyword(promo.Type)
	promo.ApplicableServices = sanitizer.NormalizeIDs(promo.ApplicableServices)
	promo.ApplicableUsers = sanitizer.NormalizeIDs(promo.ApplicableUsers)
	promo.ExcludedUsers = sanitizer.NormalizeIDs(promo.ExcludedUsers)
}

func mergePromoUpdate(promo *model.PromoCode, u *model.PromoCodeUpdate) {
	if u.Name != "" {
		promo.Name = u.Name
	}
	if u.Description != nil {
		promo.Description = *u.Description
	}
	if u.Type != "" {
		promo.Type = u.Type
	}
	if u.Value != nil {
		promo.Value = *u.Value
	}
	if u.MinimumOrderAmount != nil {
		promo.MinimumOrderAmount = *u.MinimumOrderAmount
	}
	if u.MaximumDiscountAmount != nil {
		promo.MaximumDiscountAmount = u.MaximumDiscountAmount
	}
	if u.MaxUsage != nil {
		promo.MaxUsage = u.MaxUsage
	}
	if u.MaxUsagePerUser != nil {
		promo.MaxUsagePerUser = *u.MaxUsagePerUser
	}
	if u.IsActive != nil {
		promo.IsActive = *u.IsActive
	}
	if u.ValidFrom != nil {
		promo.ValidFrom = *u.ValidFrom
	}
	if u.ValidUntil != nil {
		promo.ValidUntil = *u.ValidUntil
	}
	if u.ApplicableServices != nil {
		promo.ApplicableServices = *u.ApplicableServices
	}
	if u.ApplicableUsers != nil {
		promo.ApplicableUsers = *u.ApplicableUsers
	}
	if u.ExcludedUsers != nil {
		promo.ExcludedUsers = *u.ExcludedUsers
	}
}
