package service

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CouponService interface {
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error)
	ValidateCoupon(ctx context.Context, userID uuid.UUID, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, error)
	AvailableCoupons(ctx context.Context, userID uuid.UUID, cartTotal int64) (*models.AvailableCouponsResponse, error)
	// ResolveCoupon reads the coupon from the database, bypassing the cache,
	// together with the user's redemption count. Checkout prices against it.
	ResolveCoupon(ctx context.Context, userID uuid.UUID, code string) (*pricing.CouponSelection, error)
}

type couponService struct {
	repo     repository.CouponRepository
	cartRepo repository.CartRepository
	engine   *pricing.Engine
	cache    cache.Cache
	ttl      time.Duration
	currency string
}

func NewCouponService(repo repository.CouponRepository, cartRepo repository.CartRepository, engine *pricing.Engine, c cache.Cache, ttl time.Duration, currency string) CouponService {
	return &couponService{
		repo:     repo,
		cartRepo: cartRepo,
		engine:   engine,
		cache:    c,
		ttl:      ttl,
		currency: currency,
	}
}

func (s *couponService) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error) {
	logger := middleware.LoggerFromContext(ctx)

	value, err := decimal.NewFromString(req.DiscountValue)
	if err != nil {
		return nil, errors.AddValidationError("discount_value", "must be a number")
	}

	currency := s.currency
	if req.Currency != "" {
		if currency, err = money.NormalizeCurrency(req.Currency); err != nil {
			return nil, errors.AddValidationError("currency", "must be an ISO 4217 code")
		}
	}

	coupon := &models.Coupon{
		ID:                   uuid.New(),
		Code:                 models.NormalizeCouponCode(req.Code),
		Description:          utils.SanitizeText(req.Description),
		DiscountType:         models.DiscountType(req.DiscountType),
		DiscountValue:        value,
		Currency:             currency,
		MinCartValue:         money.New(req.MinCartValue, currency),
		StartDate:            req.StartDate,
		ExpiryDate:           req.ExpiryDate,
		IsActive:             true,
		UsageLimit:           req.UsageLimit,
		PerUserLimit:         req.PerUserLimit,
		ApplicableCategories: req.ApplicableCategories,
		ApplicableProducts:   req.ApplicableProducts,
	}

	if req.MaxDiscount != nil {
		maxDiscount := money.New(*req.MaxDiscount, currency)
		coupon.MaxDiscount = &maxDiscount
	}

	if err := coupon.Validate(); err != nil {
		return nil, errors.ValidationError(err.Error())
	}

	if err := s.repo.CreateCoupon(ctx, coupon); err != nil {
		if stdErrors.Is(err, repository.ErrDuplicateCoupon) {
			return nil, errors.DuplicateEntryError("A coupon with this code already exists")
		}

		return nil, errors.DatabaseError("Failed to create coupon").WithError(err)
	}

	if err := s.cache.Delete(ctx, cache.Key(cache.ActiveCouponsKeyPrefix, "all")); err != nil {
		logger.Warn("Failed to invalidate active coupons", slog.String("error", err.Error()))
	}

	return coupon, nil
}

// ValidateCoupon checks code against the cart total the client reports. The
// stored cart supplies the product and category sets for restricted coupons.
func (s *couponService) ValidateCoupon(ctx context.Context, userID uuid.UUID, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, error) {
	code := models.NormalizeCouponCode(req.Code)

	coupon, err := cache.Remember(ctx, s.cache, cache.Key(cache.CouponKeyPrefix, code), s.ttl,
		func(ctx context.Context) (*models.Coupon, error) {
			return s.repo.GetCouponByCode(ctx, code)
		})
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			metrics.CouponRejected(errors.ErrCodeCouponNotFound)

			return nil, errors.CouponRejected(errors.ErrCodeCouponNotFound, "Invalid coupon code")
		}

		return nil, errors.DatabaseError("Failed to load coupon").WithError(err)
	}

	used, err := s.userUsage(ctx, coupon, userID)
	if err != nil {
		return nil, err
	}

	in, err := s.couponInput(ctx, userID, req.CartTotal)
	if err != nil {
		return nil, err
	}

	result, err := pricing.ValidateCoupon(coupon, in, used)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			metrics.CouponRejected(appErr.Code)
		}

		return nil, err
	}

	return &models.ValidateCouponResponse{
		Code:           coupon.Code,
		DiscountAmount: result.DiscountAmount,
		PayableAmount:  result.PayableAmount,
	}, nil
}

func (s *couponService) AvailableCoupons(ctx context.Context, userID uuid.UUID, cartTotal int64) (*models.AvailableCouponsResponse, error) {
	now := s.engine.Now()

	coupons, err := cache.Remember(ctx, s.cache, cache.Key(cache.ActiveCouponsKeyPrefix, "all"), s.ttl,
		func(ctx context.Context) ([]*models.Coupon, error) {
			return s.repo.ListActiveCoupons(ctx, now)
		})
	if err != nil {
		return nil, errors.DatabaseError("Failed to list coupons").WithError(err)
	}

	in, err := s.couponInput(ctx, userID, cartTotal)
	if err != nil {
		return nil, err
	}

	usage := make(map[uuid.UUID]int, len(coupons))

	for _, c := range coupons {
		if c.PerUserLimit == nil {
			continue
		}

		n, err := s.userUsage(ctx, c, userID)
		if err != nil {
			return nil, err
		}

		usage[c.ID] = n
	}

	best, eligible := pricing.BestCoupon(coupons, in, func(c *models.Coupon) int { return usage[c.ID] })

	resp := &models.AvailableCouponsResponse{Eligible: make([]models.ValidateCouponResponse, 0, len(eligible))}

	for _, r := range eligible {
		resp.Eligible = append(resp.Eligible, models.ValidateCouponResponse{
			Code:           r.Coupon.Code,
			DiscountAmount: r.DiscountAmount,
			PayableAmount:  r.PayableAmount,
		})
	}

	if best != nil {
		resp.Best = &resp.Eligible[0]
	}

	return resp, nil
}

func (s *couponService) ResolveCoupon(ctx context.Context, userID uuid.UUID, code string) (*pricing.CouponSelection, error) {
	coupon, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			metrics.CouponRejected(errors.ErrCodeCouponNotFound)

			return nil, errors.CouponRejected(errors.ErrCodeCouponNotFound, "Invalid coupon code")
		}

		return nil, errors.DatabaseError("Failed to load coupon").WithError(err)
	}

	used, err := s.userUsage(ctx, coupon, userID)
	if err != nil {
		return nil, err
	}

	return &pricing.CouponSelection{Coupon: coupon, UserUsage: used}, nil
}

func (s *couponService) userUsage(ctx context.Context, coupon *models.Coupon, userID uuid.UUID) (int, error) {
	if coupon.PerUserLimit == nil {
		return 0, nil
	}

	n, err := s.repo.CountUserRedemptions(ctx, coupon.ID, userID)
	if err != nil {
		return 0, errors.DatabaseError("Failed to count coupon redemptions").WithError(err)
	}

	return n, nil
}

func (s *couponService) couponInput(ctx context.Context, userID uuid.UUID, cartTotal int64) (pricing.CouponInput, error) {
	in := pricing.CouponInput{
		CartTotal: money.New(cartTotal, s.currency),
		Now:       s.engine.Now(),
	}

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return in, nil
		}

		return in, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	in.ProductIDs = cart.ProductIDs()
	in.CategoryIDs = cart.CategoryIDs()

	return in, nil
}
