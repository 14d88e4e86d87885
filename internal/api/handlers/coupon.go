package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type CouponHandler struct {
	couponService service.CouponService
	validator     *validator.Validate
}

func NewCouponHandler(couponService service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService, validator: validator.New()}
}

// CreateCoupon godoc
//
//	@Summary		Create a coupon (Admin)
//	@Tags			Coupons
//	@Accept			json
//	@Produce		json
//	@Param			coupon	body		models.CreateCouponRequest	true	"Coupon definition"
//	@Success		201		{object}	models.Coupon				"Coupon created"
//	@Failure		400		{object}	response.ErrorResponse		"Validation error"
//	@Failure		403		{object}	response.ErrorResponse		"Admin access required"
//	@Failure		409		{object}	response.ErrorResponse		"Code already exists"
//	@Security		BearerAuth
//	@Router			/admin/coupons [post]
func (h *CouponHandler) CreateCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateCouponRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create coupon input")

			return
		}

		coupon, err := h.couponService.CreateCoupon(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to create coupon", slog.String("code", req.Code), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Coupon created", slog.String("code", coupon.Code))
		response.Success(w, http.StatusCreated, coupon)
	}
}

// ValidateCoupon godoc
//
//	@Summary		Validate a coupon against a cart total
//	@Description	Quotes the discount a coupon gives on the cart total. Rejections carry a reason code such as COUPON_EXPIRED or COUPON_MIN_CART_VALUE.
//	@Tags			Coupons
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.ValidateCouponRequest	true	"Coupon code and cart total in minor units"
//	@Success		200		{object}	models.ValidateCouponResponse	"Discount quote"
//	@Failure		400		{object}	response.ErrorResponse			"Validation error"
//	@Failure		401		{object}	response.ErrorResponse			"Authentication required"
//	@Failure		404		{object}	response.ErrorResponse			"Coupon not found"
//	@Failure		422		{object}	response.ErrorResponse			"Coupon rejected"
//	@Security		BearerAuth
//	@Router			/coupons/validate [post]
func (h *CouponHandler) ValidateCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, logger, ok := requireClaims(w, r, "validate coupon")
		if !ok {
			return
		}

		var req models.ValidateCouponRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid validate coupon input")

			return
		}

		quote, err := h.couponService.ValidateCoupon(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Info("Coupon rejected", slog.String("code", req.Code), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, quote)
	}
}

// AvailableCoupons godoc
//
//	@Summary		List coupons usable on a cart total
//	@Description	Returns every eligible coupon with its discount, best first.
//	@Tags			Coupons
//	@Produce		json
//	@Param			cartTotal	query		int								true	"Cart total in minor units"	minimum(0)
//	@Success		200			{object}	models.AvailableCouponsResponse	"Eligible coupons"
//	@Failure		400			{object}	response.ErrorResponse			"Invalid cart total"
//	@Failure		401			{object}	response.ErrorResponse			"Authentication required"
//	@Security		BearerAuth
//	@Router			/coupons/available [get]
func (h *CouponHandler) AvailableCoupons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, logger, ok := requireClaims(w, r, "available coupons")
		if !ok {
			return
		}

		cartTotal, err := strconv.ParseInt(r.URL.Query().Get("cartTotal"), 10, 64)
		if err != nil || cartTotal < 0 {
			response.Error(w, errors.BadRequestError("cartTotal must be a non-negative integer"))

			return
		}

		available, err := h.couponService.AvailableCoupons(r.Context(), claims.UserID, cartTotal)
		if err != nil {
			logger.Error("Failed to list available coupons", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, available)
	}
}
