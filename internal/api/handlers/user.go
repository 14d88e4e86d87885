package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

const (
	RefreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

type UserHandler struct {
	userService  service.UserService
	validator    *validator.Validate
	cookieSecure bool
}

func NewUserHandler(userService service.UserService, security config.Security) *UserHandler {
	return &UserHandler{userService: userService, validator: validator.New(), cookieSecure: security.CookieSecure}
}

// Register godoc
//
//	@Summary		Register a new user
//	@Description	Creates a customer account and starts a session. The refresh token is set as an http-only cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			user	body		models.RegisterRequest	true	"Registration details"
//	@Success		201		{object}	models.LoginResponse	"Account created"
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		409		{object}	response.ErrorResponse	"Email already registered"
//	@Failure		500		{object}	response.ErrorResponse	"Internal server error"
//	@Router			/auth/register [post]
func (h *UserHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.RegisterRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid registration input")

			return
		}

		resp, err := h.userService.Register(r.Context(), &req)
		if err != nil {
			logger.Error("User registration failed", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		h.setRefreshCookie(w, resp.RefreshToken, resp.RefreshExpiry)

		logger.Info("User registered", slog.String("userId", resp.User.ID.String()))
		response.Success(w, http.StatusCreated, resp)
	}
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Exchanges credentials for an access token. The refresh token is set as an http-only cookie. Repeated failures are rate limited.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		models.LoginRequest		true	"Login credentials"
//	@Success		200			{object}	models.LoginResponse	"Logged in"
//	@Failure		400			{object}	response.ErrorResponse	"Validation error"
//	@Failure		401			{object}	response.ErrorResponse	"Invalid email or password"
//	@Failure		429			{object}	response.ErrorResponse	"Too many login attempts"
//	@Failure		500			{object}	response.ErrorResponse	"Internal server error"
//	@Router			/auth/login [post]
func (h *UserHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.LoginRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid login input")

			return
		}

		resp, err := h.userService.Login(r.Context(), &req)
		if err != nil {
			logger.Error("Login failed", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		if !resp.Success {
			status, code := http.StatusUnauthorized, errors.ErrCodeUnauthorized
			if resp.RetryAfter > 0 {
				status, code = http.StatusTooManyRequests, errors.ErrCodeTooManyRequests
				w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
			}

			logger.Warn("Login rejected", slog.Int("status", status), slog.Int("remainingTries", resp.RemainingTries))

			_ = response.WriteJSON(w, status, response.APIResponse{
				Success: false,
				Data:    resp,
				Error:   &response.ErrorResponse{Code: code, Message: resp.Message},
			})

			return
		}

		h.setRefreshCookie(w, resp.RefreshToken, resp.RefreshExpiry)

		logger.Info("User logged in", slog.String("userId", resp.User.ID.String()))
		response.Success(w, http.StatusOK, resp)
	}
}

// RefreshToken godoc
//
//	@Summary		Refresh the access token
//	@Description	Consumes the refresh token cookie and issues a new access token and refresh token.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	models.LoginResponse	"New access token"
//	@Failure		401	{object}	response.ErrorResponse	"Session expired"
//	@Failure		500	{object}	response.ErrorResponse	"Internal server error"
//	@Router			/auth/refresh-token [post]
func (h *UserHandler) RefreshToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var token string
		if cookie, err := r.Cookie(RefreshCookieName); err == nil {
			token = cookie.Value
		}

		resp, err := h.userService.Refresh(r.Context(), token)
		if err != nil {
			logger.Warn("Token refresh failed", slog.Any("error", err))
			h.clearRefreshCookie(w)
			response.Error(w, err)

			return
		}

		h.setRefreshCookie(w, resp.RefreshToken, resp.RefreshExpiry)

		logger.Info("Access token refreshed", slog.String("userId", resp.User.ID.String()))
		response.Success(w, http.StatusOK, resp)
	}
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Revokes the refresh token and clears its cookie.
//	@Tags			Auth
//	@Success		204	"Logged out"
//	@Failure		502	{object}	response.ErrorResponse	"Session store unavailable"
//	@Router			/auth/logout [post]
func (h *UserHandler) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var token string
		if cookie, err := r.Cookie(RefreshCookieName); err == nil {
			token = cookie.Value
		}

		h.clearRefreshCookie(w)

		if err := h.userService.Logout(r.Context(), token); err != nil {
			logger.Error("Logout failed", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("User logged out")
		w.WriteHeader(http.StatusNoContent)
	}
}

// Profile godoc
//
//	@Summary		Get the current user
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	models.User				"Current user"
//	@Failure		401	{object}	response.ErrorResponse	"Authentication required"
//	@Failure		404	{object}	response.ErrorResponse	"User not found"
//	@Security		BearerAuth
//	@Router			/users/profile [get]
func (h *UserHandler) Profile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized profile access attempt")
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		user, err := h.userService.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			logger.Warn("Failed to load profile", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, user)
	}
}

// AddAddress godoc
//
//	@Summary		Add a shipping address
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			address	body		models.CreateAddressRequest	true	"Address"
//	@Success		201		{object}	models.Address				"Address saved"
//	@Failure		400		{object}	response.ErrorResponse		"Validation error"
//	@Failure		401		{object}	response.ErrorResponse		"Authentication required"
//	@Security		BearerAuth
//	@Router			/users/addresses [post]
func (h *UserHandler) AddAddress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		var req models.CreateAddressRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid address input")

			return
		}

		address, err := h.userService.AddAddress(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Error("Failed to add address", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Address added", slog.String("addressId", address.ID.String()))
		response.Success(w, http.StatusCreated, address)
	}
}

// ListAddresses godoc
//
//	@Summary		List shipping addresses
//	@Tags			Users
//	@Produce		json
//	@Success		200	{array}		models.Address			"Addresses"
//	@Failure		401	{object}	response.ErrorResponse	"Authentication required"
//	@Security		BearerAuth
//	@Router			/users/addresses [get]
func (h *UserHandler) ListAddresses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		addresses, err := h.userService.ListAddresses(r.Context(), claims.UserID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to list addresses", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, addresses)
	}
}

func (h *UserHandler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *UserHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
