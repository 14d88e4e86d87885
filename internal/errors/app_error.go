package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries a machine-checkable Code alongside the human Message.
type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeDuplicateEntry    = "DUPLICATE_ENTRY"
	ErrCodeThirdPartyError   = "THIRD_PARTY_ERROR"
	ErrCodeTooManyRequests   = "TOO_MANY_REQUESTS"
	ErrCodeResourceExhausted = "RESOURCE_EXHAUSTED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeSessionExpired    = "SESSION_EXPIRED"

	// Pricing and coupons
	ErrCodeCouponNotFound      = "COUPON_NOT_FOUND"
	ErrCodeCouponInactive      = "COUPON_INACTIVE"
	ErrCodeCouponNotStarted    = "COUPON_NOT_STARTED"
	ErrCodeCouponExpired       = "COUPON_EXPIRED"
	ErrCodeCouponMinCartValue  = "COUPON_MIN_CART_VALUE"
	ErrCodeCouponUsageLimit    = "COUPON_USAGE_LIMIT"
	ErrCodeCouponPerUserLimit  = "COUPON_PER_USER_LIMIT"
	ErrCodeCouponNotApplicable = "COUPON_NOT_APPLICABLE"
	ErrCodeCurrencyMismatch    = "CURRENCY_MISMATCH"

	// Checkout
	ErrCodeEmptyCart         = "EMPTY_CART"
	ErrCodeStaleAddress      = "STALE_ADDRESS"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"

	// Payments and order lifecycle
	ErrCodeAmountMismatch     = "AMOUNT_MISMATCH"
	ErrCodeSignatureInvalid   = "SIGNATURE_INVALID"
	ErrCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodePaymentDeclined    = "PAYMENT_DECLINED"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

func DuplicateEntryError(message string) *AppError {
	return NewAppError(ErrCodeDuplicateEntry, message, http.StatusConflict)
}

func ThirdPartyError(message string) *AppError {
	return NewAppError(ErrCodeThirdPartyError, message, http.StatusBadGateway)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyRequests, message, http.StatusTooManyRequests)
}

func ResourceExhaustedError(message string) *AppError {
	return NewAppError(ErrCodeResourceExhausted, message, http.StatusTooManyRequests)
}

func SessionExpiredError() *AppError {
	return NewAppError(ErrCodeSessionExpired, "Session expired, please log in again", http.StatusUnauthorized)
}

func TimeoutError(message string) *AppError {
	return NewAppError(ErrCodeTimeout, message, http.StatusGatewayTimeout)
}

// CouponRejected builds a user-facing coupon rejection with its reason code.
func CouponRejected(code, message string) *AppError {
	return NewAppError(code, message, http.StatusUnprocessableEntity)
}

func CurrencyMismatchError(message string) *AppError {
	return NewAppError(ErrCodeCurrencyMismatch, message, http.StatusUnprocessableEntity)
}

func EmptyCartError() *AppError {
	return NewAppError(ErrCodeEmptyCart, "Cannot place an order with an empty cart", http.StatusUnprocessableEntity)
}

func StaleAddressError() *AppError {
	return NewAppError(ErrCodeStaleAddress, "The selected address is no longer available", http.StatusUnprocessableEntity)
}

func InsufficientStockError(message string) *AppError {
	return NewAppError(ErrCodeInsufficientStock, message, http.StatusConflict)
}

func AmountMismatchError(message string) *AppError {
	return NewAppError(ErrCodeAmountMismatch, message, http.StatusBadRequest)
}

func SignatureInvalidError() *AppError {
	return NewAppError(ErrCodeSignatureInvalid, "Payment signature verification failed", http.StatusBadRequest)
}

func TooManyAttemptsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyAttempts, message, http.StatusConflict)
}

func InvalidTransitionError(message string) *AppError {
	return NewAppError(ErrCodeInvalidTransition, message, http.StatusConflict)
}

func PaymentDeclinedError(message string) *AppError {
	return NewAppError(ErrCodePaymentDeclined, message, http.StatusPaymentRequired)
}

func GatewayUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeGatewayUnavailable, message, http.StatusServiceUnavailable)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)

	return ok && appErr.Code == code
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
