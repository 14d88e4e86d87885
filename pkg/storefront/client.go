// Package storefront is a typed client for the storefront API. Every call goes
// through a session.Coordinator, so expired access tokens are refreshed
// transparently.
package storefront

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/pkg/session"
	"github.com/google/uuid"
)

type (
	Cart                  = models.Cart
	Order                 = models.Order
	CheckoutRequest       = models.CheckoutRequest
	CouponQuote           = models.ValidateCouponResponse
	AvailableCoupons      = models.AvailableCouponsResponse
	PaymentOrder          = models.CreatePaymentResponse
	VerifyPaymentRequest  = models.VerifyPaymentRequest
	PaymentFailureRequest = models.PaymentFailureRequest
)

type Client struct {
	session *session.Coordinator
}

func New(coordinator *session.Coordinator) *Client {
	return &Client{session: coordinator}
}

func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.session.Do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}

	return &cart, nil
}

func (c *Client) AddItem(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error) {
	var cart Cart

	req := models.AddItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.session.Do(ctx, http.MethodPost, "/cart/items", req, &cart); err != nil {
		return nil, err
	}

	return &cart, nil
}

// UpdateItem replaces the quantity of a line. Zero removes it.
func (c *Client) UpdateItem(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error) {
	var cart Cart

	req := models.UpdateQuantityRequest{Quantity: quantity}
	if err := c.session.Do(ctx, http.MethodPut, "/cart/items/"+productID.String(), req, &cart); err != nil {
		return nil, err
	}

	return &cart, nil
}

func (c *Client) RemoveItem(ctx context.Context, productID uuid.UUID) (*Cart, error) {
	var cart Cart
	if err := c.session.Do(ctx, http.MethodDelete, "/cart/items/"+productID.String(), nil, &cart); err != nil {
		return nil, err
	}

	return &cart, nil
}

func (c *Client) ClearCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.session.Do(ctx, http.MethodDelete, "/cart/clear", nil, &cart); err != nil {
		return nil, err
	}

	return &cart, nil
}

func (c *Client) ValidateCoupon(ctx context.Context, code string, cartTotal int64) (*CouponQuote, error) {
	var quote CouponQuote

	req := models.ValidateCouponRequest{Code: code, CartTotal: cartTotal}
	if err := c.session.Do(ctx, http.MethodPost, "/coupons/validate", req, &quote); err != nil {
		return nil, err
	}

	return &quote, nil
}

func (c *Client) AvailableCoupons(ctx context.Context, cartTotal int64) (*AvailableCoupons, error) {
	var available AvailableCoupons

	q := url.Values{"cartTotal": []string{strconv.FormatInt(cartTotal, 10)}}
	if err := c.session.Do(ctx, http.MethodGet, "/coupons/available?"+q.Encode(), nil, &available); err != nil {
		return nil, err
	}

	return &available, nil
}

func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	var order Order
	if err := c.session.Do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (c *Client) Order(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if err := c.session.Do(ctx, http.MethodGet, "/orders/"+id.String(), nil, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (c *Client) CancelOrder(ctx context.Context, id uuid.UUID, reason string) (*Order, error) {
	var resp models.OrderResponse

	req := models.CancelOrderRequest{Reason: reason}
	if err := c.session.Do(ctx, http.MethodPut, fmt.Sprintf("/orders/%s/cancel", id), req, &resp); err != nil {
		return nil, err
	}

	return resp.Order, nil
}

// CreatePayment opens a gateway order for the full order total. An empty
// currency means the order's own.
func (c *Client) CreatePayment(ctx context.Context, orderID uuid.UUID, amount int64, currency, receipt string) (*PaymentOrder, error) {
	var payment PaymentOrder

	req := models.CreatePaymentRequest{OrderID: orderID, Amount: amount, Currency: currency, Receipt: receipt}
	if err := c.session.Do(ctx, http.MethodPost, "/payment/create-order", req, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*Order, error) {
	var resp models.OrderResponse
	if err := c.session.Do(ctx, http.MethodPost, "/payment/verify", req, &resp); err != nil {
		return nil, err
	}

	return resp.Order, nil
}

func (c *Client) ReportPaymentFailure(ctx context.Context, req PaymentFailureRequest) (*Order, error) {
	var resp models.OrderResponse
	if err := c.session.Do(ctx, http.MethodPost, "/payment/failure", req, &resp); err != nil {
		return nil, err
	}

	return resp.Order, nil
}
