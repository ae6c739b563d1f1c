// Package shop wraps the storefront backend endpoints as typed calls over
// the request pipeline. Every function is a thin adapter: it shapes the
// request, lets the pipeline authenticate and classify it, and decodes the
// envelope's data into the result type.
package shop

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mallfront/storefront/pkg/request"
)

// Caller sends requests through the pipeline. *request.Pipeline satisfies it.
type Caller interface {
	Get(ctx context.Context, path string, query url.Values) (*request.Envelope, error)
	Post(ctx context.Context, path string, body any) (*request.Envelope, error)
	Put(ctx context.Context, path string, body any) (*request.Envelope, error)
	Delete(ctx context.Context, path string, body any) (*request.Envelope, error)
}

// Client exposes the backend endpoints.
type Client struct {
	c Caller
}

// New returns a Client over c.
func New(c Caller) *Client {
	return &Client{c: c}
}

// decode turns a pipeline outcome into T. Pipeline errors are returned
// unchanged so callers can branch on apierr kinds.
func decode[T any](env *request.Envelope, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := request.DecodeData[T](env)
	if err != nil {
		return v, fmt.Errorf("shop: %w", err)
	}
	return v, nil
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

// --- Addresses ---

// ListAddresses returns the user's addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	return decode[[]Address](c.c.Get(ctx, "/addresses", nil))
}

// AddAddress creates a new address.
func (c *Client) AddAddress(ctx context.Context, a Address) error {
	if err := ValidatePhone(a.Mobile); err != nil {
		return err
	}
	_, err := c.c.Post(ctx, "/addresses", a)
	return err
}

// UpdateAddress replaces an existing address.
func (c *Client) UpdateAddress(ctx context.Context, a Address) error {
	if err := ValidatePhone(a.Mobile); err != nil {
		return err
	}
	_, err := c.c.Put(ctx, "/addresses", a)
	return err
}

// DeleteAddress removes an address.
func (c *Client) DeleteAddress(ctx context.Context, addressID int64) error {
	_, err := c.c.Delete(ctx, "/addresses/"+id(addressID), nil)
	return err
}

// SetDefaultAddress marks an address as the default.
func (c *Client) SetDefaultAddress(ctx context.Context, addressID int64) error {
	_, err := c.c.Put(ctx, "/addresses/"+id(addressID), nil)
	return err
}

// --- Cart ---

// AddToCart puts one unit of item into the cart.
func (c *Client) AddToCart(ctx context.Context, item Commodity) error {
	_, err := c.c.Post(ctx, "/carts", cartForm{
		ItemID: item.ID,
		Name:   item.Name,
		Spec:   item.Spec,
		Price:  item.Price,
		Image:  item.Image,
	})
	return err
}

// ListCart returns the cart contents.
func (c *Client) ListCart(ctx context.Context) ([]CartItem, error) {
	return decode[[]CartItem](c.c.Get(ctx, "/carts", nil))
}

// UpdateCartItem sets the quantity of a cart entry.
func (c *Client) UpdateCartItem(ctx context.Context, entryID int64, num int) error {
	if num < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	_, err := c.c.Put(ctx, "/carts/"+id(entryID)+"/"+strconv.Itoa(num), nil)
	return err
}

// DeleteCartItem removes one cart entry.
func (c *Client) DeleteCartItem(ctx context.Context, entryID int64) error {
	_, err := c.c.Delete(ctx, "/carts/"+id(entryID), nil)
	return err
}

// DeleteCartItems removes several cart entries in one call.
func (c *Client) DeleteCartItems(ctx context.Context, entryIDs []int64) error {
	if len(entryIDs) == 0 {
		return nil
	}
	_, err := c.c.Delete(ctx, "/carts/batch", entryIDs)
	return err
}

// --- Auth ---

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	if err := ValidateUsername(creds.Username); err != nil {
		return LoginResult{}, err
	}
	if err := ValidatePassword(creds.Password); err != nil {
		return LoginResult{}, err
	}
	return decode[LoginResult](c.c.Post(ctx, "/users/login", creds))
}

// GitHubLogin exchanges a GitHub OAuth authorization code for a session.
func (c *Client) GitHubLogin(ctx context.Context, code string) (LoginResult, error) {
	if code == "" {
		return LoginResult{}, fmt.Errorf("%w: oauth code is required", ErrValidation)
	}
	return decode[LoginResult](c.c.Get(ctx, "/oauth/github", url.Values{"code": {code}}))
}

// --- Users ---

// CurrentUser returns the signed-in user's profile.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	return decode[User](c.c.Get(ctx, "/users", nil))
}

// --- Orders ---

// CreateOrder places an order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, form OrderForm) (string, error) {
	if len(form.Details) == 0 {
		return "", fmt.Errorf("%w: order has no items", ErrValidation)
	}
	n, err := decode[orderID](c.c.Post(ctx, "/orders", form))
	return string(n), err
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	return decode[Order](c.c.Get(ctx, "/orders/"+url.PathEscape(orderID), nil))
}

// --- Pay ---

// CreatePayOrder opens a payment for an order and returns the pay order id.
func (c *Client) CreatePayOrder(ctx context.Context, apply PayApply) (string, error) {
	n, err := decode[orderID](c.c.Post(ctx, "/pays", apply))
	return string(n), err
}

// Pay settles a pay order with the user's payment password.
func (c *Client) Pay(ctx context.Context, payOrderID, password string) error {
	if payOrderID == "" {
		return fmt.Errorf("%w: pay order id is required", ErrValidation)
	}
	_, err := c.c.Post(ctx, "/pays/"+url.PathEscape(payOrderID), payForm{ID: payOrderID, PW: password})
	return err
}

// --- Search ---

// Search runs a paginated catalogue search.
func (c *Client) Search(ctx context.Context, q SearchQuery) (Page[Item], error) {
	return decode[Page[Item]](c.c.Get(ctx, "/search/list", q.Values()))
}
