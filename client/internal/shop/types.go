package shop

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Cents is a price in the smallest currency unit, as the backend sends it.
type Cents int64

// String formats c as yuan, e.g. "¥12.30".
func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s¥%d.%02d", sign, c/100, c%100)
}

// Address is a delivery address.
type Address struct {
	ID        int64  `json:"id,omitempty"`
	Contact   string `json:"contact"`
	Mobile    string `json:"mobile"`
	Province  string `json:"province"`
	City      string `json:"city"`
	Town      string `json:"town"`
	Street    string `json:"street"`
	IsDefault int    `json:"isDefault"`
	Notes     string `json:"notes,omitempty"`
}

// Commodity is the catalogue item a cart entry is created from.
type Commodity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Spec  string `json:"spec"`
	Price Cents  `json:"price"`
	Image string `json:"image"`
}

// cartForm is the body of POST /carts.
type cartForm struct {
	ItemID int64  `json:"itemId"`
	Name   string `json:"name"`
	Spec   string `json:"spec"`
	Price  Cents  `json:"price"`
	Image  string `json:"image"`
}

// CartItem is one line of the shopping cart.
type CartItem struct {
	ID       int64  `json:"id"`
	ItemID   int64  `json:"itemId"`
	Num      int    `json:"num"`
	Name     string `json:"name"`
	Spec     string `json:"spec"`
	Price    Cents  `json:"price"`
	NewPrice Cents  `json:"newPrice,omitempty"`
	Image    string `json:"image"`
	Stock    int    `json:"stock,omitempty"`
}

// OrderDetail is one item of an order form.
type OrderDetail struct {
	ItemID int64 `json:"itemId"`
	Num    int   `json:"num"`
}

// OrderForm is the body of POST /orders.
type OrderForm struct {
	AddressID   int64         `json:"addressId"`
	PaymentType int           `json:"paymentType"`
	Details     []OrderDetail `json:"details"`
}

// OrderStatus is the backend's order state code.
type OrderStatus string

const (
	OrderAwaitingPayment OrderStatus = "1"
	OrderPaid            OrderStatus = "2"
	OrderShipped         OrderStatus = "3"
	OrderCompleted       OrderStatus = "4"
	OrderCancelled       OrderStatus = "5"
	OrderReviewed        OrderStatus = "6"
)

// UnmarshalJSON accepts the status as either a JSON string or number.
func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = OrderStatus(str)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order status: %w", err)
	}
	*s = OrderStatus(strconv.Itoa(n))
	return nil
}

func (s OrderStatus) String() string {
	switch s {
	case OrderAwaitingPayment:
		return "awaiting payment"
	case OrderPaid:
		return "paid"
	case OrderShipped:
		return "shipped, awaiting confirmation"
	case OrderCompleted:
		return "received"
	case OrderCancelled:
		return "cancelled"
	case OrderReviewed:
		return "closed, reviewed"
	default:
		return string(s)
	}
}

// Order is an order as returned by GET /orders/{id}.
type Order struct {
	ID         json.Number `json:"id"`
	TotalFee   Cents       `json:"totalFee"`
	Status     OrderStatus `json:"status"`
	CreateTime string      `json:"createTime"`
}

// PayApply is the body of POST /pays.
type PayApply struct {
	BizOrderNo     json.Number `json:"bizOrderNo"`
	Amount         Cents       `json:"amount"`
	PayChannelCode string      `json:"payChannelCode"`
	PayType        int         `json:"payType"`
	OrderInfo      string      `json:"orderInfo"`
}

// payForm is the body of POST /pays/{id}.
type payForm struct {
	ID string `json:"id"`
	PW string `json:"pw"`
}

// Credentials are sent to POST /users/login.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// LoginResult is what the login endpoints hand back.
type LoginResult struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Balance  Cents  `json:"balance,omitempty"`
}

// UnmarshalJSON also accepts a bare token string.
func (r *LoginResult) UnmarshalJSON(b []byte) error {
	var token string
	if err := json.Unmarshal(b, &token); err == nil {
		*r = LoginResult{Token: token}
		return nil
	}
	type plain LoginResult
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = LoginResult(p)
	return nil
}

// User is the signed-in user's profile.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
	Balance  Cents  `json:"balance"`
}

// Item is a search hit.
type Item struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    Cents  `json:"price"`
	Image    string `json:"image"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
	Spec     string `json:"spec,omitempty"`
	Sold     int    `json:"sold,omitempty"`
}

// Page is a paginated result.
type Page[T any] struct {
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
	List  []T   `json:"list"`
}

// SearchQuery holds the /search/list parameters. Zero fields are omitted.
type SearchQuery struct {
	Key      string
	Category string
	Brand    string
	MinPrice Cents
	MaxPrice Cents
	PageNo   int
	PageSize int
	SortBy   string
	IsAsc    bool
}

// Values encodes q as query parameters.
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("key", q.Key)
	set("category", q.Category)
	set("brand", q.Brand)
	if q.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatInt(int64(q.MinPrice), 10))
	}
	if q.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatInt(int64(q.MaxPrice), 10))
	}
	if q.PageNo > 0 {
		v.Set("pageNo", strconv.Itoa(q.PageNo))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
		v.Set("isAsc", strconv.FormatBool(q.IsAsc))
	}
	return v
}

// orderID decodes an id the backend sends as either a JSON number or a
// string. Snowflake ids exceed float64 precision, so the digits are kept.
type orderID string

func (o *orderID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	*o = orderID(n.String())
	return nil
}
