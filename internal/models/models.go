package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents an anonymous identity registered from a token
type Account struct {
	ID             int64
	Username       string // derived nickname
	CredentialHash string
	IsStaff        bool
	CreatedAt      time.Time
}

// Requester is the authenticated identity behind a request
type Requester struct {
	AccountID int64
	Username  string
	SessionID string
	ExpiresAt time.Time
}

// OrderType is the maker's side of the trade
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// OrderStatus tracks an order through its lifecycle
type OrderStatus string

const (
	StatusPublic    OrderStatus = "public"
	StatusTaken     OrderStatus = "taken"
	StatusExpired   OrderStatus = "expired"
	StatusCancelled OrderStatus = "cancelled"
)

// HoldsRole reports whether an order in this status still occupies
// its maker's and taker's single open role.
func (s OrderStatus) HoldsRole() bool {
	return s == StatusPublic || s == StatusTaken
}

// Order represents a peer-to-peer buy or sell offer
type Order struct {
	ID            int64
	Type          OrderType
	Currency      int             // fiat currency code
	Amount        decimal.Decimal // fiat amount
	PaymentMethod string
	Premium       decimal.Decimal // percent over market price
	Satoshis      *int64          // explicit satoshi amount, nil for market-priced orders
	MakerID       int64
	Maker         string
	TakerID       *int64
	Taker         *string
	Status        OrderStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// IsParticipant reports whether the account is the order's maker or taker
func (o *Order) IsParticipant(accountID int64) bool {
	if o.MakerID == accountID {
		return true
	}
	return o.TakerID != nil && *o.TakerID == accountID
}
