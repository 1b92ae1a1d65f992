// Package orders implements the order lifecycle: creating and taking orders
// under the one-role-per-identity rule, and participant-gated order views.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/p2pexchange/internal/db"
	"github.com/xtrntr/p2pexchange/internal/metrics"
	"github.com/xtrntr/p2pexchange/internal/models"
)

var (
	ErrUnauthorized  = errors.New("authentication required")
	ErrBadRequest    = errors.New("bad request")
	ErrNotFound      = errors.New("order not found")
	ErrNotAvailable  = errors.New("order is not available")
	ErrDuplicateRole = errors.New("identity already holds an order role")
)

// RoleError reports which role blocked the request
type RoleError struct {
	Role string // "maker" or "taker"
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("You are already %s of an order", e.Role)
}

func (e *RoleError) Unwrap() error {
	return ErrDuplicateRole
}

const maxPaymentMethodLength = 35

var (
	minPremium = decimal.NewFromInt(-100)
	maxPremium = decimal.NewFromInt(999)
)

// Fields are the maker-supplied attributes of a new order
type Fields struct {
	Type          models.OrderType `json:"type"`
	Currency      int              `json:"currency"`
	Amount        decimal.Decimal  `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
	Premium       decimal.Decimal  `json:"premium"`
	Satoshis      *int64           `json:"satoshis,omitempty"`
}

// Validate checks the fields, returning an error wrapping ErrBadRequest
func (f Fields) Validate() error {
	switch {
	case f.Type != models.OrderTypeBuy && f.Type != models.OrderTypeSell:
		return fmt.Errorf("%w: type must be buy or sell", ErrBadRequest)
	case f.Currency <= 0:
		return fmt.Errorf("%w: currency must be positive", ErrBadRequest)
	case !f.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	case strings.TrimSpace(f.PaymentMethod) == "":
		return fmt.Errorf("%w: payment_method is required", ErrBadRequest)
	case len([]rune(f.PaymentMethod)) > maxPaymentMethodLength:
		return fmt.Errorf("%w: payment_method is too long", ErrBadRequest)
	case f.Premium.LessThan(minPremium) || f.Premium.GreaterThan(maxPremium):
		return fmt.Errorf("%w: premium must be between -100 and 999", ErrBadRequest)
	case f.Satoshis != nil && *f.Satoshis < 0:
		return fmt.Errorf("%w: satoshis must not be negative", ErrBadRequest)
	}
	return nil
}

// Store is the order persistence the ledger needs
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	TakeOrder(ctx context.Context, orderID, takerID int64) (*models.Order, error)
	FindOrders(ctx context.Context, id int64) ([]models.Order, error)
}

// Book is the public order book kept in sync with the ledger
type Book interface {
	AddOrder(order models.Order)
	RemoveOrder(id int64) bool
}

// Ledger creates and takes orders
type Ledger struct {
	store    Store
	book     Book
	lifetime time.Duration
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewLedger creates a new ledger. Orders stay public for lifetime unless taken.
func NewLedger(store Store, book Book, lifetime time.Duration, log zerolog.Logger, m *metrics.Metrics) *Ledger {
	return &Ledger{
		store:    store,
		book:     book,
		lifetime: lifetime,
		now:      time.Now,
		log:      log.With().Str("component", "ledger").Logger(),
		metrics:  m,
	}
}

// Create persists a new public order made by requester. It fails with a
// *RoleError if the requester is already maker or taker of an open order.
func (l *Ledger) Create(ctx context.Context, requester *models.Requester, fields Fields) (*models.Order, error) {
	if requester == nil {
		return nil, ErrUnauthorized
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	order, err := l.store.CreateOrder(ctx, &models.Order{
		Type:          fields.Type,
		Currency:      fields.Currency,
		Amount:        fields.Amount,
		PaymentMethod: strings.TrimSpace(fields.PaymentMethod),
		Premium:       fields.Premium,
		Satoshis:      fields.Satoshis,
		MakerID:       requester.AccountID,
		Status:        models.StatusPublic,
		ExpiresAt:     l.now().Add(l.lifetime),
	})
	if err != nil {
		return nil, l.roleError(err)
	}

	l.book.AddOrder(*order)
	l.metrics.OrdersCreated.With("type", string(order.Type)).Add(1)
	l.log.Info().Int64("order_id", order.ID).Int64("maker_id", order.MakerID).Str("type", string(order.Type)).Msg("order created")
	return order, nil
}

// Take makes requester the taker of the public order identified by rawID
func (l *Ledger) Take(ctx context.Context, requester *models.Requester, rawID string) (*models.Order, error) {
	if requester == nil {
		return nil, ErrUnauthorized
	}
	order, err := findOne(ctx, l.store, rawID)
	if err != nil {
		return nil, err
	}
	if order.MakerID == requester.AccountID {
		return nil, fmt.Errorf("%w: you cannot take your own order", ErrBadRequest)
	}

	taken, err := l.store.TakeOrder(ctx, order.ID, requester.AccountID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, db.ErrOrderUnavailable):
		return nil, ErrNotAvailable
	case err != nil:
		return nil, l.roleError(err)
	}

	l.book.RemoveOrder(taken.ID)
	l.metrics.OrdersTaken.Add(1)
	l.log.Info().Int64("order_id", taken.ID).Int64("taker_id", requester.AccountID).Msg("order taken")
	return taken, nil
}

// roleError converts the store's role sentinels into a *RoleError
func (l *Ledger) roleError(err error) error {
	var role string
	switch {
	case errors.Is(err, db.ErrAlreadyMaker):
		role = "maker"
	case errors.Is(err, db.ErrAlreadyTaker):
		role = "taker"
	default:
		return err
	}
	l.metrics.RoleRejections.With("role", role).Add(1)
	return &RoleError{Role: role}
}

type finder interface {
	FindOrders(ctx context.Context, id int64) ([]models.Order, error)
}

// findOne resolves rawID to exactly one order. A missing id is a bad
// request; an id that does not parse or match exactly one order is not found.
func findOne(ctx context.Context, store finder, rawID string) (*models.Order, error) {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrBadRequest)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}

	found, err := store.FindOrders(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(found) != 1 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}
