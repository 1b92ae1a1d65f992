package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/p2pexchange/internal/metrics"
	"github.com/xtrntr/p2pexchange/internal/models"
)

// View is an order as seen by one requester. Only participants see the
// order's status and taker.
type View struct {
	order       models.Order
	participant bool
}

// NewView builds the view of order for requester, which may be nil
func NewView(order models.Order, requester *models.Requester) View {
	return View{
		order:       order,
		participant: requester != nil && order.IsParticipant(requester.AccountID),
	}
}

// Order returns the underlying order
func (v View) Order() models.Order { return v.order }

// IsParticipant reports whether the requester is the maker or taker
func (v View) IsParticipant() bool { return v.participant }

type publicView struct {
	ID            int64            `json:"id"`
	Type          models.OrderType `json:"type"`
	Currency      int              `json:"currency"`
	Amount        decimal.Decimal  `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
	Premium       decimal.Decimal  `json:"premium"`
	Satoshis      *int64           `json:"satoshis"`
	Maker         string           `json:"maker"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
}

type participantView struct {
	publicView
	Status        models.OrderStatus `json:"status"`
	Taker         *string            `json:"taker"`
	IsParticipant bool               `json:"is_participant"`
}

func (v View) MarshalJSON() ([]byte, error) {
	pub := publicView{
		ID:            v.order.ID,
		Type:          v.order.Type,
		Currency:      v.order.Currency,
		Amount:        v.order.Amount,
		PaymentMethod: v.order.PaymentMethod,
		Premium:       v.order.Premium,
		Satoshis:      v.order.Satoshis,
		Maker:         v.order.Maker,
		CreatedAt:     v.order.CreatedAt,
		ExpiresAt:     v.order.ExpiresAt,
	}
	if !v.participant {
		return json.Marshal(pub)
	}
	return json.Marshal(participantView{
		publicView:    pub,
		Status:        v.order.Status,
		Taker:         v.order.Taker,
		IsParticipant: true,
	})
}

// Finder is the order persistence the viewer needs
type Finder interface {
	FindOrders(ctx context.Context, id int64) ([]models.Order, error)
	GetAccountOrders(ctx context.Context, accountID int64) ([]models.Order, error)
}

// Viewer resolves orders into requester-specific views
type Viewer struct {
	store   Finder
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewViewer creates a new viewer
func NewViewer(store Finder, log zerolog.Logger, m *metrics.Metrics) *Viewer {
	return &Viewer{
		store:   store,
		log:     log.With().Str("component", "viewer").Logger(),
		metrics: m,
	}
}

// Lookup resolves rawID to one order and builds the requester's view of it.
// A missing id yields ErrBadRequest; anything that is not exactly one order
// yields ErrNotFound.
func (v *Viewer) Lookup(ctx context.Context, rawID string, requester *models.Requester) (View, error) {
	order, err := findOne(ctx, v.store, rawID)
	if err != nil {
		return View{}, err
	}

	view := NewView(*order, requester)
	v.metrics.Lookups.With("participant", strconv.FormatBool(view.participant)).Add(1)
	return view, nil
}

// Mine returns the requester's orders, newest first
func (v *Viewer) Mine(ctx context.Context, requester *models.Requester) ([]View, error) {
	if requester == nil {
		return nil, ErrUnauthorized
	}
	found, err := v.store.GetAccountOrders(ctx, requester.AccountID)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(found))
	for _, order := range found {
		views = append(views, NewView(order, requester))
	}
	return views, nil
}

// PublicViews builds anonymous views, as served by the public book
func PublicViews(orders []models.Order) []View {
	views := make([]View, 0, len(orders))
	for _, order := range orders {
		views = append(views, NewView(order, nil))
	}
	return views
}
