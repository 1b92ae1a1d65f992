package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/xtrntr/p2pexchange/internal/account"
	"github.com/xtrntr/p2pexchange/internal/entropy"
	"github.com/xtrntr/p2pexchange/internal/models"
	"github.com/xtrntr/p2pexchange/internal/orders"
)

// Generator turns tokens into identities and deletes them
type Generator interface {
	Generate(ctx context.Context, token string) (account.Generation, error)
	Delete(ctx context.Context, requester *models.Requester) error
}

// Sessions verifies session tokens
type Sessions interface {
	Verify(ctx context.Context, token string) (*models.Requester, error)
	TTL() time.Duration
}

// Ledger creates and takes orders
type Ledger interface {
	Create(ctx context.Context, requester *models.Requester, fields orders.Fields) (*models.Order, error)
	Take(ctx context.Context, requester *models.Requester, rawID string) (*models.Order, error)
}

// Viewer resolves orders into requester-specific views
type Viewer interface {
	Lookup(ctx context.Context, rawID string, requester *models.Requester) (orders.View, error)
	Mine(ctx context.Context, requester *models.Requester) ([]orders.View, error)
}

// BookReader exposes the public order book
type BookReader interface {
	GetOrderBook() ([]models.Order, []models.Order)
}

// Pinger checks a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Generator Generator
	Sessions  Sessions
	Ledger    Ledger
	Viewer    Viewer
	Book      BookReader
	DB        Pinger
	log       zerolog.Logger
}

// NewHandler creates a new handler
func NewHandler(generator Generator, sessions Sessions, ledger Ledger, viewer Viewer, book BookReader, db Pinger, log zerolog.Logger) *Handler {
	return &Handler{
		Generator: generator,
		Sessions:  sessions,
		Ledger:    ledger,
		Viewer:    viewer,
		Book:      book,
		DB:        db,
		log:       log.With().Str("component", "api").Logger(),
	}
}

// Routes registers the API endpoints on r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.SessionMiddleware)

		// Public endpoints
		r.Get("/usergen", h.UserGen)
		r.Get("/order", h.GetOrder)
		r.Get("/book", h.GetOrderBook)

		// Protected endpoints (require a session)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Delete("/usergen", h.DeleteUser)
			r.Post("/make", h.MakeOrder)
			r.Post("/order/take", h.TakeOrder)
			r.Get("/orders", h.GetUserOrders)
		})
	})
}

type userGenResponse struct {
	Shannon    float64 `json:"token_shannon_entropy"`
	Bits       float64 `json:"token_bits_entropy"`
	Nickname   string  `json:"nickname,omitempty"`
	Found      string  `json:"found,omitempty"`
	BadRequest string  `json:"bad_request,omitempty"`
	Session    string  `json:"session,omitempty"`
}

// UserGen derives an identity from the token query parameter and logs in to it
func (h *Handler) UserGen(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "Token parameter not found in request")
		return
	}

	gen, err := h.Generator.Generate(r.Context(), token)
	resp := userGenResponse{
		Shannon:  gen.Entropy.Shannon,
		Bits:     gen.Entropy.Bits,
		Nickname: gen.Nickname,
	}

	var insufficient *entropy.InsufficientError
	switch {
	case errors.As(err, &insufficient):
		resp.BadRequest = "The token does not have enough entropy"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	case err != nil:
		h.log.Error().Err(err).Msg("user generation failed")
		writeError(w, http.StatusInternalServerError, "error", "Something went wrong")
		return
	}

	status := http.StatusAccepted
	switch gen.Status {
	case account.StatusCollision:
		resp.Found = "Bad luck, this nickname is taken"
		resp.BadRequest = "Enter a different token"
		writeJSON(w, http.StatusForbidden, resp)
		return
	case account.StatusCreated:
		status = http.StatusCreated
	case account.StatusReturning:
		if gen.WelcomeBack {
			resp.Found = "We found your Robosat. Welcome back!"
		}
	}

	resp.Session = gen.Session
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    gen.Session,
		Path:     "/",
		MaxAge:   int(h.Sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, resp)
}

// DeleteUser deletes the requester's identity and ends the session
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.Generator.Delete(r.Context(), RequesterFromContext(r.Context()))
	switch {
	case errors.Is(err, account.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	case errors.Is(err, account.ErrAccountTooOld):
		writeError(w, http.StatusForbidden, "forbidden", "This robot is too old to be deleted")
		return
	case errors.Is(err, account.ErrRoleHeld):
		writeError(w, http.StatusForbidden, "forbidden", "This robot is maker or taker of an open order")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("user deletion failed")
		writeError(w, http.StatusInternalServerError, "error", "Something went wrong")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

// MakeOrder creates a new public order made by the requester
func (h *Handler) MakeOrder(w http.ResponseWriter, r *http.Request) {
	var fields orders.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	requester := RequesterFromContext(r.Context())
	order, err := h.Ledger.Create(r.Context(), requester, fields)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, orders.NewView(*order, requester))
}

// GetOrder returns the requester's view of one order
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.Viewer.Lookup(r.Context(), r.URL.Query().Get("order_id"), RequesterFromContext(r.Context()))
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// TakeOrder makes the requester the taker of a public order
func (h *Handler) TakeOrder(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFromContext(r.Context())
	order, err := h.Ledger.Take(r.Context(), requester, r.URL.Query().Get("order_id"))
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.NewView(*order, requester))
}

// GetUserOrders retrieves the orders the requester made or took
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.Viewer.Mine(r.Context(), RequesterFromContext(r.Context()))
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// GetOrderBook retrieves the current public order book
func (h *Handler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bookPayload(h.Book))
}

// Health reports whether the database is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func bookPayload(book BookReader) map[string][]orders.View {
	buyOrders, sellOrders := book.GetOrderBook()
	return map[string][]orders.View{
		"buy_orders":  orders.PublicViews(buyOrders),
		"sell_orders": orders.PublicViews(sellOrders),
	}
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	var roleErr *orders.RoleError
	switch {
	case errors.As(err, &roleErr):
		writeError(w, http.StatusBadRequest, "bad_request", roleErr.Error())
	case errors.Is(err, orders.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case errors.Is(err, orders.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Invalid Order Id")
	case errors.Is(err, orders.ErrNotAvailable):
		writeError(w, http.StatusConflict, "conflict", "This order is no longer public")
	default:
		h.log.Error().Err(err).Msg("order request failed")
		writeError(w, http.StatusInternalServerError, "error", "Something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, key, message string) {
	writeJSON(w, status, map[string]string{key: message})
}
