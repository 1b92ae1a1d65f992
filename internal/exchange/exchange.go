package exchange

import (
	"sort"
	"sync"

	"github.com/xtrntr/p2pexchange/internal/models"
)

// Book holds the public orders available for taking
type Book struct {
	mu         sync.RWMutex
	buyOrders  []models.Order
	sellOrders []models.Order
	updates    chan struct{}
}

// NewBook creates an empty order book
func NewBook() *Book {
	return &Book{
		buyOrders:  []models.Order{},
		sellOrders: []models.Order{},
		updates:    make(chan struct{}, 1),
	}
}

// Load replaces the book contents, typically with the public orders read at startup
func (b *Book) Load(orders []models.Order) {
	b.mu.Lock()
	b.buyOrders = b.buyOrders[:0]
	b.sellOrders = b.sellOrders[:0]
	for _, order := range orders {
		b.insert(order)
	}
	b.mu.Unlock()
	b.notify()
}

// AddOrder adds a public order to the book. Orders in any other status are ignored.
func (b *Book) AddOrder(order models.Order) {
	if order.Status != models.StatusPublic {
		return
	}
	b.mu.Lock()
	b.insert(order)
	b.mu.Unlock()
	b.notify()
}

func (b *Book) insert(order models.Order) {
	if order.Type == models.OrderTypeBuy {
		b.buyOrders = append(b.buyOrders, order)
		// Sort buy orders: highest premium first, then earliest time
		sort.SliceStable(b.buyOrders, func(i, j int) bool {
			if b.buyOrders[i].Premium.Equal(b.buyOrders[j].Premium) {
				return b.buyOrders[i].CreatedAt.Before(b.buyOrders[j].CreatedAt)
			}
			return b.buyOrders[i].Premium.GreaterThan(b.buyOrders[j].Premium)
		})
	} else {
		b.sellOrders = append(b.sellOrders, order)
		// Sort sell orders: lowest premium first, then earliest time
		sort.SliceStable(b.sellOrders, func(i, j int) bool {
			if b.sellOrders[i].Premium.Equal(b.sellOrders[j].Premium) {
				return b.sellOrders[i].CreatedAt.Before(b.sellOrders[j].CreatedAt)
			}
			return b.sellOrders[i].Premium.LessThan(b.sellOrders[j].Premium)
		})
	}
}

// RemoveOrder drops the order with the given id, reporting whether it was present
func (b *Book) RemoveOrder(id int64) bool {
	b.mu.Lock()
	removed := false
	b.buyOrders, removed = without(b.buyOrders, id)
	if !removed {
		b.sellOrders, removed = without(b.sellOrders, id)
	}
	b.mu.Unlock()

	if removed {
		b.notify()
	}
	return removed
}

func without(orders []models.Order, id int64) ([]models.Order, bool) {
	for i := range orders {
		if orders[i].ID == id {
			return append(orders[:i], orders[i+1:]...), true
		}
	}
	return orders, false
}

// GetOrderBook returns copies of the buy and sell sides
func (b *Book) GetOrderBook() ([]models.Order, []models.Order) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buys := make([]models.Order, len(b.buyOrders))
	copy(buys, b.buyOrders)
	sells := make([]models.Order, len(b.sellOrders))
	copy(sells, b.sellOrders)
	return buys, sells
}

// Updates signals after the book changes. Bursts of changes coalesce into one signal.
func (b *Book) Updates() <-chan struct{} {
	return b.updates
}

func (b *Book) notify() {
	select {
	case b.updates <- struct{}{}:
	default:
	}
}
