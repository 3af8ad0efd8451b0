package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/2beens/orderbox/internal/telemetry/tracing"
	"github.com/2beens/orderbox/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Store keeps all orders in a single JSON array file. Orders are only ever
// appended.
type Store struct {
	path  string
	mutex sync.Mutex

	// injectable for unit tests
	now   func() time.Time
	newID func() string
}

func NewStore(path string) *Store {
	return &Store{
		path:  path,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Append stores a new order made of fields plus a fresh id and created_at.
// Server fields replace caller fields with the same key.
func (s *Store) Append(ctx context.Context, fields map[string]any) (_ Order, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "ordersStore.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	orders := s.readAll()

	order := make(Order, len(fields)+2)
	for k, v := range fields {
		order[k] = v
	}
	order[FieldID] = s.newID()
	order[FieldCreatedAt] = formatCreatedAt(s.now())

	span.SetAttributes(
		attribute.String("order.id", order.ID()),
		attribute.Int("orders.count", len(orders)+1),
	)

	orders = append(orders, order)
	if err := pkg.WriteJSONFile(s.path, orders); err != nil {
		return nil, fmt.Errorf("save orders: %w", err)
	}

	return order, nil
}

// List returns the orders created in month (YYYY-MM) in the order they were
// stored. With an empty month it returns all orders, newest first.
func (s *Store) List(ctx context.Context, month string) []Order {
	_, span := tracing.GlobalTracer.Start(ctx, "ordersStore.list")
	defer span.End()

	orders := s.readAll()
	span.SetAttributes(
		attribute.String("orders.month", month),
		attribute.Int("orders.total", len(orders)),
	)

	if month != "" {
		filtered := make([]Order, 0, len(orders))
		for _, o := range orders {
			if o.InMonth(month) {
				filtered = append(filtered, o)
			}
		}
		return filtered
	}

	reversed := make([]Order, 0, len(orders))
	for i := len(orders) - 1; i >= 0; i-- {
		reversed = append(reversed, orders[i])
	}
	return reversed
}

// readAll never fails: a missing or unusable file reads as no orders.
// Array entries that are not objects are skipped.
func (s *Store) readAll() []Order {
	var entries []json.RawMessage
	err := pkg.ReadJSONFile(s.path, &entries)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist), errors.Is(err, pkg.ErrEmptyFile):
		return []Order{}
	default:
		log.Warnf("orders file [%s] unusable, treating as empty: %s", s.path, err)
		return []Order{}
	}

	orders := make([]Order, 0, len(entries))
	for i, entry := range entries {
		var o Order
		if err := pkg.UnmarshalJSONNumbers(entry, &o); err != nil || o == nil {
			log.Warnf("orders file [%s], skipping entry %d: not an object", s.path, i)
			continue
		}
		orders = append(orders, o)
	}
	return orders
}
