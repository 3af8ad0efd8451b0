package orders

import (
	"errors"
	"io"
	"net/http"

	"github.com/2beens/orderbox/internal/telemetry/metrics"
	"github.com/2beens/orderbox/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	store   *Store
	metrics *metrics.Manager
}

func NewHandler(store *Store, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:   store,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/order", handler.HandleAdd).Methods("POST").Name("new-order")
	router.HandleFunc("/api/orders", handler.HandleList).Methods("GET").Name("list-orders")
}

// HandleAdd accepts any JSON body. Anything that is not a JSON object is
// stored as an order without caller fields.
func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	fields := map[string]any{}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			log.Warnf("new order, body over %d bytes rejected", maxBytesErr.Limit)
			pkg.WriteJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		log.Warnf("new order, read body: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		var parsed any
		if err := pkg.UnmarshalJSONNumbers(body, &parsed); err != nil {
			log.Debugf("new order, body is not valid json, storing empty order: %s", err)
		} else if obj, ok := parsed.(map[string]any); ok {
			fields = obj
		}
	}

	order, err := handler.store.Append(r.Context(), fields)
	if err != nil {
		log.Errorf("failed to save new order: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save order")
		return
	}

	handler.metrics.CounterOrders.Inc()
	log.Debugf("new order added: [%s] [%s]", order.ID(), order.CreatedAt())

	pkg.WriteJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"id": order.ID(),
	})
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	items := handler.store.List(r.Context(), month)
	pkg.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}
