package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/navi/orderflow/internal/orders/app"
	"github.com/navi/orderflow/internal/orders/app/commands"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

const maxBodyBytes = 1 << 20

// Handler exposes HTTP endpoints for order operations.
type Handler struct {
	service  *app.Service
	resolver ports.IdentityResolver
	metrics  *Metrics
	logger   *slog.Logger
}

// NewHandler constructs a Handler. metrics may be nil.
func NewHandler(service *app.Service, resolver ports.IdentityResolver, metrics *Metrics, logger *slog.Logger) *Handler {
	return &Handler{service: service, resolver: resolver, metrics: metrics, logger: logger}
}

// Register binds the order routes under /v1. Every route requires a credential.
func (h *Handler) Register(router *mux.Router) {
	api := router.PathPrefix("/v1").Subrouter()
	api.Use(Authenticate(h.resolver))

	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/cancel", h.cancelOrder).Methods(http.MethodPost, http.MethodPut)
	api.HandleFunc("/orders/{id}/dispatch", h.dispatchOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/complete", h.completeOrder).Methods(http.MethodPost)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who, _ := identityFrom(ctx)
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	var payload createOrderRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if idemKey != "" {
		stored, err := h.service.ReserveIdempotencyKey(ctx, who.caller.ID, idemKey)
		switch {
		case errors.Is(err, ports.ErrIdempotencyKeyInUse):
			h.metrics.RecordIdempotency(ctx, IdempotencyInUse)
			writeError(w, http.StatusConflict, "a request with this Idempotency-Key is still in progress")
			return
		case err != nil:
			h.internalError(w, r, err)
			return
		case stored != nil:
			h.metrics.RecordIdempotency(ctx, IdempotencyReplayed)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
		h.metrics.RecordIdempotency(ctx, IdempotencyReserved)
	}

	result, err := h.service.CreateOrder(ctx, commands.CreateOrderCommand{
		Caller:        who.caller,
		CartToken:     who.credential,
		DestinationID: payload.DestinationID,
		Items:         payload.items(),
	})
	if err != nil {
		h.releaseKey(r, who.caller.ID, idemKey)
		h.writeServiceError(w, r, err)
		return
	}

	body, err := json.Marshal(map[string]any{
		"order":         newOrderResponse(result.Order),
		"client_secret": result.ClientSecret,
	})
	if err != nil {
		h.releaseKey(r, who.caller.ID, idemKey)
		h.internalError(w, r, err)
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			StatusCode: http.StatusCreated,
			Body:       body,
			OrderID:    result.Order.ID,
		}
		if err := h.service.SaveIdempotentResponse(context.WithoutCancel(ctx), who.caller.ID, idemKey, stored); err != nil {
			h.logger.WarnContext(ctx, "failed to store idempotent response",
				"error", err,
				"order_id", result.Order.ID,
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

// releaseKey frees the caller's reservation after a failed create.
func (h *Handler) releaseKey(r *http.Request, userID, key string) {
	if key == "" {
		return
	}
	if err := h.service.ReleaseIdempotencyKey(context.WithoutCancel(r.Context()), userID, key); err != nil {
		h.logger.WarnContext(r.Context(), "failed to release idempotency key", "error", err)
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())

	order, err := h.service.GetOrder(r.Context(), who.caller, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": newOrderResponse(order)})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())

	result, err := h.service.CancelOrder(r.Context(), who.caller, mux.Vars(r)["id"])
	if err != nil {
		h.writeTransitionError(w, r, result, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"detail": "order cancelled",
		"order":  newOrderResponse(result.Order),
	})
}

func (h *Handler) dispatchOrder(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())

	var payload dispatchOrderRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.DispatchOrder(r.Context(), who.caller, mux.Vars(r)["id"], payload.DestinationID)
	if errors.Is(err, commands.ErrInvoiceEnqueue) && result != nil {
		// The order is sent and the capture is committed; only the invoice job
		// is missing.
		writeJSON(w, http.StatusAccepted, map[string]any{
			"order":        newOrderResponse(result.Order),
			"already_sent": false,
			"warning":      "order dispatched but invoice generation could not be scheduled",
		})
		return
	}
	if err != nil {
		h.writeTransitionError(w, r, result, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":        newOrderResponse(result.Order),
		"already_sent": result.AlreadyApplied,
	})
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())

	result, err := h.service.CompleteOrder(r.Context(), who.caller, mux.Vars(r)["id"])
	if err != nil {
		h.writeTransitionError(w, r, result, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order":             newOrderResponse(result.Order),
		"already_completed": result.AlreadyApplied,
	})
}

// writeTransitionError includes the unchanged order when the command returned one.
func (h *Handler) writeTransitionError(w http.ResponseWriter, r *http.Request, result *commands.TransitionResult, err error) {
	status, message := h.classify(r, err)
	payload := map[string]any{"error": message}
	if result != nil && result.Order != nil && status != http.StatusInternalServerError {
		payload["order"] = newOrderResponse(result.Order)
	}
	writeJSON(w, status, payload)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": vErr.Message, "field": vErr.Field})
		return
	}
	status, message := h.classify(r, err)
	writeError(w, status, message)
}

func (h *Handler) classify(r *http.Request, err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, ports.ErrDestinationNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrStateConflict), errors.Is(err, ports.ErrStaleStatus):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway, err.Error()
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := h.classify(r, err)
	writeError(w, status, message)
}

// decodeJSON reads at most maxBodyBytes of JSON into dst and writes the error
// response itself when that fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
