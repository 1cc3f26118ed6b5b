package endpoints

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/flow"
	"github.com/munashe04/buyza/pkg/identity"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/model"
	"github.com/munashe04/buyza/pkg/pricing"
	"github.com/munashe04/buyza/pkg/server"
	"github.com/munashe04/buyza/pkg/server/store"
	"github.com/munashe04/buyza/pkg/sheets"
)

// CustomerOrdersResponse is the body of GET /admin/customers/{phone}/orders
type CustomerOrdersResponse struct {
	Phone  string         `json:"phone"`
	Orders []sheets.Order `json:"orders"`
	// Mirrored lists the PostgreSQL copies, newest first
	Mirrored []model.Order `json:"mirrored,omitempty"`
}

// OrderResponse is the body of the single order endpoints
type OrderResponse struct {
	Order  *sheets.Order `json:"order"`
	Mirror *model.Order  `json:"mirror,omitempty"`
}

// QuoteRequest is the body of POST /admin/orders/{id}/quote
type QuoteRequest struct {
	// Amount is the goods value, e.g. "R600" or "1250.50"
	Amount string `json:"amount"`
}

// QuoteResponse is the body returned after a quote is sent
type QuoteResponse struct {
	OrderID string        `json:"order_id"`
	Quote   pricing.Quote `json:"quote"`
}

// StatusRequest is the body of PATCH /admin/orders/{id}/status
type StatusRequest struct {
	Status string `json:"status"`
}

// MessageRequest is the body of POST /admin/messages
type MessageRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// RegisterAdminEndpoints registers the agent API behind bearer JWT
// authentication. Nothing is registered without a JWT authenticator.
func RegisterAdminEndpoints(s *server.Server) {
	if s.JWT == nil {
		return
	}
	svc := s.Flow
	orders := s.Orders

	admin := s.Router.PathPrefix("/admin").Subrouter()
	admin.Use(s.JWT.Middleware)

	admin.HandleFunc("/customers/{phone}/orders", handleCustomerOrders(svc, orders)).Methods("GET")
	admin.HandleFunc("/orders/{id}", handleGetOrder(svc, orders)).Methods("GET")
	admin.HandleFunc("/orders/{id}/quote", handleSendQuote(svc)).Methods("POST")
	admin.HandleFunc("/orders/{id}/status", handleSetStatus(svc)).Methods("PATCH")
	admin.HandleFunc("/messages", handleAgentMessage(svc)).Methods("POST")
}

// auditAdmin records an admin action for the agent behind r
func auditAdmin(r *http.Request, operation, target string, err error) {
	id, _ := identity.Get(r.Context())
	event := audit.AdminEvent{
		ClientIP:  id.ClientIP(),
		Operation: operation,
		Target:    target,
		Success:   err == nil,
	}
	if id != nil {
		event.Agent = id.Agent
	}
	if err != nil {
		event.Error = err.Error()
	}
	audit.Log(event)
}

func handleCustomerOrders(svc *flow.Service, orders store.OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := mux.Vars(r)["phone"]
		logger := log.FromContext(r.Context())

		found, err := svc.Ledger().CustomerOrders(r.Context(), phone)
		auditAdmin(r, "list_orders", phone, err)
		if err != nil {
			logger.Error().Err(err).Str("phone", phone).Msg("failed to list customer orders")
			respondWithError(w, http.StatusInternalServerError, "failed to read orders")
			return
		}

		response := CustomerOrdersResponse{Phone: phone, Orders: found}
		if response.Orders == nil {
			response.Orders = []sheets.Order{}
		}
		if orders != nil {
			mirrored, err := orders.FindByCustomerPhone(r.Context(), phone)
			if err != nil {
				logger.Warn().Err(err).Str("phone", phone).Msg("failed to read mirrored orders")
			}
			response.Mirrored = mirrored
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleGetOrder(svc *flow.Service, orders store.OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		logger := log.FromContext(r.Context())

		order, err := svc.Ledger().FindOrder(r.Context(), id)
		auditAdmin(r, "get_order", id, err)
		if err != nil {
			respondWithOrderError(w, r, err)
			return
		}

		response := OrderResponse{Order: order}
		if orders != nil {
			mirror, err := orders.FindByRef(r.Context(), order.ID)
			switch {
			case err == nil:
				response.Mirror = mirror
			case !errors.Is(err, store.ErrOrderNotFound):
				logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to read mirrored order")
			}
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleSendQuote(svc *flow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req QuoteRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		amount, err := pricing.ParseAmount(req.Amount)
		if err != nil {
			auditAdmin(r, "send_quote", id, err)
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		quote, err := svc.SendQuote(r.Context(), id, amount)
		auditAdmin(r, "send_quote", id, err)
		if err != nil {
			respondWithOrderError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, QuoteResponse{OrderID: id, Quote: quote})
	}
}

func handleSetStatus(svc *flow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req StatusRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		order, err := svc.SetOrderStatus(r.Context(), id, req.Status)
		auditAdmin(r, "set_status", id, err)
		if err != nil {
			respondWithOrderError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, OrderResponse{Order: order})
	}
}

func handleAgentMessage(svc *flow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MessageRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.To == "" || req.Body == "" {
			respondWithError(w, http.StatusBadRequest, "to and body are required")
			return
		}

		err := svc.SendAgentMessage(r.Context(), req.To, req.Body)
		auditAdmin(r, "send_message", req.To, err)
		if err != nil {
			logger := log.FromContext(r.Context())
			logger.Error().Err(err).Str("to", req.To).Msg("failed to send agent message")
			respondWithError(w, http.StatusBadGateway, "failed to send message")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	}
}

// respondWithOrderError maps ledger and pricing errors to status codes
func respondWithOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sheets.ErrOrderNotFound):
		respondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, sheets.ErrUnknownStatus), errors.Is(err, pricing.ErrInvalidAmount):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger := log.FromContext(r.Context())
		logger.Error().Err(err).Msg("admin request failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
