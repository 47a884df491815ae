package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/auth"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// CartHandler is the facade UI consumers call. They never mutate cart state
// directly, only through the manager's operations.
type CartHandler struct {
	manager   service.CartManager
	inspector *auth.Inspector
	log       logger.Logger
}

func NewCartHandler(manager service.CartManager, inspector *auth.Inspector, log logger.Logger) *CartHandler {
	return &CartHandler{
		manager:   manager,
		inspector: inspector,
		log:       log,
	}
}

// response mirrors the envelope of the external cart API so UI consumers
// deal with a single wire format.
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (h *CartHandler) writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Success: true, Data: data}); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *CartHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Success: false, Message: message})
}

func (h *CartHandler) statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotInitialized):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

type addItemRequest struct {
	Product        entity.ProductSnapshot `json:"product"`
	Quantity       int                    `json:"quantity"`
	Specifications string                 `json:"specifications"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.manager.AddToCart(r.Context(), req.Product, req.Quantity, req.Specifications); err != nil {
		h.log.Errorf("Failed to add product %s to cart: %v", req.Product.ID, err)
		h.writeError(w, h.statusFor(err), err.Error())
		return
	}
	h.writeData(w, http.StatusOK, h.manager.GetSummary())
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.UpdateQuantity(r.Context(), itemID, req.Quantity); err != nil {
		h.log.Errorf("Failed to update cart item %s: %v", itemID, err)
		h.writeError(w, h.statusFor(err), err.Error())
		return
	}
	h.writeData(w, http.StatusOK, h.manager.GetSummary())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	if err := h.manager.RemoveFromCart(r.Context(), itemID); err != nil {
		h.log.Errorf("Failed to remove cart item %s: %v", itemID, err)
		h.writeError(w, h.statusFor(err), err.Error())
		return
	}
	h.writeData(w, http.StatusOK, h.manager.GetSummary())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.ClearCart(r.Context()); err != nil {
		h.log.Errorf("Failed to clear cart: %v", err)
		h.writeError(w, h.statusFor(err), err.Error())
		return
	}
	h.writeData(w, http.StatusOK, h.manager.GetSummary())
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.manager.GetItems())
}

func (h *CartHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.manager.GetSummary())
}

type loginRequest struct {
	Token string `json:"token"`
}

// Login turns a session token into an authenticated cart session. The
// anonymous cart snapshot, if any, is merged server-side by the manager.
func (h *CartHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.inspector.Inspect(req.Token)
	if err != nil {
		h.log.Warnf("Rejected session token: %v", err)
		h.writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	if err := h.manager.SetAuthStatus(r.Context(), service.AuthStateAuthenticated, session.UserID, session.Token); err != nil {
		h.log.Errorf("Failed to enter authenticated state for user %s: %v", session.UserID, err)
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeData(w, http.StatusOK, h.manager.GetSummary())
}

func (h *CartHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.SetAuthStatus(r.Context(), service.AuthStateAnonymous, "", ""); err != nil {
		h.log.Errorf("Failed to enter anonymous state: %v", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeData(w, http.StatusOK, h.manager.GetSummary())
}
