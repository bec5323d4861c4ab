package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

// CartService is the cart behavior the handlers need.
type CartService interface {
	AddToCart(ctx context.Context, product domain.Product) error
	RemoveFromCart(ctx context.Context, productID int64) error
	IncrementQuantity(ctx context.Context, productID int64) error
	DecrementQuantity(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error
	Items() []domain.LineItem
	ObserveCartItems(ctx context.Context) <-chan []domain.LineItem
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(cart CartService, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
}

type CartResponseDTO struct {
	Items      []domain.LineItem `json:"items"`
	LineCount  int               `json:"line_count"`
	TotalPrice decimal.Decimal   `json:"total_price"`
}

func newCartResponse(items []domain.LineItem) CartResponseDTO {
	if items == nil {
		items = []domain.LineItem{}
	}
	return CartResponseDTO{
		Items:      items,
		LineCount:  len(items),
		TotalPrice: domain.TotalPrice(items),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Items()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	err := h.cart.AddToCart(ctx, domain.Product{
		ID:    req.ProductID,
		Title: req.Title,
		Image: req.Image,
		Price: req.Price,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, newCartResponse(h.cart.Items()))
}

func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, h.cart.IncrementQuantity)
}

func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, h.cart.DecrementQuantity)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, h.cart.RemoveFromCart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.ClearCart(ctx); err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Items()))
}

// StreamCart sends the cart as server-sent events: the current state first,
// then one event per committed change.
func (h *CartHandler) StreamCart(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for items := range h.cart.ObserveCartItems(r.Context()) {
		data, err := json.Marshal(newCartResponse(items))
		if err != nil {
			h.log.ErrorContext(r.Context(), "failed to encode cart event", slog.Any("error", err))
			return
		}
		if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *CartHandler) mutateItem(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	if err := op(ctx, productID); err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Items()))
}
