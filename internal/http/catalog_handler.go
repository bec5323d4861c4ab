package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/shopcore/internal/catalog"
	"github.com/fjod/go_cart/shopcore/internal/domain"
)

// CatalogController is the view state machine behind the catalog endpoints.
type CatalogController interface {
	Select(category string)
	Refresh()
	View() (string, catalog.ViewState)
}

type CatalogHandler struct {
	controller CatalogController
}

func NewCatalogHandler(controller CatalogController) *CatalogHandler {
	return &CatalogHandler{controller: controller}
}

type SelectCategoryRequestDTO struct {
	Category string `json:"category"`
}

type CatalogStateDTO struct {
	Status     string           `json:"status"`
	Category   string           `json:"category"`
	Products   []domain.Product `json:"products,omitempty"`
	Categories []string         `json:"categories,omitempty"`
	Message    string           `json:"message,omitempty"`
}

func newCatalogState(category string, state catalog.ViewState) CatalogStateDTO {
	dto := CatalogStateDTO{Category: category}
	switch s := state.(type) {
	case catalog.Loading:
		dto.Status = "loading"
	case catalog.Success:
		dto.Status = "success"
		dto.Products = s.Products.Value()
		if dto.Products == nil {
			dto.Products = []domain.Product{}
		}
		dto.Categories = s.Categories
	case catalog.Error:
		dto.Status = "error"
		dto.Message = s.Message
	default:
		dto.Status = "error"
		dto.Message = fmt.Sprintf("unhandled catalog view state %T", state)
	}
	return dto
}

func (h *CatalogHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newCatalogState(h.controller.View()))
}

// SelectCategory starts loading the requested category and returns the
// state right after the switch, normally Loading.
func (h *CatalogHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	var req SelectCategoryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.controller.Select(req.Category)
	respondJSON(w, http.StatusAccepted, newCatalogState(h.controller.View()))
}

func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.controller.Refresh()
	respondJSON(w, http.StatusAccepted, newCatalogState(h.controller.View()))
}
