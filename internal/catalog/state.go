package catalog

import (
	"github.com/fjod/go_cart/shopcore/internal/domain"
	"github.com/fjod/go_cart/shopcore/internal/live"
)

// ViewState is one of Loading, Success or Error.
type ViewState interface {
	viewState()
}

type Loading struct{}

// Success carries a product list that can be refreshed in place and the
// categories fetched alongside it.
type Success struct {
	Products   *live.Subject[[]domain.Product]
	Categories []string
}

// Error holds the human-readable cause of the last failed load.
type Error struct {
	Message string
}

func (Loading) viewState() {}

func (Success) viewState() {}

func (Error) viewState() {}
