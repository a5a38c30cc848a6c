package priceservice

import "github.com/spglobal/priceservice/internal/price"

// Re-exported so callers of this package don't also need to import
// internal/price just to switch on error kinds.
const (
	InvalidArgument = price.InvalidArgument
	IllegalState    = price.IllegalState
	NotFound        = price.NotFound
	Internal        = price.Internal
)

// KindOf returns the Kind of err if it originated from this package,
// and false otherwise.
func KindOf(err error) (price.Kind, bool) {
	return price.KindOf(err)
}
