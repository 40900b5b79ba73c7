package scraper

import (
	"context"

	"github.com/maltedev/falabella-scraper/internal/models"
)

// Sink mirrors accepted records somewhere other than the output files. Sink
// failures are logged and never undo the file append.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec *models.ProductRecord) error
}
