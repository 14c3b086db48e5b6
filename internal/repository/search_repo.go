package repository

import (
	"context"

	"github.com/user/listing-pipeline/internal/entity"
)

// SearchClient fetches one page of a source's search endpoint.
type SearchClient interface {
	SearchPage(ctx context.Context, q entity.SearchQuery) (*entity.SearchPage, error)
}
