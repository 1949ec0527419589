package ingest

import (
	"context"

	"github.com/kailas-cloud/animerec/internal/domain/anime"
	"github.com/kailas-cloud/animerec/internal/transport/jikan"
)

// PageFetcher reads one page of the upstream anime listing.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*jikan.Page, error)
}

// CatalogWriter appends normalized documents to the catalog.
type CatalogWriter interface {
	Append(docs []anime.Document) error
}
