// Package catalog exposes read-only product configuration. The catalog
// editor is an external collaborator; this subsystem only ever looks
// products up.
package catalog

import (
	"context"

	"github.com/soltoura/booking-api/internal/domain"
)

// Catalog resolves product configuration by id. Implementations return
// domain.ErrInvalidProduct for unknown ids.
type Catalog interface {
	Product(ctx context.Context, id string) (domain.Product, error)
}

// Static is an in-memory catalog, used in tests and for local development
// seeding.
type Static struct {
	products map[string]domain.Product
}

func NewStatic(products ...domain.Product) *Static {
	m := make(map[string]domain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &Static{products: m}
}

func (s *Static) Product(_ context.Context, id string) (domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrInvalidProduct
	}
	return p, nil
}
