package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/clock"
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/validate"
)

// Products is where imported products go.
type Products interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
}

// Images stores product image files.
type Images interface {
	SaveReader(r io.Reader, filename string) (string, error)
	Delete(urlPath string) error
}

// Seeder imports catalogs.
type Seeder struct {
	Products Products
	Images   Images
	Clock    clock.Clock
	Log      *zap.Logger
}

// Seed lists every catalog item for owner. Items pass the same validation
// as the product form. It stops at the first failing item; products
// imported before it are kept.
func (s *Seeder) Seed(ctx context.Context, c *Catalog, owner domain.User) ([]domain.Product, error) {
	created := make([]domain.Product, 0, len(c.Products))
	for i, item := range c.Products {
		p, err := s.seedItem(ctx, c, item, owner)
		if err != nil {
			return created, fmt.Errorf("catalog item %d (%q): %w", i, item.Title, err)
		}
		s.Log.Debug("product seeded", zap.Int64("product_id", p.ID), zap.String("title", p.Title))
		created = append(created, p)
	}
	return created, nil
}

func (s *Seeder) seedItem(ctx context.Context, c *Catalog, item Item, owner domain.User) (domain.Product, error) {
	in, err := validate.Product(validate.ProductForm{
		Title:       item.Title,
		Price:       item.Price,
		Description: item.Description,
	})
	if err != nil {
		return domain.Product{}, err
	}

	imagePath, err := s.saveImage(c.ImagePath(item))
	if err != nil {
		return domain.Product{}, err
	}

	now := s.Clock.Now()
	p, err := s.Products.CreateProduct(ctx, domain.Product{
		OwnerID:     owner.ID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		ImagePath:   imagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if derr := s.Images.Delete(imagePath); derr != nil {
			s.Log.Warn("remove seeded image", zap.String("path", imagePath), zap.Error(derr))
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Seeder) saveImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return s.Images.SaveReader(f, filepath.Base(path))
}
