package shop

import (
	"context"
	"fmt"
	"mime/multipart"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/validate"
)

// Products returns one page of the public catalog, newest first.
func (s *Service) Products(ctx context.Context, page int) ([]domain.Product, domain.Page, error) {
	total, err := s.store.CountProducts(ctx)
	if err != nil {
		return nil, domain.Page{}, err
	}
	p := domain.NewPage(page, s.cfg.PerPage, total)
	products, err := s.store.ListProducts(ctx, p.Offset(), p.Limit())
	if err != nil {
		return nil, domain.Page{}, err
	}
	return products, p, nil
}

// Product returns a single product.
func (s *Service) Product(ctx context.Context, id int64) (domain.Product, error) {
	return s.store.ProductByID(ctx, id)
}

// OwnerProducts returns one page of the products ownerID sells.
func (s *Service) OwnerProducts(ctx context.Context, ownerID int64, page int) ([]domain.Product, domain.Page, error) {
	total, err := s.store.CountProductsByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.Page{}, err
	}
	p := domain.NewPage(page, s.cfg.PerPage, total)
	products, err := s.store.ListProductsByOwner(ctx, ownerID, p.Offset(), p.Limit())
	if err != nil {
		return nil, domain.Page{}, err
	}
	return products, p, nil
}

// OwnedProduct returns product id if ownerID owns it, else FORBIDDEN.
func (s *Service) OwnedProduct(ctx context.Context, ownerID, id int64) (domain.Product, error) {
	p, err := s.store.ProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if p.OwnerID != ownerID {
		return domain.Product{}, domain.Forbidden("You can only change your own products.")
	}
	return p, nil
}

// CreateProduct validates the form, stores the image and lists the product.
// An image is required.
func (s *Service) CreateProduct(ctx context.Context, ownerID int64, form validate.ProductForm, image *multipart.FileHeader) (domain.Product, error) {
	in, err := validate.Product(form)
	if err != nil {
		return domain.Product{}, err
	}
	if image == nil {
		return domain.Product{}, domain.Invalid("image", "Attached file is not an image.")
	}

	imagePath, err := s.images.Save(image)
	if err != nil {
		return domain.Product{}, err
	}

	now := s.clock.Now()
	p, err := s.store.CreateProduct(ctx, domain.Product{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		ImagePath:   imagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.removeImage(imagePath)
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product created", zap.Int64("product_id", p.ID), zap.Int64("owner_id", ownerID))
	return p, nil
}

// UpdateProduct applies the form to an owned product. A non-nil image
// replaces the old one, which is then deleted.
func (s *Service) UpdateProduct(ctx context.Context, ownerID, id int64, form validate.ProductForm, image *multipart.FileHeader) (domain.Product, error) {
	p, err := s.OwnedProduct(ctx, ownerID, id)
	if err != nil {
		return domain.Product{}, err
	}
	in, err := validate.Product(form)
	if err != nil {
		return domain.Product{}, err
	}

	oldImage := p.ImagePath
	if image != nil {
		newPath, err := s.images.Save(image)
		if err != nil {
			return domain.Product{}, err
		}
		p.ImagePath = newPath
	}
	p.Title, p.Description, p.Price = in.Title, in.Description, in.Price
	p.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if p.ImagePath != oldImage {
			s.removeImage(p.ImagePath)
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	if p.ImagePath != oldImage {
		s.removeImage(oldImage)
	}
	s.log.Info("product updated", zap.Int64("product_id", p.ID))
	return p, nil
}

// DeleteProduct removes an owned product and its image. It also disappears
// from every cart; placed orders keep their snapshot.
func (s *Service) DeleteProduct(ctx context.Context, ownerID, id int64) error {
	p, err := s.OwnedProduct(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, id, ownerID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.removeImage(p.ImagePath)
	s.log.Info("product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *Service) removeImage(path string) {
	if path == "" {
		return
	}
	if err := s.images.Delete(path); err != nil {
		s.log.Warn("delete image failed", zap.String("path", path), zap.Error(err))
	}
}
