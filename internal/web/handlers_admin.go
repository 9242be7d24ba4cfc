package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/validate"
)

func (s *Server) handleAdminProducts(c *gin.Context) {
	user, _ := userOf(c)
	products, page, err := s.shop.OwnerProducts(c.Request.Context(), user.ID, validate.PageNumber(c.Query("page")))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "admin/products", gin.H{
		"pageTitle": "Admin Products",
		"products":  products,
		"page":      page,
	})
}

func (s *Server) handleAddProductForm(c *gin.Context) {
	s.render(c, http.StatusOK, "admin/edit-product", gin.H{
		"pageTitle": "Add Product",
		"editing":   false,
		"form":      validate.ProductForm{},
	})
}

func (s *Server) handleAddProduct(c *gin.Context) {
	user, _ := userOf(c)
	var form validate.ProductForm
	err := bindForm(c, &form)
	var image *multipart.FileHeader
	if err == nil {
		image, err = formImage(c)
	}
	if err == nil {
		_, err = s.shop.CreateProduct(c.Request.Context(), user.ID, form, image)
	}
	if domain.IsValidation(err) {
		s.render(c, http.StatusUnprocessableEntity, "admin/edit-product", gin.H{
			"pageTitle":    "Add Product",
			"path":         "/admin/add-product",
			"editing":      false,
			"form":         form,
			"errorMessage": domain.MessageOf(err, "Invalid product."),
			"errorField":   fieldOf(err),
		})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, "/admin/products")
}

// handleEditProductForm shows the edit form; it requires ?edit=true.
func (s *Server) handleEditProductForm(c *gin.Context) {
	if c.Query("edit") != "true" {
		s.redirect(c, "/")
		return
	}
	id, err := validate.ID(c.Param("productId"))
	if err != nil {
		s.redirect(c, "/admin/products")
		return
	}
	user, _ := userOf(c)
	p, err := s.shop.OwnedProduct(c.Request.Context(), user.ID, id)
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		s.flash(c, session.FlashError, "Product not found")
		s.redirect(c, "/")
		return
	case domain.IsForbidden(err):
		s.flash(c, session.FlashError, "Unauthorized access")
		s.redirect(c, "/admin/products")
		return
	default:
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "admin/edit-product", gin.H{
		"pageTitle": "Edit Product",
		"path":      "/admin/edit-product",
		"editing":   true,
		"productID": p.ID,
		"form": validate.ProductForm{
			Title:       p.Title,
			Price:       p.Price.Decimal(),
			Description: p.Description,
		},
	})
}

func (s *Server) handleEditProduct(c *gin.Context) {
	user, _ := userOf(c)
	rawID := c.PostForm("productId")
	id, err := validate.ID(rawID)
	if err != nil {
		s.flash(c, session.FlashError, "Product not found")
		s.redirect(c, "/admin/products")
		return
	}
	var form validate.ProductForm
	err = bindForm(c, &form)
	var image *multipart.FileHeader
	if err == nil {
		image, err = formImage(c)
	}
	if err == nil {
		_, err = s.shop.UpdateProduct(c.Request.Context(), user.ID, id, form, image)
	}
	switch {
	case err == nil:
		s.redirect(c, "/admin/products")
	case domain.IsValidation(err):
		s.render(c, http.StatusUnprocessableEntity, "admin/edit-product", gin.H{
			"pageTitle":    "Edit Product",
			"path":         "/admin/edit-product",
			"editing":      true,
			"productID":    id,
			"form":         form,
			"errorMessage": domain.MessageOf(err, "Invalid product."),
			"errorField":   fieldOf(err),
		})
	case domain.IsNotFound(err):
		s.flash(c, session.FlashError, "Product not found")
		s.redirect(c, "/admin/products")
	case domain.IsForbidden(err):
		s.flash(c, session.FlashError, "Unauthorized access")
		s.redirect(c, "/admin/products")
	default:
		s.fail(c, err)
	}
}

// handleDeleteProductJSON serves the asynchronous delete button.
func (s *Server) handleDeleteProductJSON(c *gin.Context) {
	id, err := validate.ID(c.Param("productId"))
	if err != nil {
		s.json(c, http.StatusUnprocessableEntity, "Validation failed")
		return
	}
	user, _ := userOf(c)
	err = s.shop.DeleteProduct(c.Request.Context(), user.ID, id)
	switch {
	case err == nil:
		s.json(c, http.StatusOK, "Product deleted successfully")
	case domain.IsNotFound(err):
		s.json(c, http.StatusNotFound, "Product not found")
	case domain.IsForbidden(err):
		s.json(c, http.StatusForbidden, "Unauthorized access")
	default:
		_ = c.Error(err)
		s.json(c, http.StatusInternalServerError, "Error deleting product")
	}
}

// handleDeleteProduct is the form fallback for browsers without scripts.
func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, err := validate.ID(c.PostForm("productId"))
	if err == nil {
		user, _ := userOf(c)
		err = s.shop.DeleteProduct(c.Request.Context(), user.ID, id)
	}
	switch {
	case err == nil:
		s.flash(c, session.FlashSuccess, "Product deleted successfully")
	case domain.IsNotFound(err), domain.IsValidation(err):
		s.flash(c, session.FlashError, "Product not found")
	case domain.IsForbidden(err):
		s.flash(c, session.FlashError, "Unauthorized access")
	default:
		s.fail(c, err)
		return
	}
	s.redirect(c, "/admin/products")
}

// bindForm decodes the posted form into dst by its form tags. The rules
// themselves are applied by the validate package.
func bindForm(c *gin.Context, dst any) error {
	if err := c.ShouldBind(dst); err != nil {
		return domain.Invalid("form", "The form could not be read.")
	}
	return nil
}

// formImage returns the uploaded image, or nil when none was sent.
func formImage(c *gin.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size == 0 && fh.Filename == "" {
		return nil, nil
	}
	return fh, nil
}
