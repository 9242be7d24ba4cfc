package harness

import (
	"context"
	"fmt"
	"mime/multipart"
	"sort"
	"time"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/payment"
	"github.com/roach88/storefront/internal/validate"
)

type actionSpec struct {
	needsUser bool
	run       func(h *Harness, ctx context.Context, user domain.User, a args) (map[string]any, error)
}

var actions = map[string]actionSpec{
	"signup":            {run: (*Harness).signup},
	"login":             {run: (*Harness).login},
	"add_product":       {needsUser: true, run: (*Harness).addProduct},
	"update_product":    {needsUser: true, run: (*Harness).updateProduct},
	"delete_product":    {needsUser: true, run: (*Harness).deleteProduct},
	"add_to_cart":       {needsUser: true, run: (*Harness).addToCart},
	"remove_from_cart":  {needsUser: true, run: (*Harness).removeFromCart},
	"view_cart":         {needsUser: true, run: (*Harness).viewCart},
	"place_order":       {needsUser: true, run: (*Harness).placeOrder},
	"start_checkout":    {needsUser: true, run: (*Harness).startCheckout},
	"pay":               {needsUser: true, run: (*Harness).pay},
	"complete_checkout": {needsUser: true, run: (*Harness).completeCheckout},
	"advance_clock":     {run: (*Harness).advanceClock},
}

func actionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Harness) signup(ctx context.Context, _ domain.User, a args) (map[string]any, error) {
	password := a.str("password")
	u, err := h.auth.Signup(ctx, validate.SignupForm{
		Name:            a.str("name"),
		Email:           a.str("email"),
		Password:        password,
		ConfirmPassword: a.strOr("confirm_password", password),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"user_id": u.ID, "email": u.Email}, nil
}

func (h *Harness) login(ctx context.Context, _ domain.User, a args) (map[string]any, error) {
	u, err := h.auth.Authenticate(ctx, a.str("email"), a.str("password"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"user_id": u.ID}, nil
}

func (h *Harness) addProduct(ctx context.Context, user domain.User, a args) (map[string]any, error) {
	p, err := h.shop.CreateProduct(ctx, user.ID, productForm(a), imageArg(a))
	if err != nil {
		return nil, err
	}
	return productResult(p), nil
}

func (h *Harness) updateProduct(ctx context.Context, user domain.User, a args) (map[string]any, error) {
	id, err := a.id("product_id")
	if err != nil {
		return nil, err
	}
	p, err := h.shop.UpdateProduct(ctx, user.ID, id, productForm(a), imageArg(a))
	if err != nil {
		return nil, err
	}
	return productResult(p), nil
}

func (h *Harness) deleteProduct(ctx context.Context, user domain.User, a args) (map[string]any, error) {
	id, err := a.id("product_id")
	if err != nil {
		return nil, err
	}
	if err := h.shop.DeleteProduct(ctx, user.ID, id); err != nil {
		return nil, err
	}
	return map[string]any{"product_id": id}, nil
}

func (h *Harness) addToCart(ctx context.Context, user domain.User, a args) (map[string]any, error) {
	id, err := a.id("product_id")
	if err != nil {
		return nil, err
	}
	qty, err := h.shop.AddToCart(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"product_id": id, "quantity": qty}, nil
}

func (h *Harness) removeFromCart(ctx context.Context, user domain.User, a args) (map[string]any, error) {
	id, err := a.id("product_id")
	if err != nil {
		return nil, err
	}
	if err := h.shop.RemoveFromCart(ctx, user.ID, id); err != nil {
		return nil, err
	}
	return map[string]any{"product_id": id}, nil
}

func (h *Harness) viewCart(ctx context.Context, user domain.User, _ args) (map[string]any, error) {
	cart, err := h.shop.Cart(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	lines := make([]any, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, map[string]any{
			"product_id": l.Product.ID,
			"title":      l.Product.Title,
			"quantity":   l.Quantity,
		})
	}
	total, err := cart.Total()
	if err != nil {
		return nil, err
	}
	return map[string]any{"lines": lines, "total": total.String()}, nil
}

func (h *Harness) placeOrder(ctx context.Context, user domain.User, _ args) (map[string]any, error) {
	o, err := h.shop.PlaceOrder(ctx, user)
	if err != nil {
		return nil, err
	}
	return orderResult(o), nil
}

func (h *Harness) startCheckout(ctx context.Context, user domain.User, _ args) (map[string]any, error) {
	sess, cart, err := h.shop.StartCheckout(ctx, user,
		BaseURL+"/checkout/success?session_id="+payment.SessionIDPlaceholder,
		BaseURL+"/checkout/cancel")
	if err != nil {
		return nil, err
	}
	h.checkouts[user.ID] = sess.ID
	return map[string]any{"items": cart.ItemCount(), "total": sess.Total.String()}, nil
}

func (h *Harness) pay(_ context.Context, user domain.User, _ args) (map[string]any, error) {
	id, ok := h.checkouts[user.ID]
	if !ok {
		return nil, domain.NotFound("Checkout session")
	}
	if err := h.payments.MarkPaid(id); err != nil {
		return nil, err
	}
	return map[string]any{"paid": true}, nil
}

// completeCheckout completes the user's last checkout, or with session_of
// the last checkout of another account.
func (h *Harness) completeCheckout(ctx context.Context, user domain.User, a args) (map[string]any, error) {
	owner := user
	if email := a.str("session_of"); email != "" {
		u, err := h.store.UserByEmail(ctx, validate.Email(email))
		if err != nil {
			return nil, &argError{fmt.Sprintf("session_of: unknown account %q", email)}
		}
		owner = u
	}
	o, err := h.shop.CompleteCheckout(ctx, user, h.checkouts[owner.ID])
	if err != nil {
		return nil, err
	}
	return orderResult(o), nil
}

func (h *Harness) advanceClock(_ context.Context, _ domain.User, a args) (map[string]any, error) {
	d, err := time.ParseDuration(a.str("by"))
	if err != nil {
		return nil, &argError{fmt.Sprintf("by: %v", err)}
	}
	now := h.clock.Advance(d)
	return map[string]any{"now": now.Format(time.RFC3339)}, nil
}

func productForm(a args) validate.ProductForm {
	return validate.ProductForm{
		Title:       a.str("title"),
		Price:       a.str("price"),
		Description: a.str("description"),
	}
}

// imageArg turns the image file name into an upload, or nil when absent.
func imageArg(a args) *multipart.FileHeader {
	name := a.str("image")
	if name == "" {
		return nil
	}
	return &multipart.FileHeader{Filename: name}
}

func productResult(p domain.Product) map[string]any {
	return map[string]any{
		"product_id": p.ID,
		"title":      p.Title,
		"price":      p.Price.String(),
		"image":      p.ImagePath,
	}
}

func orderResult(o domain.Order) map[string]any {
	lines := make([]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, map[string]any{
			"title":      l.Title,
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice.String(),
		})
	}
	return map[string]any{
		"order_id": o.ID,
		"number":   o.Number,
		"total":    o.Total.String(),
		"lines":    lines,
	}
}

// argError is a malformed step, as opposed to an operation that failed.
type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

// args reads step arguments decoded from YAML.
type args map[string]any

// str returns the value at key formatted as a string, "" when absent.
func (a args) str(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (a args) strOr(key, def string) string {
	if _, ok := a[key]; !ok {
		return def
	}
	return a.str(key)
}

// id returns a required integer argument.
func (a args) id(key string) (int64, error) {
	switch v := a[key].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
	case nil:
		return 0, &argError{fmt.Sprintf("%s is required", key)}
	}
	return 0, &argError{fmt.Sprintf("%s must be an integer, got %v", key, a[key])}
}
