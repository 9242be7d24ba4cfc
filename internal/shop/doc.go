// Package shop is the storefront's application service: catalog browsing,
// seller product management, carts, orders and hosted checkout.
//
// # Cart to order
//
// A cart is mutable: adding a product already in the cart increments its
// quantity. Placing an order converts the cart in one store transaction,
// snapshotting each product's title and price into order lines and clearing
// the cart. Orders are immutable afterwards; editing or deleting a product
// never changes an order.
//
// # Checkout
//
// StartCheckout opens a payment session for the current cart.
// CompleteCheckout verifies that the session is paid and belongs to the
// caller, then places the order with the session id as payment reference.
// Completing the same session again returns the original order.
//
// # Ownership
//
// Every user may sell. Products can only be edited or deleted by the user
// who created them; other users get FORBIDDEN.
package shop
