// Package store provides SQLite-backed durable storage for the storefront.
//
// The store holds:
//   - Users: accounts with bcrypt password hashes and password-reset tokens
//   - Products: catalog items owned by the user who listed them
//   - Cart items: the mutable cart/product junction, one row per (user, product)
//   - Orders and order items: immutable snapshots of a checked-out cart
//   - Sessions: server-side HTTP session state
//
// # Cart to Order
//
// PlaceOrder converts a cart into an order inside a single transaction:
// it reads the cart lines joined with their products, inserts the order and
// one order item per line (copying title and unit price), then deletes the
// cart lines. A failure at any step leaves the cart untouched.
//
// Orders created from a hosted payment carry a payment_ref with a UNIQUE
// constraint. Placing an order twice for the same payment_ref returns the
// existing order and leaves the (already cleared) cart alone.
//
// Cart quantities merge: AddToCart uses
// ON CONFLICT(user_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Timestamps are stored as unix milliseconds in UTC; money as integer cents.
package store
