// Package domain holds the storefront's core types: users, products, carts,
// orders and the money and paging values shared by every layer.
//
// # Cart and Order
//
// A Cart is mutable. Each CartLine pairs a live Product with a quantity, so
// prices shown in the cart follow the catalog.
//
// An Order is immutable. Each OrderLine carries a snapshot of the product
// title and unit price taken when the order was placed. ProductID is nil once
// the product has been deleted; the snapshot survives.
//
// # Money
//
// Amounts are integer cents (Money). Parsing and formatting go through
// ParseMoney and Money.String; floats never reach storage.
package domain
