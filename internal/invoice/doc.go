// Package invoice renders order invoices as PDF for download and as plain
// text for confirmation emails.
//
// Both renderings come from the same Invoice value, which Build derives from
// an order's line snapshots. Invoices therefore never change when a product
// is later edited or deleted.
package invoice
