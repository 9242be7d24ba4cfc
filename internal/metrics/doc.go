// Package metrics holds the Prometheus collectors for the storefront.
//
// Each Metrics value owns its registry, so tests and multiple servers in one
// process never collide on registration. All recording methods are safe on a
// nil *Metrics, which lets services run without instrumentation.
package metrics
