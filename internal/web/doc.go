// Package web serves the storefront over HTTP with gin.
//
// Pages are rendered from embedded html/template files. Every request
// carries a session (see package session); state-changing requests are
// guarded by gorilla/csrf and must echo the page's token in the _csrf form
// field or a csrf-token / X-CSRF-Token header.
package web
