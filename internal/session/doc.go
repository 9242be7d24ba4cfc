// Package session keeps per-visitor state in SQLite behind an opaque cookie.
//
// A session holds the logged-in user id, one-shot flash messages and the id
// of a checkout awaiting payment. The cookie carries only a random 256-bit
// id signed with gorilla/securecookie; everything else stays server side.
package session
