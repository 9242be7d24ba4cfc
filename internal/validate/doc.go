// Package validate checks and sanitizes form input before it reaches the
// shop and auth services.
//
// Validators return the first failing field as a *domain.Error with code
// VALIDATION, whose Message is shown to the user verbatim. Text fields are
// NFC-normalized, trimmed and stripped of markup before length checks.
package validate
