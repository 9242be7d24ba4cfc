// Package auth implements accounts: signup, login, and password reset by
// emailed one-time token.
//
// Passwords are stored as bcrypt hashes. Login failures never reveal whether
// the email exists. Reset tokens are 32 random bytes, hex encoded, and expire
// one hour after issue.
package auth
