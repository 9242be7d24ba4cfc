// Package mail sends transactional email: welcome messages, password reset
// links and order confirmations with the invoice attached.
//
// Request handlers never wait on SMTP. They hand messages to a Queue, which
// implements Mailer itself and delivers from a single background worker.
// Delivery failures are logged and counted, never returned to the customer.
package mail
