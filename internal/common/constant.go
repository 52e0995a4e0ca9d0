// Package common contains shared constants and sentinel errors used across
// Quietpage components.
package common

// AuthHeaderName is the HTTP header used to carry the bearer access token
// on authenticated API requests.
const AuthHeaderName = "Authorization"

// DateLayout is the canonical calendar-day format used for journal entries
// and drafts. One entry exists per (user, date) in this layout.
const DateLayout = "2006-01-02"
