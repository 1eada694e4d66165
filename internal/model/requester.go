package model

// Requester is the authenticated caller as asserted by the session token.
type Requester struct {
	ID    string
	Email string
	Role  string
}
