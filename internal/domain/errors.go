package domain

import "errors"

// ErrEmailTaken reports a registration attempt for an email that already has
// an account.
var ErrEmailTaken = errors.New("email already registered")
