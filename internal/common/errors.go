// Package common defines shared constants and sentinel errors used across
// the authentication core. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Session slot errors. The route guard treats all three identically;
	// they exist so logs can tell an empty slot from a corrupt one.
	ErrNoSession        = errors.New("no session")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionCorrupted = errors.New("session corrupted")
)
