package ownership

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMalformedMessage = errors.New("malformed ownership message")
	ErrExpired          = errors.New("ownership challenge expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrChallengeReused  = errors.New("ownership challenge already redeemed")
)

// MalformedMessageError says why a message could not be parsed as a challenge.
type MalformedMessageError struct {
	Message string
	Reason  string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedMessage, e.Reason)
}

func (e *MalformedMessageError) Is(target error) bool {
	return target == ErrMalformedMessage
}

// ExpiredError carries how long ago the challenge was issued.
type ExpiredError struct {
	Elapsed time.Duration
	Window  time.Duration
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%s: issued %s ago, window is %s", ErrExpired, e.Elapsed, e.Window)
}

func (e *ExpiredError) Is(target error) bool {
	return target == ErrExpired
}

// SignatureError wraps the scheme-specific verification failure.
type SignatureError struct {
	Address string
	Err     error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s for %s: %v", ErrInvalidSignature, e.Address, e.Err)
}

func (e *SignatureError) Is(target error) bool {
	return target == ErrInvalidSignature
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}
