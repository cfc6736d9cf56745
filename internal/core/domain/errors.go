package domain

import "errors"

var (
	ErrMalformedEvent   = errors.New("malformed event")
	ErrDisconnected     = errors.New("stream client disconnected")
	ErrPolicyNotFound   = errors.New("policy not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoActivePolicy   = errors.New("no active policy")
	ErrInvalidLayout    = errors.New("invalid layout")
)
