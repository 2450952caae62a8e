package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found")

	// Credit Errors
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountFrozen       = errors.New("account is frozen until the subscription period ends")

	// AutoPilot Errors
	ErrInvalidConfig      = errors.New("invalid autopilot configuration")
	ErrRunInProgress      = errors.New("a generation run is already in progress for this user")
	ErrEmptyResolutionSet = errors.New("no candidate values left after excluding the random sentinel")

	// Generation Errors
	ErrGenerationFailed = errors.New("content generation failed")

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// General Request/Server Errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidInput = errors.New("invalid input data")
)
