package utils

import "time"

// Application Constants
const (
	AppName    = "Ambulink"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour

	// Dispatch
	DriverLocationUpdateInterval = 30 * time.Second
	NotificationTimeout          = 30 * time.Second

	// User roles carried in tokens and session context
	RolePatient = "patient"
	RoleDriver  = "driver"
	RoleAdmin   = "admin"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidToken     = "invalid token"
	ErrInvalidInput     = "invalid input"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
)
