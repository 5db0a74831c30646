// Package common holds constants and sentinel errors shared by the
// doccontrol client packages. Match the errors with errors.Is.
package common

const (
	// AuthorizationHeader carries the bearer token on API requests.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "

	// RequestIDHeader tags each outbound request for server-side tracing.
	RequestIDHeader = "X-Request-ID"

	// AccessTokenKey is the metadata slot holding the session token.
	AccessTokenKey = "access_token"
)
