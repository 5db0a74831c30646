// Package client talks to the document-control REST API.
//
// # Overview
//
//  1. Client is the transport-agnostic contract for every endpoint the
//     application uses (auth, documents, versions, checkout, tasks).
//  2. HTTPClient implements it over net/http. It attaches the session's
//     bearer token and an X-Request-ID to each request, encodes JSON,
//     form and multipart bodies, and normalises failures.
//  3. InitDatabase and RunMigrations bootstrap the local SQLite file that
//     holds the session token.
//
// # Error Handling
//
// Failures match one sentinel with errors.Is:
//
//	ErrNotFound     404
//	ErrConflict     409, 423, or a 400 reporting a checkout lock
//	ErrUnauthorized 401; the session is invalidated first
//	ErrValidation   any other 4xx, with the server's detail message
//	ErrUnavailable  5xx
//	ErrTransport    no usable response (dial, timeout, truncated body)
//
// Status errors are *APIError values carrying the status code and detail.
// Nothing is retried.
package client
