// Package client is the HTTP client for the Kefi authentication API.
//
// # Overview
//
// APIClient wraps every REST endpoint the account flows need (signup,
// login, password reset, profile, refresh, logout) and acts as the
// request/response interceptor pair:
//
//  1. Authenticated endpoints get "Authorization: Bearer <access>" from
//     the TokenStore.
//  2. A 401 on such a request triggers a token refresh and exactly one
//     retry with the new token. Concurrent 401s share a single refresh
//     call; requests whose token was already rotated by someone else just
//     retry.
//  3. When the refresh fails the stored session is cleared, the
//     session-expired hook runs and the original error is returned.
//
// # Error handling
//
// Every failure is normalized into an *autherr.Error: HTTP status and the
// backend's {"error"|"detail"|"message"} body map to a kind, field lists
// become autherr.Error.Fields, Retry-After becomes RetryAfter. Requests
// that exceed the configured timeout yield autherr.ErrTimeout, transport
// failures autherr.ErrNetwork.
//
// # Concurrency
//
// APIClient is safe for concurrent use.
package client
