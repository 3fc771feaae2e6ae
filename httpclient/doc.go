// Package httpclient sends requests to a token-authenticated HTTP API.
//
// Every call passes through three stages:
//   - Token gate: when the stored session token is older than the refresh
//     interval, GET <base>/whoami is issued with the current token and its
//     body replaces the token. A 401 from whoami removes the token and the
//     call fails with an ExpiredTokenError. Concurrent callers share one refresh.
//   - Option translation: the Descriptor is validated against a deny-list of
//     transport options, the api key is appended as a query parameter and the
//     Authorization header is attached.
//   - Transport invocation: transport failures are re-invoked up to the retry
//     count; HTTP error statuses are returned as RequestError and never retried.
//
// Retries
//   - Controlled via Builder.WithRetries(maxRetries, retryDelay) or Descriptor.Retries.
//   - A zero retry delay re-invokes immediately; otherwise the delay grows
//     exponentially up to ten times the configured value.
//   - Interceptor errors are not retried and are surfaced immediately.
//
// Notes
//   - Request bodies are encoded once and replayed on each attempt.
//   - Refresh sub-requests never consult the token gate, so a refresh cannot recurse.
package httpclient
