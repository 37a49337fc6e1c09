// Package client contains the transport layer of the gophstore CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     the store backend: authentication, catalog, cart, notifications and
//     payments.
//  2. A concrete REST implementation (see HTTPClient) that injects the bearer
//     token and a request id through its round tripper, wraps the transport
//     with OpenTelemetry instrumentation, retries idempotent requests on
//     transport failures and decodes every response into a typed record.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) opening the
//     SQLite file and applying the embedded goose migrations.
//
// # Error Handling
//
// No response at all is a *TransportError, matching ErrUnavailable. A non-2xx
// response is a *ServiceError; a 401 matches ErrUnauthorized, a 403
// ErrForbidden. Detail extracts the message the backend attached.
//
// Checkout, charge and the cart mutations are never retried.
package client
