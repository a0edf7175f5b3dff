// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory is the HTTP client for the memory service, the
// document store that backs checkpoint persistence. The service itself
// is an external collaborator; this package only speaks its store and
// load endpoints, converting non-2xx responses into [ServiceError]
// values carrying the service's own message.
package memory
