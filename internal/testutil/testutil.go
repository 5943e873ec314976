// Package testutil provides test utilities for buildhistory, including:
//   - Redis container helpers for integration tests (redis.go)
//   - Miniredis and logger helpers for unit tests (miniredis.go)
//   - Queue item and execution record builders (fixtures.go)
//
// Integration test utilities require Docker and are gated behind the "integration"
// build tag. To run integration tests:
//
//	go test -tags=integration ./...
//
// Unit test helpers (miniredis) do not require Docker and work with regular tests.
package testutil
