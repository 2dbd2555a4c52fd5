// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package escnode

import "github.com/pkg/errors"

// The importer's error taxonomy. Derivation-level problems never surface
// here — they are coerced to "no operation" inside the detector and
// extractor. These errors are about state integrity and liveness.
var (
	// ErrBlockNotReady means the source chain has not produced (or the
	// prefetcher has not finished fetching) the next block. Transient: the
	// importer sleeps and retries.
	ErrBlockNotReady = errors.New("block not ready to import")

	// ErrReorgDetected means the fetched block does not extend the cached
	// chain. Fatal to the current loop; the supervisor restarts with fresh
	// cursor discovery.
	ErrReorgDetected = errors.New("L1 reorg detected")

	// ErrValidationFailure means a persisted validation result at or behind
	// the import position reported failure. Import halts until an operator
	// intervenes.
	ErrValidationFailure = errors.New("validation failure recorded")

	// ErrFetchFailed wraps an L1 RPC failure inside the prefetcher.
	ErrFetchFailed = errors.New("prefetch failed")

	// ErrCancelled is returned by in-flight prefetches during shutdown.
	ErrCancelled = errors.New("prefetch cancelled")
)
