// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package validation

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// OperationSummary is the derivation-side view of one operation, reduced to
// the fields the reference feed also exposes.
type OperationSummary struct {
	Kind           string         `json:"kind"`
	TxHash         common.Hash    `json:"transaction_hash"`
	EthscriptionID common.Hash    `json:"ethscription_id"`
	From           common.Address `json:"from"`
	To             common.Address `json:"to"`
}

// Job validates one L1 block. Jobs coming from the importer carry the
// derived operations and the prefetched feed payload; gap-detection jobs
// carry only the block number and the engine re-derives and re-fetches.
type Job struct {
	ID            uuid.UUID
	L1Block       uint64
	L2BlockHashes []common.Hash
	Operations    []OperationSummary
	ApiData       json.RawMessage

	// Rederive marks a gap-detection job whose inputs must be rebuilt.
	Rederive bool
}

// NewGapJob builds a re-validation job for a block with no stored result.
func NewGapJob(l1Block uint64) Job {
	return Job{ID: uuid.New(), L1Block: l1Block, Rederive: true}
}
