// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package escnode

import (
	"context"
	"sort"

	"github.com/ethscriptions-protocol/esc-node/esctypes"
	"github.com/ethscriptions-protocol/esc-node/ethscription"
	"github.com/ethscriptions-protocol/esc-node/validation"
)

// Deriver re-runs detection for a single block on behalf of gap-detection
// validation jobs, which arrive after the importer's transient state for the
// block is gone.
type Deriver struct {
	l1       L1Client
	detector *ethscription.Detector
}

func NewDeriver(l1 L1Client, detector *ethscription.Detector) *Deriver {
	return &Deriver{l1: l1, detector: detector}
}

func (d *Deriver) DeriveOperations(ctx context.Context, l1Block uint64) ([]validation.OperationSummary, error) {
	block, err := d.l1.BlockByNumber(ctx, l1Block)
	if err != nil {
		return nil, err
	}
	txs := make([]*esctypes.L1Transaction, len(block.Transactions))
	copy(txs, block.Transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].TransactionIndex < txs[j].TransactionIndex
	})
	var out []validation.OperationSummary
	for _, tx := range txs {
		for _, op := range d.detector.Detect(tx) {
			out = append(out, summarizeOperation(tx, op))
		}
	}
	return out, nil
}

func summarizeOperation(tx *esctypes.L1Transaction, op *esctypes.Operation) validation.OperationSummary {
	summary := validation.OperationSummary{
		Kind:   op.Kind.String(),
		TxHash: tx.Hash,
	}
	switch op.Kind {
	case esctypes.OperationCreate:
		summary.EthscriptionID = op.TxHash
		summary.From = op.Creator
		summary.To = op.InitialOwner
	default:
		summary.EthscriptionID = op.EthscriptionID
		summary.From = op.From
		summary.To = op.To
	}
	return summary
}
