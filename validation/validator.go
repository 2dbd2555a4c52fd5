// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// feedBlock is the reference feed's per-block event listing.
type feedBlock struct {
	Creates []struct {
		TransactionHash common.Hash    `json:"transaction_hash"`
		InitialOwner    common.Address `json:"initial_owner"`
	} `json:"creates"`
	Transfers []struct {
		EthscriptionID common.Hash    `json:"ethscription_id"`
		From           common.Address `json:"from"`
		To             common.Address `json:"to"`
	} `json:"transfers"`
}

// FeedValidator compares the derived operation list against the reference
// feed's expected events for the block.
type FeedValidator struct{}

func NewFeedValidator() *FeedValidator {
	return &FeedValidator{}
}

func (v *FeedValidator) ValidateL1Block(ctx context.Context, job Job) (*Outcome, error) {
	var expected feedBlock
	if err := json.Unmarshal(job.ApiData, &expected); err != nil {
		return nil, errors.Wrap(ErrTransient, "undecodable reference feed payload: "+err.Error())
	}

	var errs []string

	expectedCreates := make(map[common.Hash]bool, len(expected.Creates))
	for _, c := range expected.Creates {
		expectedCreates[c.TransactionHash] = false
	}
	expectedTransfers := make(map[string]int, len(expected.Transfers))
	for _, t := range expected.Transfers {
		expectedTransfers[transferKey(t.EthscriptionID, t.From, t.To)]++
	}

	derivedCreates, derivedTransfers := 0, 0
	for _, op := range job.Operations {
		if op.Kind == "create" {
			derivedCreates++
			if _, ok := expectedCreates[op.EthscriptionID]; !ok {
				errs = append(errs, fmt.Sprintf("derived create %s not in reference feed", op.EthscriptionID))
				continue
			}
			expectedCreates[op.EthscriptionID] = true
			continue
		}
		derivedTransfers++
		key := transferKey(op.EthscriptionID, op.From, op.To)
		if expectedTransfers[key] == 0 {
			errs = append(errs, fmt.Sprintf("derived %s of %s not in reference feed", op.Kind, op.EthscriptionID))
			continue
		}
		expectedTransfers[key]--
	}
	for txHash, seen := range expectedCreates {
		if !seen {
			errs = append(errs, fmt.Sprintf("reference feed create %s not derived", txHash))
		}
	}
	for key, count := range expectedTransfers {
		if count > 0 {
			errs = append(errs, fmt.Sprintf("reference feed transfer %s not derived (%d missing)", key, count))
		}
	}

	stats, err := json.Marshal(map[string]interface{}{
		"l1_block":           job.L1Block,
		"l2_blocks":          len(job.L2BlockHashes),
		"derived_creates":    derivedCreates,
		"derived_transfers":  derivedTransfers,
		"expected_creates":   len(expected.Creates),
		"expected_transfers": len(expected.Transfers),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Outcome{Success: len(errs) == 0, Errors: errs, Stats: stats}, nil
}

func transferKey(id common.Hash, from, to common.Address) string {
	return strings.Join([]string{id.Hex(), from.Hex(), to.Hex()}, ":")
}
