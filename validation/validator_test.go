// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package validation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func feedPayload(t *testing.T, creates, transfers []map[string]string) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"creates":   creates,
		"transfers": transfers,
	})
	require.NoError(t, err)
	return payload
}

func TestFeedValidatorMatch(t *testing.T) {
	txHash := common.HexToHash("0x01")
	owner := common.HexToAddress("0x02")

	job := Job{
		L1Block: 100,
		Operations: []OperationSummary{{
			Kind:           "create",
			TxHash:         txHash,
			EthscriptionID: txHash,
			To:             owner,
		}},
		ApiData: feedPayload(t,
			[]map[string]string{{"transaction_hash": txHash.Hex(), "initial_owner": owner.Hex()}},
			nil),
	}

	outcome, err := NewFeedValidator().ValidateL1Block(context.Background(), job)
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Empty(t, outcome.Errors)
	require.NotEmpty(t, outcome.Stats)
}

func TestFeedValidatorMissingDerived(t *testing.T) {
	job := Job{
		L1Block: 100,
		ApiData: feedPayload(t,
			[]map[string]string{{"transaction_hash": common.HexToHash("0x0a").Hex()}},
			nil),
	}
	outcome, err := NewFeedValidator().ValidateL1Block(context.Background(), job)
	require.NoError(t, err)
	require.False(t, outcome.Success)
	require.Len(t, outcome.Errors, 1)
}

func TestFeedValidatorUnexpectedDerived(t *testing.T) {
	job := Job{
		L1Block: 100,
		Operations: []OperationSummary{{
			Kind:           "transfer",
			EthscriptionID: common.HexToHash("0x0b"),
		}},
		ApiData: feedPayload(t, nil, nil),
	}
	outcome, err := NewFeedValidator().ValidateL1Block(context.Background(), job)
	require.NoError(t, err)
	require.False(t, outcome.Success)
}

func TestFeedValidatorTransferCounts(t *testing.T) {
	id := common.HexToHash("0x0c")
	from := common.HexToAddress("0x0d")
	to := common.HexToAddress("0x0e")
	transfer := map[string]string{
		"ethscription_id": id.Hex(),
		"from":            from.Hex(),
		"to":              to.Hex(),
	}
	// Two expected, one derived: the count mismatch is an error.
	job := Job{
		L1Block: 100,
		Operations: []OperationSummary{{
			Kind: "transfer", EthscriptionID: id, From: from, To: to,
		}},
		ApiData: feedPayload(t, nil, []map[string]string{transfer, transfer}),
	}
	outcome, err := NewFeedValidator().ValidateL1Block(context.Background(), job)
	require.NoError(t, err)
	require.False(t, outcome.Success)
}

func TestFeedValidatorBadPayload(t *testing.T) {
	job := Job{L1Block: 100, ApiData: json.RawMessage(`{"creates": 5}`)}
	_, err := NewFeedValidator().ValidateL1Block(context.Background(), job)
	require.ErrorIs(t, err, ErrTransient)
}
