// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package ethscription

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/ethscriptions-protocol/esc-node/esctypes"
)

var (
	testFrom = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTo   = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
)

func successfulTx(input []byte) *esctypes.L1Transaction {
	to := testTo
	return &esctypes.L1Transaction{
		BlockNumber: 18_500_000,
		Hash:        common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001"),
		From:        testFrom,
		To:          &to,
		Input:       input,
		Status:      1,
	}
}

func abiEncodeString(t *testing.T, s string) []byte {
	t.Helper()
	packed, err := stringArguments.Pack(s)
	require.NoError(t, err)
	return packed
}

func TestDetectInputCreate(t *testing.T) {
	detector := NewDetector(MainnetChainConfig)
	tx := successfulTx([]byte("data:,hello world"))

	ops := detector.Detect(tx)
	require.Len(t, ops, 1)
	op := ops[0]
	require.Equal(t, esctypes.OperationCreate, op.Kind)
	require.Equal(t, esctypes.SourceInput, op.Source)
	require.Equal(t, testFrom, op.Creator)
	require.Equal(t, testTo, op.InitialOwner)
	require.Equal(t, "data:,hello world", op.ContentURI)
	require.Equal(t, "", op.Mimetype)
	require.False(t, op.Esip6)
	require.Equal(t, tx.Hash, op.TxHash)
}

func TestDetectFailedTx(t *testing.T) {
	detector := NewDetector(MainnetChainConfig)
	tx := successfulTx([]byte("data:,hello world"))
	tx.Status = 0
	require.Empty(t, detector.Detect(tx))
}

func TestDetectNoToAddress(t *testing.T) {
	detector := NewDetector(MainnetChainConfig)
	tx := successfulTx([]byte("data:,hello world"))
	tx.To = nil
	require.Empty(t, detector.Detect(tx))
}

func TestDetectEventTransfer(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	emitter := common.HexToAddress("0xc0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0")
	recipient := common.HexToAddress("0xabcdabcdabcdabcdabcdabcdabcdabcdabcdabab")
	id := common.HexToHash("0xdeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddead")

	tx := successfulTx(nil)
	tx.To = nil
	tx.Logs = []*types.Log{{
		Address: emitter,
		Topics: []common.Hash{
			TransferEthscriptionEventID,
			common.BytesToHash(recipient.Bytes()),
			id,
		},
		Index: 7,
	}}

	ops := detector.Detect(tx)
	require.Len(t, ops, 1)
	op := ops[0]
	require.Equal(t, esctypes.OperationTransfer, op.Kind)
	require.Equal(t, id, op.EthscriptionID)
	require.Equal(t, emitter, op.From)
	require.Equal(t, recipient, op.To)
	require.NotNil(t, op.EventLogIndex)
	require.Equal(t, uint64(7), *op.EventLogIndex)
}

func TestDetectEventTransferBeforeActivation(t *testing.T) {
	config := &ChainConfig{Esip1Block: newUint64(20_000_000)}
	detector := NewDetector(config)
	tx := successfulTx(nil)
	tx.To = nil
	tx.Logs = []*types.Log{{
		Address: testFrom,
		Topics: []common.Hash{
			TransferEthscriptionEventID,
			common.BytesToHash(testTo.Bytes()),
			common.HexToHash("0x01"),
		},
	}}
	require.Empty(t, detector.Detect(tx))
}

func TestDetectEventTransferTopicMismatch(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	tx := successfulTx(nil)
	tx.To = nil
	// Missing the ethscription id topic: skipped, not fatal.
	tx.Logs = []*types.Log{{
		Address: testFrom,
		Topics: []common.Hash{
			TransferEthscriptionEventID,
			common.BytesToHash(testTo.Bytes()),
		},
	}}
	require.Empty(t, detector.Detect(tx))
}

func TestDetectEventTransferForPreviousOwner(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	previous := common.HexToAddress("0x9999999999999999999999999999999999999999")
	id := common.HexToHash("0x02")

	tx := successfulTx(nil)
	tx.To = nil
	tx.Logs = []*types.Log{{
		Address: testFrom,
		Topics: []common.Hash{
			TransferForPreviousOwnerEventID,
			common.BytesToHash(previous.Bytes()),
			common.BytesToHash(testTo.Bytes()),
			id,
		},
		Index: 3,
	}}

	ops := detector.Detect(tx)
	require.Len(t, ops, 1)
	op := ops[0]
	require.Equal(t, esctypes.OperationTransferForPreviousOwner, op.Kind)
	require.Equal(t, previous, op.PreviousOwner)
	require.Equal(t, testTo, op.To)
	require.Equal(t, id, op.EthscriptionID)
}

func TestDetectMultiTransferInput(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	var input []byte
	ids := []common.Hash{
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
		common.HexToHash("0x03"),
	}
	for _, id := range ids {
		input = append(input, id.Bytes()...)
	}
	tx := successfulTx(input)

	ops := detector.Detect(tx)
	require.Len(t, ops, 3)
	for i, op := range ops {
		require.Equal(t, esctypes.OperationTransfer, op.Kind)
		require.Equal(t, ids[i], op.EthscriptionID)
		require.Equal(t, testFrom, op.From)
		require.Equal(t, testTo, op.To)
		require.NotNil(t, op.TransferIndex)
		require.Equal(t, uint64(i), *op.TransferIndex)
	}
}

func TestDetectMultiTransferRequiresEsip5(t *testing.T) {
	config := &ChainConfig{Esip5Block: newUint64(20_000_000)}
	detector := NewDetector(config)

	single := successfulTx(common.HexToHash("0x01").Bytes())
	require.Len(t, detector.Detect(single), 1)

	double := successfulTx(append(common.HexToHash("0x01").Bytes(), common.HexToHash("0x02").Bytes()...))
	require.Empty(t, detector.Detect(double))

	// Ragged input is never a transfer.
	ragged := successfulTx(append(common.HexToHash("0x01").Bytes(), 0x01))
	require.Empty(t, detector.Detect(ragged))
}

func TestDetectEventCreate(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	contractAddr := common.HexToAddress("0xc0ffee00c0ffee00c0ffee00c0ffee00c0ffee00")
	owner := common.HexToAddress("0xabcdabcdabcdabcdabcdabcdabcdabcdabcdabcd")

	tx := successfulTx(nil)
	tx.To = nil
	tx.Logs = []*types.Log{{
		Address: contractAddr,
		Topics: []common.Hash{
			CreateEthscriptionEventID,
			common.BytesToHash(owner.Bytes()),
		},
		Data:  abiEncodeString(t, "data:,from event"),
		Index: 1,
	}}

	ops := detector.Detect(tx)
	require.Len(t, ops, 1)
	op := ops[0]
	require.Equal(t, esctypes.OperationCreate, op.Kind)
	require.Equal(t, esctypes.SourceEvent, op.Source)
	require.Equal(t, contractAddr, op.Creator)
	require.Equal(t, owner, op.InitialOwner)
	require.Equal(t, "data:,from event", op.ContentURI)
}

// An input create and an ESIP-3 create event in the same transaction yield
// exactly one create: the input one.
func TestDetectCreateDedup(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	tx := successfulTx([]byte("data:,from input"))
	tx.Logs = []*types.Log{{
		Address: testFrom,
		Topics: []common.Hash{
			CreateEthscriptionEventID,
			common.BytesToHash(testTo.Bytes()),
		},
		Data:  abiEncodeString(t, "data:,from event"),
		Index: 0,
	}}

	ops := detector.Detect(tx)
	require.Len(t, ops, 1)
	require.Equal(t, esctypes.SourceInput, ops[0].Source)
	require.Equal(t, "data:,from input", ops[0].ContentURI)
}

// A create plus event transfers of other ethscriptions all appear, create
// first, events in log-index order.
func TestDetectCreateThenEventTransfers(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	tx := successfulTx([]byte("data:,mixed"))
	tx.Logs = []*types.Log{
		{
			Address: testFrom,
			Topics: []common.Hash{
				TransferEthscriptionEventID,
				common.BytesToHash(testTo.Bytes()),
				common.HexToHash("0x0b"),
			},
			Index: 5,
		},
		{
			Address: testFrom,
			Topics: []common.Hash{
				TransferEthscriptionEventID,
				common.BytesToHash(testTo.Bytes()),
				common.HexToHash("0x0a"),
			},
			Index: 2,
		},
	}

	ops := detector.Detect(tx)
	require.Len(t, ops, 3)
	require.Equal(t, esctypes.OperationCreate, ops[0].Kind)
	require.Equal(t, common.HexToHash("0x0a"), ops[1].EthscriptionID)
	require.Equal(t, common.HexToHash("0x0b"), ops[2].EthscriptionID)
}

func TestDetectRemovedLogsSkipped(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	tx := successfulTx(nil)
	tx.To = nil
	tx.Logs = []*types.Log{{
		Address: testFrom,
		Topics: []common.Hash{
			TransferEthscriptionEventID,
			common.BytesToHash(testTo.Bytes()),
			common.HexToHash("0x01"),
		},
		Removed: true,
	}}
	require.Empty(t, detector.Detect(tx))
}

func TestDetectGzippedInputCreate(t *testing.T) {
	detector := NewDetector(AllEsipsChainConfig)
	tx := successfulTx(gzipBytes(t, []byte("data:,squeezed")))

	ops := detector.Detect(tx)
	require.Len(t, ops, 1)
	require.Equal(t, "data:,squeezed", ops[0].ContentURI)
	require.True(t, ops[0].Gzipped)

	// Same payload before ESIP-7: the compressed bytes are not a data URI.
	pre := NewDetector(&ChainConfig{})
	require.Empty(t, pre.Detect(tx))
}
