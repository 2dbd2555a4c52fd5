// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package deposits

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethscriptions-protocol/esc-node/esctypes"
	"github.com/ethscriptions-protocol/esc-node/predeploys"
)

// L1AttributesConfig carries the sequencer-level scalars packed into every
// attributes call.
type L1AttributesConfig struct {
	BaseFeeScalar     uint32
	BlobBaseFeeScalar uint32
	BatcherHash       common.Hash
}

var l1AttributesSelector = crypto.Keccak256(
	[]byte("setL1BlockValues(uint64,uint32,uint32,uint64,uint64,uint256,bytes32,bytes32)"))[:4]

// L1AttributesCalldata packs the attributes payload: the selector followed
// by fixed-width big-endian fields — sequence number, base-fee scalars, L1
// number, timestamp, base fee, L1 block hash and the batcher hash.
func L1AttributesCalldata(block *esctypes.L1Block, sequenceNumber uint64, cfg *L1AttributesConfig) []byte {
	data := make([]byte, 0, 4+8+4+4+8+8+32+32+32)
	data = append(data, l1AttributesSelector...)
	data = binary.BigEndian.AppendUint64(data, sequenceNumber)
	data = binary.BigEndian.AppendUint32(data, cfg.BaseFeeScalar)
	data = binary.BigEndian.AppendUint32(data, cfg.BlobBaseFeeScalar)
	data = binary.BigEndian.AppendUint64(data, uint64(block.Number))
	data = binary.BigEndian.AppendUint64(data, uint64(block.Timestamp))
	baseFee := block.BaseFeeU256().Bytes32()
	data = append(data, baseFee[:]...)
	data = append(data, block.Hash.Bytes()...)
	data = append(data, cfg.BatcherHash.Bytes()...)
	return data
}

// BuildL1AttributesDeposit builds the deposit that opens each L2 block.
func BuildL1AttributesDeposit(block *esctypes.L1Block, sequenceNumber uint64, cfg *L1AttributesConfig) *DepositTx {
	return &DepositTx{
		SourceHash: L1AttributesSourceHash(block.Hash, sequenceNumber),
		From:       predeploys.L1InfoDepositorAddr,
		To:         predeploys.L1BlockAddr,
		GasLimit:   L1AttributesGasLimit,
		Data:       L1AttributesCalldata(block, sequenceNumber, cfg),
	}
}
