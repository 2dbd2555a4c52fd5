// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

// Package deposits builds the system deposit transactions the execution
// engine consumes: one L1-attributes deposit per L2 block followed by one
// deposit per detected operation.
package deposits

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// DepositTxType is the envelope type byte, per the OP-Stack deposit
// transaction convention.
const DepositTxType byte = 0x7E

const DepositReceiptVersion byte = 0x01

const (
	// OperationGasLimit bounds one protocol operation on L2.
	OperationGasLimit uint64 = 1_000_000_000
	// L1AttributesGasLimit bounds the attributes call that opens each block.
	L1AttributesGasLimit uint64 = 1_000_000
)

// Source-hash domains. The domain separates operation deposits from
// attributes deposits so the two keyspaces cannot collide.
const (
	sourceHashDomainOperation    uint64 = 0
	sourceHashDomainL1Attributes uint64 = 1
)

// DepositTx is an unsigned system transaction executed by the L2 engine.
// Mint and Value are always zero for ethscriptions deposits.
type DepositTx struct {
	SourceHash common.Hash
	From       common.Address
	To         common.Address
	Mint       *big.Int
	Value      *big.Int
	GasLimit   uint64
	Data       []byte
}

// rlpDepositTx is the wire layout:
// [source_hash, from, to, mint, value, gas_limit, "", input].
type rlpDepositTx struct {
	SourceHash common.Hash
	From       common.Address
	To         common.Address
	Mint       *big.Int
	Value      *big.Int
	GasLimit   uint64
	IsSystemTx []byte
	Data       []byte
}

// MarshalBinary returns the typed envelope: the deposit type byte followed
// by the RLP payload.
func (tx *DepositTx) MarshalBinary() ([]byte, error) {
	mint, value := tx.Mint, tx.Value
	if mint == nil {
		mint = new(big.Int)
	}
	if value == nil {
		value = new(big.Int)
	}
	payload, err := rlp.EncodeToBytes(&rlpDepositTx{
		SourceHash: tx.SourceHash,
		From:       tx.From,
		To:         tx.To,
		Mint:       mint,
		Value:      value,
		GasLimit:   tx.GasLimit,
		IsSystemTx: []byte{},
		Data:       tx.Data,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return append([]byte{DepositTxType}, payload...), nil
}

func sourceHash(domain uint64, inner common.Hash) common.Hash {
	var domainWord [32]byte
	binary.BigEndian.PutUint64(domainWord[24:], domain)
	return crypto.Keccak256Hash(domainWord[:], inner.Bytes())
}

// OperationSourceHash commits to the originating L1 transaction and the
// operation's index within it. Distinct (tx, index) pairs yield distinct
// hashes; a collision would be a bug in the derivation.
func OperationSourceHash(l1TxHash common.Hash, operationIndex uint64) common.Hash {
	var idx [32]byte
	binary.BigEndian.PutUint64(idx[24:], operationIndex)
	return sourceHash(sourceHashDomainOperation, crypto.Keccak256Hash(l1TxHash.Bytes(), idx[:]))
}

// L1AttributesSourceHash commits to the L1 block and the L2 sequence number
// within its epoch.
func L1AttributesSourceHash(l1BlockHash common.Hash, sequenceNumber uint64) common.Hash {
	var seq [32]byte
	binary.BigEndian.PutUint64(seq[24:], sequenceNumber)
	return sourceHash(sourceHashDomainL1Attributes, crypto.Keccak256Hash(l1BlockHash.Bytes(), seq[:]))
}
