// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package esctypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// L1Block is the subset of an L1 execution block the derivation pipeline
// consumes. The JSON shape matches eth_getBlockByNumber so the struct can be
// unmarshalled straight off the RPC without going through geth's header
// bindings (which fetch uncle data we never use).
type L1Block struct {
	Number     hexutil.Uint64 `json:"number"`
	Hash       common.Hash    `json:"hash"`
	ParentHash common.Hash    `json:"parentHash"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
	BaseFee    *hexutil.Big   `json:"baseFeePerGas"`
	MixHash    common.Hash    `json:"mixHash"`

	// ParentBeaconRoot was added by EIP-4788 and is absent pre-Cancun.
	ParentBeaconRoot *common.Hash `json:"parentBeaconBlockRoot,omitempty"`

	Transactions []*L1Transaction `json:"transactions"`
}

// BaseFeeBig returns the base fee as a big.Int, zero if the field is absent
// (pre-London blocks).
func (b *L1Block) BaseFeeBig() *big.Int {
	if b.BaseFee == nil {
		return new(big.Int)
	}
	return (*big.Int)(b.BaseFee)
}

// BaseFeeU256 returns the base fee as a uint256 for fixed-width encoding.
func (b *L1Block) BaseFeeU256() *uint256.Int {
	fee, _ := uint256.FromBig(b.BaseFeeBig())
	return fee
}

// L1Transaction is one transaction of an L1 block, joined with its receipt
// status and logs. Logs are ordered by log index ascending.
type L1Transaction struct {
	BlockHash        common.Hash     `json:"blockHash"`
	BlockNumber      hexutil.Uint64  `json:"blockNumber"`
	BlockTimestamp   hexutil.Uint64  `json:"blockTimestamp"`
	Hash             common.Hash     `json:"hash"`
	TransactionIndex hexutil.Uint64  `json:"transactionIndex"`
	Input            hexutil.Bytes   `json:"input"`
	ChainID          *hexutil.Big    `json:"chainId,omitempty"`
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to,omitempty"`

	// Joined from the block's receipts after fetching.
	Status uint64       `json:"-"`
	Logs   []*types.Log `json:"-"`
}

// L1Receipt is the subset of eth_getBlockReceipts output needed to join
// status and logs onto the block's transactions.
type L1Receipt struct {
	TransactionHash  common.Hash    `json:"transactionHash"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	Status           hexutil.Uint64 `json:"status"`
	Logs             []*types.Log   `json:"logs"`
}

// EthscriptionsBlock is one L2 block as reported by the execution engine,
// together with the L1 epoch attributes it was derived from.
type EthscriptionsBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	Hash         common.Hash    `json:"hash"`
	ParentHash   common.Hash    `json:"parentHash"`
	Timestamp    hexutil.Uint64 `json:"timestamp"`
	StateRoot    common.Hash    `json:"stateRoot"`
	ReceiptsRoot common.Hash    `json:"receiptsRoot"`
	GasUsed      hexutil.Uint64 `json:"gasUsed"`
	GasLimit     hexutil.Uint64 `json:"gasLimit"`
	PrevRandao   common.Hash    `json:"mixHash"`
	LogsBloom    types.Bloom    `json:"logsBloom"`

	// L1 epoch attributes. SequenceNumber is zero iff this block starts a
	// new L1 epoch.
	EthBlockHash      common.Hash    `json:"ethBlockHash"`
	EthBlockNumber    hexutil.Uint64 `json:"ethBlockNumber"`
	EthBlockTimestamp hexutil.Uint64 `json:"ethBlockTimestamp"`
	EthBlockBaseFee   *hexutil.Big   `json:"ethBlockBaseFee"`
	SequenceNumber    hexutil.Uint64 `json:"sequenceNumber"`
}

// ProposedBlock is the attributes payload handed to the engine when
// proposing the next L2 block.
type ProposedBlock struct {
	Timestamp         hexutil.Uint64 `json:"timestamp"`
	PrevRandao        common.Hash    `json:"prevRandao"`
	EthBlockHash      common.Hash    `json:"ethBlockHash"`
	EthBlockNumber    hexutil.Uint64 `json:"ethBlockNumber"`
	EthBlockTimestamp hexutil.Uint64 `json:"ethBlockTimestamp"`
	EthBlockBaseFee   *hexutil.Big   `json:"ethBlockBaseFee"`
	SequenceNumber    hexutil.Uint64 `json:"sequenceNumber"`
}

// L1Attributes is the epoch lookup result for an L2 block
// (esc_getL1Attributes).
type L1Attributes struct {
	Number         hexutil.Uint64 `json:"number"`
	Hash           common.Hash    `json:"hash"`
	Timestamp      hexutil.Uint64 `json:"timestamp"`
	BaseFee        *hexutil.Big   `json:"baseFee"`
	SequenceNumber hexutil.Uint64 `json:"sequenceNumber"`
}
