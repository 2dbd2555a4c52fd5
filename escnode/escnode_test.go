// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package escnode

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/esctypes"
	"github.com/ethscriptions-protocol/esc-node/validation"
)

// fakeL1 serves a canned chain of linked blocks.
type fakeL1 struct {
	mutex  sync.Mutex
	blocks map[uint64]*esctypes.L1Block
}

func newFakeL1() *fakeL1 {
	return &fakeL1{blocks: make(map[uint64]*esctypes.L1Block)}
}

func fakeBlockHash(number uint64, fork byte) common.Hash {
	var seed [9]byte
	binary.BigEndian.PutUint64(seed[:8], number)
	seed[8] = fork
	return crypto.Keccak256Hash(seed[:])
}

// extend appends a block linked to its predecessor.
func (f *fakeL1) extend(number uint64, txs ...*esctypes.L1Transaction) *esctypes.L1Block {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	block := &esctypes.L1Block{
		Number:       hexutil.Uint64(number),
		Hash:         fakeBlockHash(number, 0),
		ParentHash:   fakeBlockHash(number-1, 0),
		Timestamp:    hexutil.Uint64(1_700_000_000 + 12*number),
		Transactions: txs,
	}
	for _, tx := range txs {
		tx.BlockHash = block.Hash
		tx.BlockNumber = block.Number
		tx.BlockTimestamp = block.Timestamp
	}
	f.blocks[number] = block
	return block
}

func (f *fakeL1) BlockNumber(ctx context.Context) (uint64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	var max uint64
	for n := range f.blocks {
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (f *fakeL1) BlockByNumber(ctx context.Context, number uint64) (*esctypes.L1Block, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	block, ok := f.blocks[number]
	if !ok {
		return nil, errors.Errorf("block %d not found", number)
	}
	return block, nil
}

func (f *fakeL1) BlockHashByNumber(ctx context.Context, number uint64) (common.Hash, error) {
	block, err := f.BlockByNumber(ctx, number)
	if err != nil {
		return common.Hash{}, err
	}
	return block.Hash, nil
}

// fakeEngine is a minimal execution engine: every proposal appends one L2
// block per call.
type fakeEngine struct {
	mutex     sync.Mutex
	blocks    map[uint64]*esctypes.EthscriptionsBlock
	attrs     map[uint64]*esctypes.L1Attributes
	head      uint64
	proposals [][]hexutil.Bytes
}

func newFakeEngine(l1Genesis *esctypes.L1Block) *fakeEngine {
	e := &fakeEngine{
		blocks: make(map[uint64]*esctypes.EthscriptionsBlock),
		attrs:  make(map[uint64]*esctypes.L1Attributes),
	}
	e.blocks[0] = &esctypes.EthscriptionsBlock{
		Number:            0,
		Hash:              crypto.Keccak256Hash([]byte("l2-genesis")),
		Timestamp:         l1Genesis.Timestamp,
		EthBlockHash:      l1Genesis.Hash,
		EthBlockNumber:    l1Genesis.Number,
		EthBlockTimestamp: l1Genesis.Timestamp,
	}
	e.attrs[0] = &esctypes.L1Attributes{
		Number:    l1Genesis.Number,
		Hash:      l1Genesis.Hash,
		Timestamp: l1Genesis.Timestamp,
	}
	return e
}

func (e *fakeEngine) LatestBlock(ctx context.Context) (*esctypes.EthscriptionsBlock, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.blocks[e.head], nil
}

func (e *fakeEngine) BlockByNumber(ctx context.Context, number uint64) (*esctypes.EthscriptionsBlock, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	block, ok := e.blocks[number]
	if !ok {
		return nil, errors.Errorf("l2 block %d not found", number)
	}
	return block, nil
}

func (e *fakeEngine) L1Attributes(ctx context.Context, l2BlockNumber uint64) (*esctypes.L1Attributes, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	attrs, ok := e.attrs[l2BlockNumber]
	if !ok {
		return nil, errors.Errorf("no attributes for l2 block %d", l2BlockNumber)
	}
	return attrs, nil
}

func (e *fakeEngine) ProposeBlock(ctx context.Context, transactions []hexutil.Bytes, newBlock *esctypes.ProposedBlock,
	head, safe, finalized common.Hash) ([]*esctypes.EthscriptionsBlock, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.proposals = append(e.proposals, transactions)
	number := e.head + 1
	block := &esctypes.EthscriptionsBlock{
		Number:            hexutil.Uint64(number),
		Hash:              crypto.Keccak256Hash(newBlock.EthBlockHash.Bytes(), []byte{byte(newBlock.SequenceNumber)}),
		ParentHash:        e.blocks[e.head].Hash,
		Timestamp:         newBlock.Timestamp,
		EthBlockHash:      newBlock.EthBlockHash,
		EthBlockNumber:    newBlock.EthBlockNumber,
		EthBlockTimestamp: newBlock.EthBlockTimestamp,
		EthBlockBaseFee:   newBlock.EthBlockBaseFee,
		SequenceNumber:    newBlock.SequenceNumber,
	}
	e.blocks[number] = block
	e.attrs[number] = &esctypes.L1Attributes{
		Number:         newBlock.EthBlockNumber,
		Hash:           newBlock.EthBlockHash,
		Timestamp:      newBlock.EthBlockTimestamp,
		SequenceNumber: newBlock.SequenceNumber,
	}
	e.head = number
	return []*esctypes.EthscriptionsBlock{block}, nil
}

func (e *fakeEngine) proposalCount() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return len(e.proposals)
}

// fakeQueue records enqueued validation jobs.
type fakeQueue struct {
	mutex sync.Mutex
	jobs  []validation.Job
}

func (q *fakeQueue) Enqueue(job validation.Job) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.jobs = append(q.jobs, job)
}

func (q *fakeQueue) count() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.jobs)
}
