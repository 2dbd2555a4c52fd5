// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package escnode

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/deposits"
	"github.com/ethscriptions-protocol/esc-node/esctypes"
	"github.com/ethscriptions-protocol/esc-node/ethscription"
	"github.com/ethscriptions-protocol/esc-node/util/stopwaiter"
)

type PrefetcherConfig struct {
	// Forward is how many blocks past the cursor are fetched ahead.
	Forward int
	// Threads is the number of concurrent fetch workers.
	Threads int
	// ValidationEnabled additionally pulls the reference feed per block.
	ValidationEnabled bool
}

var DefaultPrefetcherConfig = PrefetcherConfig{
	Forward: 20,
	Threads: 2,
}

// TxDerivation is the outcome of running detection over one transaction.
type TxDerivation struct {
	Tx         *esctypes.L1Transaction
	Operations []*esctypes.Operation
	Deposits   []*deposits.DepositTx
}

// PrefetchResult bundles everything the importer needs for one L1 block.
type PrefetchResult struct {
	EthBlock *esctypes.L1Block
	Txs      []*TxDerivation
	// ApiData is the reference feed payload, nil when validation is off.
	ApiData json.RawMessage
}

// Deposits returns the operation deposits of the whole block in
// (transaction index, operation index) order.
func (r *PrefetchResult) Deposits() []*deposits.DepositTx {
	var out []*deposits.DepositTx
	for _, tx := range r.Txs {
		out = append(out, tx.Deposits...)
	}
	return out
}

type promise struct {
	done   chan struct{}
	result *PrefetchResult
	err    error
}

// Prefetcher keeps a bounded look-ahead ring of in-flight block fetches so
// the importer never waits on cold RPC round-trips for the next block.
type Prefetcher struct {
	stopwaiter.StopWaiter

	l1       L1Client
	feed     ReferenceFeed
	detector *ethscription.Detector
	config   PrefetcherConfig

	mutex    sync.Mutex
	promises map[uint64]*promise
	jobs     chan uint64
}

func NewPrefetcher(l1 L1Client, feed ReferenceFeed, detector *ethscription.Detector, config PrefetcherConfig) *Prefetcher {
	if config.Forward <= 0 {
		config.Forward = DefaultPrefetcherConfig.Forward
	}
	if config.Threads <= 0 {
		config.Threads = DefaultPrefetcherConfig.Threads
	}
	return &Prefetcher{
		l1:       l1,
		feed:     feed,
		detector: detector,
		config:   config,
		promises: make(map[uint64]*promise),
		jobs:     make(chan uint64, 4*config.Forward),
	}
}

func (p *Prefetcher) Start(ctx context.Context) {
	p.StopWaiter.Start(ctx)
	for i := 0; i < p.config.Threads; i++ {
		p.LaunchThread(p.worker)
	}
}

// EnsurePrefetched schedules fetches for [number, number+forward) that are
// not already in flight.
func (p *Prefetcher) EnsurePrefetched(number uint64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for n := number; n < number+uint64(p.config.Forward); n++ {
		if _, ok := p.promises[n]; ok {
			continue
		}
		pr := &promise{done: make(chan struct{})}
		p.promises[n] = pr
		select {
		case p.jobs <- n:
		default:
			// Queue full: drop the reservation, the next EnsurePrefetched
			// will reschedule.
			delete(p.promises, n)
			return
		}
	}
}

// Fetch blocks until the promise for number resolves. A failed fetch clears
// the promise so a later call retries.
func (p *Prefetcher) Fetch(ctx context.Context, number uint64) (*PrefetchResult, error) {
	p.EnsurePrefetched(number)
	p.mutex.Lock()
	pr, ok := p.promises[number]
	p.mutex.Unlock()
	if !ok {
		return nil, ErrBlockNotReady
	}
	select {
	case <-pr.done:
	case <-ctx.Done():
		return nil, ErrCancelled
	}
	if pr.err != nil {
		p.mutex.Lock()
		if p.promises[number] == pr {
			delete(p.promises, number)
		}
		p.mutex.Unlock()
		return nil, pr.err
	}
	return pr.result, nil
}

// ClearOlderThan evicts promises below number; the importer calls this as
// its cursor advances.
func (p *Prefetcher) ClearOlderThan(number uint64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for n := range p.promises {
		if n < number {
			delete(p.promises, n)
		}
	}
}

// Shutdown drains the workers with a bounded timeout. Unresolved promises
// are completed with ErrCancelled so waiting importers unblock.
func (p *Prefetcher) Shutdown(drainTimeout time.Duration) {
	drained := p.StopAndWaitTimeout(drainTimeout)
	if !drained {
		log.Warn("prefetcher did not drain in time")
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, pr := range p.promises {
		select {
		case <-pr.done:
		default:
			pr.err = ErrCancelled
			close(pr.done)
		}
	}
}

func (p *Prefetcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case number := <-p.jobs:
			p.mutex.Lock()
			pr, ok := p.promises[number]
			p.mutex.Unlock()
			if !ok {
				continue
			}
			select {
			case <-pr.done:
				continue
			default:
			}
			result, err := p.fetchBlock(ctx, number)
			pr.result, pr.err = result, err
			close(pr.done)
		}
	}
}

// fetchBlock pulls the block with receipts, runs detection over every
// transaction in index order and builds the operation deposits, plus the
// reference feed payload when validation is enabled.
func (p *Prefetcher) fetchBlock(ctx context.Context, number uint64) (*PrefetchResult, error) {
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}
	block, err := p.l1.BlockByNumber(ctx, number)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		if isNotFound(err) {
			return nil, ErrBlockNotReady
		}
		return nil, errors.Wrap(ErrFetchFailed, err.Error())
	}

	txs := make([]*esctypes.L1Transaction, len(block.Transactions))
	copy(txs, block.Transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].TransactionIndex < txs[j].TransactionIndex
	})

	result := &PrefetchResult{EthBlock: block}
	for _, tx := range txs {
		ops := p.detector.Detect(tx)
		if len(ops) == 0 {
			continue
		}
		deps, err := deposits.BuildOperationDeposits(tx.Hash, ops)
		if err != nil {
			return nil, errors.Wrap(ErrFetchFailed, err.Error())
		}
		result.Txs = append(result.Txs, &TxDerivation{Tx: tx, Operations: ops, Deposits: deps})
	}

	if p.config.ValidationEnabled && p.feed != nil {
		apiData, err := p.feed.BlockEvents(ctx, number)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrCancelled
			}
			return nil, errors.Wrap(ErrFetchFailed, err.Error())
		}
		result.ApiData = apiData
	}
	return result, nil
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "unknown block")
}
