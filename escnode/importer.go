// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package escnode

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/deposits"
	"github.com/ethscriptions-protocol/esc-node/esctypes"
	"github.com/ethscriptions-protocol/esc-node/util/stopwaiter"
	"github.com/ethscriptions-protocol/esc-node/validation"
)

type ImporterConfig struct {
	// RetryOffset is how many blocks behind the L2 tip the recovered cursor
	// must sit before import resumes.
	RetryOffset uint64
	// SafeOffset and FinalizedOffset select the safe/finalized L2 blocks by
	// L1 epoch distance from the head.
	SafeOffset      uint64
	FinalizedOffset uint64
	// CacheBehind bounds both caches to this many L1 blocks behind the head.
	CacheBehind uint64
	// L2SlotSeconds is the L2 slot cadence within an epoch.
	L2SlotSeconds uint64
	// NotReadyDelay is the sleep before retrying a block the source chain
	// has not produced yet.
	NotReadyDelay time.Duration
	// ShutdownTimeout bounds the drain on Stop.
	ShutdownTimeout time.Duration

	ValidationEnabled bool
	L1Attributes      deposits.L1AttributesConfig
}

var DefaultImporterConfig = ImporterConfig{
	RetryOffset:     63,
	SafeOffset:      31,
	FinalizedOffset: 63,
	CacheBehind:     65,
	L2SlotSeconds:   12,
	NotReadyDelay:   time.Second,
	ShutdownTimeout: 10 * time.Second,
}

// ValidationQueue receives one job per imported L1 block; Enqueue must not
// block the importer.
type ValidationQueue interface {
	Enqueue(job validation.Job)
}

// Importer owns the L1 cursor. It advances strictly monotonically, checking
// every fetched block against the cached parent, proposing the derived
// deposits to the execution engine and enqueueing validation work. Both
// caches are owned by the importer goroutine; nothing else mutates them.
type Importer struct {
	stopwaiter.StopWaiter

	l1         L1Client
	engine     EngineClient
	prefetcher *Prefetcher
	store      *validation.Store
	queue      ValidationQueue
	config     ImporterConfig

	ethBlockCache map[uint64]*esctypes.L1Block
	escBlockCache map[uint64]*esctypes.EthscriptionsBlock
	headL2        *esctypes.EthscriptionsBlock

	nextBlockToImport uint64

	errMutex sync.Mutex
	fatalErr error
}

func NewImporter(l1 L1Client, engine EngineClient, prefetcher *Prefetcher,
	store *validation.Store, queue ValidationQueue, config ImporterConfig) *Importer {
	return &Importer{
		l1:            l1,
		engine:        engine,
		prefetcher:    prefetcher,
		store:         store,
		queue:         queue,
		config:        config,
		ethBlockCache: make(map[uint64]*esctypes.L1Block),
		escBlockCache: make(map[uint64]*esctypes.EthscriptionsBlock),
	}
}

// RecoverStartingBlock queries the engine's head, walks back to the start of
// its L1 epoch and keeps walking epochs back until the recorded L1
// attributes match the live L1 chain and the candidate sits at least
// RetryOffset blocks behind the L2 tip. The importer's cursor and both
// caches are seeded from that point.
func (im *Importer) RecoverStartingBlock(ctx context.Context) error {
	head, err := im.engine.LatestBlock(ctx)
	if err != nil {
		return err
	}
	headNumber := uint64(head.Number)

	candidate := headNumber
	for {
		attrs, err := im.engine.L1Attributes(ctx, candidate)
		if err != nil {
			return err
		}
		// Jump to the epoch-opening block.
		if uint64(attrs.SequenceNumber) != 0 {
			candidate -= uint64(attrs.SequenceNumber)
			continue
		}
		liveHash, err := im.l1.BlockHashByNumber(ctx, uint64(attrs.Number))
		if err != nil {
			return err
		}
		reorged := liveHash != attrs.Hash
		tooClose := headNumber-candidate < im.config.RetryOffset
		if (reorged || tooClose) && candidate > 0 {
			candidate--
			continue
		}
		if reorged {
			return errors.Wrapf(ErrReorgDetected, "no reorg-free starting block found below L2 block %d", headNumber)
		}

		l2Block, err := im.engine.BlockByNumber(ctx, candidate)
		if err != nil {
			return err
		}
		im.nextBlockToImport = uint64(attrs.Number) + 1
		im.headL2 = l2Block
		im.escBlockCache[candidate] = l2Block
		im.ethBlockCache[uint64(attrs.Number)] = &esctypes.L1Block{
			Number:    attrs.Number,
			Hash:      attrs.Hash,
			Timestamp: attrs.Timestamp,
			BaseFee:   attrs.BaseFee,
		}
		if err := im.seedL2Cache(ctx, candidate); err != nil {
			return err
		}
		log.Info("recovered starting block",
			"l1Block", im.nextBlockToImport, "l2Block", candidate, "l2Head", headNumber)
		return nil
	}
}

// seedL2Cache loads the prior epochs so safe/finalized selection works
// immediately after recovery.
func (im *Importer) seedL2Cache(ctx context.Context, from uint64) error {
	const epochs = 64
	current := from
	for i := 0; i < epochs && current > 0; i++ {
		attrs, err := im.engine.L1Attributes(ctx, current-1)
		if err != nil {
			return err
		}
		// Step over the whole previous epoch to its opening block.
		current = current - 1 - uint64(attrs.SequenceNumber)
		l2Block, err := im.engine.BlockByNumber(ctx, current)
		if err != nil {
			return err
		}
		im.escBlockCache[current] = l2Block
	}
	return nil
}

// ImportNext advances the cursor by one L1 block. Transient conditions come
// back as ErrBlockNotReady; integrity violations as ErrReorgDetected or
// ErrValidationFailure.
func (im *Importer) ImportNext(ctx context.Context) error {
	blockNumber := im.nextBlockToImport

	if failed, failedBlock, err := im.store.HasFailureAtOrBefore(blockNumber); err != nil {
		return err
	} else if failed {
		return errors.Wrapf(ErrValidationFailure, "l1 block %d", failedBlock)
	}

	result, err := im.prefetcher.Fetch(ctx, blockNumber)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return ErrBlockNotReady
		}
		if errors.Is(err, ErrFetchFailed) {
			log.Warn("prefetch failed, will retry", "l1Block", blockNumber, "err", err)
			return ErrBlockNotReady
		}
		return err
	}

	if prev, ok := im.ethBlockCache[blockNumber-1]; ok {
		if prev.Hash != result.EthBlock.ParentHash {
			return errors.Wrapf(ErrReorgDetected,
				"l1 block %d parent %s does not extend cached %s",
				blockNumber, result.EthBlock.ParentHash, prev.Hash)
		}
	}

	l2Blocks, err := im.proposeBlock(ctx, result)
	if err != nil {
		return err
	}
	if len(l2Blocks) == 0 {
		return errors.New("engine proposed no blocks")
	}

	im.ethBlockCache[blockNumber] = result.EthBlock
	for _, b := range l2Blocks {
		im.escBlockCache[uint64(b.Number)] = b
		im.headL2 = b
	}
	im.pruneCaches(blockNumber)
	im.prefetcher.ClearOlderThan(blockNumber + 1)
	im.prefetcher.EnsurePrefetched(blockNumber + 1)

	if im.config.ValidationEnabled && im.queue != nil {
		im.queue.Enqueue(buildValidationJob(result, l2Blocks))
	}

	im.nextBlockToImport = blockNumber + 1
	log.Info("imported block", "l1Block", blockNumber,
		"txs", len(result.Txs), "deposits", len(result.Deposits()),
		"l2Head", uint64(im.headL2.Number))
	return nil
}

// proposeBlock drives the engine with the L1-attributes deposit followed by
// the operation deposits.
func (im *Importer) proposeBlock(ctx context.Context, result *PrefetchResult) ([]*esctypes.EthscriptionsBlock, error) {
	ethBlock := result.EthBlock

	attributesDeposit := deposits.BuildL1AttributesDeposit(ethBlock, 0, &im.config.L1Attributes)
	txs := make([]hexutil.Bytes, 0, 1+len(result.Txs))
	encoded, err := attributesDeposit.MarshalBinary()
	if err != nil {
		return nil, err
	}
	txs = append(txs, encoded)
	for _, dep := range result.Deposits() {
		encoded, err := dep.MarshalBinary()
		if err != nil {
			return nil, err
		}
		txs = append(txs, encoded)
	}

	proposed := &esctypes.ProposedBlock{
		Timestamp:         ethBlock.Timestamp,
		PrevRandao:        ethBlock.MixHash,
		EthBlockHash:      ethBlock.Hash,
		EthBlockNumber:    ethBlock.Number,
		EthBlockTimestamp: ethBlock.Timestamp,
		EthBlockBaseFee:   ethBlock.BaseFee,
		SequenceNumber:    0,
	}

	head, safe, finalized := im.forkchoice()
	return im.engine.ProposeBlock(ctx, txs, proposed, head, safe, finalized)
}

// forkchoice picks head/safe/finalized hashes from the L2 cache: safe is the
// newest block whose epoch is at least SafeOffset L1 blocks behind the head
// epoch, finalized at least FinalizedOffset, falling back to the oldest
// known block.
func (im *Importer) forkchoice() (head, safe, finalized common.Hash) {
	if im.headL2 == nil {
		return
	}
	head = im.headL2.Hash
	headEpoch := uint64(im.headL2.EthBlockNumber)
	safe = im.selectByEpoch(headEpoch, im.config.SafeOffset)
	finalized = im.selectByEpoch(headEpoch, im.config.FinalizedOffset)
	return
}

func (im *Importer) selectByEpoch(headEpoch, offset uint64) common.Hash {
	var (
		best       *esctypes.EthscriptionsBlock
		oldest     *esctypes.EthscriptionsBlock
		bestNumber uint64
	)
	for _, b := range im.escBlockCache {
		if oldest == nil || uint64(b.Number) < uint64(oldest.Number) {
			oldest = b
		}
		if headEpoch >= offset && uint64(b.EthBlockNumber) <= headEpoch-offset {
			if best == nil || uint64(b.Number) > bestNumber {
				best = b
				bestNumber = uint64(b.Number)
			}
		}
	}
	if best == nil {
		best = oldest
	}
	if best == nil {
		return common.Hash{}
	}
	return best.Hash
}

// pruneCaches drops everything more than CacheBehind L1 blocks behind the
// import head.
func (im *Importer) pruneCaches(head uint64) {
	if head <= im.config.CacheBehind {
		return
	}
	floor := head - im.config.CacheBehind
	for n := range im.ethBlockCache {
		if n < floor {
			delete(im.ethBlockCache, n)
		}
	}
	for n, b := range im.escBlockCache {
		if uint64(b.EthBlockNumber) < floor {
			delete(im.escBlockCache, n)
		}
	}
}

func buildValidationJob(result *PrefetchResult, l2Blocks []*esctypes.EthscriptionsBlock) validation.Job {
	hashes := make([]common.Hash, len(l2Blocks))
	for i, b := range l2Blocks {
		hashes[i] = b.Hash
	}
	var ops []validation.OperationSummary
	for _, tx := range result.Txs {
		for _, op := range tx.Operations {
			ops = append(ops, summarizeOperation(tx.Tx, op))
		}
	}
	return validation.Job{
		L1Block:       uint64(result.EthBlock.Number),
		L2BlockHashes: hashes,
		Operations:    ops,
		ApiData:       result.ApiData,
	}
}

// Start runs the import loop until a fatal error or shutdown. Reorg and
// validation failures stop the loop and are reported via Err; the
// supervisor decides whether to restart with fresh recovery.
func (im *Importer) Start(ctx context.Context) {
	im.StopWaiter.Start(ctx)
	if head, err := im.l1.BlockNumber(ctx); err == nil {
		log.Info("starting import", "cursor", im.nextBlockToImport, "l1Head", head)
	}
	im.prefetcher.EnsurePrefetched(im.nextBlockToImport)
	im.CallIteratively(func(ctx context.Context) time.Duration {
		err := im.ImportNext(ctx)
		switch {
		case err == nil:
			return 0
		case errors.Is(err, ErrBlockNotReady):
			return im.config.NotReadyDelay
		default:
			im.setFatal(err)
			log.Error("import halted", "err", err)
			// Park the loop; the supervisor observes Err and restarts.
			return time.Hour
		}
	})
}

func (im *Importer) setFatal(err error) {
	im.errMutex.Lock()
	defer im.errMutex.Unlock()
	if im.fatalErr == nil {
		im.fatalErr = err
	}
}

// Err reports the first fatal import error, nil while healthy.
func (im *Importer) Err() error {
	im.errMutex.Lock()
	defer im.errMutex.Unlock()
	return im.fatalErr
}

// NextBlockToImport is the current cursor position.
func (im *Importer) NextBlockToImport() uint64 {
	return im.nextBlockToImport
}

// Stop drains the importer and its prefetcher.
func (im *Importer) Stop() {
	im.StopAndWaitTimeout(im.config.ShutdownTimeout)
	im.prefetcher.Shutdown(im.config.ShutdownTimeout)
}
