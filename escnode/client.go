// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package escnode

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/golang-jwt/jwt/v4"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/esctypes"
)

// L1Client is the read-only source chain interface.
type L1Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	// BlockByNumber returns the block with full transactions, with receipt
	// status and logs already joined on.
	BlockByNumber(ctx context.Context, number uint64) (*esctypes.L1Block, error)
	BlockHashByNumber(ctx context.Context, number uint64) (common.Hash, error)
}

// EngineClient drives the L2 execution engine.
type EngineClient interface {
	LatestBlock(ctx context.Context) (*esctypes.EthscriptionsBlock, error)
	BlockByNumber(ctx context.Context, number uint64) (*esctypes.EthscriptionsBlock, error)
	L1Attributes(ctx context.Context, l2BlockNumber uint64) (*esctypes.L1Attributes, error)
	// ProposeBlock feeds the engine the L1-attributes deposit followed by
	// the operation deposits and returns the L2 blocks it built.
	ProposeBlock(ctx context.Context, transactions []hexutil.Bytes, newBlock *esctypes.ProposedBlock,
		head, safe, finalized common.Hash) ([]*esctypes.EthscriptionsBlock, error)
}

const l1BlockCacheSize = 128

type l1RpcClient struct {
	client *rpc.Client
	// blocks fetched during recovery walk-back, keyed by number; avoids
	// re-fetching the same headers while searching for the reorg base.
	recent *lru.Cache
}

func NewL1Client(client *rpc.Client) L1Client {
	cache, _ := lru.New(l1BlockCacheSize)
	return &l1RpcClient{client: client, recent: cache}
}

func DialL1Client(ctx context.Context, url string) (L1Client, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return NewL1Client(client), nil
}

func (c *l1RpcClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.client.CallContext(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, errors.WithStack(err)
	}
	return uint64(result), nil
}

func (c *l1RpcClient) BlockByNumber(ctx context.Context, number uint64) (*esctypes.L1Block, error) {
	var block esctypes.L1Block
	err := c.client.CallContext(ctx, &block, "eth_getBlockByNumber", hexutil.EncodeUint64(number), true)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if block.Hash == (common.Hash{}) {
		return nil, errors.Errorf("block %d not found", number)
	}
	var receipts []*esctypes.L1Receipt
	err = c.client.CallContext(ctx, &receipts, "eth_getBlockReceipts", hexutil.EncodeUint64(number))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := joinReceipts(&block, receipts); err != nil {
		return nil, err
	}
	c.recent.Add(number, block.Hash)
	return &block, nil
}

func (c *l1RpcClient) BlockHashByNumber(ctx context.Context, number uint64) (common.Hash, error) {
	if hash, ok := c.recent.Get(number); ok {
		return hash.(common.Hash), nil
	}
	var block esctypes.L1Block
	err := c.client.CallContext(ctx, &block, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false)
	if err != nil {
		return common.Hash{}, errors.WithStack(err)
	}
	if block.Hash == (common.Hash{}) {
		return common.Hash{}, errors.Errorf("block %d not found", number)
	}
	c.recent.Add(number, block.Hash)
	return block.Hash, nil
}

// joinReceipts attaches status and logs onto the block's transactions.
// Receipts arrive in transaction-index order but are matched by hash to be
// safe against non-conforming RPC providers.
func joinReceipts(block *esctypes.L1Block, receipts []*esctypes.L1Receipt) error {
	byHash := make(map[common.Hash]*esctypes.L1Receipt, len(receipts))
	for _, r := range receipts {
		byHash[r.TransactionHash] = r
	}
	for _, tx := range block.Transactions {
		receipt, ok := byHash[tx.Hash]
		if !ok {
			return errors.Errorf("missing receipt for tx %s in block %d", tx.Hash, block.Number)
		}
		tx.Status = uint64(receipt.Status)
		tx.Logs = receipt.Logs
		tx.BlockTimestamp = block.Timestamp
	}
	return nil
}

type engineRpcClient struct {
	client *rpc.Client
}

// jwtAuth signs a fresh HS256 bearer token per request, the engine-API auth
// scheme.
func jwtAuth(secret []byte) rpc.HTTPAuth {
	return func(h http.Header) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iat": time.Now().Unix(),
		})
		signed, err := token.SignedString(secret)
		if err != nil {
			return errors.WithStack(err)
		}
		h.Set("Authorization", "Bearer "+signed)
		return nil
	}
}

func DialEngineClient(ctx context.Context, url string, jwtSecret []byte) (EngineClient, error) {
	opts := []rpc.ClientOption{}
	if len(jwtSecret) > 0 {
		opts = append(opts, rpc.WithHTTPAuth(jwtAuth(jwtSecret)))
	}
	client, err := rpc.DialOptions(ctx, url, opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &engineRpcClient{client: client}, nil
}

func NewEngineClient(client *rpc.Client) EngineClient {
	return &engineRpcClient{client: client}
}

func (c *engineRpcClient) LatestBlock(ctx context.Context) (*esctypes.EthscriptionsBlock, error) {
	var block esctypes.EthscriptionsBlock
	err := c.client.CallContext(ctx, &block, "eth_getBlockByNumber", "latest", false)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &block, nil
}

func (c *engineRpcClient) BlockByNumber(ctx context.Context, number uint64) (*esctypes.EthscriptionsBlock, error) {
	var block esctypes.EthscriptionsBlock
	err := c.client.CallContext(ctx, &block, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &block, nil
}

func (c *engineRpcClient) L1Attributes(ctx context.Context, l2BlockNumber uint64) (*esctypes.L1Attributes, error) {
	var attrs esctypes.L1Attributes
	err := c.client.CallContext(ctx, &attrs, "esc_getL1Attributes", hexutil.EncodeUint64(l2BlockNumber))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &attrs, nil
}

func (c *engineRpcClient) ProposeBlock(ctx context.Context, transactions []hexutil.Bytes, newBlock *esctypes.ProposedBlock,
	head, safe, finalized common.Hash) ([]*esctypes.EthscriptionsBlock, error) {
	var blocks []*esctypes.EthscriptionsBlock
	err := c.client.CallContext(ctx, &blocks, "esc_proposeBlock", transactions, newBlock, head, safe, finalized)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return blocks, nil
}
