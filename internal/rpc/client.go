package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	internalcommon "github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/metrics"
	"github.com/goran-ethernal/ethindex/pkg/config"
	pkgrpc "github.com/goran-ethernal/ethindex/pkg/rpc"
)

// Compile-time check to ensure Client implements pkgrpc.EthClient interface.
var _ pkgrpc.EthClient = (*Client)(nil)

const (
	methodGetLogs       = "eth_getLogs"
	methodGetBlockByNum = "eth_getBlockByNumber"
	methodGetLatest     = "eth_getBlockByNumber_latest"
	methodGetFinalized  = "eth_getBlockByNumber_finalized"
	methodGetSafe       = "eth_getBlockByNumber_safe"
)

// Client wraps the Ethereum RPC client with request timeouts, retries and metrics.
// It implements the pkgrpc.EthClient interface.
type Client struct {
	eth    *ethclient.Client
	rpc    *rpc.Client
	policy *retryPolicy
	log    *logger.Logger
}

// NewClient creates a new RPC client connected to cfg.URL.
func NewClient(ctx context.Context, cfg config.RPCConfig, log *logger.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		metrics.ComponentHealthSet(internalcommon.ComponentRPC, false)
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.URL, err)
	}

	metrics.ComponentHealthSet(internalcommon.ComponentRPC, true)
	log.Infof("connected to RPC endpoint %s", cfg.URL)

	return &Client{
		eth: ethclient.NewClient(rpcClient),
		rpc: rpcClient,
		policy: &retryPolicy{
			cfg:     cfg.Retry,
			timeout: cfg.RequestTimeout.Duration,
			log:     log,
		},
		log: log,
	}, nil
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// GetLogs retrieves logs matching the given filter query.
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log

	err := c.call(ctx, methodGetLogs, func(ctx context.Context) error {
		var err error
		logs, err = c.eth.FilterLogs(ctx, query)
		return err
	})

	return logs, err
}

// GetBlockHeader retrieves the header for a specific block number.
func (c *Client) GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error) {
	return c.header(ctx, methodGetBlockByNum, new(big.Int).SetUint64(blockNum))
}

// GetLatestBlockHeader retrieves the latest block header.
func (c *Client) GetLatestBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, methodGetLatest, nil)
}

// GetFinalizedBlockHeader retrieves the finalized block header.
func (c *Client) GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, methodGetFinalized, big.NewInt(int64(rpc.FinalizedBlockNumber)))
}

// GetSafeBlockHeader retrieves the safe block header.
func (c *Client) GetSafeBlockHeader(ctx context.Context) (*types.Header, error) {
	return c.header(ctx, methodGetSafe, big.NewInt(int64(rpc.SafeBlockNumber)))
}

func (c *Client) header(ctx context.Context, method string, number *big.Int) (*types.Header, error) {
	var header *types.Header

	err := c.call(ctx, method, func(ctx context.Context) error {
		var err error
		header, err = c.eth.HeaderByNumber(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	return header, nil
}

// call runs fn under the retry policy and records request metrics.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	RPCMethodInc(method)
	start := time.Now()

	err := c.policy.do(ctx, method, fn)
	RPCMethodDuration(method, time.Since(start))

	if err != nil {
		RPCMethodError(method, classifyError(err))
	}

	return err
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return errorTypeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	case errors.Is(err, ethereum.NotFound):
		return errorTypeNotFound
	}

	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return errorTypeTooMany
	}

	if retryableError(err) {
		return errorTypeTransient
	}

	return errorTypePermanent
}
