package fetcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ethindex/internal/logger"
	rpcmocks "github.com/goran-ethernal/ethindex/internal/rpc/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBlockFetcher_FetchBlock(t *testing.T) {
	mockRPC := rpcmocks.NewEthClient(t)
	bf := NewBlockFetcher(logger.NewNopLogger(), mockRPC, 2)
	ctx := context.Background()

	header := createTestHeader(10)
	mockRPC.EXPECT().GetBlockHeader(ctx, uint64(10)).Return(header, nil).Once()

	block, err := bf.FetchBlock(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(10), block.Number)
	require.Equal(t, header.Hash(), block.Hash)
	require.Equal(t, header.Time, block.Timestamp)
}

func TestBlockFetcher_FetchBlock_WrongNumber(t *testing.T) {
	mockRPC := rpcmocks.NewEthClient(t)
	bf := NewBlockFetcher(logger.NewNopLogger(), mockRPC, 2)
	ctx := context.Background()

	mockRPC.EXPECT().GetBlockHeader(ctx, uint64(10)).Return(createTestHeader(11), nil).Once()
	mockRPC.EXPECT().GetBlockHeader(ctx, uint64(12)).Return(nil, nil).Once()

	_, err := bf.FetchBlock(ctx, 10)
	require.ErrorContains(t, err, "node returned header 11 for block 10")

	_, err = bf.FetchBlock(ctx, 12)
	require.ErrorContains(t, err, "no header for block 12")
}

func TestBlockFetcher_FetchBlocks_Distinct(t *testing.T) {
	mockRPC := rpcmocks.NewEthClient(t)
	bf := NewBlockFetcher(logger.NewNopLogger(), mockRPC, 3)

	var calls atomic.Int32
	mockRPC.EXPECT().GetBlockHeader(mock.Anything, mock.AnythingOfType("uint64")).
		RunAndReturn(func(_ context.Context, number uint64) (*gethtypes.Header, error) {
			calls.Add(1)
			return createTestHeader(number), nil
		}).Times(4)

	blocks, err := bf.FetchBlocks(context.Background(), []uint64{7, 3, 7, 9, 3, 1, 9})
	require.NoError(t, err)
	require.Equal(t, int32(4), calls.Load())
	require.Len(t, blocks, 4)

	for i, want := range []uint64{1, 3, 7, 9} {
		require.Equal(t, want, blocks[i].Number)
		require.Equal(t, createTestHeader(want).Hash(), blocks[i].Hash)
	}
}

func TestBlockFetcher_FetchBlocks_Empty(t *testing.T) {
	bf := NewBlockFetcher(logger.NewNopLogger(), rpcmocks.NewEthClient(t), 0)
	require.Equal(t, defaultBlockWorkers, bf.workers)

	blocks, err := bf.FetchBlocks(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func TestBlockFetcher_FetchBlocks_Error(t *testing.T) {
	mockRPC := rpcmocks.NewEthClient(t)
	bf := NewBlockFetcher(logger.NewNopLogger(), mockRPC, 1)

	rpcErr := errors.New("header not available")
	mockRPC.EXPECT().GetBlockHeader(mock.Anything, uint64(1)).Return(createTestHeader(1), nil).Maybe()
	mockRPC.EXPECT().GetBlockHeader(mock.Anything, uint64(2)).Return(nil, rpcErr).Once()
	mockRPC.EXPECT().GetBlockHeader(mock.Anything, uint64(3)).Return(createTestHeader(3), nil).Maybe()

	blocks, err := bf.FetchBlocks(context.Background(), []uint64{1, 2, 3})
	require.ErrorIs(t, err, rpcErr)
	require.Nil(t, blocks)
}
