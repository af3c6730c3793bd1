package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonrpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// reply is what the fake node answers for a single request.
// A non-zero status short-circuits with a bare HTTP error.
type reply struct {
	status int
	result any
	err    *jsonrpcError
}

type fakeNode struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(req jsonrpcRequest, call int) reply
}

func newFakeNode(t *testing.T, respond func(req jsonrpcRequest, call int) reply) *httptest.Server {
	t.Helper()

	node := &fakeNode{calls: make(map[string]int), respond: respond}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		node.mu.Lock()
		node.calls[req.Method]++
		call := node.calls[req.Method]
		node.mu.Unlock()

		rep := node.respond(req, call)
		if rep.status != 0 {
			http.Error(w, http.StatusText(rep.status), rep.status)
			return
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rep.err != nil {
			resp["error"] = rep.err
		} else {
			resp["result"] = rep.result
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestClient(t *testing.T, url string, retry *config.RetryConfig) *Client {
	t.Helper()

	client, err := NewClient(context.Background(), config.RPCConfig{
		URL:            url,
		RequestTimeout: common.NewDuration(time.Second),
		Retry:          retry,
	}, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func testHeader(number uint64) *types.Header {
	return &types.Header{
		Number:     new(big.Int).SetUint64(number),
		ParentHash: ethcommon.HexToHash("0x01"),
		Difficulty: big.NewInt(1),
		GasLimit:   30_000_000,
		Time:       1_700_000_000 + number,
	}
}

func TestClient_GetBlockHeader(t *testing.T) {
	want := testHeader(100)

	srv := newFakeNode(t, func(req jsonrpcRequest, _ int) reply {
		assert.Equal(t, "eth_getBlockByNumber", req.Method)
		assert.JSONEq(t, `"0x64"`, string(req.Params[0]))
		return reply{result: want}
	})

	client := newTestClient(t, srv.URL, nil)

	header, err := client.GetBlockHeader(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, want.Hash(), header.Hash())
	require.Equal(t, want.Time, header.Time)
}

func TestClient_FinalityTags(t *testing.T) {
	var tags []string

	srv := newFakeNode(t, func(req jsonrpcRequest, _ int) reply {
		var tag string
		assert.NoError(t, json.Unmarshal(req.Params[0], &tag))
		tags = append(tags, tag)
		return reply{result: testHeader(7)}
	})

	client := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	_, err := client.GetLatestBlockHeader(ctx)
	require.NoError(t, err)
	_, err = client.GetSafeBlockHeader(ctx)
	require.NoError(t, err)
	_, err = client.GetFinalizedBlockHeader(ctx)
	require.NoError(t, err)

	require.Equal(t, []string{"latest", "safe", "finalized"}, tags)
}

func TestClient_GetBlockHeader_NotFound(t *testing.T) {
	srv := newFakeNode(t, func(jsonrpcRequest, int) reply {
		return reply{result: nil}
	})

	client := newTestClient(t, srv.URL, fastRetry(3))

	_, err := client.GetBlockHeader(context.Background(), 5)
	require.ErrorIs(t, err, ethereum.NotFound)
	require.Equal(t, errorTypeNotFound, classifyError(err))
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	srv := newFakeNode(t, func(_ jsonrpcRequest, call int) reply {
		if call < 3 {
			return reply{status: http.StatusServiceUnavailable}
		}
		return reply{result: []types.Log{}}
	})

	client := newTestClient(t, srv.URL, fastRetry(5))

	logs, err := client.GetLogs(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(1),
		ToBlock:   big.NewInt(10),
	})
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestClient_TooManyResultsIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newFakeNode(t, func(_ jsonrpcRequest, call int) reply {
		calls.Store(int32(call))
		return reply{err: &jsonrpcError{
			Code:    limitExceededCode,
			Message: "query returned more than 10000 results",
			Data:    "Query returned more than 10000 results. Try with this block range [0x1, 0x5].",
		}}
	})

	client := newTestClient(t, srv.URL, fastRetry(5))

	_, err := client.GetLogs(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(1),
		ToBlock:   big.NewInt(10),
	})
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())

	tooMany, data := IsTooManyResultsError(err)
	require.True(t, tooMany)

	from, to, ok := ParseSuggestedBlockRange(data)
	require.True(t, ok)
	require.Equal(t, uint64(1), from)
	require.Equal(t, uint64(5), to)
	require.Equal(t, errorTypeTooMany, classifyError(err))
}

func TestClassifyError(t *testing.T) {
	require.Equal(t, errorTypeCancelled, classifyError(context.Canceled))
	require.Equal(t, errorTypeTimeout, classifyError(context.DeadlineExceeded))
	require.Equal(t, errorTypeTransient, classifyError(&mockNetError{msg: "reset"}))
	require.Equal(t, errorTypePermanent, classifyError(&mockRPCError{code: -32602, msg: "invalid argument"}))
}
