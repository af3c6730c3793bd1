package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ethindex/internal/abi"
	"github.com/goran-ethernal/ethindex/internal/logger"
	storemocks "github.com/goran-ethernal/ethindex/internal/store/mocks"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *storemocks.Reader, *storemocks.InterfaceSource) {
	t.Helper()

	reader := storemocks.NewReader(t)
	interfaces := storemocks.NewInterfaceSource(t)
	return NewHandler(reader, interfaces, logger.NewNopLogger()), reader, interfaces
}

func u64(v uint64) *uint64 { return &v }

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		data         any
		expectedBody string
	}{
		{name: "object", status: http.StatusOK, data: map[string]string{"message": "success"}, expectedBody: `{"message":"success"}`},
		{name: "array", status: http.StatusOK, data: []string{"item1", "item2"}, expectedBody: `["item1","item2"]`},
		{name: "nil", status: http.StatusOK, data: nil, expectedBody: "null"},
		{name: "error status", status: http.StatusBadRequest, data: map[string]string{"error": "bad"}, expectedBody: `{"error":"bad"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			require.Equal(t, tt.status, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			require.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestRespondJSON_EncodingError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusOK, map[string]any{"ch": make(chan int)})

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestParseEventQuery(t *testing.T) {
	t.Parallel()

	address := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	tests := []struct {
		name     string
		rawQuery string
		expected *pkgstore.EventQuery
		errMsg   string
	}{
		{
			name:     "defaults",
			expected: &pkgstore.EventQuery{Limit: pkgstore.DefaultQueryLimit},
		},
		{
			name:     "all filters",
			rawQuery: "address=0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48&event=Transfer&from_block=10&to_block=20&limit=5&offset=15&order=DESC",
			expected: &pkgstore.EventQuery{
				Address:    &address,
				EventName:  "Transfer",
				FromBlock:  u64(10),
				ToBlock:    u64(20),
				Limit:      5,
				Offset:     15,
				Descending: true,
			},
		},
		{name: "limit too high", rawQuery: "limit=1001", errMsg: "invalid limit"},
		{name: "limit zero", rawQuery: "limit=0", errMsg: "invalid limit"},
		{name: "negative offset", rawQuery: "offset=-1", errMsg: "invalid offset"},
		{name: "bad from_block", rawQuery: "from_block=abc", errMsg: "invalid from_block"},
		{name: "bad to_block", rawQuery: "to_block=-5", errMsg: "invalid to_block"},
		{name: "inverted range", rawQuery: "from_block=20&to_block=10", errMsg: "from_block cannot be greater than to_block"},
		{name: "bad address", rawQuery: "address=0x1234", errMsg: "invalid address"},
		{name: "bad order", rawQuery: "order=sideways", errMsg: "invalid order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/events?"+tt.rawQuery, nil)
			query, err := parseEventQuery(req)
			if tt.errMsg != "" {
				require.ErrorContains(t, err, tt.errMsg)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expected, query)
		})
	}
}

func TestHandler_GetEvents(t *testing.T) {
	t.Parallel()

	h, reader, _ := newTestHandler(t)

	events := []*pkgstore.Event{
		{
			TransactionHash: common.HexToHash("0x01"),
			BlockNumber:     10,
			Address:         common.HexToAddress("0xaa"),
			EventName:       "Transfer",
			Args:            json.RawMessage(`{"value":100}`),
			Timestamp:       1000,
		},
	}

	reader.EXPECT().
		QueryEvents(mock.Anything, pkgstore.EventQuery{EventName: "Transfer", Limit: 1, Offset: 2}).
		Return(events, 4, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?event=Transfer&limit=1&offset=2", nil)
	w := httptest.NewRecorder()
	h.GetEvents(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Events     []map[string]any `json:"events"`
		Pagination PaginationResult `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Events, 1)
	require.Equal(t, "Transfer", response.Events[0]["event_name"])
	require.Equal(t, map[string]any{"value": float64(100)}, response.Events[0]["args"])
	require.Equal(t, PaginationResult{Total: 4, Limit: 1, Offset: 2, HasMore: true}, response.Pagination)
}

func TestHandler_GetEvents_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid parameters", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		w := httptest.NewRecorder()
		h.GetEvents(w, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=abc", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Equal(t, http.StatusBadRequest, response.Code)
		require.Contains(t, response.Message, "invalid limit")
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		h, reader, _ := newTestHandler(t)
		reader.EXPECT().QueryEvents(mock.Anything, mock.Anything).Return(nil, 0, errors.New("db down"))

		w := httptest.NewRecorder()
		h.GetEvents(w, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotContains(t, w.Body.String(), "db down")
	})
}

func TestHandler_GetStats(t *testing.T) {
	t.Parallel()

	h, reader, _ := newTestHandler(t)
	reader.EXPECT().Stats(mock.Anything).Return(&pkgstore.Stats{
		Blocks:      2,
		Events:      3,
		LatestBlock: 12,
		EventCounts: map[string]uint64{"Transfer": 3},
	}, nil)

	w := httptest.NewRecorder()
	h.GetStats(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"blocks":2,"events":3,"latest_block":12,"event_counts":{"Transfer":3}}`, w.Body.String())
}

func TestHandler_ListContracts(t *testing.T) {
	t.Parallel()

	h, _, interfaces := newTestHandler(t)

	token, err := abi.ParseEventSignatures("Token", []string{
		"Transfer(address indexed from, address indexed to, uint256 value)",
		"Approval(address indexed owner, address indexed spender, uint256 value)",
	})
	require.NoError(t, err)
	weth, err := abi.ParseEventSignatures("WETH", []string{"Deposit(address indexed dst, uint256 wad)"})
	require.NoError(t, err)

	interfaces.EXPECT().LoadInterfaces(mock.Anything).Return(map[string]*abi.ContractInterface{
		"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2": weth,
		"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48": token,
	}, nil)

	w := httptest.NewRecorder()
	h.ListContracts(w, httptest.NewRequest(http.MethodGet, "/api/v1/contracts", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var infos []ContractInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Equal(t, []ContractInfo{
		{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Name: "Token", Events: []string{"Approval", "Transfer"}},
		{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Name: "WETH", Events: []string{"Deposit"}},
	}, infos)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		h, reader, _ := newTestHandler(t)
		reader.EXPECT().Stats(mock.Anything).Return(&pkgstore.Stats{Events: 7, LatestBlock: 99}, nil)

		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Equal(t, "ok", response.Status)
		require.Equal(t, uint64(99), response.LatestBlock)
		require.Equal(t, uint64(7), response.Events)
		require.False(t, response.Timestamp.IsZero())
	})

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()

		h, reader, _ := newTestHandler(t)
		reader.EXPECT().Stats(mock.Anything).Return(nil, errors.New("connection refused"))

		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
