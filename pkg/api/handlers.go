package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ethindex/internal/logger"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
)

// Handler handles HTTP requests for the API.
type Handler struct {
	reader     pkgstore.Reader
	interfaces pkgstore.InterfaceSource
	log        *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(reader pkgstore.Reader, interfaces pkgstore.InterfaceSource, log *logger.Logger) *Handler {
	return &Handler{
		reader:     reader,
		interfaces: interfaces,
		log:        log,
	}
}

// GetEvents retrieves stored events.
// @Summary Get events
// @Description Retrieve stored events with optional filtering and pagination, in chain order
// @Tags Events
// @Produce json
// @Param address query string false "Contract address"
// @Param event query string false "Event name"
// @Param from_block query integer false "Filter events from this block number"
// @Param to_block query integer false "Filter events up to this block number"
// @Param limit query int false "Maximum number of events to return" default(100)
// @Param offset query int false "Number of events to skip" default(0)
// @Param order query string false "Sort order: asc or desc" Enums(asc, desc)
// @Success 200 {object} EventResponse "List of events with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /events [get]
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query, err := parseEventQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	events, total, err := h.reader.QueryEvents(r.Context(), *query)
	if err != nil {
		h.log.Errorf("failed to query events: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	respondJSON(w, http.StatusOK, EventResponse{
		Events: events,
		Pagination: PaginationResult{
			Total:   total,
			Limit:   query.PageSize(),
			Offset:  query.Offset,
			HasMore: query.Offset+len(events) < total,
		},
	})
}

// GetStats retrieves storage statistics.
// @Summary Get statistics
// @Description Retrieve the number of stored blocks and events per event name
// @Tags Stats
// @Produce json
// @Success 200 {object} store.Stats "Storage statistics"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		h.log.Errorf("failed to get stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// ListContracts lists the contracts whose events are decoded.
// @Summary List contracts
// @Description List every contract address with its decodable events
// @Tags Contracts
// @Produce json
// @Success 200 {array} ContractInfo "List of contracts"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /contracts [get]
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	interfaces, err := h.interfaces.LoadInterfaces(r.Context())
	if err != nil {
		h.log.Errorf("failed to load contract interfaces: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load contracts")
		return
	}

	infos := make([]ContractInfo, 0, len(interfaces))
	for address, iface := range interfaces {
		infos = append(infos, ContractInfo{
			Address: address,
			Name:    iface.Name,
			Events:  iface.EventNames(),
		})
	}
	slices.SortFunc(infos, func(a, b ContractInfo) int {
		return strings.Compare(strings.ToLower(a.Address), strings.ToLower(b.Address))
	})

	respondJSON(w, http.StatusOK, infos)
}

// Health returns the health status of the API and the store.
// @Summary Health check
// @Description Check that the API can reach the store
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "API health status"
// @Failure 503 {object} ErrorResponse "Store unavailable"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		h.log.Warnf("health check failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now(),
		LatestBlock: stats.LatestBlock,
		Events:      stats.Events,
	})
}

// parseEventQuery parses HTTP query parameters into an EventQuery.
func parseEventQuery(r *http.Request) (*pkgstore.EventQuery, error) {
	values := r.URL.Query()
	query := &pkgstore.EventQuery{Limit: pkgstore.DefaultQueryLimit}

	if limitStr := values.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > pkgstore.MaxQueryLimit {
			return nil, fmt.Errorf("invalid limit: must be between 1 and %d", pkgstore.MaxQueryLimit)
		}
		query.Limit = limit
	}

	if offsetStr := values.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("invalid offset: must be non-negative")
		}
		query.Offset = offset
	}

	if fromBlockStr := values.Get("from_block"); fromBlockStr != "" {
		fromBlock, err := strconv.ParseUint(fromBlockStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid from_block")
		}
		query.FromBlock = &fromBlock
	}

	if toBlockStr := values.Get("to_block"); toBlockStr != "" {
		toBlock, err := strconv.ParseUint(toBlockStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid to_block")
		}
		query.ToBlock = &toBlock
	}

	if query.FromBlock != nil && query.ToBlock != nil && *query.FromBlock > *query.ToBlock {
		return nil, fmt.Errorf("from_block cannot be greater than to_block")
	}

	if address := values.Get("address"); address != "" {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid address")
		}
		a := common.HexToAddress(address)
		query.Address = &a
	}

	query.EventName = values.Get("event")

	switch order := strings.ToLower(values.Get("order")); order {
	case "", "asc":
	case "desc":
		query.Descending = true
	default:
		return nil, fmt.Errorf("invalid order: must be 'asc' or 'desc'")
	}

	return query, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding error can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
