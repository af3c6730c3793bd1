package api

import (
	"time"

	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
)

// EventResponse is a page of stored events.
type EventResponse struct {
	Events     []*pkgstore.Event `json:"events"`
	Pagination PaginationResult  `json:"pagination"`
}

// PaginationResult contains pagination metadata.
type PaginationResult struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LatestBlock uint64    `json:"latest_block"`
	Events      uint64    `json:"events"`
}

// ContractInfo describes a contract whose events can be decoded.
type ContractInfo struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Events  []string `json:"events"`
}
