package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/ethindex/internal/common"
)

var (
	tooManyResultsRegex = regexp.MustCompile(`Query returned more than \d+ results`)
	blockRangeRegex     = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// IsTooManyResultsError checks if the error is an eth_getLogs "too many results" error
// and returns the error data the node attached to it.
func IsTooManyResultsError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return false, ""
	}

	errData := fmt.Sprintf("%v", dataErr.ErrorData())

	return tooManyResultsRegex.MatchString(errData), errData
}

// ParseSuggestedBlockRange extracts the block range a node suggests in a "too many results" message.
// Expected format: "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."
func ParseSuggestedBlockRange(msg string) (fromBlock, toBlock uint64, ok bool) {
	matches := blockRangeRegex.FindStringSubmatch(msg)

	const expectedMatches = 3 // full match + 2 groups
	if len(matches) != expectedMatches {
		return 0, 0, false
	}

	from, err1 := common.ParseUint64orHex(&matches[1])
	to, err2 := common.ParseUint64orHex(&matches[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}

	return from, to, true
}

// SuggestedRange reports whether err asks for a narrower eth_getLogs range and,
// when the node proposed one, the suggested bounds.
func SuggestedRange(err error) (tooMany bool, fromBlock, toBlock uint64, ok bool) {
	tooMany, data := IsTooManyResultsError(err)
	if !tooMany {
		return false, 0, 0, false
	}

	fromBlock, toBlock, ok = ParseSuggestedBlockRange(data)

	return true, fromBlock, toBlock, ok
}
