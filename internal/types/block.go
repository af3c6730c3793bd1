package types

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	internalcommon "github.com/goran-ethernal/ethindex/internal/common"
)

// BlockFinality represents the finality tag a range bound can be resolved against.
type BlockFinality string

const (
	// FinalityFinalized uses the finalized block tag (highest level of finality)
	FinalityFinalized BlockFinality = "finalized"

	// FinalitySafe uses the safe block tag (medium level of finality)
	FinalitySafe BlockFinality = "safe"

	// FinalityLatest uses the latest block tag (no finality guarantees)
	FinalityLatest BlockFinality = "latest"
)

// String returns the string representation of BlockFinality.
func (f BlockFinality) String() string {
	return string(f)
}

// IsValid checks if the BlockFinality value is valid.
func (f BlockFinality) IsValid() bool {
	switch f {
	case FinalityFinalized, FinalitySafe, FinalityLatest:
		return true
	default:
		return false
	}
}

// BlockBound is one end of a scanned block range: a fixed number or a finality tag
// resolved against the node when the run starts.
type BlockBound struct {
	Number   uint64
	Finality BlockFinality
}

// ParseBlockBound parses a decimal or 0x-hex block number, or one of "latest", "safe", "finalized".
// An empty string means "latest".
func ParseBlockBound(s string) (BlockBound, error) {
	s = internalcommon.ToLowerWithTrim(s)
	if s == "" {
		return BlockBound{Finality: FinalityLatest}, nil
	}

	if f := BlockFinality(s); f.IsValid() {
		return BlockBound{Finality: f}, nil
	}

	n, err := internalcommon.ParseUint64orHex(&s)
	if err != nil {
		return BlockBound{}, fmt.Errorf("invalid block bound %q: must be a block number or one of: latest, safe, finalized", s)
	}

	return BlockBound{Number: n}, nil
}

// IsTag reports whether the bound must be resolved against the node.
func (b BlockBound) IsTag() bool {
	return b.Finality != ""
}

// String returns the bound as written in configuration.
func (b BlockBound) String() string {
	if b.IsTag() {
		return b.Finality.String()
	}
	return strconv.FormatUint(b.Number, 10)
}

// BlockHeader is the part of a canonical block header events are reconciled against.
type BlockHeader struct {
	Number    uint64      `meddler:"block_number"`
	Hash      common.Hash `meddler:"block_hash,hash"`
	Timestamp uint64      `meddler:"timestamp"`
}

// NewBlockHeader extracts the reconciliation fields from a go-ethereum header.
func NewBlockHeader(h *gethtypes.Header) *BlockHeader {
	return &BlockHeader{
		Number:    h.Number.Uint64(),
		Hash:      h.Hash(),
		Timestamp: h.Time,
	}
}
