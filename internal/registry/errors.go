package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnrecognized is returned by Decode for logs whose (address, topic) pair is not registered.
// It is an expected outcome, not a failure.
var ErrUnrecognized = errors.New("unrecognized log")

// ConfigurationError is returned when the registry cannot be built from its interfaces.
type ConfigurationError struct {
	Address string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid registry configuration for %s: %v", e.Address, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a recognized log carries a malformed payload.
type DecodeError struct {
	TxHash   common.Hash
	LogIndex uint
	Address  common.Address
	Event    string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s log %d of tx %s from %s: %v",
		e.Event, e.LogIndex, e.TxHash.Hex(), e.Address.Hex(), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
