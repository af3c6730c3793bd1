package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ethindex/internal/abi"
	"golang.org/x/sync/errgroup"
)

type eventKey struct {
	address common.Address
	topic   common.Hash
}

// TopicRegistry maps (contract address, signature topic) pairs to event definitions.
// It is immutable once built and safe for concurrent use.
type TopicRegistry struct {
	events    map[eventKey]*abi.EventDefinition
	addresses []common.Address
	workers   int
}

// Option configures a TopicRegistry.
type Option func(*TopicRegistry)

// WithDecodeWorkers sets the number of goroutines DecodeBatch fans out to.
func WithDecodeWorkers(n int) Option {
	return func(r *TopicRegistry) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New builds a registry from contract interfaces keyed by contract address.
// Keys that normalize to the same address are merged. An invalid address, an invalid
// event definition or two events sharing a topic on one address yield a ConfigurationError.
func New(interfaces map[string]*abi.ContractInterface, opts ...Option) (*TopicRegistry, error) {
	r := &TopicRegistry{
		events:  make(map[eventKey]*abi.EventDefinition),
		workers: 1,
	}
	for _, opt := range opts {
		opt(r)
	}

	rawAddresses := make([]string, 0, len(interfaces))
	for raw := range interfaces {
		rawAddresses = append(rawAddresses, raw)
	}
	slices.Sort(rawAddresses)

	seen := make(map[common.Address]struct{})
	for _, raw := range rawAddresses {
		if !common.IsHexAddress(raw) {
			return nil, &ConfigurationError{Address: raw, Err: errors.New("invalid contract address")}
		}
		address := common.HexToAddress(raw)

		ci := interfaces[raw]
		if ci == nil {
			return nil, &ConfigurationError{Address: raw, Err: errors.New("missing contract interface")}
		}

		for _, name := range ci.EventNames() {
			event := ci.Events[name]
			if err := event.Validate(); err != nil {
				return nil, &ConfigurationError{Address: raw, Err: err}
			}

			key := eventKey{address: address, topic: event.Topic()}
			if existing, ok := r.events[key]; ok {
				return nil, &ConfigurationError{
					Address: raw,
					Err: fmt.Errorf("topic %s of %s collides with %s",
						key.topic.Hex(), event.Signature(), existing.Signature()),
				}
			}
			r.events[key] = event

			if _, ok := seen[address]; !ok {
				seen[address] = struct{}{}
				r.addresses = append(r.addresses, address)
			}
		}
	}

	slices.SortFunc(r.addresses, func(a, b common.Address) int {
		return bytes.Compare(a.Bytes(), b.Bytes())
	})

	return r, nil
}

// Addresses returns the sorted set of addresses with at least one decodable event.
func (r *TopicRegistry) Addresses() []common.Address {
	return slices.Clone(r.addresses)
}

// Len returns the number of registered (address, topic) pairs.
func (r *TopicRegistry) Len() int {
	return len(r.events)
}

// Lookup returns the event registered for the address and topic.
func (r *TopicRegistry) Lookup(address common.Address, topic common.Hash) (*abi.EventDefinition, bool) {
	event, ok := r.events[eventKey{address: address, topic: topic}]
	return event, ok
}

// Decode decodes a single log. It returns ErrUnrecognized when the log's address and
// first topic are not registered, and a *DecodeError when the payload is malformed.
func (r *TopicRegistry) Decode(log *types.Log) (*DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, ErrUnrecognized
	}

	event, ok := r.Lookup(log.Address, log.Topics[0])
	if !ok {
		return nil, ErrUnrecognized
	}

	args, err := event.Decode(log.Topics[1:], log.Data)
	if err != nil {
		return nil, &DecodeError{
			TxHash:   log.TxHash,
			LogIndex: log.Index,
			Address:  log.Address,
			Event:    event.Name,
			Err:      err,
		}
	}

	return &DecodedEvent{Log: log, Name: event.Name, Args: args}, nil
}

type decodeOutcome struct {
	event *DecodedEvent
	err   error
}

// DecodeBatch decodes every log, keeping successes in input order and counting
// unrecognized logs apart from decode failures. A malformed log never aborts the batch;
// only context cancellation does.
func (r *TopicRegistry) DecodeBatch(ctx context.Context, logs []types.Log) (*BatchResult, error) {
	outcomes := make([]decodeOutcome, len(logs))

	workers := min(r.workers, max(len(logs), 1))
	chunk := (len(logs) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(logs); start += chunk {
		end := min(start+chunk, len(logs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				event, err := r.Decode(&logs[i])
				outcomes[i] = decodeOutcome{event: event, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BatchResult{Events: make([]*DecodedEvent, 0, len(logs))}
	for _, o := range outcomes {
		var decodeErr *DecodeError
		switch {
		case o.err == nil:
			result.Events = append(result.Events, o.event)
		case errors.Is(o.err, ErrUnrecognized):
			result.Unrecognized++
		case errors.As(o.err, &decodeErr):
			result.Failures = append(result.Failures, decodeErr)
		default:
			return nil, o.err
		}
	}

	return result, nil
}
