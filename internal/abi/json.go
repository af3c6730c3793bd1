package abi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"unicode/utf8"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ExtractABI returns the ABI array from either a plain JSON ABI or an artifact
// object carrying it under the "abi" key.
func ExtractABI(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty ABI")
	}

	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}

	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(trimmed, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse ABI artifact: %w", err)
	}
	if len(artifact.ABI) == 0 {
		return nil, fmt.Errorf("ABI artifact has no \"abi\" field")
	}

	return artifact.ABI, nil
}

// ParseJSON builds a contract interface from a JSON ABI. Functions, errors and
// anonymous events are ignored since they cannot be matched by topic. Events with
// parameters outside the supported kinds (tuples, functions) are recorded in
// Skipped instead of failing the whole ABI.
func ParseJSON(name string, data []byte) (*ContractInterface, error) {
	raw, err := ExtractABI(data)
	if err != nil {
		return nil, err
	}

	parsed, err := gethabi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI of %s: %w", name, err)
	}

	keys := make([]string, 0, len(parsed.Events))
	for key := range parsed.Events {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	ci := NewContractInterface(name)
	for _, key := range keys {
		event := parsed.Events[key]
		if event.Anonymous {
			continue
		}

		definition, err := eventFromGeth(event)
		if err != nil {
			ci.Skipped[key] = err
			continue
		}
		ci.Events[key] = definition
	}

	return ci, nil
}

func eventFromGeth(event gethabi.Event) (*EventDefinition, error) {
	params := make([]Param, len(event.Inputs))
	for i, input := range event.Inputs {
		typ, err := FromGethType(input.Type)
		if err != nil {
			return nil, fmt.Errorf("event %s: parameter %d: %w", event.RawName, i, err)
		}
		params[i] = Param{Name: input.Name, Type: typ, Indexed: input.Indexed}
	}
	nameUnnamed(params)

	return NewEventDefinition(event.RawName, params)
}

// MarshalArgs encodes decoded arguments as a JSON object. Integers are written as
// JSON numbers, addresses as checksummed hex and byte strings as 0x-prefixed hex.
// Strings that are not valid UTF-8 or contain NUL are written as 0x-prefixed hex
// as well; postgres jsonb rejects \u0000.
func MarshalArgs(args map[string]any) ([]byte, error) {
	out := make(map[string]any, len(args))
	for name, v := range args {
		out[name] = jsonValue(v)
	}
	return json.Marshal(out)
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case *big.Int:
		return json.Number(val.String())
	case common.Address:
		return val.Hex()
	case common.Hash:
		return val.Hex()
	case []byte:
		return hexutil.Encode(val)
	case string:
		if !utf8.ValidString(val) || strings.ContainsRune(val, 0) {
			return hexutil.Encode([]byte(val))
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = jsonValue(elem)
		}
		return out
	default:
		return val
	}
}
