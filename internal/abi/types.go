package abi

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// wordSize is the size of one ABI encoding slot.
const wordSize = 32

var (
	// ErrUnsupportedType is returned for ABI types that cannot be decoded (tuples, functions, fixed-point).
	ErrUnsupportedType = errors.New("unsupported ABI type")
	// ErrTopicCount is returned when a log carries a different number of topics than the event indexes.
	ErrTopicCount = errors.New("topic count mismatch")
	// ErrDataLength is returned when the data payload does not match the expected encoding size.
	ErrDataLength = errors.New("data length mismatch")
	// ErrOutOfBounds is returned when an offset or length points outside the data payload.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrInvalidValue is returned when a word does not hold a valid value of its type.
	ErrInvalidValue = errors.New("invalid value")
)

// ParamKind is the closed set of parameter types the decoder understands.
type ParamKind uint8

const (
	KindUint ParamKind = iota + 1
	KindInt
	KindAddress
	KindBool
	KindFixedBytes
	KindBytes
	KindString
	KindArray
	KindSlice
)

// String returns the kind name.
func (k ParamKind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindAddress:
		return "address"
	case KindBool:
		return "bool"
	case KindFixedBytes:
		return "fixed-bytes"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindSlice:
		return "slice"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParamType describes a single ABI type.
type ParamType struct {
	Kind ParamKind
	// Size is the bit width for integers, the byte width for fixed bytes
	// and the length for fixed arrays.
	Size int
	// Elem is the element type of arrays and slices.
	Elem *ParamType
}

// ParseType parses a Solidity type name such as "uint256", "bytes32" or "address[]".
func ParseType(typ string) (ParamType, error) {
	typ = normalizeTypeName(strings.TrimSpace(typ))
	if strings.HasPrefix(typ, "(") || strings.HasPrefix(typ, "tuple") {
		return ParamType{}, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}

	gethType, err := gethabi.NewType(typ, "", nil)
	if err != nil {
		return ParamType{}, fmt.Errorf("%w: %s: %w", ErrUnsupportedType, typ, err)
	}

	parsed, err := FromGethType(gethType)
	if err != nil {
		return ParamType{}, err
	}
	return parsed, parsed.Validate()
}

// FromGethType converts a go-ethereum ABI type into a ParamType.
func FromGethType(t gethabi.Type) (ParamType, error) {
	switch t.T {
	case gethabi.UintTy:
		return ParamType{Kind: KindUint, Size: t.Size}, nil
	case gethabi.IntTy:
		return ParamType{Kind: KindInt, Size: t.Size}, nil
	case gethabi.AddressTy:
		return ParamType{Kind: KindAddress}, nil
	case gethabi.BoolTy:
		return ParamType{Kind: KindBool}, nil
	case gethabi.FixedBytesTy:
		return ParamType{Kind: KindFixedBytes, Size: t.Size}, nil
	case gethabi.BytesTy:
		return ParamType{Kind: KindBytes}, nil
	case gethabi.StringTy:
		return ParamType{Kind: KindString}, nil
	case gethabi.ArrayTy, gethabi.SliceTy:
		if t.Elem == nil {
			return ParamType{}, fmt.Errorf("%w: %s has no element type", ErrUnsupportedType, t.String())
		}
		elem, err := FromGethType(*t.Elem)
		if err != nil {
			return ParamType{}, err
		}
		if t.T == gethabi.SliceTy {
			return ParamType{Kind: KindSlice, Elem: &elem}, nil
		}
		return ParamType{Kind: KindArray, Size: t.Size, Elem: &elem}, nil
	default:
		return ParamType{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t.String())
	}
}

// Validate checks that the type is a well formed member of the supported set.
func (t ParamType) Validate() error {
	switch t.Kind {
	case KindUint, KindInt:
		if t.Size < 8 || t.Size > 256 || t.Size%8 != 0 {
			return fmt.Errorf("%w: %s%d", ErrUnsupportedType, t.Kind, t.Size)
		}
	case KindFixedBytes:
		if t.Size < 1 || t.Size > wordSize {
			return fmt.Errorf("%w: bytes%d", ErrUnsupportedType, t.Size)
		}
	case KindAddress, KindBool, KindBytes, KindString:
	case KindArray, KindSlice:
		if t.Elem == nil {
			return fmt.Errorf("%w: %s without element type", ErrUnsupportedType, t.Kind)
		}
		if t.Kind == KindArray && t.Size < 1 {
			return fmt.Errorf("%w: zero length array", ErrUnsupportedType)
		}
		return t.Elem.Validate()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t.Kind)
	}
	return nil
}

// String returns the canonical Solidity name of the type.
func (t ParamType) String() string {
	switch t.Kind {
	case KindUint:
		return fmt.Sprintf("uint%d", t.Size)
	case KindInt:
		return fmt.Sprintf("int%d", t.Size)
	case KindAddress:
		return "address"
	case KindBool:
		return "bool"
	case KindFixedBytes:
		return fmt.Sprintf("bytes%d", t.Size)
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Size)
	case KindSlice:
		return t.Elem.String() + "[]"
	default:
		return t.Kind.String()
	}
}

// IsDynamic reports whether values of this type are encoded behind an offset.
func (t ParamType) IsDynamic() bool {
	switch t.Kind {
	case KindBytes, KindString, KindSlice:
		return true
	case KindArray:
		return t.Elem.IsDynamic()
	default:
		return false
	}
}

// HeadSize is the number of bytes the type occupies in the head of an encoded tuple.
func (t ParamType) HeadSize() int {
	if t.Kind == KindArray && !t.IsDynamic() {
		return t.Size * t.Elem.HeadSize()
	}
	return wordSize
}

// hashedWhenIndexed reports whether an indexed value of this type is stored as its keccak256 hash.
func (t ParamType) hashedWhenIndexed() bool {
	switch t.Kind {
	case KindBytes, KindString, KindArray, KindSlice:
		return true
	default:
		return false
	}
}

// Param describes one event parameter.
type Param struct {
	Name    string
	Type    ParamType
	Indexed bool
}

// EventDefinition is a single decodable event.
type EventDefinition struct {
	Name   string
	Params []Param
}

// NewEventDefinition creates an event definition and validates it.
func NewEventDefinition(name string, params []Param) (*EventDefinition, error) {
	e := &EventDefinition{Name: name, Params: params}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks parameter names and types.
func (e *EventDefinition) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("event has no name")
	}

	seen := make(map[string]struct{}, len(e.Params))
	for i, p := range e.Params {
		if p.Name == "" {
			return fmt.Errorf("event %s: parameter %d has no name", e.Name, i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("event %s: duplicate parameter name: %s", e.Name, p.Name)
		}
		seen[p.Name] = struct{}{}

		if err := p.Type.Validate(); err != nil {
			return fmt.Errorf("event %s: parameter %s: %w", e.Name, p.Name, err)
		}
	}

	return nil
}

// Signature returns the canonical event signature without parameter names.
// Example: "Transfer(address,address,uint256)"
func (e *EventDefinition) Signature() string {
	types := make([]string, len(e.Params))
	for i, p := range e.Params {
		types[i] = p.Type.String()
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// Topic returns the keccak256 hash of the canonical signature.
func (e *EventDefinition) Topic() common.Hash {
	return crypto.Keccak256Hash([]byte(e.Signature()))
}

// IndexedParams returns only the indexed parameters.
func (e *EventDefinition) IndexedParams() []Param {
	var indexed []Param
	for _, p := range e.Params {
		if p.Indexed {
			indexed = append(indexed, p)
		}
	}
	return indexed
}

// DataParams returns the parameters encoded in the data payload.
func (e *EventDefinition) DataParams() []Param {
	var data []Param
	for _, p := range e.Params {
		if !p.Indexed {
			data = append(data, p)
		}
	}
	return data
}

// ContractInterface holds the decodable events of one contract, keyed by event name.
type ContractInterface struct {
	Name   string
	Events map[string]*EventDefinition
	// Skipped holds the events of the source ABI that cannot be decoded, keyed by
	// event key, with the reason. Their logs come back as unrecognized.
	Skipped map[string]error
}

// NewContractInterface creates an empty contract interface.
func NewContractInterface(name string) *ContractInterface {
	return &ContractInterface{
		Name:    name,
		Events:  make(map[string]*EventDefinition),
		Skipped: make(map[string]error),
	}
}

// Add registers an event. Overloaded names get a numeric suffix the way
// go-ethereum names them ("Transfer", "Transfer0", ...).
func (c *ContractInterface) Add(event *EventDefinition) {
	key := gethabi.ResolveNameConflict(event.Name, func(s string) bool {
		_, ok := c.Events[s]
		return ok
	})
	c.Events[key] = event
}

// Merge adds every event of other to c.
func (c *ContractInterface) Merge(other *ContractInterface) {
	for _, name := range other.EventNames() {
		c.Add(other.Events[name])
	}
	for name, reason := range other.Skipped {
		if c.Skipped == nil {
			c.Skipped = make(map[string]error)
		}
		c.Skipped[name] = reason
	}
}

// SkippedNames returns the keys of the skipped events in sorted order.
func (c *ContractInterface) SkippedNames() []string {
	names := make([]string, 0, len(c.Skipped))
	for name := range c.Skipped {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// EventNames returns the event keys in sorted order.
func (c *ContractInterface) EventNames() []string {
	names := make([]string, 0, len(c.Events))
	for name := range c.Events {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// nameUnnamed gives every unnamed parameter a positional name ("param0", ...)
// that does not clash with an explicitly named parameter of the same event.
func nameUnnamed(params []Param) {
	taken := make(map[string]struct{}, len(params))
	for _, p := range params {
		if p.Name != "" {
			taken[p.Name] = struct{}{}
		}
	}

	for i := range params {
		if params[i].Name != "" {
			continue
		}
		name := fmt.Sprintf("param%d", i)
		for {
			if _, ok := taken[name]; !ok {
				break
			}
			name = "_" + name
		}
		taken[name] = struct{}{}
		params[i].Name = name
	}
}

func normalizeTypeName(typ string) string {
	for _, base := range []string{"uint", "int"} {
		if typ == base || strings.HasPrefix(typ, base+"[") {
			return base + "256" + strings.TrimPrefix(typ, base)
		}
	}
	return typ
}
