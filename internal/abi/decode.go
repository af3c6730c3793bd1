package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	two256   = new(big.Int).Lsh(big.NewInt(1), 256) //nolint:mnd
	maxInt64 = big.NewInt(int64(^uint64(0) >> 1))
)

// Decode decodes the indexed topics (excluding the signature topic) and the data payload
// of a log into a map of parameter name to value.
//
// Values are *big.Int for integers, common.Address, bool, []byte for bytes and fixed bytes,
// string, and []any for arrays. Indexed values of dynamic or array types are returned as
// their common.Hash, since only the hash is stored in the topic.
func (e *EventDefinition) Decode(topics []common.Hash, data []byte) (map[string]any, error) {
	indexed := e.IndexedParams()
	if len(topics) != len(indexed) {
		return nil, fmt.Errorf("%w: event %s expects %d indexed topics, got %d",
			ErrTopicCount, e.Name, len(indexed), len(topics))
	}

	args := make(map[string]any, len(e.Params))
	for i, p := range indexed {
		v, err := decodeTopic(p.Type, topics[i])
		if err != nil {
			return nil, fmt.Errorf("indexed parameter %s: %w", p.Name, err)
		}
		args[p.Name] = v
	}

	dataParams := e.DataParams()
	values, err := decodeArguments(dataParams, data)
	if err != nil {
		return nil, err
	}
	for i, p := range dataParams {
		args[p.Name] = values[i]
	}

	return args, nil
}

func decodeTopic(t ParamType, topic common.Hash) (any, error) {
	if t.hashedWhenIndexed() {
		return topic, nil
	}
	return decodeAt(t, topic.Bytes(), 0)
}

// decodeArguments decodes a tuple of parameters from an ABI encoded payload.
// Payloads of fully static tuples must match the head size exactly; payloads with
// dynamic members must at least hold the head.
func decodeArguments(params []Param, data []byte) ([]any, error) {
	head := 0
	static := true
	for _, p := range params {
		head += p.Type.HeadSize()
		if p.Type.IsDynamic() {
			static = false
		}
	}

	switch {
	case static && len(data) != head:
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrDataLength, len(data), head)
	case len(data) < head:
		return nil, fmt.Errorf("%w: got %d bytes, expected at least %d", ErrDataLength, len(data), head)
	}

	values := make([]any, len(params))
	pos := 0
	for i, p := range params {
		v, err := decodeAt(p.Type, data, pos)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		values[i] = v
		pos += p.Type.HeadSize()
	}

	return values, nil
}

// decodeAt decodes the value of type t whose head starts at pos within data.
func decodeAt(t ParamType, data []byte, pos int) (any, error) {
	switch t.Kind {
	case KindUint:
		return decodeUint(t, data, pos)
	case KindInt:
		return decodeInt(t, data, pos)
	case KindAddress:
		return decodeAddress(data, pos)
	case KindBool:
		return decodeBool(data, pos)
	case KindFixedBytes:
		return decodeFixedBytes(t, data, pos)
	case KindBytes:
		return decodeBytes(data, pos)
	case KindString:
		return decodeString(data, pos)
	case KindArray:
		return decodeArray(t, data, pos)
	case KindSlice:
		return decodeSlice(t, data, pos)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t.Kind)
	}
}

func decodeUint(t ParamType, data []byte, pos int) (any, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(word)
	if v.BitLen() > t.Size {
		return nil, fmt.Errorf("%w: %s overflows %s", ErrInvalidValue, v, t)
	}
	return v, nil
}

func decodeInt(t ParamType, data []byte, pos int) (any, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(word)
	if word[0]&0x80 != 0 {
		v.Sub(v, two256)
	}

	magnitude := new(big.Int).Set(v)
	if v.Sign() < 0 {
		magnitude.Neg(magnitude).Sub(magnitude, big.NewInt(1))
	}
	if magnitude.BitLen() > t.Size-1 {
		return nil, fmt.Errorf("%w: %s overflows %s", ErrInvalidValue, v, t)
	}
	return v, nil
}

func decodeAddress(data []byte, pos int) (any, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return nil, err
	}
	if !isZero(word[:wordSize-common.AddressLength]) {
		return nil, fmt.Errorf("%w: address with dirty padding", ErrInvalidValue)
	}
	return common.BytesToAddress(word), nil
}

func decodeBool(data []byte, pos int) (any, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return nil, err
	}
	if !isZero(word[:wordSize-1]) || word[wordSize-1] > 1 {
		return nil, fmt.Errorf("%w: bool word 0x%x", ErrInvalidValue, word)
	}
	return word[wordSize-1] == 1, nil
}

func decodeFixedBytes(t ParamType, data []byte, pos int) (any, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return nil, err
	}
	if !isZero(word[t.Size:]) {
		return nil, fmt.Errorf("%w: %s with dirty padding", ErrInvalidValue, t)
	}
	return common.CopyBytes(word[:t.Size]), nil
}

func decodeBytes(data []byte, pos int) (any, error) {
	tail, err := followOffset(data, pos)
	if err != nil {
		return nil, err
	}
	return readBytes(tail)
}

func decodeString(data []byte, pos int) (any, error) {
	tail, err := followOffset(data, pos)
	if err != nil {
		return nil, err
	}
	b, err := readBytes(tail)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeArray(t ParamType, data []byte, pos int) (any, error) {
	if t.IsDynamic() {
		tail, err := followOffset(data, pos)
		if err != nil {
			return nil, err
		}
		return decodeSequence(*t.Elem, t.Size, tail)
	}

	if pos > len(data) {
		return nil, fmt.Errorf("%w: array at %d, data is %d bytes", ErrOutOfBounds, pos, len(data))
	}
	return decodeSequence(*t.Elem, t.Size, data[pos:])
}

func decodeSlice(t ParamType, data []byte, pos int) (any, error) {
	tail, err := followOffset(data, pos)
	if err != nil {
		return nil, err
	}
	n, err := readSize(tail, 0)
	if err != nil {
		return nil, fmt.Errorf("slice length: %w", err)
	}
	return decodeSequence(*t.Elem, n, tail[wordSize:])
}

// decodeSequence decodes n consecutive elements whose heads start at the beginning of region.
func decodeSequence(elem ParamType, n int, region []byte) ([]any, error) {
	if n > len(region)/elem.HeadSize() {
		return nil, fmt.Errorf("%w: %d elements of %s do not fit in %d bytes", ErrOutOfBounds, n, elem, len(region))
	}

	values := make([]any, n)
	for i := range n {
		v, err := decodeAt(elem, region, i*elem.HeadSize())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// followOffset reads the offset stored at pos and returns the data it points to.
func followOffset(data []byte, pos int) ([]byte, error) {
	offset, err := readSize(data, pos)
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	if offset > len(data) {
		return nil, fmt.Errorf("%w: offset %d, data is %d bytes", ErrOutOfBounds, offset, len(data))
	}
	return data[offset:], nil
}

// readBytes reads a length prefixed byte string.
func readBytes(region []byte) ([]byte, error) {
	n, err := readSize(region, 0)
	if err != nil {
		return nil, fmt.Errorf("length: %w", err)
	}
	if n > len(region)-wordSize {
		return nil, fmt.Errorf("%w: length %d, %d bytes available", ErrOutOfBounds, n, len(region)-wordSize)
	}
	return common.CopyBytes(region[wordSize : wordSize+n]), nil
}

// readSize reads a word holding an offset or a length.
func readSize(data []byte, pos int) (int, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return 0, err
	}
	v := new(big.Int).SetBytes(word)
	if v.Cmp(maxInt64) > 0 || v.Int64() > int64(len(data)) {
		return 0, fmt.Errorf("%w: %s exceeds data size %d", ErrOutOfBounds, v, len(data))
	}
	return int(v.Int64()), nil
}

func readWord(data []byte, pos int) ([]byte, error) {
	if pos < 0 || pos+wordSize > len(data) {
		return nil, fmt.Errorf("%w: word at %d, data is %d bytes", ErrOutOfBounds, pos, len(data))
	}
	return data[pos : pos+wordSize], nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
