package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Default = meddler.SQLite

	meddler.Register("hash", HexMeddler[common.Hash]{parse: common.HexToHash})
	meddler.Register("address", HexMeddler[common.Address]{parse: common.HexToAddress})
}

type hexValue interface {
	common.Hash | common.Address
	Hex() string
}

// HexMeddler stores hashes and addresses as 0x-prefixed hex strings. NULL maps to the zero
// value for plain fields and to nil for pointer fields.
type HexMeddler[T hexValue] struct {
	parse func(string) T
}

func (h HexMeddler[T]) PreRead(fieldAddr any) (scanTarget any, err error) {
	return new(sql.NullString), nil
}

func (h HexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case *T:
		var zero T
		*ptr = zero
		if ns.Valid {
			*ptr = h.parse(ns.String)
		}
	case **T:
		*ptr = nil
		if ns.Valid {
			v := h.parse(ns.String)
			*ptr = &v
		}
	default:
		var zero T
		return fmt.Errorf("expected *%T or **%T, got %T", zero, zero, fieldAddr)
	}

	return nil
}

func (h HexMeddler[T]) PreWrite(field any) (saveValue any, err error) {
	switch v := field.(type) {
	case T:
		return v.Hex(), nil
	case *T:
		if v == nil {
			return nil, nil
		}
		return (*v).Hex(), nil
	default:
		var zero T
		return nil, fmt.Errorf("expected %T or *%T, got %T", zero, zero, field)
	}
}
