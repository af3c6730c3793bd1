package registry

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goran-ethernal/ethindex/internal/abi"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddress = common.HexToAddress("0xAA")
	otherAddress = common.HexToAddress("0xBB")
	transferSig  = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	approvalSig  = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
)

func mustInterface(t *testing.T, name string, signatures ...string) *abi.ContractInterface {
	t.Helper()

	ci, err := abi.ParseEventSignatures(name, signatures)
	require.NoError(t, err)
	return ci
}

func newTokenRegistry(t *testing.T, opts ...Option) *TopicRegistry {
	t.Helper()

	r, err := New(map[string]*abi.ContractInterface{
		tokenAddress.Hex(): mustInterface(t, "token",
			"Transfer(address indexed from, address indexed to, uint256 value)",
			"Approval(address indexed owner, address indexed spender, uint256 value)",
		),
	}, opts...)
	require.NoError(t, err)
	return r
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func transferLog(from, to common.Address, value int64) types.Log {
	return types.Log{
		Address:     tokenAddress,
		Topics:      []common.Hash{transferSig, addressTopic(from), addressTopic(to)},
		Data:        common.LeftPadBytes(big.NewInt(value).Bytes(), 32),
		BlockNumber: 10,
		BlockHash:   common.HexToHash("0xab"),
		TxHash:      common.HexToHash("0x1234"),
	}
}

func TestNew(t *testing.T) {
	transfer := "Transfer(address indexed from, address indexed to, uint256 value)"

	tests := []struct {
		name       string
		interfaces func(t *testing.T) map[string]*abi.ContractInterface
		wantErr    bool
		wantAddrs  []common.Address
		wantEvents int
	}{
		{
			name: "single contract",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{tokenAddress.Hex(): mustInterface(t, "token", transfer)}
			},
			wantAddrs:  []common.Address{tokenAddress},
			wantEvents: 1,
		},
		{
			name: "keys normalizing to the same address are merged",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{
					"0x00000000000000000000000000000000000000aa": mustInterface(t, "a", transfer),
					"0x00000000000000000000000000000000000000AA": mustInterface(t, "b",
						"Approval(address indexed owner, address indexed spender, uint256 value)"),
				}
			},
			wantAddrs:  []common.Address{tokenAddress},
			wantEvents: 2,
		},
		{
			name: "addresses without events are omitted",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{
					otherAddress.Hex(): abi.NewContractInterface("empty"),
					tokenAddress.Hex(): mustInterface(t, "token", transfer),
				}
			},
			wantAddrs:  []common.Address{tokenAddress},
			wantEvents: 1,
		},
		{
			name: "addresses are sorted",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{
					otherAddress.Hex(): mustInterface(t, "other", transfer),
					tokenAddress.Hex(): mustInterface(t, "token", transfer),
				}
			},
			wantAddrs:  []common.Address{tokenAddress, otherAddress},
			wantEvents: 2,
		},
		{
			name: "colliding topics across interfaces",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{
					"0x00000000000000000000000000000000000000aa": mustInterface(t, "a", transfer),
					"0x00000000000000000000000000000000000000AA": mustInterface(t, "b",
						"Transfer(address src, address dst, uint256 wad)"),
				}
			},
			wantErr: true,
		},
		{
			name: "colliding topics within an interface",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{
					tokenAddress.Hex(): mustInterface(t, "token", transfer, "Transfer(address,address,uint256)"),
				}
			},
			wantErr: true,
		},
		{
			name: "invalid address",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{"0xZZ": mustInterface(t, "token", transfer)}
			},
			wantErr: true,
		},
		{
			name: "nil interface",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{tokenAddress.Hex(): nil}
			},
			wantErr: true,
		},
		{
			name: "unsupported parameter kind",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				ci := abi.NewContractInterface("bad")
				ci.Add(&abi.EventDefinition{
					Name:   "Bad",
					Params: []abi.Param{{Name: "x", Type: abi.ParamType{Kind: abi.ParamKind(99)}}},
				})
				return map[string]*abi.ContractInterface{tokenAddress.Hex(): ci}
			},
			wantErr: true,
		},
		{
			name: "duplicate parameter names",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				ci := abi.NewContractInterface("bad")
				ci.Add(&abi.EventDefinition{
					Name: "Bad",
					Params: []abi.Param{
						{Name: "x", Type: abi.ParamType{Kind: abi.KindBool}},
						{Name: "x", Type: abi.ParamType{Kind: abi.KindBool}},
					},
				})
				return map[string]*abi.ContractInterface{tokenAddress.Hex(): ci}
			},
			wantErr: true,
		},
		{
			name: "empty configuration",
			interfaces: func(t *testing.T) map[string]*abi.ContractInterface {
				return map[string]*abi.ContractInterface{}
			},
			wantAddrs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.interfaces(t))
			if tt.wantErr {
				var cfgErr *ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				require.Nil(t, r)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantAddrs, r.Addresses())
			require.Equal(t, tt.wantEvents, r.Len())
		})
	}
}

func TestDecode_Transfer(t *testing.T) {
	r := newTokenRegistry(t)

	log := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), 100)
	event, err := r.Decode(&log)
	require.NoError(t, err)

	require.Equal(t, "Transfer", event.Name)
	require.Same(t, &log, event.Log)
	require.Nil(t, event.Timestamp)
	require.Len(t, event.Args, 3)
	require.Equal(t, common.HexToAddress("0x01"), event.Args["from"])
	require.Equal(t, common.HexToAddress("0x02"), event.Args["to"])
	require.Equal(t, 0, big.NewInt(100).Cmp(event.Args["value"].(*big.Int)))

	args, err := event.ArgsJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{
		"from": "0x0000000000000000000000000000000000000001",
		"to": "0x0000000000000000000000000000000000000002",
		"value": 100
	}`, string(args))
}

func TestDecode_ParameterSetMatchesDefinition(t *testing.T) {
	r := newTokenRegistry(t)

	for _, topic := range []common.Hash{transferSig, approvalSig} {
		definition, ok := r.Lookup(tokenAddress, topic)
		require.True(t, ok)

		log := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), 7)
		log.Topics[0] = topic

		event, err := r.Decode(&log)
		require.NoError(t, err)

		names := make([]string, 0, len(event.Args))
		for name := range event.Args {
			names = append(names, name)
		}
		want := make([]string, 0, len(definition.Params))
		for _, p := range definition.Params {
			want = append(want, p.Name)
		}
		require.ElementsMatch(t, want, names)
	}
}

func TestDecode_Unrecognized(t *testing.T) {
	r := newTokenRegistry(t)

	unknownAddress := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), 1)
	unknownAddress.Address = otherAddress

	unknownTopic := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), 1)
	unknownTopic.Topics[0] = crypto.Keccak256Hash([]byte("Burn(uint256)"))

	noTopics := types.Log{Address: tokenAddress}

	for name, log := range map[string]types.Log{
		"unknown address": unknownAddress,
		"unknown topic":   unknownTopic,
		"no topics":       noTopics,
	} {
		t.Run(name, func(t *testing.T) {
			event, err := r.Decode(&log)
			require.ErrorIs(t, err, ErrUnrecognized)
			require.Nil(t, event)
		})
	}
}

func TestNew_StructEventsAreSkipped(t *testing.T) {
	ci, err := abi.ParseJSON("exchange", []byte(`[
		{"anonymous":false,"type":"event","name":"Transfer","inputs":[
			{"indexed":true,"name":"from","type":"address"},
			{"indexed":true,"name":"to","type":"address"},
			{"indexed":false,"name":"value","type":"uint256"}]},
		{"anonymous":false,"type":"event","name":"OrderFilled","inputs":[
			{"indexed":false,"name":"order","type":"tuple","components":[
				{"name":"maker","type":"address"},
				{"name":"amount","type":"uint256"}]}]}
	]`))
	require.NoError(t, err)
	require.Equal(t, []string{"OrderFilled"}, ci.SkippedNames())

	r, err := New(map[string]*abi.ContractInterface{tokenAddress.Hex(): ci})
	require.NoError(t, err)
	require.Equal(t, 1, r.Len())

	log := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), 100)
	event, err := r.Decode(&log)
	require.NoError(t, err)
	require.Equal(t, "Transfer", event.Name)

	filled := types.Log{
		Address: tokenAddress,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("OrderFilled((address,uint256))"))},
		Data:    make([]byte, 64),
	}
	_, err = r.Decode(&filled)
	require.ErrorIs(t, err, ErrUnrecognized)
}

func TestDecode_Malformed(t *testing.T) {
	r := newTokenRegistry(t)

	short := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), 1)
	short.Data = short.Data[:16]

	missingTopic := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), 1)
	missingTopic.Topics = missingTopic.Topics[:2]

	for name, tc := range map[string]struct {
		log     types.Log
		wantErr error
	}{
		"short data":    {log: short, wantErr: abi.ErrDataLength},
		"missing topic": {log: missingTopic, wantErr: abi.ErrTopicCount},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Decode(&tc.log)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, "Transfer", decodeErr.Event)
			require.Equal(t, tc.log.TxHash, decodeErr.TxHash)
		})
	}
}

func TestDecodeBatch(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		r := newTokenRegistry(t, WithDecodeWorkers(workers))

		logs := make([]types.Log, 0, 20)
		for i := range 20 {
			log := transferLog(common.HexToAddress("0x01"), common.HexToAddress("0x02"), int64(i))
			log.Index = uint(i)
			switch i % 5 {
			case 1:
				log.Address = otherAddress
			case 3:
				log.Data = nil
			}
			logs = append(logs, log)
		}

		result, err := r.DecodeBatch(context.Background(), logs)
		require.NoError(t, err)

		require.Len(t, result.Events, 12)
		require.Equal(t, 4, result.Unrecognized)
		require.Len(t, result.Failures, 4)

		for i := 1; i < len(result.Events); i++ {
			require.Less(t, result.Events[i-1].Log.Index, result.Events[i].Log.Index)
		}
		for _, event := range result.Events {
			require.Same(t, &logs[event.Log.Index], event.Log)
		}
		for _, failure := range result.Failures {
			require.True(t, errors.Is(failure, abi.ErrDataLength))
		}
	}
}

func TestDecodeBatch_Empty(t *testing.T) {
	r := newTokenRegistry(t, WithDecodeWorkers(4))

	result, err := r.DecodeBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, result.Events)
	require.Zero(t, result.Unrecognized)
	require.Empty(t, result.Failures)
}

func TestDecodeBatch_Canceled(t *testing.T) {
	r := newTokenRegistry(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.DecodeBatch(ctx, []types.Log{transferLog(common.Address{}, common.Address{}, 1)})
	require.ErrorIs(t, err, context.Canceled)
}
