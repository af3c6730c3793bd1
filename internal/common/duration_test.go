package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "250ms", expected: 250 * time.Millisecond},
		{input: "30s", expected: 30 * time.Second},
		{input: "1h30m45s", expected: time.Hour + 30*time.Minute + 45*time.Second},
		{input: "0s", expected: 0},
		{input: "100", wantErr: true},
		{input: "100x", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, d.Duration)
		})
	}
}

func TestDuration_Formats(t *testing.T) {
	type holder struct {
		Timeout Duration `json:"timeout" yaml:"timeout"`
	}

	var fromJSON holder
	require.NoError(t, json.Unmarshal([]byte(`{"timeout":"1h30m"}`), &fromJSON))
	require.Equal(t, 90*time.Minute, fromJSON.Timeout.Duration)

	var fromYAML holder
	require.NoError(t, yaml.Unmarshal([]byte("timeout: 250ms\n"), &fromYAML))
	require.Equal(t, 250*time.Millisecond, fromYAML.Timeout.Duration)

	require.Error(t, json.Unmarshal([]byte(`{"timeout":"soon"}`), &fromJSON))

	data, err := yaml.Marshal(holder{Timeout: NewDuration(10 * time.Second)})
	require.NoError(t, err)
	var back holder
	require.NoError(t, yaml.Unmarshal(data, &back))
	require.Equal(t, 10*time.Second, back.Timeout.Duration)
}

func TestDuration_JSONSchema(t *testing.T) {
	schema := Duration{}.JSONSchema()

	require.Equal(t, "string", schema.Type)
	require.Equal(t, "Duration", schema.Title)
	require.Contains(t, schema.Examples, "300ms")
}
