package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/store"
	pkgconfig "github.com/goran-ethernal/ethindex/pkg/config"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, version+"\n", out)
}

func TestConfigSchemaCommand(t *testing.T) {
	out, err := execute(t, "config-schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	require.Equal(t, "ethindex configuration", schema["title"])
}

func TestImportABICommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ethindex.sqlite")
	cfgPath := filepath.Join(dir, "config.yaml")

	cfg := `
rpc:
  url: "http://127.0.0.1:8545"
storage:
  driver: sqlite
  sqlite:
    path: "` + dbPath + `"
abi_source: database
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	args := []string{"import-abi", "--config", cfgPath,
		"--addresses", "../../examples/addresses.json",
		"--contracts", "../../examples/contracts.json",
	}

	_, err := execute(t, args...)
	require.NoError(t, err)

	// a second import leaves existing addresses untouched
	_, err = execute(t, args...)
	require.NoError(t, err)

	dbCfg := pkgconfig.DatabaseConfig{Path: dbPath}
	dbCfg.ApplyDefaults()
	st, err := store.NewSQLiteStore(dbCfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer st.Close()

	interfaces, err := st.LoadInterfaces(t.Context())
	require.NoError(t, err)
	require.Len(t, interfaces, 2)
}
