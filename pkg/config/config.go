package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/types"
)

const (
	// DriverSQLite stores blocks and events in a local SQLite file.
	DriverSQLite = "sqlite"
	// DriverPostgres stores blocks and events in PostgreSQL.
	DriverPostgres = "postgres"

	// ABISourceConfig builds the topic registry from the contracts section.
	ABISourceConfig = "config"
	// ABISourceDatabase builds the topic registry from the abis table.
	ABISourceDatabase = "database"
)

// Config represents the complete configuration for ethindex.
type Config struct {
	// RPC contains the node connection settings
	RPC RPCConfig `yaml:"rpc" json:"rpc" toml:"rpc"`

	// Ingestion controls the block range and parallelism of a run
	Ingestion IngestionConfig `yaml:"ingestion" json:"ingestion" toml:"ingestion"`

	// Storage selects and configures the persistence backend
	Storage StorageConfig `yaml:"storage" json:"storage" toml:"storage"`

	// ABISource selects where contract ABIs come from: "config" or "database"
	ABISource string `yaml:"abi_source" json:"abi_source" toml:"abi_source"`

	// Contracts lists the contracts whose events are decoded when ABISource is "config"
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// API configures the read-only HTTP query API started by "ethindex serve"
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`
}

// RPCConfig represents the Ethereum node connection.
type RPCConfig struct {
	// URL is the Ethereum RPC endpoint URL
	URL string `yaml:"url" json:"url" toml:"url"`

	// RequestTimeout bounds every single RPC request
	RequestTimeout internalcommon.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional RPC configuration fields.
func (r *RPCConfig) ApplyDefaults() {
	if r.RequestTimeout.Duration == 0 {
		r.RequestTimeout = internalcommon.NewDuration(60 * time.Second) //nolint:mnd
	}
	if r.Retry != nil {
		r.Retry.ApplyDefaults()
	}
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff internalcommon.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff internalcommon.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = internalcommon.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = internalcommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// IngestionConfig controls which blocks a run scans and how much work runs in parallel.
type IngestionConfig struct {
	// FromBlock is the first block of the scanned range
	FromBlock uint64 `yaml:"from_block" json:"from_block" toml:"from_block"`

	// ToBlock is the last block of the scanned range: a number or "latest", "safe", "finalized"
	ToBlock string `yaml:"to_block" json:"to_block" toml:"to_block"`

	// ChunkSize is the block range per eth_getLogs call
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" toml:"chunk_size"`

	// BlockWorkers bounds the number of concurrent block header requests
	BlockWorkers int `yaml:"block_workers" json:"block_workers" toml:"block_workers"`

	// DecodeWorkers bounds the number of goroutines decoding logs
	DecodeWorkers int `yaml:"decode_workers" json:"decode_workers" toml:"decode_workers"`
}

// ApplyDefaults sets default values for optional ingestion fields.
func (i *IngestionConfig) ApplyDefaults() {
	if i.ToBlock == "" {
		i.ToBlock = types.FinalityLatest.String()
	}
	if i.ChunkSize == 0 {
		i.ChunkSize = 5000
	}
	if i.BlockWorkers == 0 {
		i.BlockWorkers = 8
	}
	if i.DecodeWorkers == 0 {
		i.DecodeWorkers = 4
	}
}

// Validate checks the block range and worker counts.
func (i *IngestionConfig) Validate() error {
	toBlock, err := types.ParseBlockBound(i.ToBlock)
	if err != nil {
		return fmt.Errorf("to_block: %w", err)
	}
	if !toBlock.IsTag() && toBlock.Number < i.FromBlock {
		return fmt.Errorf("to_block (%d) must not be lower than from_block (%d)", toBlock.Number, i.FromBlock)
	}
	if i.BlockWorkers < 0 {
		return fmt.Errorf("block_workers must not be negative")
	}
	if i.DecodeWorkers < 0 {
		return fmt.Errorf("decode_workers must not be negative")
	}
	return nil
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is either "sqlite" or "postgres"
	Driver string `yaml:"driver" json:"driver" toml:"driver"`

	// SQLite configures the SQLite backend
	SQLite DatabaseConfig `yaml:"sqlite" json:"sqlite" toml:"sqlite"`

	// Postgres configures the PostgreSQL backend
	Postgres *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty" toml:"postgres,omitempty"`
}

// ApplyDefaults sets default values for optional storage fields.
func (s *StorageConfig) ApplyDefaults() {
	if s.Driver == "" {
		s.Driver = DriverSQLite
	}
	s.SQLite.ApplyDefaults()
	if s.Postgres != nil {
		s.Postgres.ApplyDefaults()
	}
}

// Validate checks the storage configuration for the selected driver.
func (s *StorageConfig) Validate() error {
	switch s.Driver {
	case DriverSQLite:
		return s.SQLite.Validate()
	case DriverPostgres:
		if s.Postgres == nil || s.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when driver is %q", DriverPostgres)
		}
		return nil
	default:
		return fmt.Errorf("driver must be one of: %s, %s", DriverSQLite, DriverPostgres)
	}
}

// PostgresConfig represents the PostgreSQL connection.
type PostgresConfig struct {
	// DSN is a libpq connection string or postgres:// URL
	DSN string `yaml:"dsn" json:"dsn" toml:"dsn"`

	// MaxConns is the maximum size of the connection pool
	MaxConns int32 `yaml:"max_conns" json:"max_conns" toml:"max_conns"`
}

// ApplyDefaults sets default values for optional PostgreSQL fields.
func (p *PostgresConfig) ApplyDefaults() {
	if p.MaxConns == 0 {
		p.MaxConns = 4
	}
}

// DatabaseConfig represents SQLite database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks the SQLite settings.
func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("sqlite.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}
	if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("sqlite.synchronous must be one of: FULL, NORMAL, OFF")
	}
	return nil
}

// ContractConfig represents a contract whose events are decoded.
// Either ABIFile or Events must be given; when both are given their events are merged.
type ContractConfig struct {
	// Name is a human readable label used in logs
	Name string `yaml:"name" json:"name" toml:"name"`

	// Address is the contract address to monitor
	Address string `yaml:"address" json:"address" toml:"address"`

	// ABIFile is the path to a JSON ABI (a plain array or an object with an "abi" field)
	ABIFile string `yaml:"abi_file,omitempty" json:"abi_file,omitempty" toml:"abi_file,omitempty"`

	// Events is the list of event signatures to decode
	// Format: "Transfer(address indexed from, address indexed to, uint256 value)"
	Events []string `yaml:"events,omitempty" json:"events,omitempty" toml:"events,omitempty"`
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components: pipeline, registry, log-fetcher, block-fetcher,
	// reconciler, store, rpc, abi-import, api
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[internalcommon.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := internalcommon.AllComponents[internalcommon.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[internalcommon.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// IsNil reports whether the receiver is a nil pointer.
func (l *LoggingConfig) IsNil() bool {
	return l == nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return internalcommon.ToLowerWithTrim(level)
	}
	return internalcommon.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return internalcommon.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether the metrics HTTP endpoint is active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" || m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// APIConfig configures the HTTP query API.
type APIConfig struct {
	// Enabled controls whether "ethindex serve" starts the API
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request
	ReadTimeout internalcommon.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout internalcommon.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections
	IdleTimeout internalcommon.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS configures cross-origin requests
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	// Enabled adds CORS headers to responses
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// AllowedOrigins lists the allowed origins, "*" allows any
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = internalcommon.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = internalcommon.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = internalcommon.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate checks if the API configuration is valid.
func (a *APIConfig) Validate() error {
	if a.Enabled && a.ListenAddress == "" {
		return fmt.Errorf("listen_address is required when the api is enabled")
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.RPC.ApplyDefaults()
	c.Ingestion.ApplyDefaults()
	c.Storage.ApplyDefaults()

	if c.ABISource == "" {
		c.ABISource = ABISourceConfig
	}
	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
	if c.API != nil {
		c.API.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}

	if err := c.Ingestion.Validate(); err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	switch c.ABISource {
	case ABISourceDatabase:
		return nil
	case ABISourceConfig:
		return c.validateContracts()
	default:
		return fmt.Errorf("abi_source must be one of: %s, %s", ABISourceConfig, ABISourceDatabase)
	}
}

func (c *Config) validateContracts() error {
	if len(c.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured when abi_source is %q", ABISourceConfig)
	}

	for i, contract := range c.Contracts {
		if contract.Address == "" {
			return fmt.Errorf("contract[%d] (%s): address is required", i, contract.Name)
		}
		if !common.IsHexAddress(contract.Address) {
			return fmt.Errorf("contract[%d] (%s): invalid address %q", i, contract.Name, contract.Address)
		}
		if contract.ABIFile == "" && len(contract.Events) == 0 {
			return fmt.Errorf("contract[%d] (%s): abi_file or events must be configured", i, contract.Name)
		}
	}

	return nil
}
