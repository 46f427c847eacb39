package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	tmlog "github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/crypto/keyring"
)

const (
	FileName  = "config.toml"
	EnvPrefix = "CIDORACLE"

	BackendGoLevelDB = "goleveldb"
	BackendMemDB     = "memdb"
)

// Duration is a time.Duration written as a string ("30s") in config.toml.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	Server serverConfig `toml:"server" mapstructure:"server"`
	Store  storeConfig  `toml:"store" mapstructure:"store"`
	Oracle oracleConfig `toml:"oracle" mapstructure:"oracle"`
	Node   nodeConfig   `toml:"node" mapstructure:"node"`
	Log    logConfig    `toml:"log" mapstructure:"log"`
}

type serverConfig struct {
	Listen       string   `toml:"listen" mapstructure:"listen"`
	CORSOrigins  []string `toml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeout  Duration `toml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout" mapstructure:"write_timeout"`
}

type storeConfig struct {
	Backend string `toml:"backend" mapstructure:"backend"`
	Dir     string `toml:"dir" mapstructure:"dir"`
}

type oracleConfig struct {
	// empty runs the oracle node in process
	NodeEndpoint   string   `toml:"node_endpoint" mapstructure:"node_endpoint"`
	ExpiryInterval Duration `toml:"expiry_interval" mapstructure:"expiry_interval"`
	OwnerKeyFile   string   `toml:"owner_key_file" mapstructure:"owner_key_file"`
}

type nodeConfig struct {
	Listen       string   `toml:"listen" mapstructure:"listen"`
	CoreEndpoint string   `toml:"core_endpoint" mapstructure:"core_endpoint"`
	KeyFile      string   `toml:"key_file" mapstructure:"key_file"`
	KeyBackend   string   `toml:"key_backend" mapstructure:"key_backend"`
	KMSKeyID     string   `toml:"kms_key_id" mapstructure:"kms_key_id"`
	KMSRegion    string   `toml:"kms_region" mapstructure:"kms_region"`
	Workers      int      `toml:"workers" mapstructure:"workers"`
	QueueSize    int      `toml:"queue_size" mapstructure:"queue_size"`
	FetchTimeout Duration `toml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

type logConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	File  bool   `toml:"file" mapstructure:"file"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig(home string) *Config {
	return &Config{
		Server: serverConfig{
			Listen:       "127.0.0.1:8080",
			CORSOrigins:  []string{"*"},
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
		Store: storeConfig{
			Backend: BackendGoLevelDB,
			Dir:     filepath.Join(home, "data"),
		},
		Oracle: oracleConfig{
			ExpiryInterval: Duration(time.Minute),
			OwnerKeyFile:   filepath.Join(home, "keys", "owner.key"),
		},
		Node: nodeConfig{
			Listen:       "127.0.0.1:8081",
			CoreEndpoint: "http://127.0.0.1:8080",
			KeyFile:      filepath.Join(home, "keys", "oracle.key"),
			KeyBackend:   keyring.BackendFile,
			Workers:      4,
			QueueSize:    256,
			FetchTimeout: Duration(30 * time.Second),
		},
		Log: logConfig{
			Level: "info",
		},
	}
}

// DefaultHome is ~/.cidoracle.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cidoracle"
	}
	return filepath.Join(home, ".cidoracle")
}

func Path(home string) string {
	return filepath.Join(home, FileName)
}

// Load reads <home>/config.toml, creating it with defaults when missing.
// CIDORACLE_<SECTION>_<KEY> environment variables override file values.
func Load(home string) (*Config, error) {
	path := Path(home)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Write(home, DefaultConfig(home)); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig(home)
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Write stores cfg as <home>/config.toml.
func Write(home string, cfg *Config) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", home, err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal TOML: %w", err)
	}

	if err := os.WriteFile(Path(home), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is required")
	}
	switch c.Store.Backend {
	case BackendMemDB:
	case BackendGoLevelDB:
		if c.Store.Dir == "" {
			return fmt.Errorf("store dir is required for %s", BackendGoLevelDB)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Oracle.NodeEndpoint != "" {
		if err := validateEndpoint(c.Oracle.NodeEndpoint); err != nil {
			return fmt.Errorf("oracle node endpoint: %w", err)
		}
	}
	if c.Oracle.ExpiryInterval < 0 {
		return fmt.Errorf("expiry interval must not be negative")
	}
	if err := keyring.ValidateBackend(c.Node.KeyBackend); err != nil {
		return err
	}
	if keyring.IsKMSBackend(c.Node.KeyBackend) && c.Node.KMSKeyID == "" {
		return fmt.Errorf("node kms key id is required for the %s key backend", keyring.BackendKMS)
	}
	if c.Node.Workers <= 0 {
		return fmt.Errorf("node workers must be positive")
	}
	if c.Node.QueueSize <= 0 {
		return fmt.Errorf("node queue size must be positive")
	}
	if c.Node.FetchTimeout <= 0 {
		return fmt.Errorf("node fetch timeout must be positive")
	}
	if _, err := tmlog.AllowLevel(strings.ToLower(c.Log.Level)); err != nil {
		return err
	}
	return nil
}

// ValidateNode checks the settings a standalone oracle node needs.
func (c *Config) ValidateNode() error {
	if c.Node.Listen == "" {
		return fmt.Errorf("node listen address is required")
	}
	if err := validateEndpoint(c.Node.CoreEndpoint); err != nil {
		return fmt.Errorf("node core endpoint: %w", err)
	}
	if !keyring.IsKMSBackend(c.Node.KeyBackend) && c.Node.KeyFile == "" {
		return fmt.Errorf("node key file is required")
	}
	return nil
}

// StoreDir returns the database directory, empty for the in-memory backend.
func (c *Config) StoreDir() string {
	if c.Store.Backend == BackendMemDB {
		return ""
	}
	return c.Store.Dir
}

// KMSRegion returns the configured AWS region, falling back to AWS_REGION.
func (c *Config) KMSRegion() string {
	if c.Node.KMSRegion != "" {
		return c.Node.KMSRegion
	}
	return os.Getenv(keyring.EnvAWSRegion)
}

// Embedded reports whether the oracle node runs inside the service process.
func (c *Config) Embedded() bool {
	return c.Oracle.NodeEndpoint == ""
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", endpoint)
	}
	return nil
}
