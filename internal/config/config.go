package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "LANDCHAIN"
	configDir  = ".landchain"
	configName = "config"

	AgentKindRPC      = "rpc"
	AgentKindKeystore = "keystore"
)

var (
	ErrInvalid        = errors.New("invalid configuration")
	ErrMissingAddress = errors.New("contract.address is not configured")
)

type Config struct {
	Network         domain.NetworkParams
	ContractAddress string
	Agent           AgentConfig
	Gas             GasConfig
	Ledger          LedgerConfig
	Tracker         TrackerConfig
	Notifications   NotificationConfig
	PreferencesPath string
	Log             LogConfig
}

type AgentConfig struct {
	Kind                 string
	RPC                  RPCAgentConfig
	Keystore             KeystoreAgentConfig
	ReceiptTimeout       time.Duration
	PollInterval         time.Duration
	AccountsPollInterval time.Duration
}

type RPCAgentConfig struct {
	URL               string
	RequestsPerSecond float64
	Burst             int
}

type KeystoreAgentConfig struct {
	Dir     string
	RPCURL  string
	Secrets string
}

type GasConfig struct {
	Register GasPolicyConfig
	Verify   GasPolicyConfig
}

type GasPolicyConfig struct {
	Mode     string
	Fallback uint64
	Headroom float64
	Attempts int
}

type LedgerConfig struct {
	PageSize    int
	Concurrency int
}

type TrackerConfig struct {
	DisplayWindow time.Duration
	Retention     time.Duration
}

type NotificationConfig struct {
	DefaultTTL time.Duration
	TxTTL      time.Duration
}

type LogConfig struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
}

// Dir returns the directory holding config, preferences, keystore and logs.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir), nil
}

func SetDefaults(v *viper.Viper) error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	v.SetDefault("network.chain_id", 11155111)
	v.SetDefault("network.name", "Sepolia")
	v.SetDefault("network.currency.name", "SepoliaETH")
	v.SetDefault("network.currency.symbol", "ETH")
	v.SetDefault("network.currency.decimals", 18)
	v.SetDefault("network.rpc_urls", []string{"https://rpc.sepolia.org"})
	v.SetDefault("network.explorer_urls", []string{"https://sepolia.etherscan.io"})

	v.SetDefault("contract.address", "")

	v.SetDefault("agent.kind", AgentKindRPC)
	v.SetDefault("agent.rpc.url", "http://127.0.0.1:1248")
	v.SetDefault("agent.rpc.requests_per_second", 20)
	v.SetDefault("agent.rpc.burst", 10)
	v.SetDefault("agent.keystore.dir", filepath.Join(dir, "keystore"))
	v.SetDefault("agent.keystore.rpc_url", "")
	v.SetDefault("agent.keystore.secrets", filepath.Join(dir, "secrets"))
	v.SetDefault("agent.receipt_timeout", 5*time.Minute)
	v.SetDefault("agent.poll_interval", 2*time.Second)
	v.SetDefault("agent.accounts_poll_interval", 3*time.Second)

	v.SetDefault("gas.register.mode", "estimate_with_fallback")
	v.SetDefault("gas.register.fallback", 500000)
	v.SetDefault("gas.register.headroom", 1.2)
	v.SetDefault("gas.register.attempts", 2)
	v.SetDefault("gas.verify.mode", "estimate")
	v.SetDefault("gas.verify.fallback", 200000)
	v.SetDefault("gas.verify.headroom", 1.2)
	v.SetDefault("gas.verify.attempts", 2)

	v.SetDefault("ledger.page_size", 50)
	v.SetDefault("ledger.concurrency", 1)

	v.SetDefault("tracker.display_window", 120*time.Second)
	v.SetDefault("tracker.retention", time.Duration(0))

	v.SetDefault("notifications.default_ttl", 5*time.Second)
	v.SetDefault("notifications.tx_ttl", 8*time.Second)

	v.SetDefault("preferences.path", filepath.Join(dir, "preferences.toml"))

	v.SetDefault("log.path", filepath.Join(dir, "landchain.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	return nil
}

// Load reads config.toml (from file when set, else ~/.landchain) and LANDCHAIN_* overrides
// into v and decodes the result. A missing default config file is not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	if err := SetDefaults(v); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := Dir()
		if err != nil {
			return Config{}, err
		}
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := decode(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func decode(v *viper.Viper) Config {
	return Config{
		Network: domain.NetworkParams{
			ChainID: v.GetUint64("network.chain_id"),
			Name:    v.GetString("network.name"),
			Currency: domain.NativeCurrency{
				Name:     v.GetString("network.currency.name"),
				Symbol:   v.GetString("network.currency.symbol"),
				Decimals: uint8(v.GetUint("network.currency.decimals")),
			},
			RPCURLs:      v.GetStringSlice("network.rpc_urls"),
			ExplorerURLs: v.GetStringSlice("network.explorer_urls"),
		},
		ContractAddress: strings.TrimSpace(v.GetString("contract.address")),
		Agent: AgentConfig{
			Kind: strings.ToLower(strings.TrimSpace(v.GetString("agent.kind"))),
			RPC: RPCAgentConfig{
				URL:               v.GetString("agent.rpc.url"),
				RequestsPerSecond: v.GetFloat64("agent.rpc.requests_per_second"),
				Burst:             v.GetInt("agent.rpc.burst"),
			},
			Keystore: KeystoreAgentConfig{
				Dir:     v.GetString("agent.keystore.dir"),
				RPCURL:  v.GetString("agent.keystore.rpc_url"),
				Secrets: v.GetString("agent.keystore.secrets"),
			},
			ReceiptTimeout:       v.GetDuration("agent.receipt_timeout"),
			PollInterval:         v.GetDuration("agent.poll_interval"),
			AccountsPollInterval: v.GetDuration("agent.accounts_poll_interval"),
		},
		Gas: GasConfig{
			Register: gasPolicy(v, "gas.register"),
			Verify:   gasPolicy(v, "gas.verify"),
		},
		Ledger: LedgerConfig{
			PageSize:    v.GetInt("ledger.page_size"),
			Concurrency: v.GetInt("ledger.concurrency"),
		},
		Tracker: TrackerConfig{
			DisplayWindow: v.GetDuration("tracker.display_window"),
			Retention:     v.GetDuration("tracker.retention"),
		},
		Notifications: NotificationConfig{
			DefaultTTL: v.GetDuration("notifications.default_ttl"),
			TxTTL:      v.GetDuration("notifications.tx_ttl"),
		},
		PreferencesPath: v.GetString("preferences.path"),
		Log: LogConfig{
			Path:       v.GetString("log.path"),
			Level:      v.GetString("log.level"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
		},
	}
}

func gasPolicy(v *viper.Viper, prefix string) GasPolicyConfig {
	return GasPolicyConfig{
		Mode:     v.GetString(prefix + ".mode"),
		Fallback: v.GetUint64(prefix + ".fallback"),
		Headroom: v.GetFloat64(prefix + ".headroom"),
		Attempts: v.GetInt(prefix + ".attempts"),
	}
}

func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("%w: network: %w", ErrInvalid, err)
	}
	if c.ContractAddress != "" && !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("%w: contract.address %q is not a hex address", ErrInvalid, c.ContractAddress)
	}

	switch c.Agent.Kind {
	case AgentKindRPC:
		if strings.TrimSpace(c.Agent.RPC.URL) == "" {
			return fmt.Errorf("%w: agent.rpc.url is required", ErrInvalid)
		}
	case AgentKindKeystore:
		if strings.TrimSpace(c.Agent.Keystore.Dir) == "" {
			return fmt.Errorf("%w: agent.keystore.dir is required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: agent.kind must be %q or %q, got %q", ErrInvalid, AgentKindRPC, AgentKindKeystore, c.Agent.Kind)
	}

	for name, d := range map[string]time.Duration{
		"agent.receipt_timeout":        c.Agent.ReceiptTimeout,
		"agent.poll_interval":          c.Agent.PollInterval,
		"tracker.display_window":       c.Tracker.DisplayWindow,
		"notifications.default_ttl":    c.Notifications.DefaultTTL,
		"notifications.tx_ttl":         c.Notifications.TxTTL,
		"agent.accounts_poll_interval": c.Agent.AccountsPollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, name)
		}
	}
	if c.Tracker.Retention < 0 {
		return fmt.Errorf("%w: tracker.retention must not be negative", ErrInvalid)
	}
	if c.Ledger.PageSize <= 0 || c.Ledger.Concurrency <= 0 {
		return fmt.Errorf("%w: ledger.page_size and ledger.concurrency must be positive", ErrInvalid)
	}

	return nil
}

// Contract returns the registry contract address, required by every ledger operation.
func (c Config) Contract() (common.Address, error) {
	if c.ContractAddress == "" {
		return common.Address{}, ErrMissingAddress
	}
	return common.HexToAddress(c.ContractAddress), nil
}

// KeystoreRPCURL is the node the keystore agent talks to.
func (c Config) KeystoreRPCURL() string {
	if url := strings.TrimSpace(c.Agent.Keystore.RPCURL); url != "" {
		return url
	}
	if len(c.Network.RPCURLs) > 0 {
		return c.Network.RPCURLs[0]
	}
	return ""
}
