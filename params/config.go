package params

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Network names accepted by HOTSTUFF_ENV.
const (
	Mainnet = "mainnet"
	Testnet = "testnet"
)

const (
	DefaultMainnetURL = "https://api.hotstuff.trade"
	DefaultTestnetURL = "https://testnet-api.hotstuff.trade"
)

type Exchange struct {
	MainnetURL string        `envconfig:"HOTSTUFF_MAINNET_URL"`
	TestnetURL string        `envconfig:"HOTSTUFF_TESTNET_URL"`
	TimeoutMs  int           `envconfig:"EXCHANGE_TIMEOUT_MS"`
	Timeout    time.Duration `ignored:"true"`
}

// Signing holds the EIP-712 domain used for trading actions.
type Signing struct {
	DomainName    string `envconfig:"EIP712_DOMAIN_NAME"`
	DomainVersion string `envconfig:"EIP712_DOMAIN_VERSION"`
	ChainID       int64  `envconfig:"EIP712_CHAIN_ID"`
	// VerifyingContract is zero for off-chain signing
	VerifyingContract string `envconfig:"EIP712_VERIFYING_CONTRACT"`
}

type Relay struct {
	Addr        string        `envconfig:"RELAY_ADDR"`
	BackendURL  string        `envconfig:"TRADING_BACKEND_URL"`
	TimeoutMs   int           `envconfig:"RELAY_TIMEOUT_MS"`
	Timeout     time.Duration `ignored:"true"`
	CORSOrigins []string      `envconfig:"CORS_ORIGINS"`
}

type Config struct {
	Exchange Exchange
	Signing  Signing
	Relay    Relay
	LogFile  string `envconfig:"LOG_FILE"`
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			MainnetURL: DefaultMainnetURL,
			TestnetURL: DefaultTestnetURL,
			TimeoutMs:  5000,
			Timeout:    5 * time.Second,
		},
		Signing: Signing{
			DomainName:    "HotstuffCore",
			DomainVersion: "1",
			ChainID:       1, // wallet client is bound to mainnet chain id on both networks
		},
		Relay: Relay{
			Addr:        ":3000",
			TimeoutMs:   10000,
			Timeout:     10 * time.Second,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		LogFile: "data/ducky.log",
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// .env is optional
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	// envconfig only overwrites fields whose variables are set
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}

	if cfg.Exchange.TimeoutMs > 0 {
		cfg.Exchange.Timeout = time.Duration(cfg.Exchange.TimeoutMs) * time.Millisecond
	}
	if cfg.Relay.TimeoutMs > 0 {
		cfg.Relay.Timeout = time.Duration(cfg.Relay.TimeoutMs) * time.Millisecond
	}
	return cfg, nil
}

// Network is the exchange deployment a call should be sent to.
type Network struct {
	Name    string
	BaseURL string
}

func (n Network) IsTestnet() bool { return n.Name != Mainnet }

// ResolveNetwork reads HOTSTUFF_ENV on every call so that switching the
// environment takes effect on the next submission. Anything other than
// "mainnet" selects the test network.
func (e Exchange) ResolveNetwork() Network {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("HOTSTUFF_ENV")), Mainnet) {
		return Network{Name: Mainnet, BaseURL: getEnv("HOTSTUFF_MAINNET_URL", e.MainnetURL)}
	}
	return Network{Name: Testnet, BaseURL: getEnv("HOTSTUFF_TESTNET_URL", e.TestnetURL)}
}

// CurrentBackendURL returns the relay upstream. It is looked up per request; an
// empty result is a configuration error, never defaulted.
func (r Relay) CurrentBackendURL() string {
	return getEnv("TRADING_BACKEND_URL", r.BackendURL)
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
