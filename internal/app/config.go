package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CART_ prefix), flags, a .env file or YAML config
// files.
type Config struct {
	Addr           string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	RequestTimeout time.Duration `default:"15s" usage:"Per-request deadline" flag:"request-timeout"`
	SeedFile       string        `default:"" usage:"JSON-lines offers file (optionally .gz) loaded at startup" flag:"seed-file"`
	SegmentService SegmentServiceConfig
	Redis          RedisConfig
	Graceful       GracefulConfig
}

// SegmentServiceConfig configures the user segmentation service client.
type SegmentServiceConfig struct {
	URL     string        `default:"http://localhost:1080" usage:"Segmentation service base URL" flag:"segment-url"`
	Timeout time.Duration `default:"2s" usage:"Segmentation request timeout" flag:"segment-timeout"`
}

// RedisConfig configures the optional segment cache.
type RedisConfig struct {
	Addr     string        `default:"" usage:"Redis address; empty disables the segment cache" flag:"redis-addr"`
	CacheTTL time.Duration `default:"5m" usage:"Cached segment lifetime" flag:"redis-cache-ttl"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from a .env file (if present), environment
// variables, flags and YAML config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "CART",
		Files:     []string{"config.yaml", "/etc/cart-offer/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the platform-provided PORT onto Addr unless the
// address was configured explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.SegmentService.URL == "" {
		return errors.New("segment service URL is required: set CART_SEGMENT_SERVICE_URL")
	}
	if c.SegmentService.Timeout <= 0 {
		return errors.New("segment service timeout must be positive")
	}
	if c.Redis.Addr != "" && c.Redis.CacheTTL <= 0 {
		return errors.New("redis cache TTL must be positive")
	}
	return nil
}
