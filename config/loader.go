package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/censorgate/cache"
	"github.com/BaSui01/censorgate/censor"
	"github.com/BaSui01/censorgate/censor/factory"
	"github.com/BaSui01/censorgate/types"
)

// Config is the complete gateway configuration.
type Config struct {
	// Censor selects provider chains and submission behavior.
	Censor CensorConfig `yaml:"censor"`

	// Providers holds per-provider credentials and tuning.
	Providers factory.Config `yaml:"providers"`

	// Cache configures the verdict cache.
	Cache cache.Config `yaml:"cache"`

	// Redis enables the shared cache level when Addr is set.
	Redis RedisConfig `yaml:"redis"`

	// Audit configures the review log.
	Audit AuditConfig `yaml:"audit"`

	// Log configures zap.
	Log LogConfig `yaml:"log"`

	// Metrics configures the Prometheus namespace.
	Metrics MetricsConfig `yaml:"metrics"`
}

// CensorConfig selects the fallback chains.
type CensorConfig struct {
	// TextChain is the ordered provider list for text, e.g. [keyword, baidu].
	TextChain []string `yaml:"text_chain"`
	// ImageChain is the ordered provider list for images.
	ImageChain []string `yaml:"image_chain"`
	// EnableImage switches image submissions on.
	EnableImage bool `yaml:"enable_image"`
	// DetectTimeout bounds each upstream adapter call.
	DetectTimeout time.Duration `yaml:"detect_timeout"`
}

// RedisConfig is the optional shared cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// AuditConfig configures the review log store.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path is the sqlite database file.
	Path string `yaml:"path"`
	// DedupWindow suppresses repeat records per fingerprint.
	DedupWindow time.Duration `yaml:"dedup_window"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
	// OutputPaths, e.g. [stdout].
	OutputPaths []string `yaml:"output_paths"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Loader loads configuration with defaults, an optional YAML file, and
// environment overrides.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the CENSORGATE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "CENSORGATE"}
}

// WithConfigPath sets the YAML file path. A missing file is not an error;
// defaults and environment still apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, err
		}
	}
	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewConfigurationError("read config file failed").WithCause(err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return types.NewConfigurationError("parse config file failed").WithCause(err)
	}
	return nil
}

// setFieldsFromEnv overrides struct fields from environment variables. The
// key for each field is the uppercased yaml tag appended to the parent
// prefix, e.g. Providers.Baidu.APIKey -> CENSORGATE_PROVIDERS_BAIDU_API_KEY.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := strings.SplitN(t.Field(i).Tag.Get("yaml"), ",", 2)[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + strings.ToUpper(tag)

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, key); err != nil {
				return err
			}
			continue
		}

		value := os.Getenv(key)
		if value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return types.NewConfigurationError(fmt.Sprintf("invalid value for %s", key)).WithCause(err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// Validate checks structural consistency and that every selected provider
// has the credentials it needs. Credential mistakes must surface at startup,
// not as auth failures under traffic.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Censor.TextChain) == 0 {
		errs = append(errs, "censor.text_chain is empty")
	}
	if c.Censor.EnableImage && len(c.Censor.ImageChain) == 0 {
		errs = append(errs, "censor.enable_image set but censor.image_chain is empty")
	}
	if c.Censor.DetectTimeout <= 0 {
		errs = append(errs, "censor.detect_timeout must be positive")
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, "cache.ttl must be positive")
	}
	if c.Audit.Enabled {
		if c.Audit.Path == "" {
			errs = append(errs, "audit.enabled set but audit.path is empty")
		}
		if c.Audit.DedupWindow <= 0 {
			errs = append(errs, "audit.dedup_window must be positive")
		}
	}

	seen := make(map[censor.Provider]struct{})
	for _, name := range append(append([]string{}, c.Censor.TextChain...), c.Censor.ImageChain...) {
		p, err := censor.ParseProvider(name)
		if err != nil {
			errs = append(errs, fmt.Sprintf("unknown provider %q", name))
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if msg := c.checkProviderCredentials(p); msg != "" {
			errs = append(errs, msg)
		}
	}

	if len(errs) > 0 {
		return types.NewConfigurationError("config validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) checkProviderCredentials(p censor.Provider) string {
	switch p {
	case censor.ProviderBaidu:
		if c.Providers.Baidu.APIKey == "" || c.Providers.Baidu.SecretKey == "" {
			return "provider baidu selected but api_key/secret_key missing"
		}
	case censor.ProviderOpenAI:
		if c.Providers.OpenAI.APIKey == "" {
			return "provider openai selected but api_key missing"
		}
	case censor.ProviderKeyword:
		if len(c.Providers.Keyword.Words) == 0 {
			return "provider keyword selected but word list is empty"
		}
	}
	return ""
}

// TextProviders returns the parsed text chain. Call Validate first.
func (c *Config) TextProviders() ([]censor.Provider, error) {
	return parseProviders(c.Censor.TextChain)
}

// ImageProviders returns the parsed image chain. Call Validate first.
func (c *Config) ImageProviders() ([]censor.Provider, error) {
	return parseProviders(c.Censor.ImageChain)
}

func parseProviders(names []string) ([]censor.Provider, error) {
	out := make([]censor.Provider, 0, len(names))
	for _, name := range names {
		p, err := censor.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
