package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the resolved startup configuration.
type Config struct {
	APIBaseURL        string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	UserID int64

	Symbols           []string
	MaskPriceFailures bool
	CandleInterval    string
	CandleLimit       int

	LogLevel  string
	LogFormat string
	LogFile   string
	LogMaxAge int
}

const (
	defaultConfigPath = "~/.config/tradedeck/config.toml"
	defaultEnvFile    = ".env"
	defaultAPIBaseURL = "http://localhost:8080/api"
	defaultTimeout    = 10 * time.Second
	defaultUserID     = 1
	defaultLogFile    = "~/.local/state/tradedeck/tradedeck.log"
	defaultLogMaxAge  = 14

	// EnvAPIBaseURL overrides api.base_url.
	EnvAPIBaseURL = "TRADEDECK_API_BASE_URL"
	// EnvUserID overrides user_id.
	EnvUserID = "TRADEDECK_USER_ID"
)

var defaultSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

type rawConfig struct {
	UserID *int64 `toml:"user_id"`
	API    struct {
		BaseURL           string  `toml:"base_url"`
		Timeout           string  `toml:"timeout"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		Burst             int     `toml:"burst"`
	} `toml:"api"`
	Market struct {
		Symbols           []string `toml:"symbols"`
		MaskPriceFailures *bool    `toml:"mask_price_failures"`
		CandleInterval    string   `toml:"candle_interval"`
		CandleLimit       int      `toml:"candle_limit"`
	} `toml:"market"`
	Log struct {
		Level      string `toml:"level"`
		Format     string `toml:"format"`
		File       string `toml:"file"`
		MaxAgeDays *int   `toml:"max_age_days"`
	} `toml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBaseURL:        defaultAPIBaseURL,
		Timeout:           defaultTimeout,
		UserID:            defaultUserID,
		Symbols:           append([]string(nil), defaultSymbols...),
		MaskPriceFailures: true,
		LogLevel:          "info",
		LogFormat:         "text",
		LogFile:           mustExpand(defaultLogFile),
		LogMaxAge:         defaultLogMaxAge,
	}
}

// Load reads the TOML file at path (default ~/.config/tradedeck/config.toml),
// then applies overrides from envFile (default .env) and the process
// environment, which wins over both. Missing files fall back to defaults.
func Load(path, envFile string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()

	data, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if data != nil {
		var raw rawConfig
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.apply(raw); err != nil {
			return Config{}, err
		}
	}

	env, err := readEnv(envFile)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

func (c *Config) apply(raw rawConfig) error {
	if raw.UserID != nil {
		c.UserID = *raw.UserID
	}
	if v := strings.TrimSpace(raw.API.BaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := strings.TrimSpace(raw.API.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("parse config: api.timeout %q is not a positive duration", v)
		}
		c.Timeout = d
	}
	c.RequestsPerSecond = raw.API.RequestsPerSecond
	c.Burst = raw.API.Burst

	if symbols := normalizeSymbols(raw.Market.Symbols); len(symbols) > 0 {
		c.Symbols = symbols
	}
	if raw.Market.MaskPriceFailures != nil {
		c.MaskPriceFailures = *raw.Market.MaskPriceFailures
	}
	c.CandleInterval = strings.TrimSpace(raw.Market.CandleInterval)
	if raw.Market.CandleLimit > 0 {
		c.CandleLimit = raw.Market.CandleLimit
	}

	if v := strings.TrimSpace(raw.Log.Level); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(raw.Log.Format); v != "" {
		c.LogFormat = v
	}
	if v := strings.TrimSpace(raw.Log.File); v != "" {
		c.LogFile = mustExpand(v)
	}
	if raw.Log.MaxAgeDays != nil {
		c.LogMaxAge = *raw.Log.MaxAgeDays
	}
	return nil
}

// readEnv returns the variables defined in envFile. A missing file yields
// an empty map.
func readEnv(envFile string) (map[string]string, error) {
	if strings.TrimSpace(envFile) == "" {
		envFile = defaultEnvFile
	}
	env, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	return env, nil
}

func (c *Config) applyEnv(file map[string]string) error {
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(file[key])
	}
	if v := lookup(EnvAPIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := lookup(EnvUserID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("%s: %q is not a positive integer", EnvUserID, v)
		}
		c.UserID = id
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
