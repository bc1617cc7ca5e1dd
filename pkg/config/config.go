package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config は試着パイプラインの設定値です。プロセス全体で共有せず、セッションごとに注入します。
type Config struct {
	// Proxy
	ProxyURL     string
	APIKey       string
	APIKeyHeader string // 空ならプロキシ側の既定ヘッダー
	ProxyTimeout time.Duration
	// AllowPrivateNetwork はローカルや社内ネットワーク上のプロキシへの接続を許可します。
	AllowPrivateNetwork bool

	// Generation
	Instruction string
	RateLimit   float64 // 1 秒あたりのリクエスト数。0 なら無制限

	// Normalizer
	MaxDimension int
	JPEGQuality  int
}

// Load は .env（存在すれば）と環境変数から設定を読み込みます。
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug(".env file not found, using environment variables", "error", err)
	}
	return FromEnv()
}

// FromEnv は現在の環境変数だけから設定を組み立てます。
func FromEnv() (*Config, error) {
	cfg := &Config{
		ProxyURL:     getEnv("TRYON_PROXY_URL", ""),
		APIKey:       getEnv("TRYON_API_KEY", ""),
		APIKeyHeader: getEnv("TRYON_API_KEY_HEADER", ""),
		Instruction:  getEnv("TRYON_INSTRUCTION", ""),
	}

	var err error
	if cfg.MaxDimension, err = getInt("TRYON_MAX_DIMENSION", 1024); err != nil {
		return nil, err
	}
	if cfg.JPEGQuality, err = getInt("TRYON_JPEG_QUALITY", 90); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getFloat("TRYON_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.ProxyTimeout, err = getDuration("TRYON_PROXY_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.AllowPrivateNetwork, err = getBool("TRYON_ALLOW_PRIVATE_NETWORK", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate - 必須項目と値の範囲を検証
func (c *Config) validate() error {
	if c.ProxyURL == "" {
		return fmt.Errorf("TRYON_PROXY_URL is required")
	}
	if c.MaxDimension <= 0 {
		return fmt.Errorf("TRYON_MAX_DIMENSION must be positive: %d", c.MaxDimension)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("TRYON_JPEG_QUALITY must be between 1 and 100: %d", c.JPEGQuality)
	}
	if c.ProxyTimeout < 0 {
		return fmt.Errorf("TRYON_PROXY_TIMEOUT must not be negative: %v", c.ProxyTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("TRYON_RATE_LIMIT must not be negative: %v", c.RateLimit)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
