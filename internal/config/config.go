package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 应用配置，来自环境变量和可选的 .env 文件
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// 后端
	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:3000"`
	BackendMock    bool          `envconfig:"BACKEND_MOCK" default:"false"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"150s"`
	DetectGender   bool          `envconfig:"DETECT_GENDER" default:"true"`

	// 视频轮询
	VideoPollInterval    time.Duration `envconfig:"VIDEO_POLL_INTERVAL" default:"5s"`
	VideoPollMaxAttempts int           `envconfig:"VIDEO_POLL_MAX_ATTEMPTS" default:"120"`

	DownloadCacheMaxBytes int64 `envconfig:"DOWNLOAD_CACHE_MAX_BYTES" default:"268435456"`

	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFile     string   `envconfig:"LOG_FILE"`
	SentryDSN   string   `envconfig:"SENTRY_DSN"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads envFiles (".env" when none are given) and then the environment.
// Missing env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if cfg.VideoPollMaxAttempts < 1 {
		return nil, fmt.Errorf("VIDEO_POLL_MAX_ATTEMPTS must be positive, got %d", cfg.VideoPollMaxAttempts)
	}
	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL must be positive, got %s", cfg.VideoPollInterval)
	}
	return &cfg, nil
}
