package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/kursadbilgin/infobip-dispatch/internal/infobip"
	"github.com/kursadbilgin/infobip-dispatch/internal/ratelimit"
)

type Config struct {
	InfobipBasePath     string        `env:"INFOBIP_BASE_PATH,required=true"`
	InfobipAPIKey       string        `env:"INFOBIP_API_KEY,required=true"`
	InfobipAPIKeyPrefix string        `env:"INFOBIP_API_KEY_PREFIX,default=App"`
	InfobipProxyURL     string        `env:"INFOBIP_PROXY_URL"`
	InfobipNotifyURL    string        `env:"INFOBIP_NOTIFY_URL"`
	InfobipUserAgent    string        `env:"INFOBIP_USER_AGENT"`
	InfobipHTTPTimeout  time.Duration `env:"INFOBIP_HTTP_TIMEOUT,default=10s"`

	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY,default=1"`
	RateLimitPerSec     int           `env:"RATE_LIMIT_PER_SEC,default=100"`
	RateLimitSMS        int           `env:"RATE_LIMIT_SMS_PER_SEC"`
	RateLimitEmail      int           `env:"RATE_LIMIT_EMAIL_PER_SEC"`
	RateLimitVoice      int           `env:"RATE_LIMIT_VOICE_PER_SEC"`
	WorkerConcurrency   int           `env:"WORKER_CONCURRENCY,default=4"`
	ReportDedupeTTL     time.Duration `env:"REPORT_DEDUPE_TTL,default=24h"`
	APIPort             int           `env:"API_PORT,default=8080"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Infobip returns the vendor client configuration.
func (c *Config) Infobip() infobip.ClientConfig {
	return infobip.ClientConfig{
		BasePath:     c.InfobipBasePath,
		APIKey:       c.InfobipAPIKey,
		APIKeyPrefix: c.InfobipAPIKeyPrefix,
		ProxyURL:     c.InfobipProxyURL,
		UserAgent:    c.InfobipUserAgent,
		Timeout:      c.InfobipHTTPTimeout,
	}
}

// RateLimits returns the vendor call budget per second. Unset channel
// values share RATE_LIMIT_PER_SEC.
func (c *Config) RateLimits() ratelimit.Limits {
	return ratelimit.Limits{
		PerWindow: c.RateLimitPerSec,
		Window:    time.Second,
		PerChannel: map[domain.ChannelID]int{
			domain.ChannelSMS:   c.RateLimitSMS,
			domain.ChannelEmail: c.RateLimitEmail,
			domain.ChannelVoice: c.RateLimitVoice,
		},
	}
}
