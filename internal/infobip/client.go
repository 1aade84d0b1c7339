package infobip

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Version is reported in the default user agent.
	Version = "0.1.0"

	DefaultAPIKeyPrefix = "App"
	defaultTimeout      = 10 * time.Second
	tracerName          = "github.com/kursadbilgin/infobip-dispatch/internal/infobip"
)

// Vendor endpoints relative to the account base path.
const (
	smsAdvancedPath   = "/sms/2/text/advanced"
	emailSendPath     = "/email/3/send"
	voiceSinglePath   = "/tts/3/single"
	voiceAdvancedPath = "/tts/3/advanced"
)

// DefaultUserAgent is sent when the configuration does not set one.
func DefaultUserAgent() string {
	return "infobip-dispatch/" + Version
}

// ClientConfig is the vendor account configuration.
type ClientConfig struct {
	BasePath     string
	APIKey       string
	APIKeyPrefix string
	ProxyURL     string
	UserAgent    string
	Timeout      time.Duration
}

// Client is the shared vendor HTTP client. Create it once at startup and pass it
// to every dispatcher; it holds no per-call state.
type Client struct {
	http   *resty.Client
	tracer trace.Tracer
}

func NewClient(cfg ClientConfig) (*Client, error) {
	return NewClientWithResty(cfg, resty.New())
}

func NewClientWithResty(cfg ClientConfig, client *resty.Client) (*Client, error) {
	basePath := strings.TrimRight(strings.TrimSpace(cfg.BasePath), "/")
	if basePath == "" {
		return nil, fmt.Errorf("infobip base path is required")
	}
	if _, err := url.ParseRequestURI(basePath); err != nil {
		return nil, fmt.Errorf("invalid infobip base path: %w", err)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("infobip api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	prefix := strings.TrimSpace(cfg.APIKeyPrefix)
	if prefix == "" {
		prefix = DefaultAPIKeyPrefix
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent()
	}

	if proxy := strings.TrimSpace(cfg.ProxyURL); proxy != "" {
		if _, err := url.ParseRequestURI(proxy); err != nil {
			return nil, fmt.Errorf("invalid infobip proxy url: %w", err)
		}
		client.SetProxy(proxy)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client.
		SetBaseURL(basePath).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Authorization", prefix+" "+apiKey).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &Client{
		http:   client,
		tracer: otel.Tracer(tracerName),
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*resty.Response, error) {
	return c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
}

func (c *Client) postMultipart(ctx context.Context, path string, fields []*resty.MultipartField) (*resty.Response, error) {
	return c.http.R().
		SetContext(ctx).
		SetMultipartFields(fields...).
		Post(path)
}
