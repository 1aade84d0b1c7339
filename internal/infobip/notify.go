package infobip

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
)

// notifySource lists the notify URL sources of one communication in precedence order.
type notifySource struct {
	messageResolver       domain.URLResolver
	communicationResolver domain.URLResolver
	static                string
}

// resolveNotifyURL picks the first non-blank notify URL and appends the pipeline
// correlation query. A blank result means the field is omitted.
func resolveNotifyURL(
	ctx context.Context,
	dc domain.DispatchContext,
	src notifySource,
	fallback string,
	resourceID string,
) (string, error) {
	base, err := firstNotifyURL(ctx, dc, src, fallback)
	if err != nil {
		return "", err
	}
	if base == "" {
		return "", nil
	}
	return withPipelineQuery(base, resourceID, dc)
}

func firstNotifyURL(ctx context.Context, dc domain.DispatchContext, src notifySource, fallback string) (string, error) {
	for _, resolver := range []domain.URLResolver{src.messageResolver, src.communicationResolver} {
		if resolver == nil {
			continue
		}
		resolved, err := resolver(ctx, dc)
		if err != nil {
			return "", fmt.Errorf("failed to resolve notify url: %w", err)
		}
		if resolved = strings.TrimSpace(resolved); resolved != "" {
			return resolved, nil
		}
	}

	if static := strings.TrimSpace(src.static); static != "" {
		return static, nil
	}
	return strings.TrimSpace(fallback), nil
}

func withPipelineQuery(raw string, resourceID string, dc domain.DispatchContext) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid notify url %q", domain.ErrValidation, raw)
	}

	providerID := strings.TrimSpace(dc.ChannelProviderID)
	if providerID == "" {
		providerID = domain.ProviderID
	}

	query := u.Query()
	setIfPresent(query, domain.QueryResourceID, resourceID)
	setIfPresent(query, domain.QueryPipelineIntent, dc.PipelineIntent)
	setIfPresent(query, domain.QueryPipelineID, dc.PipelineID)
	setIfPresent(query, domain.QueryChannelID, dc.ChannelID.String())
	setIfPresent(query, domain.QueryChannelProviderID, providerID)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func setIfPresent(query url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		query.Set(key, value)
	}
}
