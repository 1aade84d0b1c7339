package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix  = "infobip:report"
	defaultReportTTL = 24 * time.Hour
)

// ReportDeduplicator remembers which delivery reports were already accepted.
// Infobip retries webhooks that time out, so the same status can arrive twice.
type ReportDeduplicator struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewReportDeduplicator(client *goredis.Client, ttl time.Duration) (*ReportDeduplicator, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	return &ReportDeduplicator{client: client, ttl: ttl}, nil
}

// FirstSeen reports whether this is the first time the report is observed.
// Reports without a resource id are always treated as new.
func (d *ReportDeduplicator) FirstSeen(ctx context.Context, report domain.DeliveryReport) (bool, error) {
	if d == nil || d.client == nil {
		return false, fmt.Errorf("report deduplicator is not initialized")
	}

	key, ok := reportKey(report)
	if !ok {
		return true, nil
	}

	created, err := d.client.SetNX(ctx, key, time.Now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery report: %w", err)
	}
	return created, nil
}

// Forget drops the marker so a report whose processing failed can be accepted again.
func (d *ReportDeduplicator) Forget(ctx context.Context, report domain.DeliveryReport) error {
	if d == nil || d.client == nil {
		return fmt.Errorf("report deduplicator is not initialized")
	}
	key, ok := reportKey(report)
	if !ok {
		return nil
	}
	if err := d.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to forget delivery report: %w", err)
	}
	return nil
}

func reportKey(report domain.DeliveryReport) (string, bool) {
	resourceID := strings.TrimSpace(report.ResourceID)
	if resourceID == "" {
		return "", false
	}

	groupID, statusID := 0, 0
	if p := report.Properties; p != nil && p.Status != nil {
		groupID = p.Status.GroupID
		statusID = p.Status.ID
	}

	return strings.Join([]string{
		reportKeyPrefix,
		report.ChannelID.String(),
		resourceID,
		strconv.Itoa(groupID),
		strconv.Itoa(statusID),
	}, ":"), true
}
