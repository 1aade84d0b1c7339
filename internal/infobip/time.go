package infobip

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

var vendorTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
}

// vendorTime decodes vendor timestamps such as 2019-08-09T17:00:00.000+0000.
// Unparseable values decode to the zero time instead of failing the report.
type vendorTime struct {
	time.Time
}

func (t *vendorTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	t.Time = parseVendorTime(raw)
	return nil
}

func parseVendorTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range vendorTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func (t *vendorTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
