package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ExportDNSRecords fetches the BIND-style zone-file export for a zone and
// returns the body verbatim. The export endpoint returns plain text, not the
// usual JSON envelope, so the body is never parsed or validated here.
func (c *Client) ExportDNSRecords(ctx context.Context, zoneID string) ([]byte, error) {
	cleanID := strings.TrimSpace(zoneID)
	if cleanID == "" {
		return nil, errors.New("zone ID must not be empty")
	}

	endpoint := fmt.Sprintf("/zones/%s/dns_records/export", url.PathEscape(cleanID))
	statusCode, body, err := c.doRaw(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	if statusCode < 200 || statusCode >= 300 {
		return nil, &HTTPStatusError{
			StatusCode: statusCode,
			Body:       string(body),
		}
	}

	return body, nil
}
