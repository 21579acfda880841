package external

import (
	"context"

	"hubwatch/internal/advisory"
	"hubwatch/internal/types"
)

// FAAClient fetches the operations plan and the airport status feed.
type FAAClient struct {
	*BaseClient
	opsPlanURL string
	statusURL  string
}

// NewFAAClient wraps base with the two FAA endpoints.
func NewFAAClient(base *BaseClient, opsPlanURL, statusURL string) *FAAClient {
	return &FAAClient{BaseClient: base, opsPlanURL: opsPlanURL, statusURL: statusURL}
}

// FetchAdvisoryDocument returns the raw operations plan JSON.
func (c *FAAClient) FetchAdvisoryDocument(ctx context.Context) ([]byte, error) {
	return c.Get(ctx, c.opsPlanURL, "application/json", types.ErrCodeUpstreamAdvisory)
}

// FetchGroundStatus returns the current ground stop and ground delay programs.
func (c *FAAClient) FetchGroundStatus(ctx context.Context) (types.GroundStatus, error) {
	body, err := c.Get(ctx, c.statusURL, "application/xml", types.ErrCodeUpstreamAdvisory)
	if err != nil {
		return types.GroundStatus{}, err
	}
	return advisory.ParseGroundStatus(body)
}
