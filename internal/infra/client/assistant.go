package client

import (
	"context"
	"net/http"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"
)

// QueryAI sends a natural-language question to the backend assistant.
func (c *Client) QueryAI(ctx context.Context, creds port.Credentials, req *domain.AIQueryRequest) (*domain.AIResponse, error) {
	var resp domain.AIResponse
	err := c.do(ctx, call{
		op:       "query assistant",
		method:   http.MethodPost,
		path:     "/ai/query",
		creds:    &creds,
		jsonBody: req,
		out:      &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
