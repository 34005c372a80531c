package customers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tillpoint/pos-engine/pkg/config"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/rest"
	"github.com/tillpoint/pos-engine/pkg/types"
)

// Service searches the external customer directory.
type Service interface {
	Search(ctx context.Context, query string) ([]types.Customer, error)
}

type client struct {
	rest *rest.Client
}

// NewClient builds the customer directory client from configuration.
func NewClient(cfg config.CustomersConfig, opts ...rest.Option) (Service, error) {
	restClient, err := rest.New(cfg.BaseURL, cfg.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("customers client: %w", err)
	}
	return &client{rest: restClient}, nil
}

func (c *client) Search(ctx context.Context, query string) ([]types.Customer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}

	params := url.Values{}
	params.Set("q", query)

	var payload struct {
		Customers []types.Customer `json:"customers"`
	}
	if err := c.rest.GetJSON(ctx, "/customers/search", params, &payload); err != nil {
		return nil, err
	}
	return payload.Customers, nil
}
