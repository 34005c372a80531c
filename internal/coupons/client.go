package coupons

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/rest"
)

// Evaluation is the promotion service's verdict on a coupon code.
type Evaluation struct {
	Valid        bool               `json:"valid"`
	Discount     decimal.Decimal    `json:"discount"`
	DiscountType enums.DiscountKind `json:"discountType"`
}

// AmountFor converts the evaluation into an absolute discount for the given
// subtotal. Percentage verdicts are resolved against the subtotal and
// rounded to the cent.
func (e Evaluation) AmountFor(subtotal decimal.Decimal) decimal.Decimal {
	if e.DiscountType == enums.DiscountKindPercentage {
		return subtotal.Mul(e.Discount).Div(decimal.NewFromInt(100)).Round(2)
	}
	return decimal.Min(e.Discount, subtotal)
}

// Evaluator validates coupon codes against the external promotion service.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*Evaluation, error)
}

type client struct {
	rest *rest.Client
}

// NewClient builds the coupon evaluator from configuration.
func NewClient(cfg config.CouponsConfig, opts ...rest.Option) (Evaluator, error) {
	restClient, err := rest.New(cfg.BaseURL, cfg.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("coupons client: %w", err)
	}
	return &client{rest: restClient}, nil
}

func (c *client) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*Evaluation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	request := struct {
		Code     string          `json:"code"`
		Subtotal decimal.Decimal `json:"subtotal"`
	}{Code: code, Subtotal: subtotal}

	var evaluation Evaluation
	if err := c.rest.PostJSON(ctx, "/coupons/evaluate", request, &evaluation); err != nil {
		return nil, err
	}
	return &evaluation, nil
}
