// Package currency converts amounts between the shop currencies and the
// currency used for VAT returns.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"euvat/internal/platform/config"
	dErrors "euvat/pkg/domain-errors"
)

// Converter holds exchange rates expressed against a common base currency.
type Converter struct {
	rates       map[string]decimal.Decimal
	vatCurrency string
	decimals    int32
	debug       bool
	logger      *slog.Logger
}

type Option func(*Converter)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithDebugMode makes missing exchange rates fail instead of passing the
// amount through.
func WithDebugMode(debug bool) Option {
	return func(c *Converter) {
		c.debug = debug
	}
}

func New(cfg config.Currency, opts ...Option) *Converter {
	rates := make(map[string]decimal.Decimal, len(cfg.ExchangeRates))
	for code, rate := range cfg.ExchangeRates {
		rates[strings.ToUpper(code)] = rate
	}
	c := &Converter{
		rates:       rates,
		vatCurrency: strings.ToUpper(cfg.VATCurrency),
		decimals:    cfg.Decimals,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VATCurrency is the currency VAT returns are filed in.
func (c *Converter) VATCurrency() string {
	return c.vatCurrency
}

// Rate returns how many units of to one unit of from buys.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	fromRate, err := c.lookup(ctx, "source", from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := c.lookup(ctx, "destination", to)
	if err != nil {
		return decimal.Zero, err
	}
	return toRate.Div(fromRate), nil
}

func (c *Converter) lookup(ctx context.Context, side, code string) (decimal.Decimal, error) {
	rate, ok := c.rates[code]
	if !ok || !rate.IsPositive() {
		msg := fmt.Sprintf("%s currency not valid or exchange rate not found for %q", side, code)
		c.logger.ErrorContext(ctx, "currency conversion failed", "side", side, "currency", code)
		return decimal.Zero, dErrors.New(dErrors.CodeConfiguration, msg)
	}
	return rate, nil
}

// Convert converts amount and rounds it to decimals; a negative decimals
// value uses the configured price decimals. A missing rate passes the amount
// through unchanged unless debug mode is on.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, decimals int32) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}
	if decimals < 0 {
		decimals = c.decimals
	}
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		if c.debug {
			return decimal.Zero, err
		}
		return amount, nil
	}
	return amount.Mul(rate).Round(decimals), nil
}

// ConvertString converts a textual amount. Input that is not a number is
// returned unchanged.
func (c *Converter) ConvertString(ctx context.Context, raw, from, to string) (string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw, nil
	}
	converted, err := c.Convert(ctx, amount, from, to, -1)
	if err != nil {
		return "", err
	}
	return converted.String(), nil
}
