// Package client talks to the stockfolio HTTP API. It is what the terminal
// dashboard and the smoke test use, and it satisfies scheduler.Source.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stockfolio/internal/models"
	"stockfolio/internal/service"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

const (
	_portfolioURL    = "/api/portfolio"
	_holdingURL      = "/api/portfolio/%d"
	_stocksUpdateURL = "/api/stocks/update"
	_healthURL       = "/health"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type Client struct {
	c   *resty.Client
	log *logrus.Logger
}

func New(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	c := resty.New().
		SetLogger(log).
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &Client{c: c, log: log}
}

func (c *Client) Close() error {
	return c.c.Close()
}

// HoldingInput is the create/update payload. Nil fields are left out.
type HoldingInput struct {
	StockSymbol   *string `json:"stock_symbol,omitempty"`
	StockName     *string `json:"stock_name,omitempty"`
	PurchasePrice *string `json:"purchase_price,omitempty"`
	Quantity      *int64  `json:"quantity,omitempty"`
	Sector        *string `json:"sector,omitempty"`
	ExchangeCode  *string `json:"exchange_code,omitempty"`
}

func (c *Client) Health(ctx context.Context) error {
	resp, err := c.c.R().SetContext(ctx).Get(_healthURL)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Message: resp.Status()}
	}
	return nil
}

func (c *Client) FetchPortfolio(ctx context.Context) (models.PortfolioView, error) {
	return call[models.PortfolioView](ctx, c, http.MethodGet, _portfolioURL, nil)
}

func (c *Client) RequestQuoteRefresh(ctx context.Context, symbols []string) error {
	if symbols == nil {
		symbols = []string{}
	}
	_, err := c.UpdateQuotes(ctx, symbols)
	return err
}

func (c *Client) UpdateQuotes(ctx context.Context, symbols []string) (service.RefreshResult, error) {
	return call[service.RefreshResult](ctx, c, http.MethodPost, _stocksUpdateURL, map[string][]string{"symbols": symbols})
}

func (c *Client) AutoUpdateQuotes(ctx context.Context) (service.RefreshResult, error) {
	return call[service.RefreshResult](ctx, c, http.MethodGet, _stocksUpdateURL, nil)
}

func (c *Client) CreateHolding(ctx context.Context, in HoldingInput) (models.Holding, error) {
	return call[models.Holding](ctx, c, http.MethodPost, _portfolioURL, in)
}

func (c *Client) GetHolding(ctx context.Context, id int64) (models.Holding, error) {
	return call[models.Holding](ctx, c, http.MethodGet, fmt.Sprintf(_holdingURL, id), nil)
}

func (c *Client) UpdateHolding(ctx context.Context, id int64, in HoldingInput) (models.Holding, error) {
	return call[models.Holding](ctx, c, http.MethodPut, fmt.Sprintf(_holdingURL, id), in)
}

func (c *Client) DeleteHolding(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, http.MethodDelete, fmt.Sprintf(_holdingURL, id), nil)
	return err
}

func call[T any](ctx context.Context, c *Client, method, url string, body any) (T, error) {
	var (
		zero   T
		result envelope[T]
		failed envelope[any]
	)
	req := c.c.R().
		SetResult(&result).
		SetError(&failed).
		SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	c.log.Debugf("got response %s %s status: %s, %s", method, url, resp.Status(), resp.Duration())

	if resp.IsError() {
		return zero, &APIError{Status: resp.StatusCode(), Message: failed.Error}
	}
	if !result.Success {
		return zero, &APIError{Status: resp.StatusCode(), Message: result.Error}
	}
	return result.Data, nil
}
