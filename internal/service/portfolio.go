package service

import (
	"context"
	"time"

	"stockfolio/internal/database"
	"stockfolio/internal/models"
	"stockfolio/internal/valuation"

	"github.com/sirupsen/logrus"
)

// PortfolioService assembles the portfolio view from the store.
type PortfolioService struct {
	store database.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewPortfolioService(s database.Store, log *logrus.Logger) *PortfolioService {
	return &PortfolioService{store: s, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (p *PortfolioService) View(ctx context.Context) (models.PortfolioView, error) {
	holdings, err := p.store.ListHoldings(ctx)
	if err != nil {
		return models.PortfolioView{}, err
	}
	quotes, err := p.store.GetQuotes(ctx, nil)
	if err != nil {
		return models.PortfolioView{}, err
	}
	view := valuation.BuildView(holdings, quotes, p.now())
	p.log.Debugf("portfolio view: %d holdings, %d quotes, %d sectors", len(holdings), len(quotes), len(view.Sectors))
	return view, nil
}

// Local serves the refresh scheduler in-process, without going through HTTP.
type Local struct {
	Quotes    *QuoteService
	Portfolio *PortfolioService
}

func (l Local) RequestQuoteRefresh(ctx context.Context, symbols []string) error {
	_, err := l.Quotes.Refresh(ctx, symbols)
	return err
}

func (l Local) FetchPortfolio(ctx context.Context) (models.PortfolioView, error) {
	return l.Portfolio.View(ctx)
}
