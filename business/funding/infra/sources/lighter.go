package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const (
	lighterBaseURL = "https://mainnet.zklighter.elliot.ai"

	// Order limits above this are technical ceilings, not real liquidity.
	lighterMaxOrderCapUSD = 100_000_000
)

// Lighter connects to the Lighter zk-rollup perps exchange public API.
// Prices and volumes require authentication, so records carry rates and
// order limits only.
//
// Endpoints:
//   - GET /api/v1/orderBooks     - market specs with order limits
//   - GET /api/v1/funding-rates  - funding rates for all markets
type Lighter struct {
	client *restClient
}

type lighterOrderBooksResponse struct {
	Code       int                `json:"code"`
	OrderBooks []lighterOrderBook `json:"order_books"`
}

type lighterOrderBook struct {
	MarketID        int    `json:"market_id"`
	Symbol          string `json:"symbol"`
	MarketType      string `json:"market_type"`
	OrderQuoteLimit string `json:"order_quote_limit"`
}

type lighterFundingRatesResponse struct {
	Code         int                  `json:"code"`
	FundingRates []lighterFundingRate `json:"funding_rates"`
}

type lighterFundingRate struct {
	MarketID int             `json:"market_id"`
	Symbol   string          `json:"symbol"`
	Rate     decimal.Decimal `json:"rate"`
}

// NewLighter creates the Lighter connector.
func NewLighter(log logger.LoggerInterface) (*Lighter, error) {
	client, err := newRESTClient("lighter", lighterBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Lighter{client: client}, nil
}

func (l *Lighter) Name() string { return "lighter" }

// FetchFundingRates implements the connector contract.
func (l *Lighter) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := l.fetch(ctx)
	if err != nil {
		return failedSnapshot(l.Name(), start, err)
	}
	return okSnapshot(l.Name(), start, records)
}

func (l *Lighter) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var books lighterOrderBooksResponse
	bookBySymbol := make(map[string]*lighterOrderBook)
	if err := l.client.getJSON(ctx, "/api/v1/orderBooks", nil, &books); err == nil && books.Code == 200 {
		for i := range books.OrderBooks {
			ob := &books.OrderBooks[i]
			if ob.MarketType == "perp" {
				bookBySymbol[ob.Symbol] = ob
			}
		}
	}

	var funding lighterFundingRatesResponse
	if err := l.client.getJSON(ctx, "/api/v1/funding-rates", nil, &funding); err != nil {
		return nil, err
	}
	if funding.Code != 200 || len(funding.FundingRates) == 0 {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(l.Name()),
			apperror.WithContext("funding-rates returned no usable data"))
	}

	now := time.Now().UTC()
	next := domain.NextFundingTime(now, domain.IntervalHourly)

	// The feed repeats symbols for rates Lighter mirrors from other
	// venues; the first entry per symbol is Lighter's own.
	seen := make(map[string]bool, len(funding.FundingRates))
	records := make([]domain.FundingRateRecord, 0, len(funding.FundingRates))
	for _, item := range funding.FundingRates {
		if item.Symbol == "" || seen[item.Symbol] {
			continue
		}
		seen[item.Symbol] = true

		rec := domain.NewRecord(
			domain.UnifiedSymbol(item.Symbol, "USDT", "USDT"),
			l.Name(), item.Rate, domain.IntervalHourly, next)

		if ob := bookBySymbol[item.Symbol]; ob != nil {
			if limit := decPtr(ob.OrderQuoteLimit); limit != nil &&
				limit.LessThanOrEqual(decimal.NewFromInt(lighterMaxOrderCapUSD)) {
				rec.MaxOrderValue = limit
			}
		}

		records = append(records, rec)
	}

	return records, nil
}
