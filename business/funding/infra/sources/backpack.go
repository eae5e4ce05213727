package sources

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const backpackBaseURL = "https://api.backpack.exchange"

// Backpack connects to the Backpack Exchange public API.
//
// Endpoints:
//   - GET /api/v1/markets    - market specs, order limits, margin function
//   - GET /api/v1/markPrices - mark prices with funding rates
//   - GET /api/v1/tickers    - volumes
//
// Perpetual symbols look like SOL_USDC_PERP; funding settles hourly.
type Backpack struct {
	client *restClient
}

type backpackMarket struct {
	Symbol            string `json:"symbol"`
	MarketType        string `json:"marketType"`
	OpenInterestLimit string `json:"openInterestLimit"`
	IMFFunction       struct {
		Base string `json:"base"`
	} `json:"imfFunction"`
}

type backpackMarkPrice struct {
	Symbol               string `json:"symbol"`
	FundingRate          string `json:"fundingRate"`
	MarkPrice            string `json:"markPrice"`
	IndexPrice           string `json:"indexPrice"`
	NextFundingTimestamp int64  `json:"nextFundingTimestamp"`
}

type backpackTicker struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
	Volume      string `json:"volume"`
}

// NewBackpack creates the Backpack connector.
func NewBackpack(log logger.LoggerInterface) (*Backpack, error) {
	client, err := newRESTClient("backpack", backpackBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Backpack{client: client}, nil
}

func (b *Backpack) Name() string { return "backpack" }

// FetchFundingRates implements the connector contract.
func (b *Backpack) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := b.fetch(ctx)
	if err != nil {
		return failedSnapshot(b.Name(), start, err)
	}
	return okSnapshot(b.Name(), start, records)
}

func (b *Backpack) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var markets []backpackMarket
	marketMap := make(map[string]*backpackMarket)
	if err := b.client.getJSON(ctx, "/api/v1/markets", nil, &markets); err == nil {
		for i := range markets {
			m := &markets[i]
			if strings.Contains(m.Symbol, "_PERP") || m.MarketType == "PERP" {
				marketMap[m.Symbol] = m
			}
		}
	}

	var markPrices []backpackMarkPrice
	if err := b.client.getJSON(ctx, "/api/v1/markPrices", nil, &markPrices); err != nil {
		return nil, err
	}

	var tickers []backpackTicker
	tickerMap := make(map[string]*backpackTicker)
	if err := b.client.getJSON(ctx, "/api/v1/tickers", nil, &tickers); err == nil {
		for i := range tickers {
			tickerMap[tickers[i].Symbol] = &tickers[i]
		}
	}

	records := make([]domain.FundingRateRecord, 0, len(markPrices))
	for _, item := range markPrices {
		if !strings.Contains(item.Symbol, "_PERP") {
			continue
		}
		rate, ok := dec(item.FundingRate)
		if !ok {
			continue
		}

		// SOL_USDC_PERP -> SOL
		base := strings.SplitN(item.Symbol, "_", 2)[0]
		next := nextFundingOrSchedule(parseUnixTime(item.NextFundingTimestamp), domain.IntervalHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			b.Name(), rate, domain.IntervalHourly, next)
		rec.MarkPrice = decPtr(item.MarkPrice)
		rec.IndexPrice = decPtr(item.IndexPrice)

		if t := tickerMap[item.Symbol]; t != nil {
			rec.Volume24h = decPtr(t.QuoteVolume)
			if rec.Volume24h == nil {
				rec.Volume24h = decPtr(t.Volume)
			}
		}

		if m := marketMap[item.Symbol]; m != nil {
			if limit := decPtr(m.OpenInterestLimit); limit != nil && rec.MarkPrice != nil {
				rec.MaxOrderValue = domain.DecimalPtr(limit.Mul(*rec.MarkPrice))
			}
			// Max leverage is the inverse of the initial margin base.
			if imfBase := decPtr(m.IMFFunction.Base); imfBase != nil {
				lev := decimal.NewFromInt(1).Div(*imfBase).IntPart()
				if lev > 0 {
					rec.MaxLeverage = domain.IntPtr(int(lev))
				}
			}
		}

		records = append(records, rec)
	}

	return records, nil
}
