package sources

import (
	"context"
	"strings"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const binanceBaseURL = "https://fapi.binance.com"

// Binance connects to the Binance USDT-M futures public API.
//
// Endpoints:
//   - GET /fapi/v1/premiumIndex  - mark prices and funding rates
//   - GET /fapi/v1/ticker/24hr   - 24h quote volumes
type Binance struct {
	client *restClient
}

type binancePremiumIndex struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type binanceTicker struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// NewBinance creates the Binance connector.
func NewBinance(log logger.LoggerInterface) (*Binance, error) {
	client, err := newRESTClient("binance", binanceBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Binance{client: client}, nil
}

func (b *Binance) Name() string { return "binance" }

// FetchFundingRates implements the connector contract.
func (b *Binance) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := b.fetch(ctx)
	if err != nil {
		return failedSnapshot(b.Name(), start, err)
	}
	return okSnapshot(b.Name(), start, records)
}

func (b *Binance) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var premium []binancePremiumIndex
	if err := b.client.getJSON(ctx, "/fapi/v1/premiumIndex", nil, &premium); err != nil {
		return nil, err
	}

	var tickers []binanceTicker
	volumes := make(map[string]*binanceTicker)
	if err := b.client.getJSON(ctx, "/fapi/v1/ticker/24hr", nil, &tickers); err == nil {
		for i := range tickers {
			volumes[tickers[i].Symbol] = &tickers[i]
		}
	}

	records := make([]domain.FundingRateRecord, 0, len(premium))
	for _, item := range premium {
		if !strings.HasSuffix(item.Symbol, "USDT") {
			continue
		}
		rate, ok := dec(item.LastFundingRate)
		if !ok {
			continue
		}

		base := strings.TrimSuffix(item.Symbol, "USDT")
		next := nextFundingOrSchedule(parseUnixTime(item.NextFundingTime), domain.IntervalEightHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			b.Name(), rate, domain.IntervalEightHourly, next)
		rec.MarkPrice = decPtr(item.MarkPrice)
		rec.IndexPrice = decPtr(item.IndexPrice)
		if t := volumes[item.Symbol]; t != nil {
			rec.Volume24h = decPtr(t.QuoteVolume)
		}

		records = append(records, rec)
	}

	return records, nil
}
