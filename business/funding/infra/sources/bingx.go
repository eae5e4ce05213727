package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const bingxBaseURL = "https://open-api.bingx.com"

// BingX connects to the BingX perpetual swap public API.
//
// Endpoints:
//   - GET /openApi/swap/v2/quote/premiumIndex - funding rates and prices
//   - GET /openApi/swap/v2/quote/ticker       - volumes and open interest
type BingX struct {
	client *restClient
}

type bingxEnvelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type bingxPremiumIndex struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type bingxTicker struct {
	Symbol       string `json:"symbol"`
	QuoteVolume  string `json:"quoteVolume"`
	OpenInterest string `json:"openInterest"`
}

// NewBingX creates the BingX connector.
func NewBingX(log logger.LoggerInterface) (*BingX, error) {
	client, err := newRESTClient("bingx", bingxBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &BingX{client: client}, nil
}

func (b *BingX) Name() string { return "bingx" }

// FetchFundingRates implements the connector contract.
func (b *BingX) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := b.fetch(ctx)
	if err != nil {
		return failedSnapshot(b.Name(), start, err)
	}
	return okSnapshot(b.Name(), start, records)
}

func (b *BingX) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var premium bingxEnvelope[bingxPremiumIndex]
	if err := b.client.getJSON(ctx, "/openApi/swap/v2/quote/premiumIndex", nil, &premium); err != nil {
		return nil, err
	}
	if premium.Code != 0 {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(b.Name()),
			apperror.WithMessage(fmt.Sprintf("premiumIndex: code %d %s", premium.Code, premium.Msg)))
	}

	var tickers bingxEnvelope[bingxTicker]
	tickerMap := make(map[string]*bingxTicker)
	if err := b.client.getJSON(ctx, "/openApi/swap/v2/quote/ticker", nil, &tickers); err == nil && tickers.Code == 0 {
		for i := range tickers.Data {
			tickerMap[tickers.Data[i].Symbol] = &tickers.Data[i]
		}
	}

	records := make([]domain.FundingRateRecord, 0, len(premium.Data))
	for _, item := range premium.Data {
		// BingX symbols look like BTC-USDT.
		if !strings.HasSuffix(item.Symbol, "-USDT") {
			continue
		}
		rate, ok := dec(item.LastFundingRate)
		if !ok {
			continue
		}

		base := strings.TrimSuffix(item.Symbol, "-USDT")
		next := nextFundingOrSchedule(parseUnixTime(item.NextFundingTime), domain.IntervalEightHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			b.Name(), rate, domain.IntervalEightHourly, next)
		rec.MarkPrice = decPtr(item.MarkPrice)
		rec.IndexPrice = decPtr(item.IndexPrice)
		if t := tickerMap[item.Symbol]; t != nil {
			rec.Volume24h = decPtr(t.QuoteVolume)
			rec.OpenInterest = decPtr(t.OpenInterest)
		}

		records = append(records, rec)
	}

	return records, nil
}
