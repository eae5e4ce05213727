package sources

import (
	"context"
	"strings"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const (
	bitgetBaseURL = "https://api.bitget.com"
	bitgetOKCode  = "00000"
)

// Bitget connects to the Bitget V2 mix-market public API.
//
// Endpoints:
//   - GET /api/v2/mix/market/tickers           - prices, volumes, open interest
//   - GET /api/v2/mix/market/current-fund-rate - funding rates in bulk
type Bitget struct {
	client *restClient
}

type bitgetEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type bitgetTicker struct {
	Symbol          string `json:"symbol"`
	LastPr          string `json:"lastPr"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	USDTVolume      string `json:"usdtVolume"`
	OpenInterestUSD string `json:"openInterestUsd"`
}

type bitgetFundRate struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
}

// NewBitget creates the Bitget connector.
func NewBitget(log logger.LoggerInterface) (*Bitget, error) {
	client, err := newRESTClient("bitget", bitgetBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Bitget{client: client}, nil
}

func (b *Bitget) Name() string { return "bitget" }

// FetchFundingRates implements the connector contract.
func (b *Bitget) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := b.fetch(ctx)
	if err != nil {
		return failedSnapshot(b.Name(), start, err)
	}
	return okSnapshot(b.Name(), start, records)
}

func (b *Bitget) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	params := map[string]string{"productType": "USDT-FUTURES"}

	var tickers bitgetEnvelope[bitgetTicker]
	if err := b.client.getJSON(ctx, "/api/v2/mix/market/tickers", params, &tickers); err != nil {
		return nil, err
	}
	if tickers.Code != bitgetOKCode {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(b.Name()),
			apperror.WithMessage("tickers: code "+tickers.Code+" "+tickers.Msg))
	}

	var funding bitgetEnvelope[bitgetFundRate]
	fundingMap := make(map[string]string)
	if err := b.client.getJSON(ctx, "/api/v2/mix/market/current-fund-rate", params, &funding); err == nil && funding.Code == bitgetOKCode {
		for _, item := range funding.Data {
			fundingMap[item.Symbol] = item.FundingRate
		}
	}

	records := make([]domain.FundingRateRecord, 0, len(tickers.Data))
	for _, ticker := range tickers.Data {
		if !strings.HasSuffix(ticker.Symbol, "USDT") {
			continue
		}
		rate, ok := dec(fundingMap[ticker.Symbol])
		if !ok {
			continue
		}

		base := strings.TrimSuffix(ticker.Symbol, "USDT")
		// Bitget does not publish the next settlement; use the schedule.
		next := domain.NextFundingTime(time.Now().UTC(), domain.IntervalEightHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			b.Name(), rate, domain.IntervalEightHourly, next)
		rec.MarkPrice = decPtr(ticker.MarkPrice)
		if rec.MarkPrice == nil {
			rec.MarkPrice = decPtr(ticker.LastPr)
		}
		rec.IndexPrice = decPtr(ticker.IndexPrice)
		rec.Volume24h = decPtr(ticker.USDTVolume)
		rec.OpenInterest = decPtr(ticker.OpenInterestUSD)

		records = append(records, rec)
	}

	return records, nil
}
