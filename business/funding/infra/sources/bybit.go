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

const bybitBaseURL = "https://api.bybit.com"

// Bybit connects to the Bybit V5 public API. One tickers call carries
// funding rates, prices, volumes and open interest for every linear
// perpetual.
type Bybit struct {
	client *restClient
}

type bybitTickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []bybitTicker `json:"list"`
	} `json:"result"`
}

type bybitTicker struct {
	Symbol            string `json:"symbol"`
	FundingRate       string `json:"fundingRate"`
	MarkPrice         string `json:"markPrice"`
	IndexPrice        string `json:"indexPrice"`
	NextFundingTime   string `json:"nextFundingTime"`
	Turnover24h       string `json:"turnover24h"`
	OpenInterestValue string `json:"openInterestValue"`
}

// NewBybit creates the Bybit connector.
func NewBybit(log logger.LoggerInterface) (*Bybit, error) {
	client, err := newRESTClient("bybit", bybitBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Bybit{client: client}, nil
}

func (b *Bybit) Name() string { return "bybit" }

// FetchFundingRates implements the connector contract.
func (b *Bybit) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := b.fetch(ctx)
	if err != nil {
		return failedSnapshot(b.Name(), start, err)
	}
	return okSnapshot(b.Name(), start, records)
}

func (b *Bybit) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var resp bybitTickersResponse
	if err := b.client.getJSON(ctx, "/v5/market/tickers", map[string]string{"category": "linear"}, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(b.Name()),
			apperror.WithMessage(fmt.Sprintf("retCode %d: %s", resp.RetCode, resp.RetMsg)))
	}

	records := make([]domain.FundingRateRecord, 0, len(resp.Result.List))
	for _, item := range resp.Result.List {
		if !strings.HasSuffix(item.Symbol, "USDT") {
			continue
		}
		rate, ok := dec(item.FundingRate)
		if !ok {
			continue
		}

		base := strings.TrimSuffix(item.Symbol, "USDT")
		next := nextFundingOrSchedule(parseUnixTimeString(item.NextFundingTime), domain.IntervalEightHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			b.Name(), rate, domain.IntervalEightHourly, next)
		rec.MarkPrice = decPtr(item.MarkPrice)
		rec.IndexPrice = decPtr(item.IndexPrice)
		rec.Volume24h = decPtr(item.Turnover24h)
		rec.OpenInterest = decPtr(item.OpenInterestValue)

		records = append(records, rec)
	}

	return records, nil
}
