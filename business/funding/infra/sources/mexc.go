package sources

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const mexcBaseURL = "https://contract.mexc.com"

// MEXC connects to the MEXC contract public API.
//
// Endpoints:
//   - GET /api/v1/contract/ticker       - prices, volumes, open interest
//   - GET /api/v1/contract/funding_rate - funding rates in bulk
//   - GET /api/v1/contract/detail       - order limits and leverage
type MEXC struct {
	client *restClient
}

type mexcEnvelope[T any] struct {
	Success bool `json:"success"`
	Data    []T  `json:"data"`
}

type mexcTicker struct {
	Symbol     string          `json:"symbol"`
	FairPrice  decimal.Decimal `json:"fairPrice"`
	IndexPrice decimal.Decimal `json:"indexPrice"`
	LastPrice  decimal.Decimal `json:"lastPrice"`
	Volume24   decimal.Decimal `json:"volume24"`
	HoldVol    decimal.Decimal `json:"holdVol"`
}

type mexcFundingRate struct {
	Symbol         string          `json:"symbol"`
	FundingRate    decimal.Decimal `json:"fundingRate"`
	NextSettleTime int64           `json:"nextSettleTime"`
}

type mexcContractDetail struct {
	Symbol       string          `json:"symbol"`
	MaxVol       decimal.Decimal `json:"maxVol"`
	ContractSize decimal.Decimal `json:"contractSize"`
	MaxLeverage  int             `json:"maxLeverage"`
}

// NewMEXC creates the MEXC connector.
func NewMEXC(log logger.LoggerInterface) (*MEXC, error) {
	client, err := newRESTClient("mexc", mexcBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &MEXC{client: client}, nil
}

func (m *MEXC) Name() string { return "mexc" }

// FetchFundingRates implements the connector contract.
func (m *MEXC) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := m.fetch(ctx)
	if err != nil {
		return failedSnapshot(m.Name(), start, err)
	}
	return okSnapshot(m.Name(), start, records)
}

func (m *MEXC) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var tickers mexcEnvelope[mexcTicker]
	if err := m.client.getJSON(ctx, "/api/v1/contract/ticker", nil, &tickers); err != nil {
		return nil, err
	}
	if !tickers.Success {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(m.Name()), apperror.WithMessage("ticker request unsuccessful"))
	}
	tickerMap := make(map[string]*mexcTicker, len(tickers.Data))
	for i := range tickers.Data {
		tickerMap[tickers.Data[i].Symbol] = &tickers.Data[i]
	}

	var funding mexcEnvelope[mexcFundingRate]
	if err := m.client.getJSON(ctx, "/api/v1/contract/funding_rate", nil, &funding); err != nil {
		return nil, err
	}
	if !funding.Success {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(m.Name()), apperror.WithMessage("funding_rate request unsuccessful"))
	}

	var details mexcEnvelope[mexcContractDetail]
	detailMap := make(map[string]*mexcContractDetail)
	if err := m.client.getJSON(ctx, "/api/v1/contract/detail", nil, &details); err == nil && details.Success {
		for i := range details.Data {
			detailMap[details.Data[i].Symbol] = &details.Data[i]
		}
	}

	records := make([]domain.FundingRateRecord, 0, len(funding.Data))
	for _, item := range funding.Data {
		if !strings.HasSuffix(item.Symbol, "_USDT") {
			continue
		}
		base := strings.TrimSuffix(item.Symbol, "_USDT")
		next := nextFundingOrSchedule(parseUnixTime(item.NextSettleTime), domain.IntervalEightHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			m.Name(), item.FundingRate, domain.IntervalEightHourly, next)

		if t := tickerMap[item.Symbol]; t != nil {
			if t.FairPrice.IsPositive() {
				rec.MarkPrice = domain.DecimalPtr(t.FairPrice)
			} else if t.LastPrice.IsPositive() {
				rec.MarkPrice = domain.DecimalPtr(t.LastPrice)
			}
			if t.IndexPrice.IsPositive() {
				rec.IndexPrice = domain.DecimalPtr(t.IndexPrice)
			}
			if t.Volume24.IsPositive() {
				rec.Volume24h = domain.DecimalPtr(t.Volume24)
			}
			if t.HoldVol.IsPositive() {
				rec.OpenInterest = domain.DecimalPtr(t.HoldVol)
			}
		}

		if d := detailMap[item.Symbol]; d != nil {
			if d.MaxVol.IsPositive() && rec.MarkPrice != nil {
				size := d.ContractSize
				if !size.IsPositive() {
					size = decimal.NewFromInt(1)
				}
				rec.MaxOrderValue = domain.DecimalPtr(d.MaxVol.Mul(size).Mul(*rec.MarkPrice))
			}
			if d.MaxLeverage > 0 {
				rec.MaxLeverage = domain.IntPtr(d.MaxLeverage)
			}
		}

		records = append(records, rec)
	}

	return records, nil
}
