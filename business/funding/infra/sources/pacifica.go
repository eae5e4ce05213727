package sources

import (
	"context"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const pacificaBaseURL = "https://api.pacifica.fi"

// Pacifica connects to the Pacifica exchange public API.
//
// Endpoints:
//   - GET /api/v1/info        - market specs, order limits, leverage
//   - GET /api/v1/info/prices - prices, hourly funding rates, volumes
type Pacifica struct {
	client *restClient
}

type pacificaInfoResponse struct {
	Success bool             `json:"success"`
	Data    []pacificaMarket `json:"data"`
}

type pacificaMarket struct {
	Symbol       string `json:"symbol"`
	MaxOrderSize string `json:"max_order_size"`
	MaxLeverage  int    `json:"max_leverage"`
}

type pacificaPricesResponse struct {
	Success bool            `json:"success"`
	Data    []pacificaPrice `json:"data"`
}

type pacificaPrice struct {
	Symbol       string `json:"symbol"`
	Funding      string `json:"funding"`
	Mark         string `json:"mark"`
	Oracle       string `json:"oracle"`
	Volume24h    string `json:"volume_24h"`
	OpenInterest string `json:"open_interest"`
}

// NewPacifica creates the Pacifica connector.
func NewPacifica(log logger.LoggerInterface) (*Pacifica, error) {
	client, err := newRESTClient("pacifica", pacificaBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Pacifica{client: client}, nil
}

func (p *Pacifica) Name() string { return "pacifica" }

// FetchFundingRates implements the connector contract.
func (p *Pacifica) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := p.fetch(ctx)
	if err != nil {
		return failedSnapshot(p.Name(), start, err)
	}
	return okSnapshot(p.Name(), start, records)
}

func (p *Pacifica) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var info pacificaInfoResponse
	marketMap := make(map[string]*pacificaMarket)
	if err := p.client.getJSON(ctx, "/api/v1/info", nil, &info); err == nil && info.Success {
		for i := range info.Data {
			marketMap[info.Data[i].Symbol] = &info.Data[i]
		}
	}

	var prices pacificaPricesResponse
	if err := p.client.getJSON(ctx, "/api/v1/info/prices", nil, &prices); err != nil {
		return nil, err
	}
	if !prices.Success {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(p.Name()), apperror.WithMessage("prices request unsuccessful"))
	}

	now := time.Now().UTC()
	next := domain.NextFundingTime(now, domain.IntervalHourly)

	records := make([]domain.FundingRateRecord, 0, len(prices.Data))
	for _, item := range prices.Data {
		if item.Symbol == "" {
			continue
		}
		rate, ok := dec(item.Funding)
		if !ok {
			continue
		}

		rec := domain.NewRecord(
			domain.UnifiedSymbol(item.Symbol, "USDT", "USDT"),
			p.Name(), rate, domain.IntervalHourly, next)
		rec.MarkPrice = decPtr(item.Mark)
		rec.IndexPrice = decPtr(item.Oracle)
		rec.Volume24h = decPtr(item.Volume24h)
		// Open interest is published in base units.
		if oi := decPtr(item.OpenInterest); oi != nil && rec.MarkPrice != nil {
			rec.OpenInterest = domain.DecimalPtr(oi.Mul(*rec.MarkPrice))
		}

		if m := marketMap[item.Symbol]; m != nil {
			rec.MaxOrderValue = decPtr(m.MaxOrderSize)
			if m.MaxLeverage > 0 {
				rec.MaxLeverage = domain.IntPtr(m.MaxLeverage)
			}
		}

		records = append(records, rec)
	}

	return records, nil
}
