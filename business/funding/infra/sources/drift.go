package sources

import (
	"context"
	"strings"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const driftBaseURL = "https://data.api.drift.trade"

// Drift connects to the Drift Protocol data API (Solana perpetuals DEX).
// One contracts call carries everything.
//
// Drift publishes funding rates already in percent: -0.019488 means
// -0.019488% per hour, so the decimal rate is the published value / 100.
type Drift struct {
	client *restClient
}

type driftContractsResponse struct {
	Contracts []driftContract `json:"contracts"`
}

type driftContract struct {
	TickerID                 string `json:"ticker_id"`
	ProductType              string `json:"product_type"`
	FundingRate              string `json:"funding_rate"`
	NextFundingRate          string `json:"next_funding_rate"`
	NextFundingRateTimestamp string `json:"next_funding_rate_timestamp"`
	LastPrice                string `json:"last_price"`
	IndexPrice               string `json:"index_price"`
	QuoteVolume              string `json:"quote_volume"`
	OpenInterest             string `json:"open_interest"`
}

// NewDrift creates the Drift connector.
func NewDrift(log logger.LoggerInterface) (*Drift, error) {
	client, err := newRESTClient("drift", driftBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Drift{client: client}, nil
}

func (d *Drift) Name() string { return "drift" }

// FetchFundingRates implements the connector contract.
func (d *Drift) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := d.fetch(ctx)
	if err != nil {
		return failedSnapshot(d.Name(), start, err)
	}
	return okSnapshot(d.Name(), start, records)
}

func (d *Drift) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var resp driftContractsResponse
	if err := d.client.getJSON(ctx, "/contracts", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Contracts) == 0 {
		return nil, apperror.New(apperror.CodeMalformedPayload,
			apperror.WithSource(d.Name()),
			apperror.WithContext("contracts response carried no contracts"))
	}

	records := make([]domain.FundingRateRecord, 0, len(resp.Contracts))
	for _, contract := range resp.Contracts {
		if contract.ProductType != "PERP" || !strings.Contains(contract.TickerID, "-PERP") {
			continue
		}

		// Prefer the upcoming rate; fall back to the last settled one.
		ratePercent, ok := dec(contract.NextFundingRate)
		if !ok || contract.NextFundingRate == "N/A" {
			ratePercent, ok = dec(contract.FundingRate)
		}
		if !ok {
			continue
		}
		rate := ratePercent.Div(hundredDec)

		// SOL-PERP -> SOL; 1M-prefixed tickers align with other venues'
		// 1000-prefixed rebased contracts.
		base := strings.TrimSuffix(contract.TickerID, "-PERP")
		if strings.HasPrefix(base, "1M") {
			base = "1000" + base[2:]
		}

		next := nextFundingOrSchedule(parseUnixTimeString(contract.NextFundingRateTimestamp), domain.IntervalHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			d.Name(), rate, domain.IntervalHourly, next)
		rec.MarkPrice = decPtr(contract.LastPrice)
		rec.IndexPrice = decPtr(contract.IndexPrice)
		rec.Volume24h = decPtr(contract.QuoteVolume)
		if oi := decPtr(contract.OpenInterest); oi != nil && rec.MarkPrice != nil {
			rec.OpenInterest = domain.DecimalPtr(oi.Mul(*rec.MarkPrice))
		}

		records = append(records, rec)
	}

	return records, nil
}
