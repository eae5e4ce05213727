package sources

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const gateBaseURL = "https://api.gateio.ws/api/v4"

// Gate connects to the Gate.io futures public API. A single contracts call
// carries funding rates, prices, volumes and the per-contract funding
// interval.
type Gate struct {
	client *restClient
}

type gateContract struct {
	Name             string  `json:"name"`
	FundingRate      string  `json:"funding_rate"`
	MarkPrice        string  `json:"mark_price"`
	IndexPrice       string  `json:"index_price"`
	Volume24hUSD     string  `json:"volume_24h_usd"`
	TradeSize        int64   `json:"trade_size"`
	PositionSize     int64   `json:"position_size"`
	FundingInterval  int     `json:"funding_interval"`
	FundingNextApply float64 `json:"funding_next_apply"`
}

// NewGate creates the Gate.io connector.
func NewGate(log logger.LoggerInterface) (*Gate, error) {
	client, err := newRESTClient("gate", gateBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Gate{client: client}, nil
}

func (g *Gate) Name() string { return "gate" }

// FetchFundingRates implements the connector contract.
func (g *Gate) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := g.fetch(ctx)
	if err != nil {
		return failedSnapshot(g.Name(), start, err)
	}
	return okSnapshot(g.Name(), start, records)
}

func (g *Gate) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var contracts []gateContract
	if err := g.client.getJSON(ctx, "/futures/usdt/contracts", nil, &contracts); err != nil {
		return nil, err
	}

	records := make([]domain.FundingRateRecord, 0, len(contracts))
	for _, contract := range contracts {
		if !strings.HasSuffix(contract.Name, "_USDT") {
			continue
		}
		rate, ok := dec(contract.FundingRate)
		if !ok {
			continue
		}

		base := strings.TrimSuffix(contract.Name, "_USDT")

		// Funding interval is published in seconds.
		intervalHours := contract.FundingInterval / 3600
		if intervalHours <= 0 {
			intervalHours = domain.IntervalEightHourly
		}

		next := nextFundingOrSchedule(parseUnixTime(int64(contract.FundingNextApply)), intervalHours)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			g.Name(), rate, intervalHours, next)
		rec.MarkPrice = decPtr(contract.MarkPrice)
		rec.IndexPrice = decPtr(contract.IndexPrice)

		rec.Volume24h = decPtr(contract.Volume24hUSD)
		if rec.Volume24h == nil && contract.TradeSize > 0 && rec.MarkPrice != nil {
			// Fall back to base-denominated trade size times mark price.
			v := decimal.NewFromInt(contract.TradeSize).Mul(*rec.MarkPrice)
			rec.Volume24h = &v
		}

		if contract.PositionSize > 0 {
			oi := decimal.NewFromInt(contract.PositionSize)
			rec.OpenInterest = &oi
		}

		records = append(records, rec)
	}

	return records, nil
}
