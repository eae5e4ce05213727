package sources

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
	"github.com/perpwatch/funding-radar/internal/ratelimit"
)

const (
	okxBaseURL = "https://www.okx.com"

	// Funding rates are per-instrument on OKX, so the connector fans out
	// one request per swap, bounded in flight and paced under the venue's
	// public rate limit.
	okxMaxInFlight       = 20
	okxRequestsPerMinute = 600
)

// OKX connects to the OKX V5 public API.
//
// Endpoints:
//   - GET /api/v5/public/instruments  - all SWAP instruments
//   - GET /api/v5/market/tickers      - prices and volumes
//   - GET /api/v5/public/funding-rate - per-instrument funding rate
type OKX struct {
	client  *restClient
	limiter *ratelimit.Limiter
}

type okxEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type okxInstrument struct {
	InstID    string `json:"instId"`
	SettleCcy string `json:"settleCcy"`
	State     string `json:"state"`
}

type okxTicker struct {
	InstID   string `json:"instId"`
	Last     string `json:"last"`
	VolCcy24 string `json:"volCcy24h"`
}

type okxFundingRate struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

// NewOKX creates the OKX connector.
func NewOKX(log logger.LoggerInterface) (*OKX, error) {
	client, err := newRESTClient("okx", okxBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &OKX{
		client:  client,
		limiter: ratelimit.New(okxRequestsPerMinute),
	}, nil
}

func (o *OKX) Name() string { return "okx" }

// FetchFundingRates implements the connector contract.
func (o *OKX) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := o.fetch(ctx)
	if err != nil {
		return failedSnapshot(o.Name(), start, err)
	}
	return okSnapshot(o.Name(), start, records)
}

func (o *OKX) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var instruments okxEnvelope[okxInstrument]
	if err := o.client.getJSON(ctx, "/api/v5/public/instruments", map[string]string{"instType": "SWAP"}, &instruments); err != nil {
		return nil, err
	}
	if instruments.Code != "0" {
		return nil, apperror.New(apperror.CodeSourceAPIError,
			apperror.WithSource(o.Name()),
			apperror.WithMessage("instruments: code "+instruments.Code+" "+instruments.Msg))
	}

	swaps := make([]okxInstrument, 0, len(instruments.Data))
	for _, inst := range instruments.Data {
		if inst.SettleCcy == "USDT" && inst.State == "live" {
			swaps = append(swaps, inst)
		}
	}

	var tickers okxEnvelope[okxTicker]
	tickerMap := make(map[string]*okxTicker)
	if err := o.client.getJSON(ctx, "/api/v5/market/tickers", map[string]string{"instType": "SWAP"}, &tickers); err == nil && tickers.Code == "0" {
		for i := range tickers.Data {
			tickerMap[tickers.Data[i].InstID] = &tickers.Data[i]
		}
	}

	// One funding-rate call per instrument, paced and bounded.
	funding := make([]*okxFundingRate, len(swaps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(okxMaxInFlight)
	for i, inst := range swaps {
		g.Go(func() error {
			if err := o.limiter.Wait(gctx); err != nil {
				return nil
			}
			var resp okxEnvelope[okxFundingRate]
			err := o.client.getJSON(gctx, "/api/v5/public/funding-rate", map[string]string{"instId": inst.InstID}, &resp)
			if err == nil && resp.Code == "0" && len(resp.Data) > 0 {
				funding[i] = &resp.Data[0]
			}
			// A missing funding rate only skips this instrument.
			return nil
		})
	}
	_ = g.Wait()

	records := make([]domain.FundingRateRecord, 0, len(swaps))
	for i, inst := range swaps {
		// BTC-USDT-SWAP -> BTC
		parts := strings.Split(inst.InstID, "-")
		if len(parts) < 2 {
			continue
		}
		base := parts[0]

		fr := funding[i]
		if fr == nil {
			continue
		}
		rate, ok := dec(fr.FundingRate)
		if !ok {
			continue
		}

		next := nextFundingOrSchedule(parseUnixTimeString(fr.NextFundingTime), domain.IntervalEightHourly)

		rec := domain.NewRecord(
			domain.UnifiedSymbol(base, "USDT", "USDT"),
			o.Name(), rate, domain.IntervalEightHourly, next)
		if t := tickerMap[inst.InstID]; t != nil {
			rec.MarkPrice = decPtr(t.Last)
			rec.Volume24h = decPtr(t.VolCcy24)
		}

		records = append(records, rec)
	}

	return records, nil
}
