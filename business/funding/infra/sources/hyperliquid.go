package sources

import (
	"context"
	"encoding/json"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const hyperliquidBaseURL = "https://api.hyperliquid.xyz"

// Hyperliquid connects to the Hyperliquid DEX info API. One POST returns a
// two-element array: asset metadata and per-asset market contexts, joined
// by index. Funding settles hourly and is quoted in USD.
type Hyperliquid struct {
	client *restClient
}

type hyperliquidMeta struct {
	Universe []hyperliquidAsset `json:"universe"`
}

type hyperliquidAsset struct {
	Name        string `json:"name"`
	MaxLeverage int    `json:"maxLeverage"`
}

type hyperliquidAssetCtx struct {
	Funding      string `json:"funding"`
	MarkPx       string `json:"markPx"`
	OraclePx     string `json:"oraclePx"`
	DayNtlVlm    string `json:"dayNtlVlm"`
	OpenInterest string `json:"openInterest"`
}

// NewHyperliquid creates the Hyperliquid connector.
func NewHyperliquid(log logger.LoggerInterface) (*Hyperliquid, error) {
	client, err := newRESTClient("hyperliquid", hyperliquidBaseURL, log)
	if err != nil {
		return nil, err
	}
	return &Hyperliquid{client: client}, nil
}

func (h *Hyperliquid) Name() string { return "hyperliquid" }

// FetchFundingRates implements the connector contract.
func (h *Hyperliquid) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	start := time.Now()
	records, err := h.fetch(ctx)
	if err != nil {
		return failedSnapshot(h.Name(), start, err)
	}
	return okSnapshot(h.Name(), start, records)
}

func (h *Hyperliquid) fetch(ctx context.Context) ([]domain.FundingRateRecord, error) {
	var raw []json.RawMessage
	body := map[string]string{"type": "metaAndAssetCtxs"}
	if err := h.client.postJSON(ctx, "/info", body, &raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, apperror.New(apperror.CodeMalformedPayload,
			apperror.WithSource(h.Name()),
			apperror.WithContext("metaAndAssetCtxs returned fewer than two elements"))
	}

	var meta hyperliquidMeta
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return nil, apperror.New(apperror.CodeMalformedPayload,
			apperror.WithSource(h.Name()), apperror.WithCause(err))
	}
	var ctxs []hyperliquidAssetCtx
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return nil, apperror.New(apperror.CodeMalformedPayload,
			apperror.WithSource(h.Name()), apperror.WithCause(err))
	}

	now := time.Now().UTC()
	next := domain.NextFundingTime(now, domain.IntervalHourly)

	records := make([]domain.FundingRateRecord, 0, len(meta.Universe))
	for i, asset := range meta.Universe {
		if asset.Name == "" || i >= len(ctxs) {
			continue
		}
		assetCtx := ctxs[i]

		rate, ok := dec(assetCtx.Funding)
		if !ok {
			continue
		}

		rec := domain.NewRecord(
			domain.UnifiedSymbol(asset.Name, "USD", "USD"),
			h.Name(), rate, domain.IntervalHourly, next)
		rec.MarkPrice = decPtr(assetCtx.MarkPx)
		rec.IndexPrice = decPtr(assetCtx.OraclePx)
		rec.Volume24h = decPtr(assetCtx.DayNtlVlm)
		// Open interest is published in base units.
		if oi := decPtr(assetCtx.OpenInterest); oi != nil && rec.MarkPrice != nil {
			rec.OpenInterest = domain.DecimalPtr(oi.Mul(*rec.MarkPrice))
		}
		if asset.MaxLeverage > 0 {
			rec.MaxLeverage = domain.IntPtr(asset.MaxLeverage)
		}

		records = append(records, rec)
	}

	return records, nil
}
