package domain

import (
	"sort"
	"time"
)

// SourceSnapshot is the result envelope of one connector invocation.
// Err set implies Records is empty; a failed snapshot is never treated as
// usable data and never invalidates other sources in the same round.
type SourceSnapshot struct {
	Source    string
	Records   []FundingRateRecord
	FetchedAt time.Time
	Elapsed   time.Duration
	Err       error
}

// OK reports whether the snapshot carries usable data.
func (s SourceSnapshot) OK() bool {
	return s.Err == nil
}

// RecordBySymbol returns the record for the given unified symbol, if present.
func (s SourceSnapshot) RecordBySymbol(symbol string) (FundingRateRecord, bool) {
	for _, r := range s.Records {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return FundingRateRecord{}, false
}

// TopPositive returns up to n positive-rate records, highest first. Fewer
// than n positive rates yields a shorter list, never negative-rate padding.
func (s SourceSnapshot) TopPositive(n int) []FundingRateRecord {
	return s.topBy(n,
		func(r FundingRateRecord) bool { return r.Rate.IsPositive() },
		func(a, b FundingRateRecord) bool { return a.Rate.GreaterThan(b.Rate) })
}

// TopNegative returns up to n negative-rate records, lowest first.
func (s SourceSnapshot) TopNegative(n int) []FundingRateRecord {
	return s.topBy(n,
		func(r FundingRateRecord) bool { return r.Rate.IsNegative() },
		func(a, b FundingRateRecord) bool { return a.Rate.LessThan(b.Rate) })
}

func (s SourceSnapshot) topBy(n int, keep func(FundingRateRecord) bool, less func(a, b FundingRateRecord) bool) []FundingRateRecord {
	out := make([]FundingRateRecord, 0, len(s.Records))
	for _, r := range s.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// AggregatedSnapshot is one fetch round across all requested sources, held
// by the cache until replaced. A stale snapshot is still servable as
// last-known-good.
type AggregatedSnapshot struct {
	Snapshots []SourceSnapshot
	FetchedAt time.Time
	TTL       time.Duration
}

// IsStale reports whether the snapshot has outlived its TTL at now.
func (a AggregatedSnapshot) IsStale(now time.Time) bool {
	return now.Sub(a.FetchedAt) > a.TTL
}

// Age returns how old the snapshot is at now.
func (a AggregatedSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(a.FetchedAt)
}

// Healthy returns the snapshots that carry usable data.
func (a AggregatedSnapshot) Healthy() []SourceSnapshot {
	out := make([]SourceSnapshot, 0, len(a.Snapshots))
	for _, s := range a.Snapshots {
		if s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Failed returns the snapshots that ended in an error.
func (a AggregatedSnapshot) Failed() []SourceSnapshot {
	out := make([]SourceSnapshot, 0)
	for _, s := range a.Snapshots {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// TotalRecords counts records across all healthy snapshots.
func (a AggregatedSnapshot) TotalRecords() int {
	n := 0
	for _, s := range a.Snapshots {
		if s.OK() {
			n += len(s.Records)
		}
	}
	return n
}

// Empty reports whether no source returned usable data.
func (a AggregatedSnapshot) Empty() bool {
	return a.TotalRecords() == 0
}
