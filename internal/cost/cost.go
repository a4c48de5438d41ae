// Package cost converts engine-reported token usage into monetary cost
// and accumulates session totals, deduplicating by message identity.
package cost

import (
	"sync"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// RateTable holds USD cost per 1,000 tokens for each counter.
type RateTable struct {
	InputPer1K         float64 `mapstructure:"input_per_1k"`
	OutputPer1K        float64 `mapstructure:"output_per_1k"`
	CacheCreationPer1K float64 `mapstructure:"cache_creation_per_1k"`
	CacheReadPer1K     float64 `mapstructure:"cache_read_per_1k"`
}

// DefaultRates mirror Claude Sonnet pricing.
var DefaultRates = RateTable{
	InputPer1K:         0.003,
	OutputPer1K:        0.015,
	CacheCreationPer1K: 0.00375,
	CacheReadPer1K:     0.0003,
}

// Cost computes the weighted sum over the four usage counters.
func (r RateTable) Cost(u models.Usage) float64 {
	return float64(u.InputTokens)/1000*r.InputPer1K +
		float64(u.OutputTokens)/1000*r.OutputPer1K +
		float64(u.CacheCreationTokens)/1000*r.CacheCreationPer1K +
		float64(u.CacheReadTokens)/1000*r.CacheReadPer1K
}

// Entry is one recorded usage ledger item.
type Entry struct {
	// MessageID is the identity the ledger deduplicates on.
	MessageID string `json:"message_id"`
	// Usage is the recorded token counters.
	Usage models.Usage `json:"usage"`
	// Cost is the computed cost for this entry in USD.
	Cost float64 `json:"cost"`
	// RecordedAt is when the entry was folded in.
	RecordedAt time.Time `json:"recorded_at"`
}

// Aggregator accumulates usage into a ledger. Each distinct message
// identity is folded into the totals at most once, so the same terminal
// engine message is never charged twice even if observed repeatedly.
type Aggregator struct {
	mu      sync.RWMutex
	rates   RateTable
	entries []Entry
	seen    map[string]bool
}

// NewAggregator creates an Aggregator using the given rate table.
func NewAggregator(rates RateTable) *Aggregator {
	return &Aggregator{
		rates: rates,
		seen:  make(map[string]bool),
	}
}

// Record folds a usage report into the ledger. If the message identity
// was already recorded it is a no-op and returns (nil, false).
func (a *Aggregator) Record(messageID string, usage models.Usage) (*Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.seen[messageID] {
		return nil, false
	}
	a.seen[messageID] = true

	entry := Entry{
		MessageID:  messageID,
		Usage:      usage,
		Cost:       a.rates.Cost(usage),
		RecordedAt: time.Now(),
	}
	a.entries = append(a.entries, entry)
	return &entry, true
}

// TotalCost folds the ledger's costs additively.
func (a *Aggregator) TotalCost() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var total float64
	for _, e := range a.entries {
		total += e.Cost
	}
	return total
}

// TotalUsage folds the ledger's usage counters additively.
func (a *Aggregator) TotalUsage() models.Usage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var total models.Usage
	for _, e := range a.entries {
		total.Add(e.Usage)
	}
	return total
}

// Entries returns a snapshot copy of the ledger.
func (a *Aggregator) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]Entry(nil), a.entries...)
}
