package cost

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/ShayCichocki/squad/pkg/models"
)

func TestRateTable_Cost(t *testing.T) {
	rates := RateTable{
		InputPer1K:         0.003,
		OutputPer1K:        0.015,
		CacheCreationPer1K: 0.00375,
		CacheReadPer1K:     0.0003,
	}

	usage := models.Usage{
		InputTokens:         1000,
		OutputTokens:        2000,
		CacheCreationTokens: 4000,
		CacheReadTokens:     10000,
	}

	// 0.003 + 0.030 + 0.015 + 0.003 = 0.051
	want := 0.051
	if got := rates.Cost(usage); math.Abs(got-want) > 1e-9 {
		t.Errorf("Cost() = %f, want %f", got, want)
	}
}

func TestAggregator_DeduplicatesByMessageID(t *testing.T) {
	a := NewAggregator(DefaultRates)
	usage := models.Usage{InputTokens: 500, OutputTokens: 100}

	entry, recorded := a.Record("msg-1", usage)
	if !recorded || entry == nil {
		t.Fatal("first Record() should store an entry")
	}

	before := a.TotalCost()
	entry2, recorded2 := a.Record("msg-1", usage)
	if recorded2 || entry2 != nil {
		t.Error("duplicate Record() should be a no-op returning nothing")
	}
	if after := a.TotalCost(); after != before {
		t.Errorf("duplicate Record() changed total cost: %f -> %f", before, after)
	}
	if total := a.TotalUsage(); total.InputTokens != 500 {
		t.Errorf("TotalUsage().InputTokens = %d, want 500", total.InputTokens)
	}
}

func TestAggregator_Additivity(t *testing.T) {
	a := NewAggregator(DefaultRates)

	var wantCost float64
	var wantUsage models.Usage
	for i := 0; i < 20; i++ {
		usage := models.Usage{
			InputTokens:     int64(i * 137),
			OutputTokens:    int64(i * 29),
			CacheReadTokens: int64(i * 503),
		}
		entry, ok := a.Record(fmt.Sprintf("msg-%d", i), usage)
		if !ok {
			t.Fatalf("Record(msg-%d) unexpectedly deduplicated", i)
		}
		wantCost += entry.Cost
		wantUsage.Add(usage)
	}

	if got := a.TotalCost(); math.Abs(got-wantCost) > 1e-9 {
		t.Errorf("TotalCost() = %f, want sum of entry costs %f", got, wantCost)
	}
	if got := a.TotalUsage(); got != wantUsage {
		t.Errorf("TotalUsage() = %+v, want %+v", got, wantUsage)
	}
}

func TestAggregator_ConcurrentRecords(t *testing.T) {
	a := NewAggregator(DefaultRates)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Two goroutines per ID race on the same message identity.
			a.Record(fmt.Sprintf("msg-%d", i/2), models.Usage{InputTokens: 1000})
		}(i)
	}
	wg.Wait()

	if got := len(a.Entries()); got != 25 {
		t.Errorf("entries = %d, want 25 (one per distinct message)", got)
	}
	want := 25 * DefaultRates.InputPer1K
	if got := a.TotalCost(); math.Abs(got-want) > 1e-9 {
		t.Errorf("TotalCost() = %f, want %f", got, want)
	}
}
