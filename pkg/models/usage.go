package models

// Usage holds token counters reported by the execution engine for one
// or more messages. Counters are aggregated additively.
type Usage struct {
	// InputTokens is the number of prompt tokens consumed.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the number of completion tokens produced.
	OutputTokens int64 `json:"output_tokens"`
	// CacheCreationTokens is the number of tokens written to the prompt cache.
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	// CacheReadTokens is the number of tokens served from the prompt cache.
	CacheReadTokens int64 `json:"cache_read_tokens"`
}

// Add folds another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// Total returns the sum of all four counters.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens
}
