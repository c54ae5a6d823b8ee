package session

import "time"

type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Model     string
}

// Generation is one dispatched job and its resolved cost at dispatch time.
type Generation struct {
	ID          string
	SessionID   string
	JobID       string
	Prompt      string
	Model       string
	Mode        string
	AspectRatio string
	Resolution  string
	Seconds     int
	Audio       bool
	Tier        string
	VideoPath   string
	CostUSD     string
	Credits     int64
	Timestamp   time.Time
}

// LedgerEntry is one credit movement. Positive deltas are top-ups, negative
// deltas are charges for generations.
type LedgerEntry struct {
	ID           int64
	Delta        int64
	Description  string
	GenerationID string
	Timestamp    time.Time
}

type SpendSummary struct {
	TotalCredits    int64
	GenerationCount int
}

type ModelSpendSummary struct {
	Model           string
	TotalCredits    int64
	GenerationCount int
}
