package models

// ValueCount is one group in a group-by-count result. Value is the
// distinct column value rendered as text; the HTTP layer re-keys it
// under the grouped column's own name.
type ValueCount struct {
	Value string
	Count int
}

// YearCount is one bucket of the yearly accident statistics.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// MonthlyStateCount is one heatmap cell: accidents for one state in one
// calendar month.
type MonthlyStateCount struct {
	YearMonth string `json:"yearMonth"`
	State     string `json:"state"`
	Count     int    `json:"count"`
}

// MonthlyStateCounts is the precomputed heatmap payload. MaxCount is the
// largest cell count, kept so the frontend can normalize its color scale
// without a second pass.
type MonthlyStateCounts struct {
	MaxCount int                 `json:"maxCount"`
	Data     []MonthlyStateCount `json:"data"`
}
