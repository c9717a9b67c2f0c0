package dto

// SignalRunReport summarizes one signal generation batch. A batch never
// aborts because one symbol failed; the counts are the user-visible result.
type SignalRunReport struct {
	Total      int      `json:"total"`
	Written    int      `json:"written"`
	Duplicates int      `json:"duplicates"`
	Rejected   int      `json:"rejected"`
	Deferred   int      `json:"deferred"`
	Failed     int      `json:"failed"`
	FailedCode []string `json:"failed_codes,omitempty"`
}

// OutcomeScanReport summarizes one evaluator scan pass.
type OutcomeScanReport struct {
	Due       int `json:"due"`
	Published int `json:"published"`
	Expired   int `json:"expired"`
}
