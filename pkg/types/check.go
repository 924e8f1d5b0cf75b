package types

// Check result statuses.
const (
	CheckPassed = "passed"
	CheckFailed = "failed"
	CheckError  = "error"
)

// CheckResult is the outcome of checking one endpoint expectation.
type CheckResult struct {
	RunID    string   `json:"run_id"`
	Endpoint string   `json:"endpoint"`
	Status   string   `json:"status"`
	Expected int      `json:"expected_status,omitempty"`
	Actual   int      `json:"actual_status,omitempty"`
	Failures []string `json:"failures,omitempty"`
	ErrorMsg string   `json:"error_msg,omitempty"`
}
