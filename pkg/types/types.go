package types

import "time"

// Run records one `restspec check` invocation against a base URL.
type Run struct {
	ID            string    `json:"id"`
	BaseURL       string    `json:"base_url"`
	Declarations  string    `json:"declarations"`
	ExchangeCount int       `json:"exchange_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Status        string    `json:"status"`
}

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusPassed  = "passed"
	RunStatusFailed  = "failed"
)

// Exchange is one request/response pair issued by the executor.
type Exchange struct {
	ID              int64             `json:"id"`
	RunID           string            `json:"run_id"`
	Seq             int               `json:"seq"`
	Timestamp       time.Time         `json:"timestamp"`
	Endpoint        string            `json:"endpoint,omitempty"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestBody     string            `json:"request_body,omitempty"`
	StatusCode      int               `json:"status_code"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ResponseBody    string            `json:"response_body,omitempty"`
	Error           string            `json:"error,omitempty"`
	LatencyMs       int64             `json:"latency_ms"`
}
