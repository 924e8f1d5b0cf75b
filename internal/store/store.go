package store

import "github.com/yourorg/restspec/pkg/types"

// Store journals check runs: every exchange the executor issued and
// every expectation outcome. Nothing in a journal is read back by later
// runs.
type Store interface {
	CreateRun(baseURL, declarations string) (*types.Run, error)
	GetRun(id string) (*types.Run, error)
	UpdateRunStatus(id, status string) error
	ListRuns() ([]types.Run, error)
	DeleteRun(id string) error

	AppendExchange(ex types.Exchange) error
	SaveExchanges(runID string, exs []types.Exchange) error
	GetExchanges(runID string) ([]types.Exchange, error)

	SaveResult(r *types.CheckResult) error
	GetResults(runID string) ([]types.CheckResult, error)
	GetFailedResults(runID string) ([]types.CheckResult, error)

	Close() error
}

// RunRecorder appends executor exchanges to one run.
type RunRecorder struct {
	Store Store
	RunID string
}

func (r RunRecorder) Record(ex types.Exchange) error {
	ex.RunID = r.RunID
	return r.Store.AppendExchange(ex)
}
