package domain

import "errors"

type AssetState string

const (
	AssetResolved AssetState = "resolved"
	AssetSkipped  AssetState = "skipped"
	AssetFailed   AssetState = "failed"
	AssetNone     AssetState = "" // never reached the resolver
)

type State string

const (
	StatePersisted State = "persisted"
	StateRejected  State = "rejected"
)

type RejectReason string

const (
	RejectValidation  RejectReason = "validation"
	RejectDuplicate   RejectReason = "duplicate"
	RejectPersistence RejectReason = "persistence"
)

// Outcome is the terminal result of one record.
type Outcome struct {
	ExternalID string
	Asset      AssetState
	AssetErr   error
	State      State
	Reason     RejectReason // empty when persisted
	Err        error
	RowID      int64
	ImagePath  string
}

// ReasonFor maps a stage error onto a reject reason.
func ReasonFor(err error) RejectReason {
	var v *ValidationError
	var d *DuplicateRecordError
	switch {
	case errors.As(err, &v):
		return RejectValidation
	case errors.As(err, &d):
		return RejectDuplicate
	default:
		return RejectPersistence
	}
}

// Report is the run-level aggregate.
type Report struct {
	Received    int
	Persisted   int
	Rejected    map[RejectReason]int
	Assets      map[AssetState]int
	Interrupted bool
}

func NewReport() Report {
	return Report{Rejected: map[RejectReason]int{}, Assets: map[AssetState]int{}}
}

func (r *Report) Add(o Outcome) {
	if r.Rejected == nil {
		r.Rejected = map[RejectReason]int{}
	}
	if r.Assets == nil {
		r.Assets = map[AssetState]int{}
	}
	r.Received++
	if o.Asset != AssetNone {
		r.Assets[o.Asset]++
	}
	if o.State == StatePersisted {
		r.Persisted++
		return
	}
	r.Rejected[o.Reason]++
}

func (r *Report) Merge(o Report) {
	if r.Rejected == nil {
		r.Rejected = map[RejectReason]int{}
	}
	if r.Assets == nil {
		r.Assets = map[AssetState]int{}
	}
	r.Received += o.Received
	r.Persisted += o.Persisted
	for k, v := range o.Rejected {
		r.Rejected[k] += v
	}
	for k, v := range o.Assets {
		r.Assets[k] += v
	}
	r.Interrupted = r.Interrupted || o.Interrupted
}

func (r Report) TotalRejected() int {
	n := 0
	for _, v := range r.Rejected {
		n += v
	}
	return n
}
