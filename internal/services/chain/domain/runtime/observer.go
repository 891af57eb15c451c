package runtime

import (
	"log"

	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
)

// Report describes the outcome of one applied extrinsic.
type Report struct {
	Block  ledger.BlockNumber
	Index  int
	Caller ledger.AccountID
	Method string
	Err    error
}

// Failed reports whether the extrinsic was rejected by its pallet.
func (r Report) Failed() bool { return r.Err != nil }

// Observer receives a report after each extrinsic, successful or not.
type Observer interface {
	ExtrinsicApplied(report Report)
}

// Observers fans reports out in registration order.
type Observers []Observer

// ExtrinsicApplied implements Observer.
func (o Observers) ExtrinsicApplied(report Report) {
	for _, obs := range o {
		obs.ExtrinsicApplied(report)
	}
}

// LogObserver writes failed extrinsics to the standard logger. Successful
// extrinsics stay quiet.
type LogObserver struct{}

// ExtrinsicApplied implements Observer.
func (LogObserver) ExtrinsicApplied(report Report) {
	if report.Err == nil {
		return
	}
	log.Printf("extrinsic failed: block=%d index=%d caller=%s method=%s err=%v",
		report.Block, report.Index, report.Caller, report.Method, report.Err)
}
