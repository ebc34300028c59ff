package dispatch

import (
	"errors"

	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

var errMisalignedResponse = errors.New("gateway response not aligned with batch tokens")

// Reconcile folds the flat per-token results of one invocation into the
// final report.
func Reconcile(results []fanout.DeliveryResult) fanout.DeliveryReport {
	report := fanout.DeliveryReport{Outcome: fanout.OutcomeCompleted}
	for _, r := range results {
		if r.Success {
			report.Delivered++
		} else {
			report.Failed++
		}
	}
	return report
}

// FailedTokens returns the distinct tokens that failed delivery, in first
// occurrence order. These drive the registry cleanup.
func FailedTokens(results []fanout.DeliveryResult) []string {
	var failed []string
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Success {
			continue
		}
		if _, ok := seen[r.Token]; ok {
			continue
		}
		seen[r.Token] = struct{}{}
		failed = append(failed, r.Token)
	}
	return failed
}
