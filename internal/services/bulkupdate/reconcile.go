package bulkupdate

import (
	"fmt"
	"strings"

	"github.com/xelth-com/eckmarket/internal/marketplace"
)

// Error kinds of a failed item
const (
	KindInvalid          = "invalid"
	KindRejected         = "rejected"
	KindMissing          = "missing"
	KindLocalPersistence = "local_persistence"
	KindTransport        = "transport"
)

// ReasonMissing is reported for items absent from the polled batch result
const ReasonMissing = "not found in platform response"

// Outcome is the reconciled upstream verdict for one submitted change
type Outcome struct {
	Change    Change
	Succeeded bool
	Kind      string
	Reason    string
}

// Reconciler matches submitted changes against a polled batch result.
// It must return exactly one Outcome per submitted change, in submission order.
type Reconciler interface {
	Reconcile(submitted []Change, result *marketplace.BatchRequestResult) []Outcome
}

// StrictReconciler applies an item only on an explicit SUCCESS; an item the platform
// did not report at all counts as a missing failure.
type StrictReconciler struct{}

func (StrictReconciler) Reconcile(submitted []Change, result *marketplace.BatchRequestResult) []Outcome {
	byBarcode := make(map[string]marketplace.BatchItemResult, len(result.Items))
	for _, item := range result.Items {
		byBarcode[item.Barcode()] = item
	}

	outcomes := make([]Outcome, 0, len(submitted))
	for _, c := range submitted {
		item, ok := byBarcode[c.Barcode]
		switch {
		case !ok:
			outcomes = append(outcomes, Outcome{Change: c, Kind: KindMissing, Reason: ReasonMissing})
		case item.Succeeded():
			outcomes = append(outcomes, Outcome{Change: c, Succeeded: true})
		default:
			outcomes = append(outcomes, Outcome{Change: c, Kind: KindRejected, Reason: rejectionReason(item)})
		}
	}
	return outcomes
}

func rejectionReason(item marketplace.BatchItemResult) string {
	if len(item.FailureReasons) > 0 {
		return strings.Join(item.FailureReasons, "; ")
	}
	return fmt.Sprintf("platform reported status %s", item.Status)
}

// settled reports whether every submitted barcode appears in a completed result
func settled(submitted []Change, result *marketplace.BatchRequestResult) bool {
	if !result.Completed() {
		return false
	}
	seen := make(map[string]struct{}, len(result.Items))
	for _, item := range result.Items {
		seen[item.Barcode()] = struct{}{}
	}
	for _, c := range submitted {
		if _, ok := seen[c.Barcode]; !ok {
			return false
		}
	}
	return true
}
