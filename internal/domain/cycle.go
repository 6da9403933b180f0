package domain

import "time"

// CycleClassification says whether a student's billing cycle is in place.
type CycleClassification string

const (
	// CycleActive: a financial record exists and at least one live
	// installment carries a cycle window, with no unbound billable items.
	CycleActive CycleClassification = "has_active_cycle"
	// CycleNeeded: no financial record, or live non-ad-hoc installments
	// exist without a cycle window (unfinished setup).
	CycleNeeded CycleClassification = "needs_new_cycle"
)

// StudentCycle is the detector's per-student verdict.
type StudentCycle struct {
	StudentID      string              `json:"student_id"`
	StudentName    string              `json:"student_name,omitempty"`
	Classification CycleClassification `json:"classification"`
	CycleStart     *time.Time          `json:"cycle_start,omitempty"`
	CycleEnd       *time.Time          `json:"cycle_end,omitempty"`
}

// ClassifyCycle applies the detector rules to a student's record and live
// installments. Unbound billable items take precedence: a student can
// satisfy both conditions, and then needs-new-cycle wins.
func ClassifyCycle(record *FinancialRecord, live []Installment) StudentCycle {
	if record == nil {
		return StudentCycle{Classification: CycleNeeded}
	}

	out := StudentCycle{StudentID: record.StudentID, Classification: CycleNeeded}

	hasBound := false
	hasUnbound := false
	for i := range live {
		inst := &live[i]
		if inst.CycleStart != nil && inst.CycleEnd != nil {
			if !hasBound {
				out.CycleStart = inst.CycleStart
				out.CycleEnd = inst.CycleEnd
			}
			hasBound = true
			continue
		}
		if !inst.ItemType.IsAdHoc() {
			hasUnbound = true
		}
	}

	if hasBound && !hasUnbound {
		out.Classification = CycleActive
	}
	return out
}
