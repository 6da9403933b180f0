package domain

import (
	"fmt"
	"time"
)

// SynthesizeVirtual reconstructs the boleto view directly from a financial
// record's aggregates, ignoring any discrete installment rows. Used for
// records that predate per-row tracking or whenever rows were never created.
//
// A Paid record marks every virtual installment Paid; otherwise status is
// derived per due date through the shared projection.
func SynthesizeVirtual(record *FinancialRecord, today time.Time) []VirtualInstallment {
	var out []VirtualInstallment
	for _, charge := range record.Charges() {
		value := SplitEqual(charge.Terms.TotalValue, charge.Terms.Count)
		for i := 0; i < charge.Terms.Count; i++ {
			number := i + 1
			due := AddMonthsClamped(charge.Terms.FirstDueDate, i)

			stored := InstallmentPending
			if record.Status == RecordPaid {
				stored = InstallmentPaid
			}

			out = append(out, VirtualInstallment{
				ID:                VirtualID(record.ID, charge.ItemType, number),
				FinancialRecordID: record.ID,
				ItemType:          charge.ItemType,
				Number:            number,
				Value:             value,
				DueDate:           due,
				Status:            DerivePresentationStatus(stored, due, today),
				PaymentMethod:     charge.Terms.PaymentMethod,
			})
		}
	}
	return out
}

// VirtualID builds the deterministic id of a synthesized installment.
func VirtualID(recordID string, itemType ItemType, number int) string {
	return fmt.Sprintf("%s:%s:%d", recordID, itemType, number)
}
