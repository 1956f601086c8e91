// Package ledger contains the Sales ledger bounded context.
//
// A Sale is the ledger record for one resale deal. Its status only moves along
// the transition table in status.go, and only through Transition. Money figures
// on a Sale are derived by CalculateEconomics and CalculateCommission; they are
// never taken verbatim from an external system.
//
// Key concepts:
//   - Sale: aggregate root carrying money, commission, external invoice and lifecycle fields
//   - Status: draft → invoiced → {paid, ongoing}, ongoing → paid, paid → locked → commission_paid
//   - CommissionBand: non-overlapping [min, max) margin range mapped to a commission percent
//   - ErrorEntry: append-only record of every fault detected by the pipeline
//   - Counterparty: buyer or supplier resolved by normalised name or external contact id
package ledger
