// Package models contains the GORM models for the ledger tables. Domain types
// carry no ORM tags; each model converts to and from its domain type.
//
//   - base.go: shared id, timestamp and version columns
//   - sale.go: sales
//   - ledger.go: commission bands, introducers, counterparties and the error log
//   - integration.go: the accounting platform credential
package models
