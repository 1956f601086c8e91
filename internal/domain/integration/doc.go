// Package integration contains the Integration bounded context.
// This context manages the connection to the external accounting platform
// that is the system of record for invoice and payment status.
//
// Key concepts:
//   - AccountingPlatform: port for invoice, contact and token calls against the platform
//   - Credential: the single integration-wide OAuth token set, keyed by one integration identity
//   - Invoice / Contact: value objects returned by the platform
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
