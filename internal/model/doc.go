// Package model holds the model catalog and entitlement gating.
//
// The Catalog is a copy-on-write snapshot behind an atomic pointer: reads
// never lock, and Replace swaps the whole set at once. Each model carries an
// access tier; Accessible and CheckAccess decide selection against the
// caller's premium state, with unknown entitlement treated as not entitled.
package model
