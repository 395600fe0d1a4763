package model

// Snapshot is the durable booking state loaded at startup: PENDING holds,
// every ledger entry and the payment sessions of PENDING holds.
type Snapshot struct {
    Holds    []*Hold
    Entries  []LedgerEntry
    Sessions []*PaymentSession
}
