package model

import "time"

// SessionOutcome is the gateway verdict for a payment session.
type SessionOutcome string

const (
    OutcomeOpen      SessionOutcome = "OPEN"
    OutcomeSucceeded SessionOutcome = "SUCCEEDED"
    OutcomeFailed    SessionOutcome = "FAILED"
)

// ParseOutcome accepts the values a gateway reports.  Only SUCCEEDED and
// FAILED are valid final outcomes.
func ParseOutcome(s string) (SessionOutcome, bool) {
    switch SessionOutcome(s) {
    case OutcomeSucceeded, OutcomeFailed:
        return SessionOutcome(s), true
    }
    return "", false
}

// PaymentSession binds a hold to one checkout attempt at the gateway.  The
// amount is frozen when the session is opened and never recomputed.
//
// Fields:
//  ID          – session identifier handed to the gateway.
//  HoldID      – hold being paid for.
//  AmountCents – amount charged, seat count × unit price at open time.
//  ExternalRef – gateway-side reference.
//  RedirectURL – checkout URL the client is sent to.
//  Outcome     – OPEN until the first outcome is recorded.
//  CreatedAt   – when the session was opened.
//  ResolvedAt  – when the first outcome arrived (nil while OPEN).
type PaymentSession struct {
    ID          string         `json:"id"`
    HoldID      string         `json:"hold_id"`
    AmountCents int64          `json:"amount_cents"`
    ExternalRef string         `json:"external_ref"`
    RedirectURL string         `json:"redirect_url"`
    Outcome     SessionOutcome `json:"outcome"`
    CreatedAt   time.Time      `json:"created_at"`
    ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// Resolved reports whether an outcome has already been recorded.
func (s *PaymentSession) Resolved() bool {
    return s.Outcome != OutcomeOpen
}

// Clone returns a copy safe to hand to callers.
func (s *PaymentSession) Clone() *PaymentSession {
    c := *s
    if s.ResolvedAt != nil {
        t := *s.ResolvedAt
        c.ResolvedAt = &t
    }
    return &c
}
