package handler

import (
    "encoding/json"
    "fmt"
    "io"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-seat-reservation/internal/gateway"
    "github.com/iliyamo/bus-seat-reservation/internal/model"
    "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// SignatureHeader carries the hex HMAC of a webhook body.
const SignatureHeader = "X-Signature"

const maxWebhookBody = 64 << 10

// PaymentHandler receives gateway outcomes, either as a signed webhook or
// as a signed checkout redirect.
type PaymentHandler struct {
    Payments *service.Coordinator
    Holds    *service.HoldManager
    Signer   *gateway.Signer
}

// NewPaymentHandler panics if a dependency is nil.
func NewPaymentHandler(payments *service.Coordinator, holds *service.HoldManager, signer *gateway.Signer) *PaymentHandler {
    if payments == nil || holds == nil || signer == nil {
        panic("nil dependency passed to NewPaymentHandler")
    }
    return &PaymentHandler{Payments: payments, Holds: holds, Signer: signer}
}

type webhookRequest struct {
    SessionID string `json:"session_id"`
    Outcome   string `json:"outcome"`
}

// Webhook handles POST /v1/payments/webhook.  The raw body must verify
// against the X-Signature header.
func (h *PaymentHandler) Webhook(c echo.Context) error {
    raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
    if err != nil {
        return badRequest(c, "unreadable body")
    }
    if err := h.Signer.Verify(raw, c.Request().Header.Get(SignatureHeader)); err != nil {
        return fail(c, err)
    }
    var body webhookRequest
    if err := json.Unmarshal(raw, &body); err != nil {
        return badRequest(c, "invalid request body")
    }
    return h.apply(c, body.SessionID, body.Outcome)
}

// Return handles GET /v1/payments/return?session_id=&outcome=&sig=, the
// page the gateway redirects the passenger to.  The signature covers
// "session_id:outcome" so the outcome is not a client-controlled flag.
func (h *PaymentHandler) Return(c echo.Context) error {
    sessionID := c.QueryParam("session_id")
    outcome := c.QueryParam("outcome")
    if err := h.Signer.Verify(gateway.ReturnMessage(sessionID, outcome), c.QueryParam("sig")); err != nil {
        return fail(c, err)
    }
    return h.apply(c, sessionID, outcome)
}

// apply records the outcome and answers with the hold as stored on the
// server.
func (h *PaymentHandler) apply(c echo.Context, sessionID, raw string) error {
    outcome, ok := model.ParseOutcome(raw)
    if !ok {
        return fail(c, fmt.Errorf("outcome %q: %w", raw, model.ErrInvalidRequest))
    }
    ctx := c.Request().Context()
    status, err := h.Payments.HandleOutcome(ctx, sessionID, outcome)
    if err != nil {
        return fail(c, err)
    }
    s, err := h.Payments.Session(ctx, sessionID)
    if err != nil {
        return fail(c, err)
    }
    hold, err := h.Holds.Get(ctx, s.HoldID)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "session_id": s.ID,
        "outcome":    s.Outcome,
        "status":     status,
        "hold":       hold,
    })
}
