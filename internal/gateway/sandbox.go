// Package gateway implements the payment gateway collaborator.  Sandbox
// issues checkout sessions without contacting a real provider; its
// checkout page reports back through the signed return URL and webhook
// handled by the HTTP layer.
package gateway

import (
    "context"
    "errors"
    "fmt"
    "net/url"
    "strconv"

    "github.com/google/uuid"

    "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// Sandbox is a development gateway.  The redirect URL carries everything
// a checkout page needs to complete or abandon the payment.
type Sandbox struct {
    checkoutURL *url.URL
}

// NewSandbox parses checkoutURL, the base of the hosted checkout page.
func NewSandbox(checkoutURL string) (*Sandbox, error) {
    u, err := url.Parse(checkoutURL)
    if err != nil {
        return nil, fmt.Errorf("gateway checkout url: %w", err)
    }
    if u.Scheme == "" || u.Host == "" {
        return nil, errors.New("gateway checkout url must be absolute")
    }
    return &Sandbox{checkoutURL: u}, nil
}

// OpenSession implements service.Gateway.
func (g *Sandbox) OpenSession(ctx context.Context, req service.GatewayRequest) (service.GatewaySession, error) {
    if err := ctx.Err(); err != nil {
        return service.GatewaySession{}, err
    }
    if req.SessionID == "" || req.AmountCents <= 0 {
        return service.GatewaySession{}, errors.New("gateway: session id and positive amount required")
    }
    ref := "sbx_" + uuid.NewString()

    u := *g.checkoutURL
    q := u.Query()
    q.Set("session_id", req.SessionID)
    q.Set("ref", ref)
    q.Set("amount_cents", strconv.FormatInt(req.AmountCents, 10))
    if req.Description != "" {
        q.Set("description", req.Description)
    }
    if req.ReturnURL != "" {
        q.Set("return_url", req.ReturnURL)
    }
    u.RawQuery = q.Encode()

    return service.GatewaySession{ExternalRef: ref, RedirectURL: u.String()}, nil
}
