// Package orchestrator notifies the stores/orchestration microservice of
// invoice and order state changes. Calls are best-effort: a failure here
// never unwinds a billing state transition, it is only logged.
package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/clients/httpx"
	"github.com/cyphera/billing-core/internal/logger"
)

type Client struct {
	http *httpx.Client
}

func New(baseURL string, opts ...httpx.Option) *Client {
	return &Client{http: httpx.New(baseURL, opts...)}
}

type invoiceStatusUpdate struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Status    string    `json:"status"`
}

// NotifyInvoiceStatus tells the orchestrator an invoice changed status.
// Errors are logged and swallowed: the billing state machine is the source
// of truth, the orchestrator notification is advisory.
func (c *Client) NotifyInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, status string) {
	if err := c.http.DoJSON(ctx, "POST", "/invoices/status", invoiceStatusUpdate{InvoiceID: invoiceID, Status: status}, nil); err != nil {
		logger.Warn("orchestrator notify invoice status failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
	}
}

type orderStateUpdate struct {
	OrderID uuid.UUID `json:"order_id"`
	State   string    `json:"state"`
}

// NotifyOrderState tells the orchestrator an order transitioned state.
func (c *Client) NotifyOrderState(ctx context.Context, orderID uuid.UUID, state string) {
	if err := c.http.DoJSON(ctx, "POST", "/orders/state", orderStateUpdate{OrderID: orderID, State: state}, nil); err != nil {
		logger.Warn("orchestrator notify order state failed", zap.String("order_id", orderID.String()), zap.Error(err))
	}
}
