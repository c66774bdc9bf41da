package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/orders"
	"github.com/lookali/marketplace-api/internal/validate"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

var (
	errOrderNotFound   = apperr.NotFound("Pedido não encontrado")
	errAccessDenied    = apperr.Forbidden("Acesso negado")
	errNotPending      = apperr.Conflict("Pedido não está pendente de pagamento")
	errNotConfigured   = apperr.BadRequest("Esta loja ainda não configurou pagamentos online")
	errProcessorFailed = apperr.New(http.StatusBadGateway, "Não foi possível comunicar com o processador de pagamentos")
)

type PixInput struct {
	PayerEmail string `json:"payer_email" validate:"required,email"`
}

type PixResult struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

// Checkout starts payments for pending orders.
type Checkout struct {
	Store         Store
	Processor     Processor
	PublicBaseURL string
}

// NotificationURL is the webhook address registered with the processor. The
// partner query parameter lets the webhook resolve the access token directly.
func (c *Checkout) NotificationURL(partnerID string) string {
	return c.PublicBaseURL + "/webhooks/payments?partner=" + url.QueryEscape(partnerID)
}

func (c *Checkout) payable(ctx context.Context, p auth.Principal, orderID string) (*orders.Order, Partner, error) {
	o, err := c.Store.Get(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, Partner{}, errOrderNotFound
	}
	if err != nil {
		return nil, Partner{}, fmt.Errorf("get order: %w", err)
	}
	if o.BuyerID != p.UserID {
		return nil, Partner{}, errAccessDenied
	}
	if o.Status != orders.StatusPending {
		return nil, Partner{}, errNotPending
	}
	partner, err := c.Store.Partner(ctx, o.PartnerID)
	if err != nil && !errors.Is(err, orders.ErrNotFound) {
		return nil, Partner{}, fmt.Errorf("partner: %w", err)
	}
	if partner.AccessToken == "" {
		return nil, Partner{}, errNotConfigured
	}
	return o, partner, nil
}

// CreatePreference opens a hosted checkout for the order's items.
func (c *Checkout) CreatePreference(ctx context.Context, p auth.Principal, orderID string) (*Preference, error) {
	o, partner, err := c.payable(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	items, err := c.Store.Items(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}

	req := PreferenceRequest{
		ExternalReference: o.ID,
		NotificationURL:   c.NotificationURL(o.PartnerID),
		Items:             make([]PreferenceItem, 0, len(items)),
	}
	if p.Email != "" {
		req.Payer = &Payer{Email: p.Email}
	}
	for _, it := range items {
		req.Items = append(req.Items, PreferenceItem{
			ID:         it.ProductID,
			Title:      it.ProductName,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			CurrencyID: "BRL",
		})
	}

	pref, err := c.Processor.CreatePreference(ctx, partner.AccessToken, req)
	if err != nil {
		slog.ErrorContext(ctx, "create preference failed",
			slog.String(logkey.OrderID, o.ID), slog.String(logkey.ERROR, err.Error()))
		return nil, errProcessorFailed
	}
	if err := c.Store.SetPreference(ctx, o.ID, pref.ID); err != nil {
		return nil, fmt.Errorf("store preference: %w", err)
	}
	return pref, nil
}

// CreatePix creates a PIX payment for the order total and records the
// payment id so the webhook matches it directly.
func (c *Checkout) CreatePix(ctx context.Context, p auth.Principal, orderID string, in PixInput) (*PixResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	o, partner, err := c.payable(ctx, p, orderID)
	if err != nil {
		return nil, err
	}

	desc := "Pedido " + o.OrderNumber
	if o.OrderNumber == "" {
		desc = "Pedido Lookali"
	}
	pay, err := c.Processor.CreatePayment(ctx, partner.AccessToken, PaymentRequest{
		TransactionAmount: o.Total,
		Description:       desc,
		PaymentMethodID:   "pix",
		ExternalReference: o.ID,
		NotificationURL:   c.NotificationURL(o.PartnerID),
		Payer:             Payer{Email: in.PayerEmail},
	}, o.ID+":pix")
	if err != nil {
		slog.ErrorContext(ctx, "create pix payment failed",
			slog.String(logkey.OrderID, o.ID), slog.String(logkey.ERROR, err.Error()))
		return nil, errProcessorFailed
	}
	if err := c.Store.SetPayment(ctx, o.ID, pay.ID.String(), pay.Status, pay.StatusDetail); err != nil {
		return nil, fmt.Errorf("store payment: %w", err)
	}

	td := pay.PointOfInteraction.TransactionData
	return &PixResult{
		PaymentID:    pay.ID.String(),
		Status:       pay.Status,
		QRCode:       td.QRCode,
		QRCodeBase64: td.QRCodeBase64,
		TicketURL:    td.TicketURL,
	}, nil
}
