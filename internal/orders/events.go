package orders

// Payloads carried inside events.Envelope.

type ItemLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID     string     `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	BuyerID     string     `json:"buyer_id"`
	PartnerID   string     `json:"partner_id"`
	Total       string     `json:"total"`
	Items       []ItemLine `json:"items"`
}

type StatusChangedPayload struct {
	OrderID   string `json:"order_id"`
	PartnerID string `json:"partner_id"`
	From      Status `json:"from"`
	To        Status `json:"to"`
	Source    string `json:"source"` // seller | payment
	PaymentID string `json:"payment_id,omitempty"`
}

func toLines(items []Item) []ItemLine {
	out := make([]ItemLine, 0, len(items))
	for _, it := range items {
		out = append(out, ItemLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice.StringFixed(2)})
	}
	return out
}
