package reviews

import "time"

type Review struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	PartnerID string    `json:"partner_id"`
	ProductID *string   `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateInput struct {
	OrderID   string `json:"order_id" validate:"required,uuid"`
	PartnerID string `json:"partner_id" validate:"required,uuid"`
	ProductID string `json:"product_id" validate:"omitempty,uuid"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

type UpdateInput struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// FraudCheck kinds. Rows are written for auditing only.
const (
	FraudRepeatedHighRatings = "repeated_high_ratings"
	FraudHighOrderFrequency  = "high_order_frequency"
)

type FraudCheck struct {
	UserID    string
	PartnerID string
	Kind      string
	Details   map[string]any
}

// ChangedPayload is published on review.changed after every mutation.
type ChangedPayload struct {
	ReviewID  string `json:"review_id"`
	PartnerID string `json:"partner_id"`
	ProductID string `json:"product_id,omitempty"`
	Action    string `json:"action"` // created | updated | deleted
}
