package quotation

import "time"

// Quotation statuses.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Quotation is a price-collection round sent to suppliers.
type Quotation struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Item is one line of a quotation's component list.
type Item struct {
	ID            int64     `json:"id"`
	QuotationID   int64     `json:"quotationId"`
	ItemName      string    `json:"itemName"`
	ItemType      string    `json:"itemType"`
	Quantity      int       `json:"quantity"`
	QuantityToBuy int       `json:"quantityToBuy"`
	TargetPrice   *float64  `json:"targetPrice"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Expired reports whether the quotation deadline has passed at now.
func (q Quotation) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// Open reports whether suppliers may still interact with the quotation.
func (q Quotation) Open(now time.Time) bool {
	return q.Status == StatusActive && !q.Expired(now)
}
