package supplier

import "time"

// Supplier is a company invited to price a quotation. Credentials are
// short-lived and scoped to a single quotation.
type Supplier struct {
	ID                int64      `json:"id"`
	CNPJ              string     `json:"cnpj"`
	CompanyName       string     `json:"companyName"`
	TemporaryPassword string     `json:"-"`
	PasswordExpiresAt time.Time  `json:"passwordExpiresAt"`
	IsActive          bool       `json:"isActive"`
	QuotationID       *int64     `json:"quotationId"`
	SubmittedAt       *time.Time `json:"submittedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Quote is one supplier price for one quotation item, stored with the full
// computed breakdown.
type Quote struct {
	ID              int64     `json:"id"`
	QuotationID     int64     `json:"quotationId"`
	SupplierID      int64     `json:"supplierId"`
	QuotationItemID int64     `json:"quotationItemId"`
	PriceInReal     *float64  `json:"priceInReal"`
	PriceInDollar   *float64  `json:"priceInDollar"`
	ExchangeRate    *float64  `json:"exchangeRate"`
	IPIPercentage   *float64  `json:"ipiPercentage"`
	ICMSPercentage  *float64  `json:"icmsPercentage"`
	FinalPrice      float64   `json:"finalPrice"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// Observation is a supplier note attached to a quotation item.
type Observation struct {
	ID              int64  `json:"id"`
	QuotationID     int64  `json:"quotationId"`
	SupplierID      int64  `json:"supplierId"`
	QuotationItemID int64  `json:"quotationItemId"`
	Note            string `json:"note"`
}
