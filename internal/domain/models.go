package domain

import "time"

type Product struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Active     bool   `json:"active"`
}

type ProductCreateRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	InitialStock int    `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	Category   *string `json:"category,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SaleItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type SaleLine struct {
	SKU            string `json:"sku"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Sale struct {
	ID             string     `json:"id"`
	IdempotencyKey string     `json:"-"`
	CustomerID     string     `json:"customer_id,omitempty"`
	CampaignID     string     `json:"campaign_id,omitempty"`
	PaymentMethod  string     `json:"payment_method"`
	SubtotalCents  int64      `json:"subtotal_cents"`
	DiscountCents  int64      `json:"discount_cents"`
	TotalCents     int64      `json:"total_cents"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	Items          []SaleLine `json:"items"`
}

type SaleCreateRequest struct {
	IdempotencyKey string     `json:"idempotency_key"`
	CustomerID     string     `json:"customer_id,omitempty"`
	PaymentMethod  string     `json:"payment_method"`
	DiscountCents  int64      `json:"discount_cents"`
	Items          []SaleItem `json:"items"`
}

type SaleResponse struct {
	Sale      Sale `json:"sale"`
	Duplicate bool `json:"duplicate"`
}

// InstallmentPlan is the agreement to pay a sale's total across a fixed
// number of installments. TotalCents, NumberOfPayments and StartDate are
// immutable after creation; RemainingCents only ever decreases.
type InstallmentPlan struct {
	ID               string    `json:"id"`
	SaleID           string    `json:"sale_id"`
	CustomerName     string    `json:"customer_name"`
	CustomerPhone    string    `json:"customer_phone"`
	TotalCents       int64     `json:"total_cents"`
	RemainingCents   int64     `json:"remaining_cents"`
	NumberOfPayments int       `json:"number_of_payments"`
	StartDate        time.Time `json:"start_date"`
	NextPaymentDate  time.Time `json:"next_payment_date"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// MonthlyPaymentCents is a display value derived on read, never stored.
func (p InstallmentPlan) MonthlyPaymentCents() int64 {
	if p.NumberOfPayments < 1 {
		return 0
	}
	return p.TotalCents / int64(p.NumberOfPayments)
}

type InstallmentPayment struct {
	ID             string    `json:"id"`
	PlanID         string    `json:"plan_id"`
	AmountCents    int64     `json:"amount_cents"`
	PaidAt         time.Time `json:"paid_at"`
	Notes          string    `json:"notes,omitempty"`
	IdempotencyKey string    `json:"-"`
}

type InstallmentPlanCreateRequest struct {
	SaleID           string `json:"sale_id"`
	CustomerID       string `json:"customer_id,omitempty"`
	CustomerName     string `json:"customer_name"`
	CustomerPhone    string `json:"customer_phone"`
	TotalCents       int64  `json:"total_cents"`
	NumberOfPayments int    `json:"number_of_payments"`
	StartDate        string `json:"start_date,omitempty"`
}

type InstallmentPaymentRequest struct {
	AmountCents    int64  `json:"amount_cents"`
	Notes          string `json:"notes,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type InstallmentPlanResponse struct {
	Plan                InstallmentPlan `json:"plan"`
	MonthlyPaymentCents int64           `json:"monthly_payment_cents"`
}

// InstallmentPaymentResult is the single consistent result of recording a
// payment: the created payment row and the plan state after the update.
type InstallmentPaymentResult struct {
	Plan      InstallmentPlan    `json:"plan"`
	Payment   InstallmentPayment `json:"payment"`
	Duplicate bool               `json:"duplicate"`
}

type Campaign struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	DiscountPercent   float64   `json:"discount_percent"`
	FlatDiscountCents int64     `json:"flat_discount_cents"`
	MinSubtotalCents  int64     `json:"min_subtotal_cents"`
	StartsAt          time.Time `json:"starts_at"`
	EndsAt            time.Time `json:"ends_at"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

type CampaignCreateRequest struct {
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	DiscountPercent   float64 `json:"discount_percent"`
	FlatDiscountCents int64   `json:"flat_discount_cents"`
	MinSubtotalCents  int64   `json:"min_subtotal_cents"`
	StartsAt          string  `json:"starts_at,omitempty"`
	EndsAt            string  `json:"ends_at,omitempty"`
}

type CampaignToggleRequest struct {
	Active bool `json:"active"`
}

type CampaignStats struct {
	CampaignID         string `json:"campaign_id"`
	Redemptions        int64  `json:"redemptions"`
	RevenueCents       int64  `json:"revenue_cents"`
	DiscountGivenCents int64  `json:"discount_given_cents"`
}

type Invoice struct {
	ID            string    `json:"id"`
	Number        string    `json:"number"`
	SaleID        string    `json:"sale_id"`
	CustomerName  string    `json:"customer_name,omitempty"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	IssuedAt      time.Time `json:"issued_at"`
}

type InvoiceCreateRequest struct {
	SaleID string `json:"sale_id"`
}

type InvoiceResponse struct {
	Invoice Invoice `json:"invoice"`
	Text    string  `json:"text"`
}

type DailyReportPayment struct {
	PaymentMethod string `json:"payment_method"`
	Sales         int64  `json:"sales"`
	TotalCents    int64  `json:"total_cents"`
}

type DailyReport struct {
	Date            string               `json:"date"`
	Sales           int64                `json:"sales"`
	GrossSalesCents int64                `json:"gross_sales_cents"`
	DiscountCents   int64                `json:"discount_cents"`
	NetSalesCents   int64                `json:"net_sales_cents"`
	ByPayment       []DailyReportPayment `json:"by_payment"`
}

type InstallmentSummary struct {
	AsOf             string `json:"as_of"`
	ActivePlans      int64  `json:"active_plans"`
	CompletedPlans   int64  `json:"completed_plans"`
	OverduePlans     int64  `json:"overdue_plans"`
	OutstandingCents int64  `json:"outstanding_cents"`
	CollectedCents   int64  `json:"collected_cents"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
)

const SaleStatusPaid = "paid"

const (
	CampaignTypePercent = "percent"
	CampaignTypeFlat    = "flat"
)

const (
	PaymentMethodCash        = "cash"
	PaymentMethodCard        = "card"
	PaymentMethodQRIS        = "qris"
	PaymentMethodInstallment = "installment"
)

// PaymentInterval is the cadence between installment due dates. Due dates
// advance from the previous due date, not from when a payment lands, so a
// late payment does not shift the rest of the schedule.
const PaymentInterval = 30 * 24 * time.Hour
