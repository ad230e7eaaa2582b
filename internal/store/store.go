package store

import (
	"context"
	"errors"
	"time"

	"tokolaris/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidState      = errors.New("invalid state")
	ErrDuplicate         = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product, initialStock int) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductsBySKUs(ctx context.Context, skus []string) (map[string]domain.Product, error)
	GetStockMap(ctx context.Context, skus []string) (map[string]int, error)
	IncreaseStock(ctx context.Context, sku string, qty int) error

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error)

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	FindSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error)

	CreateInstallmentPlan(ctx context.Context, plan domain.InstallmentPlan) (*domain.InstallmentPlan, error)
	GetInstallmentPlan(ctx context.Context, id string) (*domain.InstallmentPlan, error)
	ListInstallmentPlans(ctx context.Context, status string, limit int) ([]domain.InstallmentPlan, error)
	ListDuePlans(ctx context.Context, before time.Time, limit int) ([]domain.InstallmentPlan, error)
	RecordInstallmentPayment(ctx context.Context, planID string, payment domain.InstallmentPayment) (*domain.InstallmentPaymentResult, error)
	ListInstallmentPayments(ctx context.Context, planID string) ([]domain.InstallmentPayment, error)
	GetInstallmentSummary(ctx context.Context, asOf time.Time) (domain.InstallmentSummary, error)

	CreateCampaign(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	UpdateCampaignActive(ctx context.Context, campaignID string, active bool) (*domain.Campaign, error)
	GetCampaignStats(ctx context.Context, campaignID string) (domain.CampaignStats, error)

	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error)

	GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
