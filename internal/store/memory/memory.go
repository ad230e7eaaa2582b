package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokolaris/backend/internal/domain"
	"tokolaris/backend/internal/store"
	"tokolaris/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	stock           map[string]int
	customersByID   map[string]domain.Customer
	suppliersByID   map[string]domain.Supplier
	salesByID       map[string]*domain.Sale
	salesByIdem     map[string]*domain.Sale
	plansByID       map[string]*domain.InstallmentPlan
	planIDBySale    map[string]string
	paymentsByPlan  map[string][]domain.InstallmentPayment
	paymentsByIdem  map[string]domain.InstallmentPayment
	campaignsByID   map[string]domain.Campaign
	invoicesByID    map[string]domain.Invoice
	invoiceIDBySale map[string]string
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	products := []domain.Product{
		{SKU: "SKU-KULKAS-01", Name: "Kulkas 2 Pintu 250L", Category: "electronics", PriceCents: 385000000, Active: true},
		{SKU: "SKU-TV-01", Name: "Smart TV 43 Inch", Category: "electronics", PriceCents: 412500000, Active: true},
		{SKU: "SKU-MESINCUCI-01", Name: "Mesin Cuci 8kg", Category: "electronics", PriceCents: 298000000, Active: true},
		{SKU: "SKU-KOMPOR-01", Name: "Kompor Gas 2 Tungku", Category: "appliance", PriceCents: 43500000, Active: true},
		{SKU: "SKU-RICE-01", Name: "Rice Cooker 1.8L", Category: "appliance", PriceCents: 32800000, Active: true},
		{SKU: "SKU-KIPAS-01", Name: "Kipas Angin Berdiri", Category: "appliance", PriceCents: 24900000, Active: true},
		{SKU: "SKU-LEMARI-01", Name: "Lemari Pakaian 3 Pintu", Category: "furniture", PriceCents: 165000000, Active: true},
		{SKU: "SKU-KASUR-01", Name: "Kasur Busa Queen", Category: "furniture", PriceCents: 189000000, Active: true},
		{SKU: "SKU-MEJA-01", Name: "Meja Makan Set", Category: "furniture", PriceCents: 245000000, Active: true},
		{SKU: "SKU-SEPEDA-01", Name: "Sepeda Gunung 26", Category: "sports", PriceCents: 178000000, Active: true},
	}

	productMap := make(map[string]domain.Product, len(products))
	stock := make(map[string]int, len(products))
	for _, p := range products {
		productMap[p.SKU] = p
		stock[p.SKU] = 12
	}

	customers := []domain.Customer{
		{ID: "cust-seed-budi", Name: "Budi Santoso", Phone: "0812-3456-7890", Address: "Jl. Melati 12", CreatedAt: time.Now().UTC()},
		{ID: "cust-seed-sari", Name: "Sari Dewi", Phone: "0856-1122-3344", Address: "Jl. Kenanga 4", CreatedAt: time.Now().UTC()},
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	return &Store{
		products:        productMap,
		stock:           stock,
		customersByID:   customerMap,
		suppliersByID:   make(map[string]domain.Supplier),
		salesByID:       make(map[string]*domain.Sale),
		salesByIdem:     make(map[string]*domain.Sale),
		plansByID:       make(map[string]*domain.InstallmentPlan),
		planIDBySale:    make(map[string]string),
		paymentsByPlan:  make(map[string][]domain.InstallmentPayment),
		paymentsByIdem:  make(map[string]domain.InstallmentPayment),
		campaignsByID:   make(map[string]domain.Campaign),
		invoicesByID:    make(map[string]domain.Invoice),
		invoiceIDBySale: make(map[string]string),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product, initialStock int) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 || initialStock < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.SKU]; exists {
		return nil, store.ErrDuplicate
	}
	product.Active = true
	s.products[product.SKU] = product
	s.stock[product.SKU] = initialStock

	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.SKU]; !exists {
		return nil, store.ErrNotFound
	}
	s.products[product.SKU] = product

	updated := product
	return &updated, nil
}

func (s *Store) GetProductsBySKUs(_ context.Context, skus []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(skus))
	for _, sku := range skus {
		if product, exists := s.products[sku]; exists && product.Active {
			result[sku] = product
		}
	}
	return result, nil
}

func (s *Store) GetStockMap(_ context.Context, skus []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int, len(skus))
	for _, sku := range skus {
		result[sku] = s.stock[sku]
	}
	return result, nil
}

func (s *Store) IncreaseStock(_ context.Context, sku string, qty int) error {
	if sku == "" || qty < 1 {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[sku]; !exists {
		return store.ErrNotFound
	}
	s.stock[sku] += qty
	return nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) ListCustomers(_ context.Context, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	if len(customers) > limit {
		customers = customers[:limit]
	}
	return customers, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrValidation
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.suppliersByID[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, sup := range s.suppliersByID {
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return strings.Compare(a.Name, b.Name)
	})
	return suppliers, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.IdempotencyKey == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.salesByIdem[sale.IdempotencyKey]; exists {
		found := *existing
		return &found, nil
	}

	// Recompute prices from the catalog and check stock before committing
	// anything, so a failed sale leaves no partial state.
	subtotal := int64(0)
	lines := make([]domain.SaleLine, 0, len(sale.Items))
	for _, line := range sale.Items {
		product, exists := s.products[line.SKU]
		if !exists || !product.Active {
			return nil, store.ErrValidation
		}
		if line.Qty < 1 {
			return nil, store.ErrValidation
		}
		if s.stock[line.SKU] < line.Qty {
			return nil, store.ErrInsufficientStock
		}
		lines = append(lines, domain.SaleLine{SKU: line.SKU, Qty: line.Qty, UnitPriceCents: product.PriceCents})
		subtotal += int64(line.Qty) * product.PriceCents
	}
	if sale.DiscountCents < 0 || sale.DiscountCents > subtotal {
		return nil, store.ErrValidation
	}
	for _, line := range lines {
		s.stock[line.SKU] -= line.Qty
	}

	sale.Items = lines
	sale.SubtotalCents = subtotal
	sale.TotalCents = subtotal - sale.DiscountCents
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusPaid
	}

	stored := sale
	s.salesByID[stored.ID] = &stored
	s.salesByIdem[stored.IdempotencyKey] = &stored

	created := stored
	return &created, nil
}

func (s *Store) FindSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := *sale
	return &found, nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByIdem[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := *sale
	return &found, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 200
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		sales = append(sales, *sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) CreateInstallmentPlan(_ context.Context, plan domain.InstallmentPlan) (*domain.InstallmentPlan, error) {
	if plan.SaleID == "" || plan.TotalCents < 1 || plan.NumberOfPayments < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[plan.SaleID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, linked := s.planIDBySale[plan.SaleID]; linked {
		return nil, store.ErrDuplicate
	}

	if plan.ID == "" {
		plan.ID = xid.New("plan")
	}
	if plan.StartDate.IsZero() {
		plan.StartDate = time.Now().UTC()
	}
	if plan.NextPaymentDate.IsZero() {
		plan.NextPaymentDate = plan.StartDate.Add(domain.PaymentInterval)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	plan.RemainingCents = plan.TotalCents
	plan.Status = domain.PlanStatusActive

	stored := plan
	s.plansByID[stored.ID] = &stored
	s.planIDBySale[stored.SaleID] = stored.ID

	created := stored
	return &created, nil
}

func (s *Store) GetInstallmentPlan(_ context.Context, id string) (*domain.InstallmentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, exists := s.plansByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := *plan
	return &found, nil
}

func (s *Store) ListInstallmentPlans(_ context.Context, status string, limit int) ([]domain.InstallmentPlan, error) {
	if limit < 1 {
		limit = 200
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]domain.InstallmentPlan, 0, len(s.plansByID))
	for _, plan := range s.plansByID {
		if status != "" && plan.Status != status {
			continue
		}
		plans = append(plans, *plan)
	}
	slices.SortFunc(plans, func(a, b domain.InstallmentPlan) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if len(plans) > limit {
		plans = plans[:limit]
	}
	return plans, nil
}

func (s *Store) ListDuePlans(_ context.Context, before time.Time, limit int) ([]domain.InstallmentPlan, error) {
	if limit < 1 {
		limit = 200
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]domain.InstallmentPlan, 0, 16)
	for _, plan := range s.plansByID {
		if plan.Status != domain.PlanStatusActive || plan.NextPaymentDate.After(before) {
			continue
		}
		plans = append(plans, *plan)
	}
	slices.SortFunc(plans, func(a, b domain.InstallmentPlan) int {
		return a.NextPaymentDate.Compare(b.NextPaymentDate)
	})
	if len(plans) > limit {
		plans = plans[:limit]
	}
	return plans, nil
}

// RecordInstallmentPayment applies a payment and the resulting plan update as
// one atomic unit under the store lock, mirroring the row-lock transaction of
// the postgres implementation.
func (s *Store) RecordInstallmentPayment(_ context.Context, planID string, payment domain.InstallmentPayment) (*domain.InstallmentPaymentResult, error) {
	if payment.AmountCents < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, exists := s.plansByID[planID]
	if !exists {
		return nil, store.ErrNotFound
	}

	if payment.IdempotencyKey != "" {
		if existing, found := s.paymentsByIdem[payment.IdempotencyKey]; found {
			if existing.PlanID != planID {
				return nil, store.ErrDuplicate
			}
			return &domain.InstallmentPaymentResult{Plan: *plan, Payment: existing, Duplicate: true}, nil
		}
	}

	if plan.Status == domain.PlanStatusCompleted {
		return nil, store.ErrInvalidState
	}

	if payment.ID == "" {
		payment.ID = xid.New("ipay")
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	payment.PlanID = planID

	newRemaining := plan.RemainingCents - payment.AmountCents
	if newRemaining < 0 {
		newRemaining = 0
	}
	plan.RemainingCents = newRemaining
	if newRemaining == 0 {
		plan.Status = domain.PlanStatusCompleted
	} else {
		plan.NextPaymentDate = plan.NextPaymentDate.Add(domain.PaymentInterval)
	}

	s.paymentsByPlan[planID] = append(s.paymentsByPlan[planID], payment)
	if payment.IdempotencyKey != "" {
		s.paymentsByIdem[payment.IdempotencyKey] = payment
	}

	return &domain.InstallmentPaymentResult{Plan: *plan, Payment: payment}, nil
}

func (s *Store) ListInstallmentPayments(_ context.Context, planID string) ([]domain.InstallmentPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.plansByID[planID]; !exists {
		return nil, store.ErrNotFound
	}

	payments := make([]domain.InstallmentPayment, len(s.paymentsByPlan[planID]))
	copy(payments, s.paymentsByPlan[planID])
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].PaidAt.Before(payments[j].PaidAt)
	})
	return payments, nil
}

func (s *Store) GetInstallmentSummary(_ context.Context, asOf time.Time) (domain.InstallmentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.InstallmentSummary{AsOf: asOf.Format("2006-01-02")}
	for _, plan := range s.plansByID {
		switch plan.Status {
		case domain.PlanStatusActive:
			summary.ActivePlans++
			summary.OutstandingCents += plan.RemainingCents
			if plan.NextPaymentDate.Before(asOf) {
				summary.OverduePlans++
			}
		case domain.PlanStatusCompleted:
			summary.CompletedPlans++
		}
		summary.CollectedCents += plan.TotalCents - plan.RemainingCents
	}
	return summary, nil
}

func (s *Store) CreateCampaign(_ context.Context, campaign domain.Campaign) (*domain.Campaign, error) {
	if campaign.Name == "" {
		return nil, store.ErrValidation
	}
	if campaign.ID == "" {
		campaign.ID = xid.New("camp")
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.campaignsByID[campaign.ID] = campaign
	created := campaign
	return &created, nil
}

func (s *Store) ListCampaigns(_ context.Context) ([]domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaigns := make([]domain.Campaign, 0, len(s.campaignsByID))
	for _, c := range s.campaignsByID {
		campaigns = append(campaigns, c)
	}
	slices.SortFunc(campaigns, func(a, b domain.Campaign) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return campaigns, nil
}

func (s *Store) UpdateCampaignActive(_ context.Context, campaignID string, active bool) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, exists := s.campaignsByID[campaignID]
	if !exists {
		return nil, store.ErrNotFound
	}
	campaign.Active = active
	s.campaignsByID[campaignID] = campaign

	updated := campaign
	return &updated, nil
}

func (s *Store) GetCampaignStats(_ context.Context, campaignID string) (domain.CampaignStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.campaignsByID[campaignID]; !exists {
		return domain.CampaignStats{}, store.ErrNotFound
	}

	stats := domain.CampaignStats{CampaignID: campaignID}
	for _, sale := range s.salesByID {
		if sale.CampaignID != campaignID {
			continue
		}
		stats.Redemptions++
		stats.RevenueCents += sale.TotalCents
		stats.DiscountGivenCents += sale.DiscountCents
	}
	return stats, nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.SaleID == "" || invoice.Number == "" {
		return nil, store.ErrValidation
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.IssuedAt.IsZero() {
		invoice.IssuedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[invoice.SaleID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, issued := s.invoiceIDBySale[invoice.SaleID]; issued {
		return nil, store.ErrDuplicate
	}

	s.invoicesByID[invoice.ID] = invoice
	s.invoiceIDBySale[invoice.SaleID] = invoice.ID

	created := invoice
	return &created, nil
}

func (s *Store) GetInvoiceByID(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, exists := s.invoicesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := invoice
	return &found, nil
}

func (s *Store) GetDailyReport(_ context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{}
	byPayment := make(map[string]*domain.DailyReportPayment)
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		report.Sales++
		report.GrossSalesCents += sale.SubtotalCents
		report.DiscountCents += sale.DiscountCents
		report.NetSalesCents += sale.TotalCents

		entry, exists := byPayment[sale.PaymentMethod]
		if !exists {
			entry = &domain.DailyReportPayment{PaymentMethod: sale.PaymentMethod}
			byPayment[sale.PaymentMethod] = entry
		}
		entry.Sales++
		entry.TotalCents += sale.TotalCents
	}

	methods := make([]string, 0, len(byPayment))
	for method := range byPayment {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		report.ByPayment = append(report.ByPayment, *byPayment[method])
	}
	return report, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
		if len(logs) == limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrDuplicate
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
