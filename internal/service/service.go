package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"tokolaris/backend/internal/cache"
	"tokolaris/backend/internal/domain"
	"tokolaris/backend/internal/notify"
	"tokolaris/backend/internal/store"
	"tokolaris/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	reports   cache.ReportCache
	notifier  notify.Notifier
	storeName string
	cacheTTL  time.Duration
}

func New(repo store.Repository, reports cache.ReportCache, notifier notify.Notifier, storeName string, cacheTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if storeName == "" {
		storeName = "TokoLaris"
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:      repo,
		reports:   reports,
		notifier:  notifier,
		storeName: storeName,
		cacheTTL:  cacheTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrValidation
	}
	if req.PriceCents < 1 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrValidation
	}

	product := domain.Product{
		SKU:        req.SKU,
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Active:     true,
	}

	created, err := s.repo.CreateProduct(ctx, product, req.InitialStock)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.SKU, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, req.InitialStock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sku string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrValidation
	}

	existing, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrValidation
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.SKU, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.PriceCents))
	return *saved, nil
}

func (s *Service) RestockProduct(ctx context.Context, sku string, qty int) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" || qty < 1 {
		return store.ErrValidation
	}

	if err := s.repo.IncreaseStock(ctx, sku, qty); err != nil {
		return err
	}

	s.logAudit(ctx, "product_restock", "product", sku, fmt.Sprintf("qty=%d", qty))
	return nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		return domain.Customer{}, store.ErrValidation
	}

	customer := domain.Customer{
		ID:        xid.New("cust"),
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: time.Now().UTC(),
	}

	saved, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, limit)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Supplier{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Supplier{}, store.ErrValidation
	}

	supplier := domain.Supplier{
		ID:        xid.New("sup"),
		Name:      req.Name,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: time.Now().UTC(),
	}

	saved, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logAudit(ctx, "supplier_create", "supplier", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleResponse, error) {
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodCash
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.SaleResponse{}, store.ErrValidation
	}
	if req.DiscountCents < 0 {
		return domain.SaleResponse{}, store.ErrValidation
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}

	normalized := normalizeItems(req.Items)
	if len(normalized) == 0 {
		return domain.SaleResponse{}, store.ErrValidation
	}

	if existing, err := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); err == nil {
		return domain.SaleResponse{Sale: *existing, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.SaleResponse{}, err
	}

	if req.CustomerID != "" {
		if _, err := s.repo.GetCustomerByID(ctx, req.CustomerID); err != nil {
			return domain.SaleResponse{}, err
		}
	}

	skus := make([]string, 0, len(normalized))
	for _, item := range normalized {
		skus = append(skus, item.SKU)
	}
	products, err := s.repo.GetProductsBySKUs(ctx, skus)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	subtotal := int64(0)
	for _, item := range normalized {
		product, exists := products[item.SKU]
		if !exists {
			return domain.SaleResponse{}, store.ErrValidation
		}
		subtotal += int64(item.Qty) * product.PriceCents
	}

	campaignID, campaignDiscount, err := s.bestCampaignDiscount(ctx, subtotal, time.Now().UTC())
	if err != nil {
		return domain.SaleResponse{}, err
	}
	discount := req.DiscountCents + campaignDiscount
	if discount > subtotal {
		discount = subtotal
	}

	sale := domain.Sale{
		ID:             xid.New("sale"),
		IdempotencyKey: req.IdempotencyKey,
		CustomerID:     req.CustomerID,
		CampaignID:     campaignID,
		PaymentMethod:  req.PaymentMethod,
		DiscountCents:  discount,
		Status:         domain.SaleStatusPaid,
		CreatedAt:      time.Now().UTC(),
		Items:          normalized,
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	duplicate := created.ID != sale.ID

	s.logAudit(ctx, "sale_create", "sale", created.ID,
		fmt.Sprintf("total=%d,payment=%s,discount=%d,campaign=%s", created.TotalCents, created.PaymentMethod, created.DiscountCents, campaignID))
	s.invalidateReportCaches(ctx)

	return domain.SaleResponse{Sale: *created, Duplicate: duplicate}, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.FindSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, date string, limit int) ([]domain.Sale, error) {
	from, to, err := dayRange(date)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, from, to, limit)
}

func (s *Service) CreateInstallmentPlan(ctx context.Context, req domain.InstallmentPlanCreateRequest) (domain.InstallmentPlanResponse, error) {
	req.SaleID = strings.TrimSpace(req.SaleID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)

	if req.SaleID == "" || req.TotalCents < 1 || req.NumberOfPayments < 1 {
		return domain.InstallmentPlanResponse{}, store.ErrValidation
	}

	// Snapshot name and phone from the customer record when one is given;
	// the snapshot never changes after creation.
	if req.CustomerID != "" {
		customer, err := s.repo.GetCustomerByID(ctx, req.CustomerID)
		if err != nil {
			return domain.InstallmentPlanResponse{}, err
		}
		if req.CustomerName == "" {
			req.CustomerName = customer.Name
		}
		if req.CustomerPhone == "" {
			req.CustomerPhone = customer.Phone
		}
	}
	if req.CustomerName == "" {
		return domain.InstallmentPlanResponse{}, store.ErrValidation
	}

	startDate := time.Now().UTC()
	if strings.TrimSpace(req.StartDate) != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return domain.InstallmentPlanResponse{}, store.ErrValidation
		}
		startDate = parsed.UTC()
	}

	plan := domain.InstallmentPlan{
		ID:               xid.New("plan"),
		SaleID:           req.SaleID,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		TotalCents:       req.TotalCents,
		NumberOfPayments: req.NumberOfPayments,
		StartDate:        startDate,
		NextPaymentDate:  startDate.Add(domain.PaymentInterval),
		CreatedAt:        time.Now().UTC(),
	}

	saved, err := s.repo.CreateInstallmentPlan(ctx, plan)
	if err != nil {
		return domain.InstallmentPlanResponse{}, err
	}

	s.logAudit(ctx, "installment_plan_create", "installment_plan", saved.ID,
		fmt.Sprintf("sale=%s,total=%d,payments=%d", saved.SaleID, saved.TotalCents, saved.NumberOfPayments))
	s.invalidateReportCaches(ctx)

	return domain.InstallmentPlanResponse{Plan: *saved, MonthlyPaymentCents: saved.MonthlyPaymentCents()}, nil
}

func (s *Service) GetInstallmentPlan(ctx context.Context, id string) (domain.InstallmentPlanResponse, error) {
	plan, err := s.repo.GetInstallmentPlan(ctx, id)
	if err != nil {
		return domain.InstallmentPlanResponse{}, err
	}
	return domain.InstallmentPlanResponse{Plan: *plan, MonthlyPaymentCents: plan.MonthlyPaymentCents()}, nil
}

func (s *Service) ListInstallmentPlans(ctx context.Context, status string, limit int) ([]domain.InstallmentPlanResponse, error) {
	status = strings.TrimSpace(status)
	if status != "" && status != domain.PlanStatusActive && status != domain.PlanStatusCompleted {
		return nil, store.ErrValidation
	}

	plans, err := s.repo.ListInstallmentPlans(ctx, status, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.InstallmentPlanResponse, 0, len(plans))
	for _, plan := range plans {
		responses = append(responses, domain.InstallmentPlanResponse{Plan: plan, MonthlyPaymentCents: plan.MonthlyPaymentCents()})
	}
	return responses, nil
}

func (s *Service) ListDuePlans(ctx context.Context, before time.Time, limit int) ([]domain.InstallmentPlan, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}
	return s.repo.ListDuePlans(ctx, before, limit)
}

func (s *Service) RecordInstallmentPayment(ctx context.Context, planID string, req domain.InstallmentPaymentRequest) (domain.InstallmentPaymentResult, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return domain.InstallmentPaymentResult{}, store.ErrValidation
	}
	if req.AmountCents < 1 {
		return domain.InstallmentPaymentResult{}, store.ErrValidation
	}

	payment := domain.InstallmentPayment{
		ID:             xid.New("ipay"),
		AmountCents:    req.AmountCents,
		PaidAt:         time.Now().UTC(),
		Notes:          strings.TrimSpace(req.Notes),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	}

	result, err := s.repo.RecordInstallmentPayment(ctx, planID, payment)
	if err != nil {
		return domain.InstallmentPaymentResult{}, err
	}

	if !result.Duplicate {
		s.logAudit(ctx, "installment_payment", "installment_plan", planID,
			fmt.Sprintf("amount=%d,remaining=%d,status=%s", result.Payment.AmountCents, result.Plan.RemainingCents, result.Plan.Status))
		s.invalidateReportCaches(ctx)
	}

	return *result, nil
}

func (s *Service) ListInstallmentPayments(ctx context.Context, planID string) ([]domain.InstallmentPayment, error) {
	return s.repo.ListInstallmentPayments(ctx, planID)
}

func (s *Service) CreateCampaign(ctx context.Context, req domain.CampaignCreateRequest) (domain.Campaign, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Campaign{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Campaign{}, store.ErrValidation
	}

	switch req.Type {
	case domain.CampaignTypePercent:
		if req.DiscountPercent <= 0 || req.DiscountPercent > 100 {
			return domain.Campaign{}, store.ErrValidation
		}
	case domain.CampaignTypeFlat:
		if req.FlatDiscountCents < 1 {
			return domain.Campaign{}, store.ErrValidation
		}
	default:
		return domain.Campaign{}, store.ErrValidation
	}
	if req.MinSubtotalCents < 0 {
		return domain.Campaign{}, store.ErrValidation
	}

	now := time.Now().UTC()
	startsAt := now
	endsAt := now.Add(30 * 24 * time.Hour)
	if strings.TrimSpace(req.StartsAt) != "" {
		parsed, err := time.Parse("2006-01-02", req.StartsAt)
		if err != nil {
			return domain.Campaign{}, store.ErrValidation
		}
		startsAt = parsed.UTC()
	}
	if strings.TrimSpace(req.EndsAt) != "" {
		parsed, err := time.Parse("2006-01-02", req.EndsAt)
		if err != nil {
			return domain.Campaign{}, store.ErrValidation
		}
		endsAt = parsed.UTC()
	}
	if !endsAt.After(startsAt) {
		return domain.Campaign{}, store.ErrValidation
	}

	campaign := domain.Campaign{
		ID:                xid.New("camp"),
		Name:              req.Name,
		Type:              req.Type,
		DiscountPercent:   req.DiscountPercent,
		FlatDiscountCents: req.FlatDiscountCents,
		MinSubtotalCents:  req.MinSubtotalCents,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		Active:            true,
		CreatedAt:         now,
	}

	saved, err := s.repo.CreateCampaign(ctx, campaign)
	if err != nil {
		return domain.Campaign{}, err
	}

	s.logAudit(ctx, "campaign_create", "campaign", saved.ID, fmt.Sprintf("type=%s,name=%s", saved.Type, saved.Name))
	return *saved, nil
}

func (s *Service) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.ListCampaigns(ctx)
}

func (s *Service) SetCampaignActive(ctx context.Context, campaignID string, active bool) (domain.Campaign, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Campaign{}, fmt.Errorf("admin role required")
	}

	saved, err := s.repo.UpdateCampaignActive(ctx, campaignID, active)
	if err != nil {
		return domain.Campaign{}, err
	}

	s.logAudit(ctx, "campaign_toggle", "campaign", campaignID, fmt.Sprintf("active=%t", active))
	return *saved, nil
}

func (s *Service) GetCampaignStats(ctx context.Context, campaignID string) (domain.CampaignStats, error) {
	return s.repo.GetCampaignStats(ctx, campaignID)
}

func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (domain.InvoiceResponse, error) {
	req.SaleID = strings.TrimSpace(req.SaleID)
	if req.SaleID == "" {
		return domain.InvoiceResponse{}, store.ErrValidation
	}

	sale, err := s.repo.FindSaleByID(ctx, req.SaleID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	customerName := ""
	if sale.CustomerID != "" {
		customer, err := s.repo.GetCustomerByID(ctx, sale.CustomerID)
		if err == nil {
			customerName = customer.Name
		}
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:            xid.New("inv"),
		Number:        invoiceNumber(now),
		SaleID:        sale.ID,
		CustomerName:  customerName,
		SubtotalCents: sale.SubtotalCents,
		DiscountCents: sale.DiscountCents,
		TotalCents:    sale.TotalCents,
		IssuedAt:      now,
	}

	saved, err := s.repo.CreateInvoice(ctx, invoice)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	s.logAudit(ctx, "invoice_create", "invoice", saved.ID, fmt.Sprintf("number=%s,sale=%s", saved.Number, saved.SaleID))
	return domain.InvoiceResponse{Invoice: *saved, Text: s.renderInvoiceText(*saved, sale.Items)}, nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.InvoiceResponse, error) {
	invoice, err := s.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	var items []domain.SaleLine
	if sale, err := s.repo.FindSaleByID(ctx, invoice.SaleID); err == nil {
		items = sale.Items
	}

	return domain.InvoiceResponse{Invoice: *invoice, Text: s.renderInvoiceText(*invoice, items)}, nil
}

func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	from, to, err := dayRange(date)
	if err != nil {
		return domain.DailyReport{}, err
	}

	cacheKey := "report:daily:" + from.Format("2006-01-02")
	if payload, hit, err := s.reports.Get(ctx, cacheKey); err != nil {
		log.Printf("[service] WARN: report cache read failed key=%s: %v", cacheKey, err)
	} else if hit {
		var cached domain.DailyReport
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	report, err := s.repo.GetDailyReport(ctx, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}
	report.Date = from.Format("2006-01-02")

	if payload, err := json.Marshal(report); err == nil {
		if err := s.reports.Set(ctx, cacheKey, payload, s.cacheTTL); err != nil {
			log.Printf("[service] WARN: report cache write failed key=%s: %v", cacheKey, err)
		}
	}
	return report, nil
}

func (s *Service) InstallmentSummary(ctx context.Context, date string) (domain.InstallmentSummary, error) {
	asOf, _, err := dayRange(date)
	if err != nil {
		return domain.InstallmentSummary{}, err
	}

	cacheKey := "report:installments:" + asOf.Format("2006-01-02")
	if payload, hit, err := s.reports.Get(ctx, cacheKey); err != nil {
		log.Printf("[service] WARN: report cache read failed key=%s: %v", cacheKey, err)
	} else if hit {
		var cached domain.InstallmentSummary
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	summary, err := s.repo.GetInstallmentSummary(ctx, asOf)
	if err != nil {
		return domain.InstallmentSummary{}, err
	}

	if payload, err := json.Marshal(summary); err == nil {
		if err := s.reports.Set(ctx, cacheKey, payload, s.cacheTTL); err != nil {
			log.Printf("[service] WARN: report cache write failed key=%s: %v", cacheKey, err)
		}
	}
	return summary, nil
}

// SendDueInstallmentDigest collects plans whose next payment date has passed
// and mails a summary to the owner. It reads plan state only.
func (s *Service) SendDueInstallmentDigest(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	due, err := s.repo.ListDuePlans(ctx, now, 500)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d installment plan(s) due as of %s\n\n", len(due), now.Format("2006-01-02"))
	for _, plan := range due {
		fmt.Fprintf(&b, "- %s (%s): due %s, remaining %d of %d\n",
			plan.CustomerName, plan.ID, plan.NextPaymentDate.Format("2006-01-02"), plan.RemainingCents, plan.TotalCents)
	}

	subject := fmt.Sprintf("%s: %d installment payment(s) due", s.storeName, len(due))
	if err := s.notifier.SendOwnerDigest(subject, b.String()); err != nil {
		return 0, err
	}

	s.logAudit(ctx, "installment_digest", "installment_plan", "", fmt.Sprintf("due=%d", len(due)))
	return len(due), nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrValidation
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) bestCampaignDiscount(ctx context.Context, subtotalCents int64, now time.Time) (string, int64, error) {
	if subtotalCents < 1 {
		return "", 0, nil
	}

	campaigns, err := s.repo.ListCampaigns(ctx)
	if err != nil {
		return "", 0, err
	}

	bestID := ""
	var best int64
	for _, campaign := range campaigns {
		if !campaign.Active || subtotalCents < campaign.MinSubtotalCents {
			continue
		}
		if now.Before(campaign.StartsAt) || now.After(campaign.EndsAt) {
			continue
		}

		discount := int64(0)
		switch campaign.Type {
		case domain.CampaignTypePercent:
			discount = int64(math.Round(float64(subtotalCents) * campaign.DiscountPercent / 100))
		case domain.CampaignTypeFlat:
			discount = campaign.FlatDiscountCents
		}

		if discount > best {
			best = discount
			bestID = campaign.ID
		}
	}
	if best > subtotalCents {
		best = subtotalCents
	}
	return bestID, best, nil
}

func (s *Service) renderInvoiceText(invoice domain.Invoice, items []domain.SaleLine) string {
	lines := []string{
		s.storeName,
		"========================",
		"Invoice : " + invoice.Number,
		"Sale    : " + invoice.SaleID,
		"Date    : " + invoice.IssuedAt.Format("2006-01-02 15:04:05"),
	}
	if invoice.CustomerName != "" {
		lines = append(lines, "Customer: "+invoice.CustomerName)
	}
	lines = append(lines, "------------------------")
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s x%d", item.SKU, item.Qty))
		lines = append(lines, fmt.Sprintf("  %d", item.UnitPriceCents*int64(item.Qty)))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Subtotal : %d", invoice.SubtotalCents),
		fmt.Sprintf("Diskon   : %d", invoice.DiscountCents),
		fmt.Sprintf("Total    : %d", invoice.TotalCents),
		"========================",
		"Terima kasih",
		"",
	)
	return strings.Join(lines, "\n")
}

func (s *Service) invalidateReportCaches(ctx context.Context) {
	today := time.Now().UTC().Format("2006-01-02")
	keys := []string{"report:daily:" + today, "report:installments:" + today}
	if err := s.reports.Invalidate(ctx, keys...); err != nil {
		log.Printf("[service] WARN: report cache invalidation failed: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodQRIS, domain.PaymentMethodInstallment:
		return true
	}
	return false
}

func normalizeItems(items []domain.SaleItem) []domain.SaleLine {
	merged := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		sku := strings.ToUpper(strings.TrimSpace(item.SKU))
		if sku == "" || item.Qty < 1 {
			continue
		}
		if _, seen := merged[sku]; !seen {
			order = append(order, sku)
		}
		merged[sku] += item.Qty
	}

	normalized := make([]domain.SaleLine, 0, len(order))
	for _, sku := range order {
		normalized = append(normalized, domain.SaleLine{SKU: sku, Qty: merged[sku]})
	}
	return normalized
}

func dayRange(date string) (time.Time, time.Time, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		now := time.Now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}, time.Time{}, store.ErrValidation
		}
		day = parsed.UTC()
	}
	return day, day.Add(24 * time.Hour), nil
}

func invoiceNumber(now time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("INV-%s-%d", now.Format("20060102"), now.UnixNano()%1000000)
	}
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(buf)))
}
