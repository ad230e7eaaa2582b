package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tokolaris/backend/internal/cache"
	"tokolaris/backend/internal/domain"
	"tokolaris/backend/internal/notify"
	"tokolaris/backend/internal/store"
	"tokolaris/backend/internal/store/memory"
)

type captureNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (n *captureNotifier) SendOwnerDigest(subject string, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopReportCache{}, notify.NoopNotifier{}, "TokoLaris", 5*time.Second)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func mustCreateSale(t *testing.T, svc *Service, idem string) domain.Sale {
	t.Helper()
	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: idem,
		PaymentMethod:  domain.PaymentMethodInstallment,
		Items: []domain.SaleItem{
			{SKU: "SKU-KIPAS-01", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return resp.Sale
}

func mustCreatePlan(t *testing.T, svc *Service, saleID string, totalCents int64, numberOfPayments int) domain.InstallmentPlanResponse {
	t.Helper()
	resp, err := svc.CreateInstallmentPlan(cashierCtx(), domain.InstallmentPlanCreateRequest{
		SaleID:           saleID,
		CustomerName:     "Budi Santoso",
		CustomerPhone:    "0812-3456-7890",
		TotalCents:       totalCents,
		NumberOfPayments: numberOfPayments,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return resp
}

func TestCreateInstallmentPlanComputesSchedule(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-plan-schedule")

	resp := mustCreatePlan(t, svc, sale.ID, 300000, 3)
	plan := resp.Plan

	if resp.MonthlyPaymentCents != 100000 {
		t.Fatalf("expected monthly payment 100000, got %d", resp.MonthlyPaymentCents)
	}
	if plan.RemainingCents != 300000 {
		t.Fatalf("expected remaining to equal total, got %d", plan.RemainingCents)
	}
	if plan.Status != domain.PlanStatusActive {
		t.Fatalf("expected active status, got %s", plan.Status)
	}
	wantDue := plan.StartDate.Add(domain.PaymentInterval)
	if !plan.NextPaymentDate.Equal(wantDue) {
		t.Fatalf("expected next payment %s, got %s", wantDue, plan.NextPaymentDate)
	}
}

func TestCreateInstallmentPlanUnknownSale(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateInstallmentPlan(cashierCtx(), domain.InstallmentPlanCreateRequest{
		SaleID:           "sale-missing",
		CustomerName:     "Budi Santoso",
		TotalCents:       100000,
		NumberOfPayments: 2,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateInstallmentPlanRejectsSecondPlanForSale(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-plan-dup")
	mustCreatePlan(t, svc, sale.ID, 100000, 2)

	_, err := svc.CreateInstallmentPlan(cashierCtx(), domain.InstallmentPlanCreateRequest{
		SaleID:           sale.ID,
		CustomerName:     "Budi Santoso",
		TotalCents:       100000,
		NumberOfPayments: 2,
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateInstallmentPlanValidationLeavesNoState(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-plan-invalid")

	cases := []domain.InstallmentPlanCreateRequest{
		{SaleID: sale.ID, CustomerName: "Budi", TotalCents: 0, NumberOfPayments: 3},
		{SaleID: sale.ID, CustomerName: "Budi", TotalCents: -500, NumberOfPayments: 3},
		{SaleID: sale.ID, CustomerName: "Budi", TotalCents: 100000, NumberOfPayments: 0},
		{SaleID: sale.ID, CustomerName: "", TotalCents: 100000, NumberOfPayments: 3},
	}
	for i, req := range cases {
		if _, err := svc.CreateInstallmentPlan(cashierCtx(), req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}

	plans, err := svc.ListInstallmentPlans(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 0 {
		t.Fatalf("expected no plans persisted after validation failures, got %d", len(plans))
	}
}

func TestRecordPaymentReducesRemainingAndAdvancesDueDate(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-pay-basic")
	created := mustCreatePlan(t, svc, sale.ID, 300000, 3)
	firstDue := created.Plan.NextPaymentDate

	result, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 100000})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if result.Plan.RemainingCents != 200000 {
		t.Fatalf("expected remaining 200000, got %d", result.Plan.RemainingCents)
	}
	if result.Plan.Status != domain.PlanStatusActive {
		t.Fatalf("expected plan still active, got %s", result.Plan.Status)
	}
	wantDue := firstDue.Add(domain.PaymentInterval)
	if !result.Plan.NextPaymentDate.Equal(wantDue) {
		t.Fatalf("expected due date to advance from previous due date to %s, got %s", wantDue, result.Plan.NextPaymentDate)
	}
}

func TestOverpaymentClampsToZeroAndCompletes(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-pay-clamp")
	created := mustCreatePlan(t, svc, sale.ID, 300000, 3)

	if _, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 100000}); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	result, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 250000})
	if err != nil {
		t.Fatalf("overpayment: %v", err)
	}
	if result.Plan.RemainingCents != 0 {
		t.Fatalf("expected remaining clamped to 0, got %d", result.Plan.RemainingCents)
	}
	if result.Plan.Status != domain.PlanStatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Plan.Status)
	}

	_, err = svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 1000})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on completed plan, got %v", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-pay-validate")
	created := mustCreatePlan(t, svc, sale.ID, 100000, 2)

	for _, amount := range []int64{0, -5000} {
		_, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: amount})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("amount %d: expected ErrValidation, got %v", amount, err)
		}
	}

	_, err := svc.RecordInstallmentPayment(cashierCtx(), "plan-missing", domain.InstallmentPaymentRequest{AmountCents: 1000})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown plan, got %v", err)
	}

	payments, err := svc.ListInstallmentPayments(context.Background(), created.Plan.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("expected no payments persisted after failures, got %d", len(payments))
	}
}

func TestRecordPaymentIdempotencyKeyReturnsOriginal(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-pay-retry")
	created := mustCreatePlan(t, svc, sale.ID, 200000, 2)

	first, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{
		AmountCents:    100000,
		IdempotencyKey: "retry-key-1",
	})
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if first.Duplicate {
		t.Fatalf("first attempt must not be flagged duplicate")
	}

	second, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{
		AmountCents:    100000,
		IdempotencyKey: "retry-key-1",
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("expected retry to be flagged duplicate")
	}
	if second.Payment.ID != first.Payment.ID {
		t.Fatalf("expected retry to return the original payment")
	}
	if second.Plan.RemainingCents != 100000 {
		t.Fatalf("expected remaining unchanged at 100000, got %d", second.Plan.RemainingCents)
	}

	payments, err := svc.ListInstallmentPayments(context.Background(), created.Plan.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected exactly 1 payment recorded, got %d", len(payments))
	}
}

func TestConcurrentPaymentsSerialize(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-pay-concurrent")
	created := mustCreatePlan(t, svc, sale.ID, 100000, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 50000})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent payment %d failed: %v", i, err)
		}
	}

	resp, err := svc.GetInstallmentPlan(context.Background(), created.Plan.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if resp.Plan.RemainingCents != 0 {
		t.Fatalf("expected remaining 0 after both payments, got %d", resp.Plan.RemainingCents)
	}
	if resp.Plan.Status != domain.PlanStatusCompleted {
		t.Fatalf("expected plan completed, got %s", resp.Plan.Status)
	}

	payments, err := svc.ListInstallmentPayments(context.Background(), created.Plan.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected both payments recorded, got %d", len(payments))
	}
	var sum int64
	for _, p := range payments {
		sum += p.AmountCents
	}
	if sum != 100000 {
		t.Fatalf("expected recorded payments to sum to 100000, got %d", sum)
	}
}

func TestListInstallmentPaymentsOrderedByPaidAt(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-pay-order")
	created := mustCreatePlan(t, svc, sale.ID, 300000, 3)

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{
			AmountCents: 50000,
			Notes:       fmt.Sprintf("cicilan %d", i+1),
		}); err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
	}

	payments, err := svc.ListInstallmentPayments(context.Background(), created.Plan.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(payments))
	}
	for i := 1; i < len(payments); i++ {
		if payments[i].PaidAt.Before(payments[i-1].PaidAt) {
			t.Fatalf("payments not ordered by paid_at ascending")
		}
	}

	_, err = svc.ListInstallmentPayments(context.Background(), "plan-missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown plan, got %v", err)
	}
}

func TestListInstallmentPlansFiltersByStatus(t *testing.T) {
	svc := newTestService()

	saleA := mustCreateSale(t, svc, "idem-plan-filter-a")
	planA := mustCreatePlan(t, svc, saleA.ID, 100000, 2)
	if _, err := svc.RecordInstallmentPayment(cashierCtx(), planA.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 100000}); err != nil {
		t.Fatalf("complete plan: %v", err)
	}

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: "idem-plan-filter-b",
		PaymentMethod:  domain.PaymentMethodInstallment,
		Items:          []domain.SaleItem{{SKU: "SKU-RICE-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}
	mustCreatePlan(t, svc, resp.Sale.ID, 200000, 4)

	active, err := svc.ListInstallmentPlans(context.Background(), domain.PlanStatusActive, 0)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active plan, got %d", len(active))
	}

	completed, err := svc.ListInstallmentPlans(context.Background(), domain.PlanStatusCompleted, 0)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed plan, got %d", len(completed))
	}

	if _, err := svc.ListInstallmentPlans(context.Background(), "bogus", 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status filter, got %v", err)
	}
}

func TestCreateSaleAppliesBestCampaignDiscount(t *testing.T) {
	svc := newTestService()

	if _, err := svc.CreateCampaign(adminCtx(), domain.CampaignCreateRequest{
		Name:            "Promo Gajian",
		Type:            domain.CampaignTypePercent,
		DiscountPercent: 10,
	}); err != nil {
		t.Fatalf("create percent campaign: %v", err)
	}
	flat, err := svc.CreateCampaign(adminCtx(), domain.CampaignCreateRequest{
		Name:              "Diskon Kipas",
		Type:              domain.CampaignTypeFlat,
		FlatDiscountCents: 5000000,
	})
	if err != nil {
		t.Fatalf("create flat campaign: %v", err)
	}

	resp, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: "idem-campaign-sale",
		PaymentMethod:  domain.PaymentMethodCash,
		Items:          []domain.SaleItem{{SKU: "SKU-KIPAS-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// Subtotal 24900000: flat 5000000 beats 10 percent (2490000).
	if resp.Sale.DiscountCents != 5000000 {
		t.Fatalf("expected flat discount 5000000, got %d", resp.Sale.DiscountCents)
	}
	if resp.Sale.CampaignID != flat.ID {
		t.Fatalf("expected sale tagged with flat campaign, got %q", resp.Sale.CampaignID)
	}
	if resp.Sale.TotalCents != resp.Sale.SubtotalCents-resp.Sale.DiscountCents {
		t.Fatalf("total does not reflect discount")
	}

	stats, err := svc.GetCampaignStats(context.Background(), flat.ID)
	if err != nil {
		t.Fatalf("campaign stats: %v", err)
	}
	if stats.Redemptions != 1 || stats.DiscountGivenCents != 5000000 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCreateSaleIdempotencyReturnsStoredSale(t *testing.T) {
	svc := newTestService()

	first, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: "idem-sale-dup",
		PaymentMethod:  domain.PaymentMethodCash,
		Items:          []domain.SaleItem{{SKU: "SKU-RICE-01", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}

	second, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: "idem-sale-dup",
		PaymentMethod:  domain.PaymentMethodCash,
		Items:          []domain.SaleItem{{SKU: "SKU-RICE-01", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("duplicate sale: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("expected duplicate flag on retry")
	}
	if second.Sale.ID != first.Sale.ID {
		t.Fatalf("expected stored sale to be returned")
	}
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: "idem-sale-stock",
		PaymentMethod:  domain.PaymentMethodCash,
		Items:          []domain.SaleItem{{SKU: "SKU-TV-01", Qty: 500}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		SKU: "SKU-NEW-01", Name: "Blender", Category: "appliance", PriceCents: 9900000, InitialStock: 5,
	})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("expected admin requirement, got %v", err)
	}

	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		SKU: "sku-new-01", Name: "Blender", Category: "appliance", PriceCents: 9900000, InitialStock: 5,
	})
	if err != nil {
		t.Fatalf("admin create product: %v", err)
	}
	if product.SKU != "SKU-NEW-01" {
		t.Fatalf("expected sku uppercased, got %s", product.SKU)
	}
}

func TestCreateInvoiceOncePerSale(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-invoice")

	resp, err := svc.CreateInvoice(cashierCtx(), domain.InvoiceCreateRequest{SaleID: sale.ID})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if !strings.HasPrefix(resp.Invoice.Number, "INV-") {
		t.Fatalf("unexpected invoice number %q", resp.Invoice.Number)
	}
	if resp.Invoice.TotalCents != sale.TotalCents {
		t.Fatalf("invoice total %d does not match sale total %d", resp.Invoice.TotalCents, sale.TotalCents)
	}
	if !strings.Contains(resp.Text, resp.Invoice.Number) {
		t.Fatalf("rendered text missing invoice number")
	}

	_, err = svc.CreateInvoice(cashierCtx(), domain.InvoiceCreateRequest{SaleID: sale.ID})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on second invoice, got %v", err)
	}

	_, err = svc.CreateInvoice(cashierCtx(), domain.InvoiceCreateRequest{SaleID: "sale-missing"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown sale, got %v", err)
	}
}

func TestDailyReportAggregatesSales(t *testing.T) {
	svc := newTestService()

	mustCreateSale(t, svc, "idem-report-a")
	if _, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: "idem-report-b",
		PaymentMethod:  domain.PaymentMethodCash,
		Items:          []domain.SaleItem{{SKU: "SKU-RICE-01", Qty: 1}},
	}); err != nil {
		t.Fatalf("cash sale: %v", err)
	}

	report, err := svc.DailyReport(context.Background(), "")
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if report.Sales != 2 {
		t.Fatalf("expected 2 sales in report, got %d", report.Sales)
	}
	if report.NetSalesCents != report.GrossSalesCents-report.DiscountCents {
		t.Fatalf("net does not equal gross minus discount")
	}
	if len(report.ByPayment) != 2 {
		t.Fatalf("expected 2 payment method buckets, got %d", len(report.ByPayment))
	}

	if _, err := svc.DailyReport(context.Background(), "31-12-2025"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad date, got %v", err)
	}
}

func TestInstallmentSummaryCounts(t *testing.T) {
	svc := newTestService()

	saleA := mustCreateSale(t, svc, "idem-summary-a")
	planA := mustCreatePlan(t, svc, saleA.ID, 100000, 2)
	if _, err := svc.RecordInstallmentPayment(cashierCtx(), planA.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 100000}); err != nil {
		t.Fatalf("complete plan: %v", err)
	}

	respB, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		IdempotencyKey: "idem-summary-b",
		PaymentMethod:  domain.PaymentMethodInstallment,
		Items:          []domain.SaleItem{{SKU: "SKU-RICE-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}
	planB := mustCreatePlan(t, svc, respB.Sale.ID, 400000, 4)
	if _, err := svc.RecordInstallmentPayment(cashierCtx(), planB.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 150000}); err != nil {
		t.Fatalf("partial payment: %v", err)
	}

	summary, err := svc.InstallmentSummary(context.Background(), "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.ActivePlans != 1 || summary.CompletedPlans != 1 {
		t.Fatalf("unexpected plan counts: %+v", summary)
	}
	if summary.OutstandingCents != 250000 {
		t.Fatalf("expected outstanding 250000, got %d", summary.OutstandingCents)
	}
	if summary.CollectedCents != 250000 {
		t.Fatalf("expected collected 250000, got %d", summary.CollectedCents)
	}
}

func TestSendDueInstallmentDigest(t *testing.T) {
	repo := memory.NewSeeded()
	notifier := &captureNotifier{}
	svc := New(repo, cache.NoopReportCache{}, notifier, "TokoLaris", 5*time.Second)

	sale := mustCreateSale(t, svc, "idem-digest")
	if _, err := svc.CreateInstallmentPlan(cashierCtx(), domain.InstallmentPlanCreateRequest{
		SaleID:           sale.ID,
		CustomerName:     "Budi Santoso",
		TotalCents:       120000,
		NumberOfPayments: 2,
		StartDate:        time.Now().UTC().Add(-90 * 24 * time.Hour).Format("2006-01-02"),
	}); err != nil {
		t.Fatalf("create overdue plan: %v", err)
	}

	due, err := svc.SendDueInstallmentDigest(context.Background())
	if err != nil {
		t.Fatalf("send digest: %v", err)
	}
	if due != 1 {
		t.Fatalf("expected 1 due plan, got %d", due)
	}
	if len(notifier.bodies) != 1 || !strings.Contains(notifier.bodies[0], "Budi Santoso") {
		t.Fatalf("digest body missing due plan details: %v", notifier.bodies)
	}
}

func TestAuditLogWrittenForPayments(t *testing.T) {
	svc := newTestService()
	sale := mustCreateSale(t, svc, "idem-audit")
	created := mustCreatePlan(t, svc, sale.ID, 100000, 2)

	if _, err := svc.RecordInstallmentPayment(cashierCtx(), created.Plan.ID, domain.InstallmentPaymentRequest{AmountCents: 50000}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	logs, err := svc.ListAuditLogs(adminCtx(), time.Now().UTC().Format("2006-01-02"), 100)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}

	found := false
	for _, entry := range logs {
		if entry.Action == "installment_payment" && entry.EntityID == created.Plan.ID {
			if entry.ActorUsername != "cashier" {
				t.Fatalf("expected cashier actor, got %s", entry.ActorUsername)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected installment_payment audit entry")
	}
}
