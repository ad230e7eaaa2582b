package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"tokolaris/backend/internal/domain"
	"tokolaris/backend/internal/store"
)

func TestRecordInstallmentPaymentSettlesPlan(t *testing.T) {
	databaseURL := os.Getenv("TOKOLARIS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TOKOLARIS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	sku := fmt.Sprintf("SKU-INST-IT-%d", stamp)
	saleID := fmt.Sprintf("sale-inst-it-%d", stamp)
	planID := fmt.Sprintf("plan-inst-it-%d", stamp)
	idempotencyKey := fmt.Sprintf("idem-inst-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM installment_payments WHERE plan_id = $1`, planID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM installment_plans WHERE id = $1`, planID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM product_stocks WHERE sku = $1`, sku)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE sku = $1`, sku)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (sku, name, category, price_cents, active, created_at, updated_at)
		VALUES ($1, 'Produk Cicilan IT', 'elektronik', 300000, true, now(), now())
	`, sku); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO product_stocks (sku, qty, updated_at)
		VALUES ($1, 5, now())
	`, sku); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, idempotency_key, customer_id, campaign_id, payment_method, subtotal_cents, discount_cents, total_cents, status, created_at)
		VALUES ($1, $2, null, null, 'installment', 300000, 0, 300000, 'paid', now())
	`, saleID, idempotencyKey); err != nil {
		t.Fatalf("insert sale: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sale_items (sale_id, sku, qty, unit_price_cents)
		VALUES ($1, $2, 1, 300000)
	`, saleID, sku); err != nil {
		t.Fatalf("insert sale item: %v", err)
	}

	start := time.Now().UTC().Truncate(time.Second)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO installment_plans (id, sale_id, customer_name, customer_phone, total_cents, remaining_cents, number_of_payments, start_date, next_payment_date, status, created_at)
		VALUES ($1, $2, 'Budi Santoso', '0812-0000-0000', 300000, 300000, 3, $3, $4, 'active', now())
	`, planID, saleID, start, start.Add(domain.PaymentInterval)); err != nil {
		t.Fatalf("insert plan: %v", err)
	}

	first, err := s.RecordInstallmentPayment(ctx, planID, domain.InstallmentPayment{
		AmountCents:    100000,
		IdempotencyKey: fmt.Sprintf("pay-1-%d", stamp),
	})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if first.Plan.RemainingCents != 200000 {
		t.Fatalf("expected remaining 200000 after first payment, got %d", first.Plan.RemainingCents)
	}
	if !first.Plan.NextPaymentDate.After(start.Add(domain.PaymentInterval)) {
		t.Fatalf("expected next payment date to advance past %v, got %v", start.Add(domain.PaymentInterval), first.Plan.NextPaymentDate)
	}

	replay, err := s.RecordInstallmentPayment(ctx, planID, domain.InstallmentPayment{
		AmountCents:    100000,
		IdempotencyKey: fmt.Sprintf("pay-1-%d", stamp),
	})
	if err != nil {
		t.Fatalf("replayed payment: %v", err)
	}
	if !replay.Duplicate {
		t.Fatalf("expected replayed idempotency key to report duplicate")
	}
	if replay.Payment.ID != first.Payment.ID {
		t.Fatalf("expected replay to return original payment %s, got %s", first.Payment.ID, replay.Payment.ID)
	}
	if replay.Plan.RemainingCents != 200000 {
		t.Fatalf("expected replay to leave remaining at 200000, got %d", replay.Plan.RemainingCents)
	}

	final, err := s.RecordInstallmentPayment(ctx, planID, domain.InstallmentPayment{
		AmountCents:    250000,
		IdempotencyKey: fmt.Sprintf("pay-2-%d", stamp),
	})
	if err != nil {
		t.Fatalf("settling payment: %v", err)
	}
	if final.Plan.RemainingCents != 0 {
		t.Fatalf("expected overpayment to clamp remaining to 0, got %d", final.Plan.RemainingCents)
	}
	if final.Plan.Status != domain.PlanStatusCompleted {
		t.Fatalf("expected completed plan, got %s", final.Plan.Status)
	}

	var remaining int64
	var status string
	if err := s.db.QueryRowContext(ctx, `
		SELECT remaining_cents, status
		FROM installment_plans
		WHERE id = $1
	`, planID).Scan(&remaining, &status); err != nil {
		t.Fatalf("query plan: %v", err)
	}
	if remaining != 0 || status != domain.PlanStatusCompleted {
		t.Fatalf("expected persisted plan 0/%s, got %d/%s", domain.PlanStatusCompleted, remaining, status)
	}

	if _, err := s.RecordInstallmentPayment(ctx, planID, domain.InstallmentPayment{
		AmountCents:    1000,
		IdempotencyKey: fmt.Sprintf("pay-3-%d", stamp),
	}); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on completed plan, got %v", err)
	}
}
