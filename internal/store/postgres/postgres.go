package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokolaris/backend/internal/domain"
	"tokolaris/backend/internal/store"
	"tokolaris/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, category, price_cents, active
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &p.PriceCents, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product, initialStock int) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 || initialStock < 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	product.Active = true
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO products (sku, name, category, price_cents, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
	`, product.SKU, product.Name, product.Category, product.PriceCents, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO product_stocks (sku, qty, updated_at)
		VALUES ($1,$2,now())
	`, product.SKU, initialStock)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT sku, name, category, price_cents, active
		FROM products
		WHERE sku = $1
	`, sku).Scan(&product.SKU, &product.Name, &product.Category, &product.PriceCents, &product.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, price_cents = $4, active = $5, updated_at = now()
		WHERE sku = $1
	`, product.SKU, product.Name, product.Category, product.PriceCents, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) GetProductsBySKUs(ctx context.Context, skus []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, category, price_cents, active
		FROM products
		WHERE active = true AND sku = ANY($1)
	`, skus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &p.PriceCents, &p.Active); err != nil {
			return nil, err
		}
		result[p.SKU] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetStockMap(ctx context.Context, skus []string) (map[string]int, error) {
	result := make(map[string]int, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, qty
		FROM product_stocks
		WHERE sku = ANY($1)
	`, skus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sku string
		var qty int
		if err := rows.Scan(&sku, &qty); err != nil {
			return nil, err
		}
		result[sku] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) IncreaseStock(ctx context.Context, sku string, qty int) error {
	if sku == "" || qty < 1 {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE product_stocks
		SET qty = qty + $2, updated_at = now()
		WHERE sku = $1
	`, sku, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, address, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	var phone, address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, address, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &phone, &address, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	customer.Phone = phone.String
	customer.Address = address.String
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, address, created_at
		FROM customers
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, limit)
	for rows.Next() {
		var customer domain.Customer
		var phone, address sql.NullString
		if err := rows.Scan(&customer.ID, &customer.Name, &phone, &address, &customer.CreatedAt); err != nil {
			return nil, err
		}
		customer.Phone = phone.String
		customer.Address = address.String
		customer.CreatedAt = customer.CreatedAt.UTC()
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrValidation
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, supplier.ID, supplier.Name, nullIfEmpty(supplier.Phone), supplier.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var supplier domain.Supplier
		var phone sql.NullString
		if err := rows.Scan(&supplier.ID, &supplier.Name, &phone, &supplier.CreatedAt); err != nil {
			return nil, err
		}
		supplier.Phone = phone.String
		supplier.CreatedAt = supplier.CreatedAt.UTC()
		suppliers = append(suppliers, supplier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.IdempotencyKey == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	skus := make([]string, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.SKU == "" || item.Qty < 1 {
			return nil, store.ErrValidation
		}
		skus = append(skus, item.SKU)
	}

	productRows, err := pgTx.QueryContext(ctx, `
		SELECT sku, price_cents
		FROM products
		WHERE active = true AND sku = ANY($1)
	`, skus)
	if err != nil {
		return nil, err
	}
	priceMap := make(map[string]int64, len(skus))
	for productRows.Next() {
		var sku string
		var priceCents int64
		if err := productRows.Scan(&sku, &priceCents); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		priceMap[sku] = priceCents
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	stockRows, err := pgTx.QueryContext(ctx, `
		SELECT sku, qty
		FROM product_stocks
		WHERE sku = ANY($1)
		FOR UPDATE
	`, skus)
	if err != nil {
		return nil, err
	}
	stockMap := make(map[string]int, len(skus))
	for stockRows.Next() {
		var sku string
		var qty int
		if err := stockRows.Scan(&sku, &qty); err != nil {
			_ = stockRows.Close()
			return nil, err
		}
		stockMap[sku] = qty
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return nil, err
	}
	_ = stockRows.Close()

	subtotal := int64(0)
	lines := make([]domain.SaleLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		priceCents, exists := priceMap[item.SKU]
		if !exists {
			return nil, store.ErrValidation
		}
		qty, exists := stockMap[item.SKU]
		if !exists || qty < item.Qty {
			return nil, store.ErrInsufficientStock
		}

		_, err = pgTx.ExecContext(ctx, `
			UPDATE product_stocks
			SET qty = qty - $2, updated_at = now()
			WHERE sku = $1
		`, item.SKU, item.Qty)
		if err != nil {
			return nil, err
		}

		lines = append(lines, domain.SaleLine{SKU: item.SKU, Qty: item.Qty, UnitPriceCents: priceCents})
		subtotal += int64(item.Qty) * priceCents
	}

	if sale.DiscountCents < 0 || sale.DiscountCents > subtotal {
		return nil, store.ErrValidation
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

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (id, idempotency_key, customer_id, campaign_id, payment_method, subtotal_cents, discount_cents, total_cents, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sale.ID, sale.IdempotencyKey, nullIfEmpty(sale.CustomerID), nullIfEmpty(sale.CampaignID), sale.PaymentMethod,
		sale.SubtotalCents, sale.DiscountCents, sale.TotalCents, sale.Status, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.FindSaleByIdempotency(ctx, sale.IdempotencyKey)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	for _, line := range sale.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, sku, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4)
		`, sale.ID, line.SKU, line.Qty, line.UnitPriceCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) FindSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	return s.findSale(ctx, "id", id)
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	return s.findSale(ctx, "idempotency_key", key)
}

func (s *Store) findSale(ctx context.Context, column string, value string) (*domain.Sale, error) {
	query := `
		SELECT id, idempotency_key, customer_id, campaign_id, payment_method, subtotal_cents, discount_cents, total_cents, status, created_at
		FROM sales
		WHERE ` + column + ` = $1`

	var sale domain.Sale
	var customerID, campaignID sql.NullString
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&sale.ID, &sale.IdempotencyKey, &customerID, &campaignID, &sale.PaymentMethod,
		&sale.SubtotalCents, &sale.DiscountCents, &sale.TotalCents, &sale.Status, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CustomerID = customerID.String
	sale.CampaignID = campaignID.String
	sale.CreatedAt = sale.CreatedAt.UTC()

	items, err := s.listSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) listSaleItems(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, qty, unit_price_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY sku
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleLine, 0, 8)
	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.SKU, &line.Qty, &line.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idempotency_key, customer_id, campaign_id, payment_method, subtotal_cents, discount_cents, total_cents, status, created_at
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var customerID, campaignID sql.NullString
		if err := rows.Scan(&sale.ID, &sale.IdempotencyKey, &customerID, &campaignID, &sale.PaymentMethod,
			&sale.SubtotalCents, &sale.DiscountCents, &sale.TotalCents, &sale.Status, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CustomerID = customerID.String
		sale.CampaignID = campaignID.String
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateInstallmentPlan(ctx context.Context, plan domain.InstallmentPlan) (*domain.InstallmentPlan, error) {
	if plan.SaleID == "" || plan.TotalCents < 1 || plan.NumberOfPayments < 1 {
		return nil, store.ErrValidation
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

	var saleExists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`, plan.SaleID).Scan(&saleExists)
	if err != nil {
		return nil, err
	}
	if !saleExists {
		return nil, store.ErrNotFound
	}

	// The unique index on sale_id enforces the exclusive 1:1 sale link even
	// when two creations race past the existence check.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO installment_plans (id, sale_id, customer_name, customer_phone, total_cents, remaining_cents, number_of_payments, start_date, next_payment_date, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, plan.ID, plan.SaleID, plan.CustomerName, nullIfEmpty(plan.CustomerPhone), plan.TotalCents, plan.RemainingCents,
		plan.NumberOfPayments, plan.StartDate, plan.NextPaymentDate, plan.Status, plan.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := plan
	return &created, nil
}

func (s *Store) GetInstallmentPlan(ctx context.Context, id string) (*domain.InstallmentPlan, error) {
	return scanPlan(s.db.QueryRowContext(ctx, `
		SELECT id, sale_id, customer_name, customer_phone, total_cents, remaining_cents, number_of_payments, start_date, next_payment_date, status, created_at
		FROM installment_plans
		WHERE id = $1
	`, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.InstallmentPlan, error) {
	var plan domain.InstallmentPlan
	var phone sql.NullString
	err := row.Scan(&plan.ID, &plan.SaleID, &plan.CustomerName, &phone, &plan.TotalCents, &plan.RemainingCents,
		&plan.NumberOfPayments, &plan.StartDate, &plan.NextPaymentDate, &plan.Status, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	plan.CustomerPhone = phone.String
	plan.StartDate = plan.StartDate.UTC()
	plan.NextPaymentDate = plan.NextPaymentDate.UTC()
	plan.CreatedAt = plan.CreatedAt.UTC()
	return &plan, nil
}

func (s *Store) ListInstallmentPlans(ctx context.Context, status string, limit int) ([]domain.InstallmentPlan, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, customer_name, customer_phone, total_cents, remaining_cents, number_of_payments, start_date, next_payment_date, status, created_at
		FROM installment_plans
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPlans(rows, limit)
}

func (s *Store) ListDuePlans(ctx context.Context, before time.Time, limit int) ([]domain.InstallmentPlan, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, customer_name, customer_phone, total_cents, remaining_cents, number_of_payments, start_date, next_payment_date, status, created_at
		FROM installment_plans
		WHERE status = $1 AND next_payment_date <= $2
		ORDER BY next_payment_date
		LIMIT $3
	`, domain.PlanStatusActive, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPlans(rows, limit)
}

func collectPlans(rows *sql.Rows, capacity int) ([]domain.InstallmentPlan, error) {
	plans := make([]domain.InstallmentPlan, 0, capacity)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// RecordInstallmentPayment runs the payment insert and the plan update in a
// single serializable transaction with the plan row locked, so concurrent
// payments against the same plan serialize and either both writes commit or
// neither does.
func (s *Store) RecordInstallmentPayment(ctx context.Context, planID string, payment domain.InstallmentPayment) (*domain.InstallmentPaymentResult, error) {
	if payment.AmountCents < 1 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if payment.IdempotencyKey != "" {
		existing, err := s.findPaymentByIdempotency(ctx, pgTx, payment.IdempotencyKey)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			if existing.PlanID != planID {
				return nil, store.ErrDuplicate
			}
			plan, err := scanPlan(pgTx.QueryRowContext(ctx, `
				SELECT id, sale_id, customer_name, customer_phone, total_cents, remaining_cents, number_of_payments, start_date, next_payment_date, status, created_at
				FROM installment_plans
				WHERE id = $1
			`, planID))
			if err != nil {
				return nil, err
			}
			return &domain.InstallmentPaymentResult{Plan: *plan, Payment: *existing, Duplicate: true}, nil
		}
	}

	plan, err := scanPlan(pgTx.QueryRowContext(ctx, `
		SELECT id, sale_id, customer_name, customer_phone, total_cents, remaining_cents, number_of_payments, start_date, next_payment_date, status, created_at
		FROM installment_plans
		WHERE id = $1
		FOR UPDATE
	`, planID))
	if err != nil {
		return nil, err
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

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO installment_payments (id, plan_id, amount_cents, paid_at, notes, idempotency_key)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.PlanID, payment.AmountCents, payment.PaidAt, nullIfEmpty(payment.Notes), nullIfEmpty(payment.IdempotencyKey))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE installment_plans
		SET remaining_cents = $2, next_payment_date = $3, status = $4
		WHERE id = $1
	`, plan.ID, plan.RemainingCents, plan.NextPaymentDate, plan.Status)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &domain.InstallmentPaymentResult{Plan: *plan, Payment: payment}, nil
}

func (s *Store) findPaymentByIdempotency(ctx context.Context, pgTx *sql.Tx, key string) (*domain.InstallmentPayment, error) {
	var payment domain.InstallmentPayment
	var notes sql.NullString
	err := pgTx.QueryRowContext(ctx, `
		SELECT id, plan_id, amount_cents, paid_at, notes, idempotency_key
		FROM installment_payments
		WHERE idempotency_key = $1
	`, key).Scan(&payment.ID, &payment.PlanID, &payment.AmountCents, &payment.PaidAt, &notes, &payment.IdempotencyKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	payment.Notes = notes.String
	payment.PaidAt = payment.PaidAt.UTC()
	return &payment, nil
}

func (s *Store) ListInstallmentPayments(ctx context.Context, planID string) ([]domain.InstallmentPayment, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM installment_plans WHERE id = $1)`, planID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, amount_cents, paid_at, notes
		FROM installment_payments
		WHERE plan_id = $1
		ORDER BY paid_at
	`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.InstallmentPayment, 0, 12)
	for rows.Next() {
		var payment domain.InstallmentPayment
		var notes sql.NullString
		if err := rows.Scan(&payment.ID, &payment.PlanID, &payment.AmountCents, &payment.PaidAt, &notes); err != nil {
			return nil, err
		}
		payment.Notes = notes.String
		payment.PaidAt = payment.PaidAt.UTC()
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) GetInstallmentSummary(ctx context.Context, asOf time.Time) (domain.InstallmentSummary, error) {
	summary := domain.InstallmentSummary{AsOf: asOf.Format("2006-01-02")}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'active' AND next_payment_date < $1),
			COALESCE(SUM(remaining_cents) FILTER (WHERE status = 'active'), 0),
			COALESCE(SUM(total_cents - remaining_cents), 0)
		FROM installment_plans
	`, asOf).Scan(&summary.ActivePlans, &summary.CompletedPlans, &summary.OverduePlans, &summary.OutstandingCents, &summary.CollectedCents)
	if err != nil {
		return domain.InstallmentSummary{}, err
	}
	return summary, nil
}

func (s *Store) CreateCampaign(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error) {
	if campaign.Name == "" {
		return nil, store.ErrValidation
	}
	if campaign.ID == "" {
		campaign.ID = xid.New("camp")
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, type, discount_percent, flat_discount_cents, min_subtotal_cents, starts_at, ends_at, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, campaign.ID, campaign.Name, campaign.Type, campaign.DiscountPercent, campaign.FlatDiscountCents,
		campaign.MinSubtotalCents, campaign.StartsAt, campaign.EndsAt, campaign.Active, campaign.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := campaign
	return &created, nil
}

func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, discount_percent, flat_discount_cents, min_subtotal_cents, starts_at, ends_at, active, created_at
		FROM campaigns
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]domain.Campaign, 0, 16)
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.DiscountPercent, &c.FlatDiscountCents,
			&c.MinSubtotalCents, &c.StartsAt, &c.EndsAt, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.StartsAt = c.StartsAt.UTC()
		c.EndsAt = c.EndsAt.UTC()
		c.CreatedAt = c.CreatedAt.UTC()
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (s *Store) UpdateCampaignActive(ctx context.Context, campaignID string, active bool) (*domain.Campaign, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET active = $2
		WHERE id = $1
	`, campaignID, active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	var c domain.Campaign
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, type, discount_percent, flat_discount_cents, min_subtotal_cents, starts_at, ends_at, active, created_at
		FROM campaigns
		WHERE id = $1
	`, campaignID).Scan(&c.ID, &c.Name, &c.Type, &c.DiscountPercent, &c.FlatDiscountCents,
		&c.MinSubtotalCents, &c.StartsAt, &c.EndsAt, &c.Active, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCampaignStats(ctx context.Context, campaignID string) (domain.CampaignStats, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM campaigns WHERE id = $1)`, campaignID).Scan(&exists); err != nil {
		return domain.CampaignStats{}, err
	}
	if !exists {
		return domain.CampaignStats{}, store.ErrNotFound
	}

	stats := domain.CampaignStats{CampaignID: campaignID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0), COALESCE(SUM(discount_cents), 0)
		FROM sales
		WHERE campaign_id = $1
	`, campaignID).Scan(&stats.Redemptions, &stats.RevenueCents, &stats.DiscountGivenCents)
	if err != nil {
		return domain.CampaignStats{}, err
	}
	return stats, nil
}

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.SaleID == "" || invoice.Number == "" {
		return nil, store.ErrValidation
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.IssuedAt.IsZero() {
		invoice.IssuedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, number, sale_id, customer_name, subtotal_cents, discount_cents, total_cents, issued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, invoice.ID, invoice.Number, invoice.SaleID, nullIfEmpty(invoice.CustomerName),
		invoice.SubtotalCents, invoice.DiscountCents, invoice.TotalCents, invoice.IssuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := invoice
	return &created, nil
}

func (s *Store) GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	var customerName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, sale_id, customer_name, subtotal_cents, discount_cents, total_cents, issued_at
		FROM invoices
		WHERE id = $1
	`, id).Scan(&invoice.ID, &invoice.Number, &invoice.SaleID, &customerName,
		&invoice.SubtotalCents, &invoice.DiscountCents, &invoice.TotalCents, &invoice.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	invoice.CustomerName = customerName.String
	invoice.IssuedAt = invoice.IssuedAt.UTC()
	return &invoice, nil
}

func (s *Store) GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	report := domain.DailyReport{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(subtotal_cents), 0), COALESCE(SUM(discount_cents), 0), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&report.Sales, &report.GrossSalesCents, &report.DiscountCents, &report.NetSalesCents)
	if err != nil {
		return domain.DailyReport{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.DailyReportPayment
		if err := rows.Scan(&entry.PaymentMethod, &entry.Sales, &entry.TotalCents); err != nil {
			return domain.DailyReport{}, err
		}
		report.ByPayment = append(report.ByPayment, entry)
	}
	if err := rows.Err(); err != nil {
		return domain.DailyReport{}, err
	}
	return report, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, nullIfEmpty(entry.EntityID), entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		var entityID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.EntityID = entityID.String
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
