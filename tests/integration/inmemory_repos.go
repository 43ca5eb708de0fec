package integration

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// In-memory repositories backing the end-to-end tests. They mirror the
// Postgres adapters' contracts: (nil, nil) on missing rows, conditional
// updates under one lock so concurrent state transitions have one winner.

// --- payment intents ---

type inMemoryIntentRepo struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*domain.PaymentIntent
	order   []uuid.UUID
}

func newInMemoryIntentRepo() *inMemoryIntentRepo {
	return &inMemoryIntentRepo{intents: make(map[uuid.UUID]*domain.PaymentIntent)}
}

func (r *inMemoryIntentRepo) Create(_ context.Context, intent *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *intent
	r.intents[intent.ID] = &cp
	r.order = append(r.order, intent.ID)
	return nil
}

func (r *inMemoryIntentRepo) GetByID(_ context.Context, merchantID, id uuid.UUID) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[id]
	if !ok || intent.MerchantID != merchantID {
		return nil, nil
	}
	cp := *intent
	return &cp, nil
}

func (r *inMemoryIntentRepo) List(_ context.Context, params ports.IntentListParams) ([]domain.PaymentIntent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.PaymentIntent
	for i := len(r.order) - 1; i >= 0; i-- {
		intent := r.intents[r.order[i]]
		if intent.MerchantID != params.MerchantID {
			continue
		}
		if params.CustomerID != nil && (intent.CustomerID == nil || *intent.CustomerID != *params.CustomerID) {
			continue
		}
		if params.Status != nil && intent.Status != *params.Status {
			continue
		}
		matched = append(matched, *intent)
	}
	return page(matched, params.Limit, params.Offset), int64(len(matched)), nil
}

func (r *inMemoryIntentRepo) Update(_ context.Context, intent *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *intent
	r.intents[intent.ID] = &cp
	return nil
}

func (r *inMemoryIntentRepo) UpdateIfStatus(_ context.Context, intent *domain.PaymentIntent, expected domain.IntentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.intents[intent.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	cp := *intent
	r.intents[intent.ID] = &cp
	return true, nil
}

// --- charges ---

type inMemoryChargeRepo struct {
	mu      sync.Mutex
	charges map[uuid.UUID]*domain.Charge
	order   []uuid.UUID
}

func newInMemoryChargeRepo() *inMemoryChargeRepo {
	return &inMemoryChargeRepo{charges: make(map[uuid.UUID]*domain.Charge)}
}

func (r *inMemoryChargeRepo) Create(_ context.Context, charge *domain.Charge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *charge
	r.charges[charge.ID] = &cp
	r.order = append(r.order, charge.ID)
	return nil
}

func (r *inMemoryChargeRepo) GetByID(_ context.Context, merchantID, id uuid.UUID) (*domain.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	charge, ok := r.charges[id]
	if !ok || charge.MerchantID != merchantID {
		return nil, nil
	}
	cp := *charge
	return &cp, nil
}

func (r *inMemoryChargeRepo) GetByIntentID(_ context.Context, intentID uuid.UUID) (*domain.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Charge
	for _, id := range r.order {
		charge := r.charges[id]
		if charge.PaymentIntentID == intentID {
			latest = charge
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *inMemoryChargeRepo) List(_ context.Context, params ports.ChargeListParams) ([]domain.Charge, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Charge
	for i := len(r.order) - 1; i >= 0; i-- {
		charge := r.charges[r.order[i]]
		if charge.MerchantID != params.MerchantID {
			continue
		}
		if params.PaymentIntentID != nil && charge.PaymentIntentID != *params.PaymentIntentID {
			continue
		}
		if params.Status != nil && charge.Status != *params.Status {
			continue
		}
		matched = append(matched, *charge)
	}
	return page(matched, params.Limit, params.Offset), int64(len(matched)), nil
}

func (r *inMemoryChargeRepo) UpdateIfStatus(_ context.Context, charge *domain.Charge, expected domain.ChargeStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.charges[charge.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	cp := *charge
	r.charges[charge.ID] = &cp
	return true, nil
}

func (r *inMemoryChargeRepo) ApplyRefund(_ context.Context, chargeID uuid.UUID, amount int64) (*domain.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	charge, ok := r.charges[chargeID]
	if !ok {
		return nil, nil
	}
	if charge.AmountRefunded+amount > charge.AmountCaptured {
		return nil, nil
	}
	charge.AmountRefunded += amount
	if charge.AmountRefunded == charge.AmountCaptured {
		charge.Status = domain.ChargeStatusRefunded
	} else {
		charge.Status = domain.ChargeStatusPartiallyRefunded
	}
	charge.UpdatedAt = time.Now()
	cp := *charge
	return &cp, nil
}

// --- refunds ---

type inMemoryRefundRepo struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*domain.Refund
	order   []uuid.UUID
}

func newInMemoryRefundRepo() *inMemoryRefundRepo {
	return &inMemoryRefundRepo{refunds: make(map[uuid.UUID]*domain.Refund)}
}

func (r *inMemoryRefundRepo) Create(_ context.Context, refund *domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *refund
	r.refunds[refund.ID] = &cp
	r.order = append(r.order, refund.ID)
	return nil
}

func (r *inMemoryRefundRepo) GetByID(_ context.Context, merchantID, id uuid.UUID) (*domain.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[id]
	if !ok || refund.MerchantID != merchantID {
		return nil, nil
	}
	cp := *refund
	return &cp, nil
}

func (r *inMemoryRefundRepo) ListByCharge(_ context.Context, chargeID uuid.UUID) ([]domain.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Refund
	for _, id := range r.order {
		if r.refunds[id].ChargeID == chargeID {
			matched = append(matched, *r.refunds[id])
		}
	}
	return matched, nil
}

func (r *inMemoryRefundRepo) List(_ context.Context, params ports.RefundListParams) ([]domain.Refund, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Refund
	for i := len(r.order) - 1; i >= 0; i-- {
		refund := r.refunds[r.order[i]]
		if refund.MerchantID != params.MerchantID {
			continue
		}
		if params.ChargeID != nil && refund.ChargeID != *params.ChargeID {
			continue
		}
		matched = append(matched, *refund)
	}
	return page(matched, params.Limit, params.Offset), int64(len(matched)), nil
}

func (r *inMemoryRefundRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.RefundStatus, acquirerRef *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if refund, ok := r.refunds[id]; ok {
		refund.Status = status
		if acquirerRef != nil {
			refund.AcquirerReference = acquirerRef
		}
		refund.UpdatedAt = time.Now()
	}
	return nil
}

// --- merchants and API keys ---

type inMemoryMerchantRepo struct {
	mu        sync.Mutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) add(m *domain.Merchant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.merchants[m.ID] = &cp
}

func (r *inMemoryMerchantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

type inMemoryAPIKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*domain.APIKey
}

func newInMemoryAPIKeyRepo() *inMemoryAPIKeyRepo {
	return &inMemoryAPIKeyRepo{keys: make(map[string]*domain.APIKey)}
}

func (r *inMemoryAPIKeyRepo) add(value string, key *domain.APIKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *key
	r.keys[value] = &cp
}

func (r *inMemoryAPIKeyRepo) GetByValue(_ context.Context, value string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[value]
	if !ok {
		return nil, nil
	}
	cp := *key
	return &cp, nil
}

func (r *inMemoryAPIKeyRepo) Touch(context.Context, uuid.UUID, time.Time) error { return nil }

// --- customers ---

type inMemoryCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*domain.Customer
	order     []uuid.UUID
}

func newInMemoryCustomerRepo() *inMemoryCustomerRepo {
	return &inMemoryCustomerRepo{customers: make(map[uuid.UUID]*domain.Customer)}
}

func (r *inMemoryCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *customer
	r.customers[customer.ID] = &cp
	r.order = append(r.order, customer.ID)
	return nil
}

func (r *inMemoryCustomerRepo) GetByID(_ context.Context, merchantID, id uuid.UUID) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok || customer.MerchantID != merchantID {
		return nil, nil
	}
	cp := *customer
	return &cp, nil
}

func (r *inMemoryCustomerRepo) Update(_ context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *customer
	r.customers[customer.ID] = &cp
	return nil
}

func (r *inMemoryCustomerRepo) Delete(_ context.Context, merchantID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok || customer.MerchantID != merchantID {
		return false, nil
	}
	delete(r.customers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *inMemoryCustomerRepo) List(_ context.Context, merchantID uuid.UUID, query string, limit, offset int) ([]domain.Customer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(query)
	var matched []domain.Customer
	for i := len(r.order) - 1; i >= 0; i-- {
		customer := r.customers[r.order[i]]
		if customer.MerchantID != merchantID {
			continue
		}
		if needle != "" && !customerMatches(customer, needle) {
			continue
		}
		matched = append(matched, *customer)
	}
	return page(matched, limit, offset), int64(len(matched)), nil
}

func customerMatches(c *domain.Customer, needle string) bool {
	for _, field := range []*string{c.Email, c.Name, c.Phone} {
		if field != nil && strings.Contains(strings.ToLower(*field), needle) {
			return true
		}
	}
	return false
}

// --- webhooks ---

type inMemoryWebhookRepo struct {
	mu       sync.Mutex
	webhooks map[uuid.UUID]*domain.Webhook
	order    []uuid.UUID
}

func newInMemoryWebhookRepo() *inMemoryWebhookRepo {
	return &inMemoryWebhookRepo{webhooks: make(map[uuid.UUID]*domain.Webhook)}
}

func (r *inMemoryWebhookRepo) Create(_ context.Context, webhook *domain.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *webhook
	r.webhooks[webhook.ID] = &cp
	r.order = append(r.order, webhook.ID)
	return nil
}

func (r *inMemoryWebhookRepo) GetByID(_ context.Context, merchantID, id uuid.UUID) (*domain.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	webhook, ok := r.webhooks[id]
	if !ok || webhook.MerchantID != merchantID {
		return nil, nil
	}
	cp := *webhook
	return &cp, nil
}

func (r *inMemoryWebhookRepo) ListByMerchant(_ context.Context, merchantID uuid.UUID) ([]domain.Webhook, error) {
	return r.list(merchantID, false), nil
}

func (r *inMemoryWebhookRepo) ListActive(_ context.Context, merchantID uuid.UUID) ([]domain.Webhook, error) {
	return r.list(merchantID, true), nil
}

func (r *inMemoryWebhookRepo) list(merchantID uuid.UUID, activeOnly bool) []domain.Webhook {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Webhook
	for _, id := range r.order {
		webhook := r.webhooks[id]
		if webhook.MerchantID != merchantID {
			continue
		}
		if activeOnly && !webhook.IsActive {
			continue
		}
		matched = append(matched, *webhook)
	}
	return matched
}

func (r *inMemoryWebhookRepo) Delete(_ context.Context, merchantID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	webhook, ok := r.webhooks[id]
	if !ok || webhook.MerchantID != merchantID {
		return false, nil
	}
	delete(r.webhooks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

type inMemoryDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*domain.WebhookDelivery
	order      []uuid.UUID
}

func newInMemoryDeliveryRepo() *inMemoryDeliveryRepo {
	return &inMemoryDeliveryRepo{deliveries: make(map[uuid.UUID]*domain.WebhookDelivery)}
}

func (r *inMemoryDeliveryRepo) CreateBatch(_ context.Context, deliveries []*domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range deliveries {
		cp := *d
		r.deliveries[d.ID] = &cp
		r.order = append(r.order, d.ID)
	}
	return nil
}

func (r *inMemoryDeliveryRepo) Due(_ context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []domain.WebhookDelivery
	for _, id := range r.order {
		d := r.deliveries[id]
		if d.DeliveredAt != nil || d.Exhausted() {
			continue
		}
		if d.NextRetryAt.After(now) {
			continue
		}
		due = append(due, *d)
		if len(due) == limit {
			break
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].NextRetryAt.Before(due[j].NextRetryAt) })
	return due, nil
}

func (r *inMemoryDeliveryRepo) Update(_ context.Context, delivery *domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *delivery
	r.deliveries[delivery.ID] = &cp
	return nil
}

func (r *inMemoryDeliveryRepo) all() []domain.WebhookDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WebhookDelivery, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.deliveries[id])
	}
	return out
}

// --- balance ledger ---

type inMemoryBalanceRepo struct {
	mu    sync.Mutex
	txs   map[uuid.UUID]*domain.BalanceTransaction
	order []uuid.UUID
}

func newInMemoryBalanceRepo() *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{txs: make(map[uuid.UUID]*domain.BalanceTransaction)}
}

func (r *inMemoryBalanceRepo) CreateTransaction(_ context.Context, tx *domain.BalanceTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tx
	r.txs[tx.ID] = &cp
	r.order = append(r.order, tx.ID)
	return nil
}

func (r *inMemoryBalanceRepo) GetTransaction(_ context.Context, merchantID, id uuid.UUID) (*domain.BalanceTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok || tx.MerchantID != merchantID {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (r *inMemoryBalanceRepo) Summary(_ context.Context, merchantID uuid.UUID) ([]domain.BalanceSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make(map[string]int64)
	for _, id := range r.order {
		tx := r.txs[id]
		if tx.MerchantID == merchantID {
			totals[tx.Currency] += tx.Amount
		}
	}
	currencies := make([]string, 0, len(totals))
	for currency := range totals {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	summary := make([]domain.BalanceSummary, 0, len(currencies))
	for _, currency := range currencies {
		summary = append(summary, domain.BalanceSummary{Currency: currency, Amount: totals[currency]})
	}
	return summary, nil
}

func (r *inMemoryBalanceRepo) ListTransactions(_ context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.BalanceTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.BalanceTransaction
	for i := len(r.order) - 1; i >= 0; i-- {
		tx := r.txs[r.order[i]]
		if tx.MerchantID == merchantID {
			matched = append(matched, *tx)
		}
	}
	return page(matched, limit, offset), int64(len(matched)), nil
}

// --- access logs ---

type inMemoryAccessLogRepo struct {
	mu      sync.Mutex
	entries []domain.AccessLog
}

func newInMemoryAccessLogRepo() *inMemoryAccessLogRepo { return &inMemoryAccessLogRepo{} }

func (r *inMemoryAccessLogRepo) Create(_ context.Context, entry *domain.AccessLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
