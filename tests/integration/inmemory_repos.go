package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var errInjected = errors.New("injected storage failure")

// --- In-Memory Worker Repo ---

type inMemoryWorkerRepo struct {
	mu      sync.RWMutex
	workers map[uuid.UUID]*domain.Worker
}

func newInMemoryWorkerRepo() *inMemoryWorkerRepo {
	return &inMemoryWorkerRepo{workers: make(map[uuid.UUID]*domain.Worker)}
}

func (r *inMemoryWorkerRepo) Create(ctx context.Context, w *domain.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.workers {
		if strings.EqualFold(existing.Email, w.Email) {
			return domain.ErrEmailTaken
		}
	}
	cp := *w
	r.workers[w.ID] = &cp
	return nil
}

func (r *inMemoryWorkerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWorkerRepo) GetByEmail(ctx context.Context, email string) (*domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.workers {
		if strings.EqualFold(w.Email, email) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWorkerRepo) List(ctx context.Context) ([]domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *inMemoryWorkerRepo) Update(ctx context.Context, w *domain.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workers[w.ID]; !ok {
		return errors.New("worker not found")
	}
	cp := *w
	r.workers[w.ID] = &cp
	return nil
}

func (r *inMemoryWorkerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, id)
	return nil
}

func (r *inMemoryWorkerRepo) roleWorkers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []uuid.UUID
	for _, w := range r.workers {
		if w.Role == domain.RoleWorker {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

func (r *inMemoryWorkerRepo) name(id uuid.UUID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.workers[id]; ok {
		return w.Name
	}
	return ""
}

// --- In-Memory Client Repo ---

type inMemoryClientRepo struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*domain.Client
}

func newInMemoryClientRepo() *inMemoryClientRepo {
	return &inMemoryClientRepo{clients: make(map[uuid.UUID]*domain.Client)}
}

func (r *inMemoryClientRepo) Create(ctx context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

func (r *inMemoryClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryClientRepo) List(ctx context.Context) ([]domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, *c)
	}
	return out, nil
}

// --- In-Memory Sale Repo (also the stats reader) ---

type inMemorySaleRepo struct {
	mu      sync.RWMutex
	sales   map[uuid.UUID]*domain.Sale
	workers *inMemoryWorkerRepo
}

func newInMemorySaleRepo(workers *inMemoryWorkerRepo) *inMemorySaleRepo {
	return &inMemorySaleRepo{sales: make(map[uuid.UUID]*domain.Sale), workers: workers}
}

func (r *inMemorySaleRepo) Create(ctx context.Context, s *domain.Sale) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sales[s.ID] = &cp
	out := cp
	return &out, nil
}

// CreateTx stages the insert until tx commits.
func (r *inMemorySaleRepo) CreateTx(ctx context.Context, tx pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
	cp := *s
	mt, ok := tx.(*memTx)
	if !ok {
		return r.Create(ctx, &cp)
	}
	mt.onCommit(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.sales[cp.ID] = &cp
	})
	out := cp
	return &out, nil
}

func (r *inMemorySaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySaleRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Sale, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemorySaleRepo) Update(ctx context.Context, tx pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sales[s.ID]; !ok {
		return nil, nil
	}
	cp := *s
	r.sales[s.ID] = &cp
	out := cp
	return &out, nil
}

func (r *inMemorySaleRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sales, id)
	return nil
}

func (r *inMemorySaleRepo) List(ctx context.Context, f domain.SaleFilter) ([]domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Sale
	for _, s := range r.sales {
		if f.WorkerID != nil && s.WorkerID != *f.WorkerID {
			continue
		}
		if f.Product != "" && !strings.Contains(domain.ProductKey(s.ProductName), domain.ProductKey(f.Product)) {
			continue
		}
		if f.StartDate != nil && s.SaleDateTime.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && s.SaleDateTime.After(*f.EndDate) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleDateTime.After(out[j].SaleDateTime) })
	if f.Limit > 0 && uint64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *inMemorySaleRepo) AverageQuantity(ctx context.Context, productName string) (*decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := domain.ProductKey(productName)
	var total, n int64
	for _, s := range r.sales {
		if domain.ProductKey(s.ProductName) == key {
			total += int64(s.Quantity)
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := decimal.NewFromInt(total).Div(decimal.NewFromInt(n))
	return &avg, nil
}

func (r *inMemorySaleRepo) CountByWorkerSince(ctx context.Context, workerID uuid.UUID, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, s := range r.sales {
		if s.WorkerID == workerID && s.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *inMemorySaleRepo) WorkerActivitySince(ctx context.Context, since time.Time) ([]domain.WorkerActivity, error) {
	ids := r.workers.roleWorkers()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WorkerActivity, 0, len(ids))
	for _, id := range ids {
		a := domain.WorkerActivity{WorkerID: id}
		for _, s := range r.sales {
			if s.WorkerID == id && s.SaleDateTime.After(since) {
				a.SaleCount++
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *inMemorySaleRepo) summary(ctx context.Context, rng domain.ReportRange) (*domain.SalesSummary, error) {
	sales, _ := r.List(ctx, domain.SaleFilter{StartDate: rng.Start, EndDate: rng.End})
	sum := &domain.SalesSummary{TotalRevenue: decimal.Zero}
	workers := map[uuid.UUID]struct{}{}
	products := map[string]struct{}{}
	for _, s := range sales {
		sum.TotalSales++
		sum.TotalRevenue = sum.TotalRevenue.Add(s.TotalAmount)
		sum.TotalQuantity += int64(s.Quantity)
		workers[s.WorkerID] = struct{}{}
		products[s.ProductKey()] = struct{}{}
	}
	sum.ActiveWorkers = int64(len(workers))
	sum.UniqueProducts = int64(len(products))
	return sum, nil
}

// --- In-Memory Report Repo ---

type inMemoryReportRepo struct {
	sales *inMemorySaleRepo
}

func (r *inMemoryReportRepo) Summary(ctx context.Context, rng domain.ReportRange) (*domain.SalesSummary, error) {
	return r.sales.summary(ctx, rng)
}

func (r *inMemoryReportRepo) TopProducts(ctx context.Context, rng domain.ReportRange, limit int) ([]domain.ProductSales, error) {
	return []domain.ProductSales{}, nil
}

func (r *inMemoryReportRepo) WorkerPerformance(ctx context.Context, rng domain.ReportRange) ([]domain.WorkerPerformance, error) {
	return []domain.WorkerPerformance{}, nil
}

func (r *inMemoryReportRepo) Daily(ctx context.Context, rng domain.ReportRange, timezone string, limit int) ([]domain.DailySales, error) {
	return []domain.DailySales{}, nil
}

// --- In-Memory Price History Repo ---

type inMemoryPriceHistoryRepo struct {
	mu      sync.Mutex
	history map[string]domain.PriceHistory
}

func newInMemoryPriceHistoryRepo() *inMemoryPriceHistoryRepo {
	return &inMemoryPriceHistoryRepo{history: make(map[string]domain.PriceHistory)}
}

// Upsert applies the observation under the lock, mirroring the single
// INSERT ... ON CONFLICT statement of the PostgreSQL store.
func (r *inMemoryPriceHistoryRepo) Upsert(ctx context.Context, productKey string, price decimal.Decimal, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.history[productKey]
	if !ok {
		h = domain.PriceHistory{ProductName: productKey}
	}
	r.history[productKey] = h.Observe(price, at)
	return nil
}

func (r *inMemoryPriceHistoryRepo) Get(ctx context.Context, productKey string) (*domain.PriceHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.history[productKey]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r *inMemoryPriceHistoryRepo) List(ctx context.Context) ([]domain.PriceHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PriceHistory, 0, len(r.history))
	for _, h := range r.history {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out, nil
}

// --- In-Memory Suspicious Activity Repo ---

type inMemorySuspiciousActivityRepo struct {
	mu         sync.Mutex
	activities []domain.SuspiciousActivity
	sales      *inMemorySaleRepo
	workers    *inMemoryWorkerRepo
}

func newInMemorySuspiciousActivityRepo(sales *inMemorySaleRepo, workers *inMemoryWorkerRepo) *inMemorySuspiciousActivityRepo {
	return &inMemorySuspiciousActivityRepo{sales: sales, workers: workers}
}

func (r *inMemorySuspiciousActivityRepo) CreateBatch(ctx context.Context, activities []domain.SuspiciousActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, activities...)
	return nil
}

func (r *inMemorySuspiciousActivityRepo) List(ctx context.Context, f domain.SuspiciousActivityFilter) ([]domain.SuspiciousActivityView, error) {
	r.mu.Lock()
	snapshot := append([]domain.SuspiciousActivity(nil), r.activities...)
	r.mu.Unlock()

	var out []domain.SuspiciousActivityView
	for i := len(snapshot) - 1; i >= 0; i-- {
		a := snapshot[i]
		if f.Reviewed != nil && a.Reviewed != *f.Reviewed {
			continue
		}
		view := domain.SuspiciousActivityView{SuspiciousActivity: a, WorkerName: r.workers.name(a.WorkerID)}
		if s, _ := r.sales.GetByID(ctx, a.SaleID); s != nil {
			view.Sale = &domain.SaleSummary{
				ProductName:  s.ProductName,
				Quantity:     s.Quantity,
				UnitPrice:    s.UnitPrice,
				TotalAmount:  s.TotalAmount,
				SaleDateTime: s.SaleDateTime,
			}
		}
		out = append(out, view)
		if f.Limit > 0 && uint64(len(out)) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *inMemorySuspiciousActivityRepo) MarkReviewed(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, at time.Time) (*domain.SuspiciousActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.activities {
		a := &r.activities[i]
		if a.ID != id {
			continue
		}
		if !a.Reviewed {
			reviewer, reviewedAt := reviewerID, at
			a.Reviewed = true
			a.ReviewedBy = &reviewer
			a.ReviewedAt = &reviewedAt
		}
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *inMemorySuspiciousActivityRepo) forSale(saleID uuid.UUID) []domain.SuspiciousActivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SuspiciousActivity
	for _, a := range r.activities {
		if a.SaleID == saleID {
			out = append(out, a)
		}
	}
	return out
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu   sync.Mutex
	logs []domain.AuditLog
	fail atomic.Bool
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, l *domain.AuditLog) error {
	if r.fail.Load() {
		return errInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *l)
	return nil
}

func (r *inMemoryAuditRepo) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if f.Action != "" && l.Action != f.Action {
			continue
		}
		if f.WorkerID != nil && (l.WorkerID == nil || *l.WorkerID != *f.WorkerID) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *inMemoryAuditRepo) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

func (r *inMemoryAuditRepo) snapshot(action domain.AuditAction) (before, after json.RawMessage, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].Action == action {
			return r.logs[i].Before, r.logs[i].After, true
		}
	}
	return nil, nil, false
}

func (r *inMemoryAuditRepo) last(action domain.AuditAction) *domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].Action == action {
			l := r.logs[i]
			return &l
		}
	}
	return nil
}

// --- In-Memory Idempotency Repo ---

// inMemoryIdempotencyRepo claims keys eagerly, the way a primary key
// blocks a second inserter, and releases them if the claiming tx rolls back.
type inMemoryIdempotencyRepo struct {
	mu   sync.Mutex
	logs map[string]domain.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]domain.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[log.Key]; ok {
		return domain.ErrIdempotencyKeyExists
	}
	r.logs[log.Key] = *log
	if mt, ok := tx.(*memTx); ok {
		key := log.Key
		mt.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.logs, key)
		})
	}
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// memTx is a pgx.Tx for in-memory testing. Writes staged with onCommit
// become visible on Commit; onRollback undoes eager reservations.
type memTx struct {
	commits   []func()
	rollbacks []func()
	done      bool
}

func (t *memTx) onCommit(fn func())   { t.commits = append(t.commits, fn) }
func (t *memTx) onRollback(fn func()) { t.rollbacks = append(t.rollbacks, fn) }

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for _, fn := range t.commits {
		fn()
	}
	return nil
}
func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	for _, fn := range t.rollbacks {
		fn()
	}
	return nil
}
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
