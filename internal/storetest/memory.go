// Package storetest provides an in-memory implementation of the storage
// interfaces used by the service layer. It mirrors the MySQL repositories'
// error contract (sentinels, unique keys, soft deletes, non-negative stock)
// so services and handlers can be tested without a database.
//
// Transactions hold the store's single lock for their whole duration and
// restore a snapshot on error, which gives serializable semantics. Calling
// a non-transactional method from inside WithinTx deadlocks.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
)

type refresh struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type state struct {
	seq        map[string]uint64
	users      map[uint64]model.User
	tokens     map[string]refresh
	categories map[uint64]model.Category
	sweets     map[uint64]model.Sweet
	purchases  map[uint64]model.Purchase
	reviews    map[uint64]model.Review
	restocks   []model.Restock
	audit      []model.AuditEntry
}

func newState() state {
	return state{
		seq:        map[string]uint64{},
		users:      map[uint64]model.User{},
		tokens:     map[string]refresh{},
		categories: map[uint64]model.Category{},
		sweets:     map[uint64]model.Sweet{},
		purchases:  map[uint64]model.Purchase{},
		reviews:    map[uint64]model.Review{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.sweets {
		c.sweets[k] = v
	}
	for k, v := range s.purchases {
		v.Items = append([]model.PurchaseItem(nil), v.Items...)
		c.purchases[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	c.restocks = append(c.restocks, s.restocks...)
	c.audit = append(c.audit, s.audit...)
	return c
}

func (s *state) next(table string) uint64 {
	s.seq[table]++
	return s.seq[table]
}

type db struct {
	mu sync.Mutex
	st state
}

// Memory bundles every in-memory store. The exported fields satisfy the
// corresponding service ports.
type Memory struct {
	db         *db
	Users      *Users
	Tokens     *Tokens
	Categories *Categories
	Sweets     *Sweets
	Purchases  *Purchases
	Reviews    *Reviews
	Restocks   *Restocks
	Audit      *Audit
	Stats      *Stats
}

func New() *Memory {
	d := &db{st: newState()}
	return &Memory{
		db:         d,
		Users:      &Users{d},
		Tokens:     &Tokens{d},
		Categories: &Categories{d},
		Sweets:     &Sweets{d},
		Purchases:  &Purchases{d},
		Reviews:    &Reviews{d},
		Restocks:   &Restocks{d},
		Audit:      &Audit{d},
		Stats:      &Stats{d},
	}
}

// WithinTx runs fn with exclusive access to the store and rolls every
// change back when fn fails.
func (m *Memory) WithinTx(ctx context.Context, fn func(tx repository.TxOps) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	snapshot := m.db.st.clone()
	if err := fn(&tx{st: &m.db.st}); err != nil {
		m.db.st = snapshot
		return err
	}
	return nil
}

// Quantity reports the current stock of a sweet, deleted or not.
func (m *Memory) Quantity(id uint64) int {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.st.sweets[id].Quantity
}

// PurchaseCount reports how many purchases exist.
func (m *Memory) PurchaseCount() int {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return len(m.db.st.purchases)
}

// RestockRecords returns every restock record, oldest first.
func (m *Memory) RestockRecords() []model.Restock {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return append([]model.Restock(nil), m.db.st.restocks...)
}

// AuditEntries returns every audit entry, oldest first.
func (m *Memory) AuditEntries() []model.AuditEntry {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return append([]model.AuditEntry(nil), m.db.st.audit...)
}

func (d *db) lock() func() {
	d.mu.Lock()
	return d.mu.Unlock
}

// ---- users ----

type Users struct{ d *db }

func (r *Users) Create(_ context.Context, u *model.User) error {
	defer r.d.lock()()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range r.d.st.users {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
		if x.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	now := time.Now().UTC()
	u.ID = r.d.st.next("users")
	u.CreatedAt, u.UpdatedAt = now, now
	r.d.st.users[u.ID] = *u
	return nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	defer r.d.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.d.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	defer r.d.lock()()
	u, ok := r.d.st.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *Users) List(_ context.Context) ([]model.User, error) {
	defer r.d.lock()()
	out := make([]model.User, 0, len(r.d.st.users))
	for _, u := range r.d.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Users) SetVerified(_ context.Context, id uint64, verified bool) error {
	return r.update(id, func(u *model.User) { u.IsVerified = verified })
}

func (r *Users) SetRole(_ context.Context, id uint64, role string) error {
	return r.update(id, func(u *model.User) { u.Role = role })
}

func (r *Users) update(id uint64, fn func(u *model.User)) error {
	defer r.d.lock()()
	u, ok := r.d.st.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.d.st.users[id] = u
	return nil
}

// ---- refresh tokens ----

type Tokens struct{ d *db }

func (r *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	defer r.d.lock()()
	r.d.st.tokens[tokenHash] = refresh{userID: userID, exp: exp}
	return nil
}

func (r *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	defer r.d.lock()()
	t, ok := r.d.st.tokens[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.exp) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (r *Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	defer r.d.lock()()
	t, ok := r.d.st.tokens[tokenHash]
	if !ok || t.revoked {
		return repository.ErrNotFound
	}
	t.revoked = true
	r.d.st.tokens[tokenHash] = t
	return nil
}

func (r *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	defer r.d.lock()()
	for h, t := range r.d.st.tokens {
		if t.userID == userID {
			t.revoked = true
			r.d.st.tokens[h] = t
		}
	}
	return nil
}

// ---- categories ----

type Categories struct{ d *db }

func (r *Categories) List(_ context.Context) ([]model.Category, error) {
	defer r.d.lock()()
	out := make([]model.Category, 0, len(r.d.st.categories))
	for _, c := range r.d.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Categories) Get(_ context.Context, id uint64) (model.Category, error) {
	defer r.d.lock()()
	c, ok := r.d.st.categories[id]
	if !ok {
		return model.Category{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *Categories) nameTaken(name string, except uint64) bool {
	for _, c := range r.d.st.categories {
		if c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (r *Categories) Create(_ context.Context, name string) (model.Category, error) {
	defer r.d.lock()()
	if r.nameTaken(name, 0) {
		return model.Category{}, repository.ErrConflict
	}
	c := model.Category{ID: r.d.st.next("categories"), Name: name}
	r.d.st.categories[c.ID] = c
	return c, nil
}

func (r *Categories) Rename(_ context.Context, id uint64, name string) (model.Category, error) {
	defer r.d.lock()()
	c, ok := r.d.st.categories[id]
	if !ok {
		return model.Category{}, repository.ErrNotFound
	}
	if r.nameTaken(name, id) {
		return model.Category{}, repository.ErrConflict
	}
	c.Name = name
	r.d.st.categories[id] = c
	return c, nil
}

func (r *Categories) Delete(_ context.Context, id uint64) error {
	defer r.d.lock()()
	if _, ok := r.d.st.categories[id]; !ok {
		return repository.ErrNotFound
	}
	for _, sw := range r.d.st.sweets {
		if sw.CategoryID == id {
			return repository.ErrConflict
		}
	}
	delete(r.d.st.categories, id)
	return nil
}

// ---- sweets ----

type Sweets struct{ d *db }

func liveSweet(st *state, id uint64) (model.Sweet, error) {
	sw, ok := st.sweets[id]
	if !ok || sw.IsDeleted {
		return model.Sweet{}, repository.ErrNotFound
	}
	sw.CategoryName = st.categories[sw.CategoryID].Name
	return sw, nil
}

func (r *Sweets) Get(_ context.Context, id uint64) (model.Sweet, error) {
	defer r.d.lock()()
	return liveSweet(&r.d.st, id)
}

func (r *Sweets) List(_ context.Context, f model.SweetFilter) ([]model.Sweet, int, error) {
	defer r.d.lock()()
	q := strings.ToLower(strings.TrimSpace(f.Search))
	matched := []model.Sweet{}
	for id := range r.d.st.sweets {
		sw, err := liveSweet(&r.d.st, id)
		if err != nil {
			continue
		}
		if f.CategoryID != 0 && sw.CategoryID != f.CategoryID {
			continue
		}
		if f.MinPrice != nil && sw.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && sw.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(sw.Name), q) &&
			!strings.Contains(strings.ToLower(sw.Description), q) {
			continue
		}
		matched = append(matched, sw)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := total
	if f.PageSize > 0 && start+f.PageSize < total {
		end = start + f.PageSize
	}
	return matched[start:end], total, nil
}

func (r *Sweets) Create(_ context.Context, sw *model.Sweet) error {
	defer r.d.lock()()
	if _, ok := r.d.st.categories[sw.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", sw.CategoryID, repository.ErrNotFound)
	}
	now := time.Now().UTC()
	sw.ID = r.d.st.next("sweets")
	sw.Price = sw.Price.Round(2)
	sw.IsDeleted = false
	sw.CreatedAt, sw.UpdatedAt = now, now
	r.d.st.sweets[sw.ID] = *sw
	created, err := liveSweet(&r.d.st, sw.ID)
	*sw = created
	return err
}

func (r *Sweets) Update(_ context.Context, sw *model.Sweet) error {
	defer r.d.lock()()
	cur, err := liveSweet(&r.d.st, sw.ID)
	if err != nil {
		return err
	}
	if _, ok := r.d.st.categories[sw.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", sw.CategoryID, repository.ErrNotFound)
	}
	cur.Name, cur.Description, cur.ImageURL = sw.Name, sw.Description, sw.ImageURL
	cur.Price, cur.CategoryID = sw.Price.Round(2), sw.CategoryID
	cur.UpdatedAt = time.Now().UTC()
	r.d.st.sweets[sw.ID] = cur
	updated, err := liveSweet(&r.d.st, sw.ID)
	*sw = updated
	return err
}

func (r *Sweets) SoftDelete(_ context.Context, id uint64) error {
	defer r.d.lock()()
	sw, err := liveSweet(&r.d.st, id)
	if err != nil {
		return err
	}
	sw.IsDeleted = true
	r.d.st.sweets[id] = sw
	return nil
}

// ---- purchases ----

type Purchases struct{ d *db }

func (r *Purchases) Get(_ context.Context, id uint64) (model.Purchase, error) {
	defer r.d.lock()()
	p, ok := r.d.st.purchases[id]
	if !ok {
		return model.Purchase{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *Purchases) ListByUser(_ context.Context, userID uint64) ([]model.Purchase, error) {
	return r.list(func(p model.Purchase) bool { return p.UserID == userID })
}

func (r *Purchases) ListAll(_ context.Context, status string) ([]model.Purchase, error) {
	return r.list(func(p model.Purchase) bool { return status == "" || p.Status == status })
}

func (r *Purchases) list(keep func(model.Purchase) bool) ([]model.Purchase, error) {
	defer r.d.lock()()
	out := []model.Purchase{}
	for _, p := range r.d.st.purchases {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- reviews ----

type Reviews struct{ d *db }

func (r *Reviews) Create(_ context.Context, rv *model.Review) error {
	defer r.d.lock()()
	if _, ok := r.d.st.sweets[rv.SweetID]; !ok {
		return repository.ErrNotFound
	}
	for _, x := range r.d.st.reviews {
		if x.SweetID == rv.SweetID && x.UserID == rv.UserID {
			return repository.ErrDuplicateReview
		}
	}
	now := time.Now().UTC()
	rv.ID = r.d.st.next("reviews")
	rv.CreatedAt, rv.UpdatedAt = now, now
	r.d.st.reviews[rv.ID] = *rv
	return nil
}

func (r *Reviews) Get(_ context.Context, id uint64) (model.Review, error) {
	defer r.d.lock()()
	rv, ok := r.d.st.reviews[id]
	if !ok {
		return model.Review{}, repository.ErrNotFound
	}
	return rv, nil
}

func (r *Reviews) Update(_ context.Context, rv *model.Review) error {
	defer r.d.lock()()
	cur, ok := r.d.st.reviews[rv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Rating, cur.Comment = rv.Rating, rv.Comment
	cur.UpdatedAt = time.Now().UTC()
	r.d.st.reviews[rv.ID] = cur
	*rv = cur
	return nil
}

func (r *Reviews) Delete(_ context.Context, id uint64) error {
	defer r.d.lock()()
	if _, ok := r.d.st.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.st.reviews, id)
	return nil
}

func (r *Reviews) ListBySweet(_ context.Context, sweetID uint64) ([]model.Review, error) {
	defer r.d.lock()()
	out := []model.Review{}
	for _, rv := range r.d.st.reviews {
		if rv.SweetID == sweetID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Reviews) Summary(_ context.Context, sweetID uint64) (model.RatingSummary, error) {
	defer r.d.lock()()
	s := model.RatingSummary{SweetID: sweetID}
	sum := 0
	for _, rv := range r.d.st.reviews {
		if rv.SweetID == sweetID {
			sum += rv.Rating
			s.ReviewCount++
		}
	}
	if s.ReviewCount > 0 {
		s.AverageRating = float64(sum) / float64(s.ReviewCount)
	}
	return s, nil
}

// ---- restocks, audit, stats ----

type Restocks struct{ d *db }

func (r *Restocks) ListBySweet(_ context.Context, sweetID uint64) ([]model.Restock, error) {
	defer r.d.lock()()
	out := []model.Restock{}
	for i := len(r.d.st.restocks) - 1; i >= 0; i-- {
		if rs := r.d.st.restocks[i]; rs.SweetID == sweetID {
			out = append(out, rs)
		}
	}
	return out, nil
}

type Audit struct{ d *db }

func (r *Audit) Append(_ context.Context, e *model.AuditEntry) error {
	defer r.d.lock()()
	appendAudit(&r.d.st, e)
	return nil
}

func appendAudit(st *state, e *model.AuditEntry) {
	e.ID = st.next("audit_logs")
	e.CreatedAt = time.Now().UTC()
	st.audit = append(st.audit, *e)
}

func (r *Audit) Recent(_ context.Context, limit int) ([]model.AuditEntry, error) {
	defer r.d.lock()()
	out := []model.AuditEntry{}
	for i := len(r.d.st.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.d.st.audit[i])
	}
	return out, nil
}

type Stats struct{ d *db }

func (r *Stats) Stats(_ context.Context) (model.Stats, error) {
	defer r.d.lock()()
	st := &r.d.st
	var s model.Stats
	for _, u := range st.users {
		s.Users++
		if u.IsVerified {
			s.VerifiedUsers++
		}
	}
	for _, sw := range st.sweets {
		if sw.IsDeleted {
			continue
		}
		s.Sweets++
		if sw.Quantity < repository.LowStockThreshold {
			s.LowStockSweets++
		}
	}
	revenue := decimal.Zero
	for _, p := range st.purchases {
		s.Purchases++
		if p.Status == model.PurchasePending {
			s.PendingOrders++
		}
		revenue = revenue.Add(p.Total)
	}
	s.Revenue = revenue.StringFixed(2)
	s.Reviews = len(st.reviews)
	return s, nil
}

// ---- transactional operations ----

type tx struct{ st *state }

func (t *tx) GetSweet(_ context.Context, id uint64) (model.Sweet, error) {
	return liveSweet(t.st, id)
}

func (t *tx) AdjustStock(_ context.Context, sweetID uint64, delta int) (int, error) {
	if delta == 0 {
		return 0, errors.New("stock delta must be non-zero")
	}
	sw, err := liveSweet(t.st, sweetID)
	if err != nil {
		return 0, fmt.Errorf("sweet %d: %w", sweetID, err)
	}
	if sw.Quantity+delta < 0 {
		return 0, &repository.InsufficientStockError{SweetID: sweetID, Requested: -delta, Available: sw.Quantity}
	}
	sw.Quantity += delta
	t.st.sweets[sweetID] = sw
	return sw.Quantity, nil
}

func (t *tx) CreatePurchase(_ context.Context, p *model.Purchase) error {
	now := time.Now().UTC()
	p.ID = t.st.next("purchases")
	p.CreatedAt, p.UpdatedAt = now, now
	items := make([]model.PurchaseItem, len(p.Items))
	for i, it := range p.Items {
		it.ID = t.st.next("purchase_items")
		it.PurchaseID = p.ID
		items[i] = it
	}
	p.Items = items
	stored := *p
	stored.Items = append([]model.PurchaseItem(nil), items...)
	t.st.purchases[p.ID] = stored
	return nil
}

func (t *tx) GetPurchaseForUpdate(_ context.Context, id uint64) (model.Purchase, error) {
	p, ok := t.st.purchases[id]
	if !ok {
		return model.Purchase{}, repository.ErrNotFound
	}
	return p, nil
}

func (t *tx) SetPurchaseStatus(_ context.Context, id uint64, status string) error {
	p, ok := t.st.purchases[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	t.st.purchases[id] = p
	return nil
}

func (t *tx) CreateRestock(_ context.Context, r *model.Restock) error {
	r.ID = t.st.next("restocks")
	r.RestockedAt = time.Now().UTC()
	t.st.restocks = append(t.st.restocks, *r)
	return nil
}

func (t *tx) AppendAudit(_ context.Context, e *model.AuditEntry) error {
	appendAudit(t.st, e)
	return nil
}
