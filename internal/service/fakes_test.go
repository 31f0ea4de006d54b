package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/repository"
)

// In-memory stores mirroring the repository contracts, including the
// sentinel errors and the conditional writes.

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.User
	err    error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uint64]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range f.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) mutate(id uint64, fn func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id uint64, h string) error {
	return f.mutate(id, func(u *model.User) { u.PasswordHash = h })
}

func (f *fakeUsers) UpdateName(_ context.Context, id uint64, name string) error {
	return f.mutate(id, func(u *model.User) { u.Name = name })
}

func (f *fakeUsers) UpdateRole(_ context.Context, id uint64, role string) error {
	return f.mutate(id, func(u *model.User) { u.Role = role })
}

func (f *fakeUsers) SetActive(_ context.Context, id uint64, active bool) error {
	return f.mutate(id, func(u *model.User) { u.IsActive = active })
}

type fakeTokens struct {
	mu   sync.Mutex
	recs map[string]*model.RefreshToken
	err  error
}

func newFakeTokens() *fakeTokens { return &fakeTokens{recs: map[string]*model.RefreshToken{}} }

func (f *fakeTokens) Rotate(_ context.Context, consumedID string, rec *model.RefreshToken, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if consumedID != "" {
		old, ok := f.recs[consumedID]
		if !ok || old.UserID != rec.UserID || !old.Active(now) {
			return repository.ErrTokenInactive
		}
	}
	for _, r := range f.recs {
		if r.UserID == rec.UserID && r.RevokedAt == nil {
			ts := now
			r.RevokedAt = &ts
		}
	}
	cp := *rec
	cp.CreatedAt = now
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeTokens) GetByID(_ context.Context, id string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, r := range f.recs {
		if r.UserID == userID && r.RevokedAt == nil {
			ts := now
			r.RevokedAt = &ts
		}
	}
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.recs {
		if r.ExpiresAt.Before(cutoff) {
			delete(f.recs, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) active(userID uint64, now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.recs {
		if r.UserID == userID && r.Active(now) {
			n++
		}
	}
	return n
}

type fakeOrders struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.Order
	// beforeUpdate runs inside UpdateStatus before the compare, letting a
	// test simulate a concurrent writer.
	beforeUpdate func(o *model.Order)
	// beforeList runs inside List, letting a test interleave a write with
	// a listing read.
	beforeList func()
	listCalls  int
}

func newFakeOrders() *fakeOrders { return &fakeOrders{byID: map[uint64]*model.Order{}} }

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Lines = append([]model.OrderLine(nil), o.Lines...)
	return &cp
}

func (f *fakeOrders) Create(_ context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	o.Version = 1
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Lines {
		o.Lines[i].ID = uint64(i + 1)
		o.Lines[i].OrderID = o.ID
	}
	f.byID[o.ID] = cloneOrder(o)
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id uint64, from, to model.OrderStatus, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if ok && f.beforeUpdate != nil {
		f.beforeUpdate(o)
	}
	if !ok || o.Status != from {
		return repository.ErrConflict
	}
	o.Status = to
	if reason != nil {
		r := *reason
		o.CancelReason = &r
	}
	o.Version++
	return nil
}

func (f *fakeOrders) UpdatePaymentStatus(_ context.Context, id uint64, status model.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.PaymentStatus = status
	o.Version++
	return nil
}

func (f *fakeOrders) List(_ context.Context, flt model.OrderFilter) ([]model.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.beforeList != nil {
		f.beforeList()
	}
	flt = flt.Normalize()
	var all []model.Order
	for id := f.nextID; id >= 1; id-- {
		o, ok := f.byID[id]
		if !ok {
			continue
		}
		if flt.Status != "" && o.Status != flt.Status ||
			flt.Type != "" && o.Type != flt.Type ||
			flt.PaymentStatus != "" && o.PaymentStatus != flt.PaymentStatus ||
			flt.CustomerPhone != "" && o.CustomerPhone != flt.CustomerPhone ||
			flt.From != nil && o.CreatedAt.Before(*flt.From) ||
			flt.To != nil && !o.CreatedAt.Before(*flt.To) {
			continue
		}
		all = append(all, *cloneOrder(o))
	}
	total := len(all)
	start := flt.Offset()
	if start > total {
		start = total
	}
	end := start + flt.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// memOrderCache is a map-backed OrderReadCache for exercising the
// cache-assisted read paths.  Listing keys carry a generation the same way
// cache.OrderCache does.
type memOrderCache struct {
	mu     sync.Mutex
	gen    int64
	orders map[uint64]*model.Order
	lists  map[string]*model.OrderPage
}

func newMemOrderCache() *memOrderCache {
	return &memOrderCache{orders: map[uint64]*model.Order{}, lists: map[string]*model.OrderPage{}}
}

func listKey(scope string, f model.OrderFilter) string {
	f = f.Normalize()
	from := ""
	if f.From != nil {
		from = f.From.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d|%d",
		scope, f.Status, f.Type, f.PaymentStatus, f.CustomerPhone, from, f.Page, f.Limit)
}

func (c *memOrderCache) GetOrder(_ context.Context, id uint64) (*model.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[id]
	if !ok {
		return nil, false
	}
	return cloneOrder(o), true
}

func (c *memOrderCache) SetOrder(_ context.Context, o *model.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = cloneOrder(o)
}

func (c *memOrderCache) InvalidateOrder(_ context.Context, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
}

func (c *memOrderCache) GetList(_ context.Context, scope string, f model.OrderFilter) (*model.OrderPage, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.lists[fmt.Sprintf("%d|%s", c.gen, listKey(scope, f))]
	return p, c.gen, ok
}

func (c *memOrderCache) SetList(_ context.Context, gen int64, scope string, f model.OrderFilter, p *model.OrderPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[fmt.Sprintf("%d|%s", gen, listKey(scope, f))] = p
}

func (c *memOrderCache) InvalidateLists(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}

// memProfileCache records invalidations so tests can assert on them.
type memProfileCache struct {
	mu          sync.Mutex
	profiles    map[uint64]model.UserProfile
	invalidated []uint64
}

func newMemProfileCache() *memProfileCache {
	return &memProfileCache{profiles: map[uint64]model.UserProfile{}}
}

func (c *memProfileCache) Get(_ context.Context, id uint64) (*model.UserProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (c *memProfileCache) Set(_ context.Context, id uint64, p model.UserProfile, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[id] = p
}

func (c *memProfileCache) Invalidate(_ context.Context, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, id)
	c.invalidated = append(c.invalidated, id)
}
