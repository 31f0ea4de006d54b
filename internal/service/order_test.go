package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/queue"
	"github.com/iliyamo/cafe-ordering/internal/service/mocks"
)

type orderEnv struct {
	svc     *OrderService
	orders  *fakeOrders
	cache   *memOrderCache
	catalog *mocks.MockCatalogLookup
	events  *mocks.MockEventPublisher

	mu        sync.Mutex
	menu      map[uint64]model.CatalogItem
	published []queue.OrderEvent
}

func (e *orderEnv) setItem(it model.CatalogItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.menu[it.ID] = it
}

func (e *orderEnv) recorded() []queue.OrderEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]queue.OrderEvent(nil), e.published...)
}

// newOrderEnv wires an OrderService whose catalog answers from an in-test
// menu and whose publisher records every event.
func newOrderEnv(t *testing.T, opts ...OrderServiceOption) *orderEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	e := &orderEnv{
		orders:  newFakeOrders(),
		cache:   newMemOrderCache(),
		catalog: mocks.NewMockCatalogLookup(ctrl),
		events:  mocks.NewMockEventPublisher(ctrl),
		menu: map[uint64]model.CatalogItem{
			1: {ID: 1, Name: "Masala Dosa", UnitPrice: 18000, Available: true},
			2: {ID: 2, Name: "Filter Coffee", UnitPrice: 8000, Available: true},
			3: {ID: 3, Name: "Seasonal Special", UnitPrice: 25000, Available: false},
		},
	}
	e.catalog.EXPECT().ResolveItems(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ids []uint64) ([]model.CatalogItem, error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			var out []model.CatalogItem
			for _, id := range ids {
				if it, ok := e.menu[id]; ok {
					out = append(out, it)
				}
			}
			return out, nil
		}).AnyTimes()
	e.events.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev queue.OrderEvent) error {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.published = append(e.published, ev)
			return nil
		}).AnyTimes()
	e.svc = NewOrderService(e.orders, e.catalog, e.cache, e.events, nil, time.Second, opts...)
	return e
}

func takeaway(lines ...LineInput) CreateOrderInput {
	return CreateOrderInput{
		CustomerName:  "Ravi",
		CustomerPhone: "+91 98765-43210",
		Type:          model.TypeTakeaway,
		Lines:         lines,
	}
}

func TestCreateOrder_SnapshotsPricesAndTotal(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(
		LineInput{MenuItemID: 1, Quantity: 2},
		LineInput{MenuItemID: 2, Quantity: 1},
	))
	require.NoError(t, err)
	require.Equal(t, int64(44000), o.TotalAmount)
	require.Equal(t, model.StatusPending, o.Status)
	require.Equal(t, model.PaymentPending, o.PaymentStatus)
	require.Equal(t, "+919876543210", o.CustomerPhone)
	require.Len(t, o.Lines, 2)
	require.Equal(t, "Masala Dosa", o.Lines[0].ItemName)
	require.Equal(t, int64(18000), o.Lines[0].UnitPrice)

	// A later catalog price change does not touch the stored order.
	e.setItem(model.CatalogItem{ID: 1, Name: "Masala Dosa", UnitPrice: 20000, Available: true})
	got, err := e.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(44000), got.TotalAmount)
	require.Equal(t, int64(18000), got.Lines[0].UnitPrice)

	evs := e.recorded()
	require.Len(t, evs, 1)
	require.Equal(t, queue.EventOrderCreated, evs[0].Event)
	require.Equal(t, o.ID, evs[0].OrderID)
	require.Equal(t, 3, evs[0].Items)
}

func TestCreateOrder_UnavailableItemWritesNothing(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateOrder(ctx, takeaway(
		LineInput{MenuItemID: 1, Quantity: 1},
		LineInput{MenuItemID: 99, Quantity: 1},
		LineInput{MenuItemID: 3, Quantity: 1},
	))
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "3,99")
	require.Empty(t, e.orders.byID)
	require.Empty(t, e.recorded())
}

func TestCreateOrder_CatalogTimeoutIsInfrastructure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalogLookup(ctrl)
	catalog.EXPECT().ResolveItems(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []uint64) ([]model.CatalogItem, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	orders := newFakeOrders()
	svc := NewOrderService(orders, catalog, nil, nil, nil, 20*time.Millisecond)

	_, err := svc.CreateOrder(context.Background(), takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.ErrorIs(t, err, ErrInfrastructure)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Empty(t, orders.byID)
}

func TestCreateOrder_CatalogFailureIsInfrastructure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalogLookup(ctrl)
	catalog.EXPECT().ResolveItems(gomock.Any(), []uint64{1}).Return(nil, errors.New("connection reset"))
	svc := NewOrderService(newFakeOrders(), catalog, nil, nil, nil, time.Second)

	_, err := svc.CreateOrder(context.Background(), takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.ErrorIs(t, err, ErrInfrastructure)
}

func TestCreateOrder_Validation(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()
	table := uint32(4)
	zero := uint32(0)
	huge := uint32(3_000_000_000)
	bad := "not-an-email"
	line := LineInput{MenuItemID: 1, Quantity: 1}

	many := make([]LineInput, maxOrderLines+1)
	for i := range many {
		many[i] = line
	}

	cases := map[string]CreateOrderInput{
		"no lines":           takeaway(),
		"too many lines":     takeaway(many...),
		"zero quantity":      takeaway(LineInput{MenuItemID: 1, Quantity: 0}),
		"quantity too large": takeaway(LineInput{MenuItemID: 1, Quantity: maxLineQty + 1}),
		"missing item id":    takeaway(LineInput{Quantity: 1}),
		"dine-in no table": {
			CustomerName: "Ravi", CustomerPhone: "9876543210", Type: model.TypeDineIn, Lines: []LineInput{line},
		},
		"dine-in table zero": {
			CustomerName: "Ravi", CustomerPhone: "9876543210", Type: model.TypeDineIn, TableNumber: &zero, Lines: []LineInput{line},
		},
		"table number too large": {
			CustomerName: "Ravi", CustomerPhone: "9876543210", Type: model.TypeDineIn, TableNumber: &huge, Lines: []LineInput{line},
		},
		"takeaway with table": {
			CustomerName: "Ravi", CustomerPhone: "9876543210", Type: model.TypeTakeaway, TableNumber: &table, Lines: []LineInput{line},
		},
		"unknown type": {
			CustomerName: "Ravi", CustomerPhone: "9876543210", Type: "DRIVE_THRU", Lines: []LineInput{line},
		},
		"bad phone": {
			CustomerName: "Ravi", CustomerPhone: "12ab", Type: model.TypeTakeaway, Lines: []LineInput{line},
		},
		"short phone": {
			CustomerName: "Ravi", CustomerPhone: "12345", Type: model.TypeTakeaway, Lines: []LineInput{line},
		},
		"no name": {
			CustomerPhone: "9876543210", Type: model.TypeTakeaway, Lines: []LineInput{line},
		},
		"bad email": {
			CustomerName: "Ravi", CustomerPhone: "9876543210", CustomerEmail: &bad, Type: model.TypeTakeaway, Lines: []LineInput{line},
		},
	}
	for name, in := range cases {
		_, err := e.svc.CreateOrder(ctx, in)
		require.ErrorIs(t, err, ErrValidation, name)
	}
	require.Empty(t, e.orders.byID)

	o, err := e.svc.CreateOrder(ctx, CreateOrderInput{
		CustomerName: "Ravi", CustomerPhone: "9876543210", Type: model.TypeDineIn, TableNumber: &table, Lines: []LineInput{line},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(4), *o.TableNumber)

	last := uint32(maxTableNumber)
	o, err = e.svc.CreateOrder(ctx, CreateOrderInput{
		CustomerName: "Ravi", CustomerPhone: "9876543210", Type: model.TypeDineIn, TableNumber: &last, Lines: []LineInput{line},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(maxTableNumber), *o.TableNumber)
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 2, Quantity: 1}))
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(ctx, o.ID, model.StatusReady)
	require.ErrorIs(t, err, ErrConflict)

	_, err = e.svc.UpdateStatus(ctx, o.ID, "BURNT")
	require.ErrorIs(t, err, ErrValidation)

	got, err := e.svc.UpdateStatus(ctx, o.ID, model.StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, got.Status)
	require.Equal(t, uint32(2), got.Version)

	got, err = e.svc.UpdateStatus(ctx, o.ID, model.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, got.Status)

	// Terminal: nothing moves.
	for _, next := range []model.OrderStatus{model.StatusPending, model.StatusConfirmed, model.StatusCompleted} {
		_, err = e.svc.UpdateStatus(ctx, o.ID, next)
		require.ErrorIs(t, err, ErrConflict)
	}

	evs := e.recorded()
	require.Len(t, evs, 3)
	require.Equal(t, queue.EventOrderStatusChanged, evs[1].Event)
	require.Equal(t, model.StatusPending, evs[1].PreviousStatus)
	require.Equal(t, queue.EventOrderCancelled, evs[2].Event)

	_, err = e.svc.UpdateStatus(ctx, 999, model.StatusConfirmed)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_HappyPathToCompleted(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)
	for _, next := range []model.OrderStatus{
		model.StatusConfirmed, model.StatusPreparing, model.StatusReady, model.StatusCompleted,
	} {
		o, err = e.svc.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, o.Status)
	}
	require.Equal(t, uint32(5), o.Version)

	_, err = e.svc.CancelOrder(ctx, o.ID, "too late")
	require.ErrorIs(t, err, ErrConflict)
}

func TestUpdateStatus_LostRaceIsConflict(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	// Another writer cancels between our read and our conditional write.
	e.orders.beforeUpdate = func(cur *model.Order) {
		if cur.Status == model.StatusPending {
			cur.Status = model.StatusCancelled
		}
	}
	_, err = e.svc.UpdateStatus(ctx, o.ID, model.StatusConfirmed)
	require.ErrorIs(t, err, ErrConflict)

	stored, err := e.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, stored.Status)
	require.Len(t, e.recorded(), 1)
}

func TestCancelOrder_RecordsReason(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	got, err := e.svc.CancelOrder(ctx, o.ID, "  customer left  ")
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	require.Equal(t, "customer left", *got.CancelReason)

	_, err = e.svc.CancelOrder(ctx, o.ID, "")
	require.ErrorIs(t, err, ErrConflict)

	o2, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)
	got, err = e.svc.CancelOrder(ctx, o2.ID, "")
	require.NoError(t, err)
	require.Nil(t, got.CancelReason)
}

func TestCancelOrder_FromEveryStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// path walks a fresh order to the named status through UpdateStatus.
	path := map[model.OrderStatus][]model.OrderStatus{
		model.StatusPending:   nil,
		model.StatusConfirmed: {model.StatusConfirmed},
		model.StatusPreparing: {model.StatusConfirmed, model.StatusPreparing},
		model.StatusReady:     {model.StatusConfirmed, model.StatusPreparing, model.StatusReady},
		model.StatusCompleted: {model.StatusConfirmed, model.StatusPreparing, model.StatusReady, model.StatusCompleted},
		model.StatusCancelled: {model.StatusCancelled},
	}
	cases := []struct {
		from model.OrderStatus
		ok   bool
	}{
		{model.StatusPending, true},
		{model.StatusConfirmed, true},
		{model.StatusPreparing, true},
		{model.StatusReady, true},
		{model.StatusCompleted, false},
		{model.StatusCancelled, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from), func(t *testing.T) {
			t.Parallel()
			e := newOrderEnv(t)
			o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
			require.NoError(t, err)
			for _, next := range path[tc.from] {
				o, err = e.svc.UpdateStatus(ctx, o.ID, next)
				require.NoError(t, err)
			}
			require.Equal(t, tc.from, o.Status)

			got, err := e.svc.CancelOrder(ctx, o.ID, "kitchen error")
			if !tc.ok {
				require.ErrorIs(t, err, ErrConflict)
				stored, err := e.orders.GetByID(ctx, o.ID)
				require.NoError(t, err)
				require.Equal(t, tc.from, stored.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, model.StatusCancelled, got.Status)
			require.Equal(t, "kitchen error", *got.CancelReason)
			require.Equal(t, o.Version+1, got.Version)

			evs := e.recorded()
			last := evs[len(evs)-1]
			require.Equal(t, queue.EventOrderCancelled, last.Event)
			require.Equal(t, tc.from, last.PreviousStatus)
		})
	}
}

func TestCancelOrder_LostRaceIsConflict(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	// The kitchen completes the order between our read and our write.
	e.orders.beforeUpdate = func(cur *model.Order) {
		cur.Status = model.StatusCompleted
	}
	_, err = e.svc.CancelOrder(ctx, o.ID, "changed mind")
	require.ErrorIs(t, err, ErrConflict)

	stored, err := e.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, stored.Status)
	require.Nil(t, stored.CancelReason)
}

func TestUpdatePaymentStatus(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	got, err := e.svc.UpdatePaymentStatus(ctx, o.ID, model.PaymentPaid)
	require.NoError(t, err)
	require.Equal(t, model.PaymentPaid, got.PaymentStatus)
	require.Equal(t, model.StatusPending, got.Status)

	// No guard: any payment status may follow any other.
	got, err = e.svc.UpdatePaymentStatus(ctx, o.ID, model.PaymentPending)
	require.NoError(t, err)
	require.Equal(t, model.PaymentPending, got.PaymentStatus)

	_, err = e.svc.UpdatePaymentStatus(ctx, o.ID, "MAYBE")
	require.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.UpdatePaymentStatus(ctx, 999, model.PaymentPaid)
	require.ErrorIs(t, err, ErrNotFound)

	evs := e.recorded()
	require.Equal(t, queue.EventOrderPaymentChanged, evs[len(evs)-1].Event)
}

func TestPublishFailureDoesNotFailTheWrite(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalogLookup(ctrl)
	catalog.EXPECT().ResolveItems(gomock.Any(), gomock.Any()).
		Return([]model.CatalogItem{{ID: 1, Name: "Idli", UnitPrice: 6000, Available: true}}, nil)
	events := mocks.NewMockEventPublisher(ctrl)
	events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	orders := newFakeOrders()
	svc := NewOrderService(orders, catalog, nil, events, nil, time.Second)
	o, err := svc.CreateOrder(context.Background(), takeaway(LineInput{MenuItemID: 1, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, int64(18000), o.TotalAmount)
	require.Len(t, orders.byID, 1)
}

func TestListOrders_CachedUntilWrite(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	p, err := e.svc.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, p.Total)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.Limit)

	_, err = e.svc.ListOrders(ctx, model.OrderFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, e.orders.listCalls)

	_, err = e.svc.UpdateStatus(ctx, o.ID, model.StatusConfirmed)
	require.NoError(t, err)
	p, err = e.svc.ListOrders(ctx, model.OrderFilter{Status: model.StatusConfirmed})
	require.NoError(t, err)
	require.Equal(t, 1, p.Total)
	require.Equal(t, 2, e.orders.listCalls)

	_, err = e.svc.ListOrders(ctx, model.OrderFilter{Status: "EATEN"})
	require.ErrorIs(t, err, ErrValidation)
	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = e.svc.ListOrders(ctx, model.OrderFilter{From: &from, To: &to})
	require.ErrorIs(t, err, ErrValidation)
}

func TestListOrders_PageReadAcrossWriteIsNotCached(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	// A write lands while the listing is being read from the store.
	e.orders.beforeList = func() {
		e.orders.beforeList = nil
		e.cache.InvalidateLists(ctx)
	}
	_, err = e.svc.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, e.orders.listCalls)

	// The page may predate the write, so the next read goes to the store.
	_, err = e.svc.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, e.orders.listCalls)

	_, err = e.svc.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, e.orders.listCalls)
}

func TestGetOrder_CacheInvalidatedByWrite(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	_, err = e.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	_, cached := e.cache.GetOrder(ctx, o.ID)
	require.True(t, cached)

	_, err = e.svc.UpdatePaymentStatus(ctx, o.ID, model.PaymentPaid)
	require.NoError(t, err)
	_, cached = e.cache.GetOrder(ctx, o.ID)
	require.False(t, cached)

	got, err := e.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, model.PaymentPaid, got.PaymentStatus)

	_, err = e.svc.GetOrder(ctx, 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByCustomerPhone_Normalizes(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)
	other := takeaway(LineInput{MenuItemID: 2, Quantity: 1})
	other.CustomerPhone = "080-2222-3333"
	_, err = e.svc.CreateOrder(ctx, other)
	require.NoError(t, err)

	p, err := e.svc.ListByCustomerPhone(ctx, "+91 (98765) 43210", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, p.Total)
	require.Equal(t, "+919876543210", p.Orders[0].CustomerPhone)

	_, err = e.svc.ListByCustomerPhone(ctx, "call me", 1, 10)
	require.ErrorIs(t, err, ErrValidation)
}

func TestListToday_UsesLocalMidnight(t *testing.T) {
	t.Parallel()
	e := newOrderEnv(t, WithClock(time.Now))
	ctx := context.Background()

	o, err := e.svc.CreateOrder(ctx, takeaway(LineInput{MenuItemID: 1, Quantity: 1}))
	require.NoError(t, err)

	old := takeaway(LineInput{MenuItemID: 2, Quantity: 1})
	o2, err := e.svc.CreateOrder(ctx, old)
	require.NoError(t, err)
	e.orders.mu.Lock()
	e.orders.byID[o2.ID].CreatedAt = time.Now().UTC().AddDate(0, 0, -2)
	e.orders.mu.Unlock()

	p, err := e.svc.ListToday(ctx, model.OrderFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, p.Total)
	require.Equal(t, o.ID, p.Orders[0].ID)

	// Orders placed today, filtered by status.
	p, err = e.svc.ListToday(ctx, model.OrderFilter{Status: model.StatusReady})
	require.NoError(t, err)
	require.Zero(t, p.Total)
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()
	ok := map[string]string{
		"9876543210":       "9876543210",
		"+91 98765 43210":  "+919876543210",
		"(080) 2222-3333":  "08022223333",
		"  555.123.4567  ": "5551234567",
		"+123456789012345": "+123456789012345",
	}
	for in, want := range ok {
		got, err := normalizePhone(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	for _, in := range []string{"", "123456", "1234567890123456", "98+76543210", "98765x43210"} {
		_, err := normalizePhone(in)
		require.ErrorIs(t, err, ErrValidation, in)
	}
}
