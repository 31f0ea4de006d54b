package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/cafe-ordering/internal/logger"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/queue"
)

// OrderStore persists orders.  *repository.OrderRepo implements it.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.OrderStatus, reason *string) error
	UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error
	List(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error)
}

// CatalogLookup resolves menu items to their current price and
// availability.  Ids that do not exist are absent from the result.
// *repository.MenuRepo implements it.
//
//go:generate mockgen -destination=mocks/mock_catalog.go -package=mocks . CatalogLookup
type CatalogLookup interface {
	ResolveItems(ctx context.Context, ids []uint64) ([]model.CatalogItem, error)
}

// EventPublisher hands order events to the broker.  *queue.Publisher
// implements it.
//
//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks . EventPublisher
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.OrderEvent) error
}

// OrderReadCache is the order read cache.  *cache.OrderCache implements it.
type OrderReadCache interface {
	GetOrder(ctx context.Context, id uint64) (*model.Order, bool)
	SetOrder(ctx context.Context, o *model.Order)
	InvalidateOrder(ctx context.Context, id uint64)
	GetList(ctx context.Context, scope string, f model.OrderFilter) (*model.OrderPage, int64, bool)
	SetList(ctx context.Context, gen int64, scope string, f model.OrderFilter, p *model.OrderPage)
	InvalidateLists(ctx context.Context)
}

// LineInput is one requested line of a new order.
type LineInput struct {
	MenuItemID uint64  `json:"menu_item_id"`
	Quantity   uint32  `json:"quantity"`
	Note       *string `json:"note,omitempty"`
}

// CreateOrderInput is everything a customer submits at checkout.
type CreateOrderInput struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail *string         `json:"customer_email,omitempty"`
	Type          model.OrderType `json:"order_type"`
	TableNumber   *uint32         `json:"table_number,omitempty"`
	Note          *string         `json:"note,omitempty"`
	Lines         []LineInput     `json:"lines"`
}

const (
	maxOrderLines  = 50
	maxLineQty     = 99
	maxNoteLen     = 500
	maxTableNumber = 999
	publishTimeout = 3 * time.Second
)

// Listing cache scopes.
const (
	scopeAll   = "all"
	scopePhone = "phone"
	scopeToday = "today"
)

// OrderService runs the order lifecycle: creation with price snapshot,
// guarded status transitions, payment updates, cancellation and reads.
type OrderService struct {
	orders         OrderStore
	catalog        CatalogLookup
	cache          OrderReadCache
	events         EventPublisher
	rec            metrics.Recorder
	catalogTimeout time.Duration
	loc            *time.Location
	now            func() time.Time
}

// OrderServiceOption customizes an OrderService.
type OrderServiceOption func(*OrderService)

// WithClock overrides the clock used for "today" listings and events.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// WithLocation sets the time zone that defines "today".  Default UTC.
func WithLocation(loc *time.Location) OrderServiceOption {
	return func(s *OrderService) { s.loc = loc }
}

// NewOrderService wires an OrderService.  cache, events and rec may be nil.
func NewOrderService(orders OrderStore, catalog CatalogLookup, cache OrderReadCache, events EventPublisher,
	rec metrics.Recorder, catalogTimeout time.Duration, opts ...OrderServiceOption) *OrderService {
	if cache == nil {
		cache = nopOrderCache{}
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if catalogTimeout <= 0 {
		catalogTimeout = 3 * time.Second
	}
	s := &OrderService{
		orders:         orders,
		catalog:        catalog,
		cache:          cache,
		events:         events,
		rec:            rec,
		catalogTimeout: catalogTimeout,
		loc:            time.UTC,
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateOrder validates in, snapshots current catalog prices and persists
// the order with all its lines in one transaction.  If any requested item
// is missing or unavailable nothing is written and ErrNotFound names the
// offending ids.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	const op = "service.OrderService.CreateOrder"

	o, err := validateOrderInput(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]uint64, 0, len(in.Lines))
	for _, l := range in.Lines {
		ids = append(ids, l.MenuItemID)
	}
	items, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var missing []uint64
	seen := make(map[uint64]bool)
	for _, l := range in.Lines {
		it, ok := items[l.MenuItemID]
		if !ok || !it.Available {
			if !seen[l.MenuItemID] {
				missing = append(missing, l.MenuItemID)
				seen[l.MenuItemID] = true
			}
			continue
		}
		o.Lines = append(o.Lines, model.OrderLine{
			MenuItemID: it.ID,
			ItemName:   it.Name,
			Quantity:   l.Quantity,
			UnitPrice:  it.UnitPrice,
			Note:       trimmedOrNil(l.Note),
		})
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return nil, fmt.Errorf("%s: %w: menu items unavailable: %s", op, ErrNotFound, joinIDs(missing))
	}
	o.TotalAmount = model.SumLines(o.Lines)

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, storeErr(op, err)
	}

	s.cache.InvalidateLists(ctx)
	s.rec.RecordOrderCreated(string(o.Type))
	logger.From(ctx).Info("order_created",
		slog.Uint64("order_id", o.ID),
		slog.String("type", string(o.Type)),
		slog.Int64("total", o.TotalAmount),
		slog.Int("lines", len(o.Lines)))
	s.publish(ctx, queue.EventOrderCreated, o, "")
	return o, nil
}

// resolve calls the catalog under the configured timeout and indexes the
// result by id.  A timeout is an infrastructure failure, never an empty
// result.
func (s *OrderService) resolve(ctx context.Context, ids []uint64) (map[uint64]model.CatalogItem, error) {
	cctx, cancel := context.WithTimeout(ctx, s.catalogTimeout)
	defer cancel()

	items, err := s.catalog.ResolveItems(cctx, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: catalog lookup timed out: %w", ErrInfrastructure, err)
		}
		return nil, fmt.Errorf("%w: catalog lookup: %w", ErrInfrastructure, err)
	}
	byID := make(map[uint64]model.CatalogItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID, nil
}

// UpdateStatus moves an order to next if the transition table allows it.
// The write is conditional on the status read here, so a concurrent
// writer that got in first turns this call into ErrConflict.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint64, next model.OrderStatus) (*model.Order, error) {
	const op = "service.OrderService.UpdateStatus"

	if !next.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown status %q", op, ErrValidation, next)
	}
	return s.transition(ctx, op, orderID, next, nil, true)
}

// CancelOrder cancels any order that is not yet COMPLETED or CANCELLED,
// recording reason if given.  Unlike UpdateStatus it is not bound by the
// transition table, so a READY order can still be cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint64, reason string) (*model.Order, error) {
	const op = "service.OrderService.CancelOrder"

	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxNoteLen {
		return nil, fmt.Errorf("%s: %w: reason must be at most %d characters", op, ErrValidation, maxNoteLen)
	}
	var r *string
	if reason != "" {
		r = &reason
	}
	return s.transition(ctx, op, orderID, model.StatusCancelled, r, false)
}

// transition writes next conditionally on the status just read.  With
// guarded set, next must also be a legal successor in the transition table.
func (s *OrderService) transition(ctx context.Context, op string, orderID uint64, next model.OrderStatus, reason *string, guarded bool) (*model.Order, error) {
	cur, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if cur.Status.Terminal() {
		return nil, fmt.Errorf("%s: %w: order is %s", op, ErrConflict, cur.Status)
	}
	if guarded && !cur.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%s: %w: illegal transition %s -> %s", op, ErrConflict, cur.Status, next)
	}
	if err := s.orders.UpdateStatus(ctx, orderID, cur.Status, next, reason); err != nil {
		return nil, storeErr(op, err)
	}
	s.invalidate(ctx, orderID)

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	s.rec.RecordOrderTransition(string(cur.Status), string(next))
	logger.From(ctx).Info("order_status_changed",
		slog.Uint64("order_id", orderID),
		slog.String("from", string(cur.Status)),
		slog.String("to", string(next)))

	event := queue.EventOrderStatusChanged
	if next == model.StatusCancelled {
		event = queue.EventOrderCancelled
	}
	s.publish(ctx, event, updated, cur.Status)
	return updated, nil
}

// UpdatePaymentStatus sets the payment status.  Payment is independent of
// the kitchen status and has no transition guard.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID uint64, status model.PaymentStatus) (*model.Order, error) {
	const op = "service.OrderService.UpdatePaymentStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown payment status %q", op, ErrValidation, status)
	}
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, storeErr(op, err)
	}
	if err := s.orders.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return nil, storeErr(op, err)
	}
	s.invalidate(ctx, orderID)

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	logger.From(ctx).Info("order_payment_changed",
		slog.Uint64("order_id", orderID),
		slog.String("payment_status", string(status)))
	s.publish(ctx, queue.EventOrderPaymentChanged, updated, "")
	return updated, nil
}

// GetOrder returns one order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint64) (*model.Order, error) {
	const op = "service.OrderService.GetOrder"

	if o, ok := s.cache.GetOrder(ctx, orderID); ok {
		return o, nil
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	s.cache.SetOrder(ctx, o)
	return o, nil
}

// ListOrders returns one page of orders matching f, newest first.
func (s *OrderService) ListOrders(ctx context.Context, f model.OrderFilter) (*model.OrderPage, error) {
	const op = "service.OrderService.ListOrders"

	if err := validateFilter(f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.list(ctx, op, scopeAll, f)
}

// ListByCustomerPhone is the customer-facing tracking view.
func (s *OrderService) ListByCustomerPhone(ctx context.Context, phone string, page, limit int) (*model.OrderPage, error) {
	const op = "service.OrderService.ListByCustomerPhone"

	norm, err := normalizePhone(phone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.list(ctx, op, scopePhone, model.OrderFilter{CustomerPhone: norm, Page: page, Limit: limit})
}

// ListToday lists orders created since local midnight.  The date range of
// f is replaced; its other filters apply.
func (s *OrderService) ListToday(ctx context.Context, f model.OrderFilter) (*model.OrderPage, error) {
	const op = "service.OrderService.ListToday"

	now := s.now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)
	f.From, f.To = &from, &to
	if err := validateFilter(f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.list(ctx, op, scopeToday, f)
}

func (s *OrderService) list(ctx context.Context, op, scope string, f model.OrderFilter) (*model.OrderPage, error) {
	f = f.Normalize()
	p, gen, ok := s.cache.GetList(ctx, scope, f)
	if ok {
		return p, nil
	}
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, storeErr(op, err)
	}
	p = &model.OrderPage{Orders: orders, Total: total, Page: f.Page, Limit: f.Limit}
	s.cache.SetList(ctx, gen, scope, f, p)
	return p, nil
}

func (s *OrderService) invalidate(ctx context.Context, orderID uint64) {
	s.cache.InvalidateOrder(ctx, orderID)
	s.cache.InvalidateLists(ctx)
}

// publish is best-effort: the order write has already committed, so a
// broker failure is logged and counted but never returned.
func (s *OrderService) publish(ctx context.Context, event string, o *model.Order, prev model.OrderStatus) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.events.Publish(pctx, queue.NewOrderEvent(event, o, prev, s.now()))
	s.rec.RecordEventPublish(event, err == nil)
	if err != nil {
		logger.From(ctx).Warn("order_event_publish_failed",
			slog.String("event", event),
			slog.Uint64("order_id", o.ID),
			slog.Any("err", err))
	}
}

func validateOrderInput(in CreateOrderInput) (*model.Order, error) {
	name, err := validateName(in.CustomerName)
	if err != nil {
		return nil, err
	}
	phone, err := normalizePhone(in.CustomerPhone)
	if err != nil {
		return nil, err
	}
	var email *string
	if in.CustomerEmail != nil && strings.TrimSpace(*in.CustomerEmail) != "" {
		e, err := validateEmail(*in.CustomerEmail)
		if err != nil {
			return nil, err
		}
		email = &e
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrValidation, in.Type)
	}
	switch {
	case in.Type == model.TypeDineIn && (in.TableNumber == nil || *in.TableNumber == 0):
		return nil, fmt.Errorf("%w: dine-in orders need a table number", ErrValidation)
	case in.Type != model.TypeDineIn && in.TableNumber != nil:
		return nil, fmt.Errorf("%w: only dine-in orders take a table number", ErrValidation)
	case in.TableNumber != nil && *in.TableNumber > maxTableNumber:
		return nil, fmt.Errorf("%w: table number must be between 1 and %d", ErrValidation, maxTableNumber)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: order has no lines", ErrValidation)
	}
	if len(in.Lines) > maxOrderLines {
		return nil, fmt.Errorf("%w: at most %d lines per order", ErrValidation, maxOrderLines)
	}
	for i, l := range in.Lines {
		if l.MenuItemID == 0 {
			return nil, fmt.Errorf("%w: line %d: menu_item_id is required", ErrValidation, i+1)
		}
		if l.Quantity < 1 || l.Quantity > maxLineQty {
			return nil, fmt.Errorf("%w: line %d: quantity must be between 1 and %d", ErrValidation, i+1, maxLineQty)
		}
		if l.Note != nil && utf8.RuneCountInString(*l.Note) > maxNoteLen {
			return nil, fmt.Errorf("%w: line %d: note too long", ErrValidation, i+1)
		}
	}
	if in.Note != nil && utf8.RuneCountInString(*in.Note) > maxNoteLen {
		return nil, fmt.Errorf("%w: note too long", ErrValidation)
	}

	return &model.Order{
		CustomerName:  name,
		CustomerPhone: phone,
		CustomerEmail: email,
		Type:          in.Type,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentPending,
		TableNumber:   in.TableNumber,
		Note:          trimmedOrNil(in.Note),
		Lines:         make([]model.OrderLine, 0, len(in.Lines)),
	}, nil
}

func validateFilter(f model.OrderFilter) error {
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	if f.Type != "" && !f.Type.Valid() {
		return fmt.Errorf("%w: unknown order type %q", ErrValidation, f.Type)
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return fmt.Errorf("%w: unknown payment status %q", ErrValidation, f.PaymentStatus)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("%w: date range ends before it starts", ErrValidation)
	}
	return nil
}

// normalizePhone strips spaces, dashes, dots and parentheses and checks
// that what remains is an optional '+' followed by 7 to 15 digits.
func normalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("%w: invalid phone number", ErrValidation)
		}
	}
	p := b.String()
	digits := len(strings.TrimPrefix(p, "+"))
	if digits < 7 || digits > 15 {
		return "", fmt.Errorf("%w: invalid phone number", ErrValidation)
	}
	return p, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

type nopOrderCache struct{}

func (nopOrderCache) GetOrder(context.Context, uint64) (*model.Order, bool) { return nil, false }
func (nopOrderCache) SetOrder(context.Context, *model.Order) {}
func (nopOrderCache) InvalidateOrder(context.Context, uint64) {}
func (nopOrderCache) GetList(context.Context, string, model.OrderFilter) (*model.OrderPage, int64, bool) {
	return nil, 0, false
}
func (nopOrderCache) SetList(context.Context, int64, string, model.OrderFilter, *model.OrderPage) {}
func (nopOrderCache) InvalidateLists(context.Context) {}
