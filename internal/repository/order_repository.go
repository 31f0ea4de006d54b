package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// OrderRepo provides persistence for orders and their lines.  An order and
// all its lines are written in one transaction; afterwards only the
// status, payment status and cancellation reason change.  All timestamps
// are stored in UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, customer_name, customer_phone, customer_email, order_type, status, payment_status,
	total_amount, table_number, cancel_reason, note, version, created_at, updated_at`

// Create inserts o and its lines atomically.  On success the generated
// ids, timestamps and line ids are populated on o.  On any failure the
// transaction is rolled back and nothing is persisted.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const op = "repository.OrderRepo.Create"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (customer_name, customer_phone, customer_email, order_type, status, payment_status,
		                     total_amount, table_number, note, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.Type, o.Status, o.PaymentStatus,
		o.TotalAmount, o.TableNumber, o.Note, now, now)
	if err != nil {
		return fmt.Errorf("%s: insert order: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	o.ID = uint64(id)
	o.Version = 1
	o.CreatedAt, o.UpdatedAt = now, now

	if err := r.createLinesTx(ctx, tx, o.ID, o.Lines); err != nil {
		return fmt.Errorf("%s: insert lines: %w", op, err)
	}
	// Multi-row inserts do not guarantee consecutive auto-increment ids, so
	// read the lines back to learn theirs.
	lines, err := r.linesTx(ctx, tx, o.ID)
	if err != nil {
		return fmt.Errorf("%s: reload lines: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	committed = true
	o.Lines = lines
	return nil
}

// createLinesTx inserts multiple order_lines rows in a single statement.
// Passing an empty slice has no effect and returns nil.
func (r *OrderRepo) createLinesTx(ctx context.Context, tx *sql.Tx, orderID uint64, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO order_lines (order_id, menu_item_id, item_name, quantity, unit_price, note) VALUES `)
	args := make([]interface{}, 0, len(lines)*6)
	for i, l := range lines {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, orderID, l.MenuItemID, l.ItemName, l.Quantity, l.UnitPrice, l.Note)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

func (r *OrderRepo) linesTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OrderLine, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, note
		 FROM order_lines WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := make([]model.OrderLine, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetByID returns the order with its lines, or ErrNotFound.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	const op = "repository.OrderRepo.GetByID"

	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	orders := []model.Order{*o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &orders[0], nil
}

// UpdateStatus moves the order from status `from` to `to`.  The write only
// applies while the stored status still equals `from`; if another writer
// got there first no row matches and ErrConflict is returned.  A non-nil
// reason is stored as the cancellation reason.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.OrderStatus, reason *string) error {
	const op = "repository.OrderRepo.UpdateStatus"

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = ?, cancel_reason = COALESCE(?, cancel_reason), version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, reason, time.Now().UTC().Truncate(time.Second), id, from)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return nil
}

// UpdatePaymentStatus sets the payment status unconditionally.
func (r *OrderRepo) UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error {
	const op = "repository.OrderRepo.UpdatePaymentStatus"

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// List returns one page of orders matching f, newest first, together with
// the total number of matching orders.
func (r *OrderRepo) List(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error) {
	const op = "repository.OrderRepo.List"

	f = f.Normalize()
	where, args := buildOrderWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}
	orders := make([]model.Order, 0)
	if total == 0 {
		return orders, 0, nil
	}

	q := "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: scan: %w", op, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return orders, total, nil
}

func buildOrderWhere(f model.OrderFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		conds = append(conds, "order_type = ?")
		args = append(args, f.Type)
	}
	if f.PaymentStatus != "" {
		conds = append(conds, "payment_status = ?")
		args = append(args, f.PaymentStatus)
	}
	if f.CustomerPhone != "" {
		conds = append(conds, "customer_phone = ?")
		args = append(args, f.CustomerPhone)
	}
	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// attachLines populates Lines for all orders in a single query.
func (r *OrderRepo) attachLines(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(orders))
	ids := make([]interface{}, 0, len(orders))
	placeholders := make([]string, 0, len(orders))
	for i := range orders {
		orders[i].Lines = []model.OrderLine{}
		index[orders[i].ID] = i
		ids = append(ids, orders[i].ID)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, note
	      FROM order_lines WHERE order_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY order_id, id`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return err
		}
		idx, ok := index[l.OrderID]
		if !ok {
			continue
		}
		orders[idx].Lines = append(orders[idx].Lines, l)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*model.Order, error) {
	var (
		o      model.Order
		email  sql.NullString
		table  sql.NullInt64
		reason sql.NullString
		note   sql.NullString
	)
	if err := s.Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &email, &o.Type, &o.Status, &o.PaymentStatus,
		&o.TotalAmount, &table, &reason, &note, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		o.CustomerEmail = &email.String
	}
	if table.Valid {
		tn := uint32(table.Int64)
		o.TableNumber = &tn
	}
	if reason.Valid {
		o.CancelReason = &reason.String
	}
	if note.Valid {
		o.Note = &note.String
	}
	return &o, nil
}

func scanLine(s rowScanner) (model.OrderLine, error) {
	var (
		l    model.OrderLine
		note sql.NullString
	)
	if err := s.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.ItemName, &l.Quantity, &l.UnitPrice, &note); err != nil {
		return l, err
	}
	if note.Valid {
		l.Note = &note.String
	}
	return l, nil
}
