package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const orderColumns = "id, number, shopper_id, store_id, status, customer_name, customer_phone, payment_method, comment, subtotal, total, created_at"

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		// The stock guard in the WHERE clause makes the decrement and the
		// availability check one statement.
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
			item.Quantity, item.ProductID,
		)
		if err != nil {
			return fmt.Errorf("failed to update product stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("product %d: %w", item.ProductID, repository.ErrInsufficientStock)
		}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (shopper_id, store_id, status, customer_name, customer_phone, payment_method, comment, subtotal, total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`,
		order.ShopperID, order.StoreID, order.Status, order.CustomerName, order.CustomerPhone,
		order.PaymentMethod, order.Comment, order.Subtotal, order.Total,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	var seq int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE date_part('year', created_at) = $1 AND id <= $2",
		order.CreatedAt.Year(), order.ID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to number order: %w", err)
	}
	order.Number = entity.OrderNumber(order.CreatedAt.Year(), seq)
	if _, err := tx.ExecContext(ctx, "UPDATE orders SET number = $1 WHERE id = $2", order.Number, order.ID); err != nil {
		return fmt.Errorf("failed to number order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, name, unit_price, quantity) VALUES ($1, $2, $3, $4, $5)",
			order.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func scanOrder(row rowScanner) (entity.Order, error) {
	var o entity.Order
	var number sql.NullString
	err := row.Scan(&o.ID, &number, &o.ShopperID, &o.StoreID, &o.Status, &o.CustomerName, &o.CustomerPhone,
		&o.PaymentMethod, &o.Comment, &o.Subtotal, &o.Total, &o.CreatedAt)
	o.Number = number.String
	return o, err
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (entity.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, fmt.Errorf("order %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to query order %d: %w", id, err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return entity.Order{}, err
	}
	return o, nil
}

func (r *orderRepository) FindByShopper(ctx context.Context, shopperID string) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE shopper_id = $1 ORDER BY created_at DESC, id DESC",
		shopperID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, o *entity.Order) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, unit_price, quantity FROM order_items WHERE order_id = $1 ORDER BY id",
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item entity.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}
