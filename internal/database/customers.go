package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stolik/internal/models"
)

// CreateCustomer inserts a new customer with no table assignment.
func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `INSERT INTO customers (name, table_id, checked_in, required_seats, created_at, updated_at)
              VALUES (?, NULL, 0, ?, ?, ?)`
	now := time.Now()
	result, err := db.db.ExecContext(ctx, query, customer.Name, customer.RequiredSeats, now, now)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	customer.ID = id
	customer.TableID = nil
	customer.CheckedIn = false
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return nil
}

// GetCustomer returns the customer by id or ErrCustomerNotFound.
func (db *DB) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	query := `SELECT id, name, table_id, checked_in, required_seats, created_at, updated_at
              FROM customers WHERE id = ?`
	customer, err := scanCustomer(db.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %d: %w", id, err)
	}
	return customer, nil
}

// GetCustomerByTable returns the customer currently linked to the table,
// or nil when the table has no occupant.
func (db *DB) GetCustomerByTable(ctx context.Context, tableID int64) (*models.Customer, error) {
	query := `SELECT id, name, table_id, checked_in, required_seats, created_at, updated_at
              FROM customers WHERE table_id = ? LIMIT 1`
	customer, err := scanCustomer(db.db.QueryRowContext(ctx, query, tableID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer for table %d: %w", tableID, err)
	}
	return customer, nil
}

// GetAssignedTable returns the customer's table id, nil when unbooked.
func (db *DB) GetAssignedTable(ctx context.Context, customerID int64) (*int64, error) {
	customer, err := db.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return customer.TableID, nil
}

// SetAssignedTable links the customer to a table, or clears the link when
// tableID is nil. Either way the checked-in flag is reset in the same
// write so it can never be true without an assignment.
func (db *DB) SetAssignedTable(ctx context.Context, customerID int64, tableID *int64) error {
	query := `UPDATE customers SET table_id = ?, checked_in = 0, updated_at = ? WHERE id = ?`
	result, err := db.db.ExecContext(ctx, query, tableID, time.Now(), customerID)
	if err != nil {
		return fmt.Errorf("failed to set assigned table for customer %d: %w", customerID, err)
	}
	return rowsAffectedOrNotFound(result)
}

// SetCheckedIn flips the checked-in flag.
func (db *DB) SetCheckedIn(ctx context.Context, customerID int64, checkedIn bool) error {
	query := `UPDATE customers SET checked_in = ?, updated_at = ? WHERE id = ?`
	result, err := db.db.ExecContext(ctx, query, checkedIn, time.Now(), customerID)
	if err != nil {
		return fmt.Errorf("failed to set checked-in for customer %d: %w", customerID, err)
	}
	return rowsAffectedOrNotFound(result)
}

// ListCustomers returns all customers ordered by id.
func (db *DB) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	query := `SELECT id, name, table_id, checked_in, required_seats, created_at, updated_at
              FROM customers ORDER BY id`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var customer models.Customer
	var tableID sql.NullInt64
	err := row.Scan(
		&customer.ID,
		&customer.Name,
		&tableID,
		&customer.CheckedIn,
		&customer.RequiredSeats,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tableID.Valid {
		customer.TableID = &tableID.Int64
	}
	return &customer, nil
}

func rowsAffectedOrNotFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
