package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type SizeRepo struct{ db *sqlx.DB }

func NewSizeRepo(db *sqlx.DB) *SizeRepo { return &SizeRepo{db: db} }

func (r *SizeRepo) List(ctx context.Context) ([]domain.Size, error) {
	out := []domain.Size{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, label, position FROM sizes ORDER BY position, id`)
	return out, err
}

// Create appends a size after the existing ones.
func (r *SizeRepo) Create(ctx context.Context, label string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO sizes(label, position)
	  VALUES(?, (SELECT COALESCE(MAX(position), -1) + 1 FROM sizes))
	`, label)
	if isUnique(err) {
		return 0, fmt.Errorf("%w: size %q exists", domain.ErrInvalidInput, label)
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SizeRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sizes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type CourierRepo struct{ db *sqlx.DB }

func NewCourierRepo(db *sqlx.DB) *CourierRepo { return &CourierRepo{db: db} }

func (r *CourierRepo) List(ctx context.Context, activeOnly bool) ([]domain.Courier, error) {
	q := `SELECT id, name, fee, active FROM couriers`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY fee, LOWER(name)`
	out := []domain.Courier{}
	err := r.db.SelectContext(ctx, &out, q)
	return out, err
}

func (r *CourierRepo) ByID(ctx context.Context, id int64) (domain.Courier, error) {
	var c domain.Courier
	err := r.db.GetContext(ctx, &c, `SELECT id, name, fee, active FROM couriers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return c, domain.ErrNotFound
	}
	return c, err
}

func (r *CourierRepo) Create(ctx context.Context, name string, fee int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO couriers(name, fee, active) VALUES(?, ?, 1)`, name, fee)
	if isUnique(err) {
		return 0, fmt.Errorf("%w: courier %q exists", domain.ErrInvalidInput, name)
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Delete retires a courier. Past orders keep its name and fee.
func (r *CourierRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM couriers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type PostalRepo struct{ db *sqlx.DB }

func NewPostalRepo(db *sqlx.DB) *PostalRepo { return &PostalRepo{db: db} }

// Lookup resolves a ZIP3 prefix to its city and state.
func (r *PostalRepo) Lookup(ctx context.Context, prefix string) (domain.PostalArea, error) {
	var a domain.PostalArea
	err := r.db.GetContext(ctx, &a, `SELECT prefix, city, region FROM postal_areas WHERE prefix = ?`, prefix)
	if errors.Is(err, sql.ErrNoRows) {
		return a, domain.ErrNotFound
	}
	return a, err
}
