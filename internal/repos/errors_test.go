package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/catalog"
	"threadline/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlite")
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestProductRepo_ListCountError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM`).WillReturnError(errors.New("disk I/O error"))

	_, _, err := NewProductRepo(db).List(context.Background(), catalog.NormalizeQuery(nil, catalog.DefaultFilters()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_ListCountAppliesFiltersInsideSubquery(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM \(.*\) lp WHERE lp\.active = 1\)$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`LIMIT \? OFFSET \?`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, total, err := NewProductRepo(db).List(context.Background(), catalog.NormalizeQuery(nil, catalog.DefaultFilters()))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_ListPageError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY lp.created_at DESC, lp.id ASC LIMIT \? OFFSET \?`).
		WithArgs(12, 0).
		WillReturnError(errors.New("interrupted"))

	_, _, err := NewProductRepo(db).List(context.Background(), catalog.NormalizeQuery(nil, catalog.DefaultFilters()))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepo_DeleteRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT parent_id FROM categories`).
		WillReturnRows(sqlmock.NewRows([]string{"parent_id"}).AddRow(nil))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE categories SET parent_id`).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := NewCategoryRepo(db).Delete(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepo_SaveProductMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: products.slug (2067)"))
	mock.ExpectRollback()

	_, err := NewVariantRepo(db).SaveProduct(context.Background(), ProductDraft{
		Product: domain.Product{CategoryID: 1, Name: "Tee", Slug: "tee", BasePrice: 100},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_PlaceRollsBackOnItemError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE variants`).WithArgs(2, "v-1", 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := NewOrderRepo(db).Place(NewOrder{
		ID:    "o-1",
		Lines: []CartItemRow{{VariantID: "v-1", SKU: "tee-SRE-001", Qty: 2, Price: 2000}},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
