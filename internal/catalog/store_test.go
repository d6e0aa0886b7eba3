package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/beemart/server/internal/db"
)

func newMockStore(t *testing.T) (*Store[Brand, *Brand], sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	orm, err := db.OpenORM(sqlDB)
	require.NoError(t, err)
	return NewStore[Brand](orm), mock
}

func brandRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "logo", "description", "created_at", "updated_at"}).
		AddRow(1, "Acme", nil, nil, now, now).
		AddRow(2, "Globex", "https://img.example.com/globex.png", "Consumer goods", now, now)
}

func TestStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "brands"`).WillReturnRows(brandRows())

	items, err := store.List(context.Background(), 500, -1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, "Globex", items[1].Name)
	require.NotNil(t, items[1].Logo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "brands"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Create(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO "brands"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	brand := &Brand{Base: Base{ID: 99}, Name: "Initech"}
	require.NoError(t, store.Create(context.Background(), brand))
	assert.Equal(t, int64(7), brand.ID, "client supplied id is ignored")
	assert.False(t, brand.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO "brands"`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	err := store.Create(context.Background(), &Brand{Name: "Acme"})
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestStore_Update(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE "brands" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "brands"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Acme Corp"))

	got, err := store.Update(context.Background(), 1, &Brand{Name: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdatePurchaseOrderWithoutStatus(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	orm, err := db.OpenORM(sqlDB)
	require.NoError(t, err)
	store := NewStore[PurchaseOrder](orm)

	mock.ExpectExec(`UPDATE "purchase_orders" SET .*"status"=`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "purchase_orders"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "supplier_name", "status"}).AddRow(3, "Globex", StatusDraft))

	order := &PurchaseOrder{SupplierName: "Globex"}
	got, err := store.Update(context.Background(), 3, order)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, order.Status, "an omitted status is written as DRAFT")
	assert.Equal(t, StatusDraft, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseOrder_ResetSystemFieldsKeepsStatus(t *testing.T) {
	order := &PurchaseOrder{Base: Base{ID: 9}, Status: StatusReceived}
	order.ResetSystemFields()
	assert.Zero(t, order.ID)
	assert.Equal(t, StatusReceived, order.Status)
}

func TestStore_UpdateMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE "brands" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Update(context.Background(), 404, &Brand{Name: "Nobody"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM "brands"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "brands"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), 1))
	assert.ErrorIs(t, store.Delete(context.Background(), 1), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrForeignKeyViolated), ErrConstraint)
	assert.ErrorIs(t, translate(&pq.Error{Code: "23514"}), ErrConstraint)
	assert.NotErrorIs(t, translate(context.Canceled), ErrConstraint)
}
