package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentswap/contentswap/app/models"
)

func TestUsageRepositoryReserveOneAdmits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepository(db)

	mock.ExpectExec("INSERT INTO `usage_records`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `usage_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ReserveOne(7, models.UsageTypeFaceSwap, 9, 2026, 50)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepositoryReserveOneDeniesAtLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepository(db)

	mock.ExpectExec("INSERT INTO `usage_records`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// counter already at the limit, the guarded update touches no rows
	mock.ExpectExec("UPDATE `usage_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ReserveOne(7, models.UsageTypeFaceSwap, 9, 2026, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepositoryGetCountMissingRowIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `usage_records`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "month", "year", "count"}))

	count, err := repo.GetCount(7, models.UsageTypeFaceSwap, 9, 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepositoryReleaseOne(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUsageRepository(db)

	mock.ExpectExec("UPDATE `usage_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReleaseOne(7, models.UsageTypeFaceSwap, 9, 2026)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
