package persistent

import (
	"testing"

	"fleetwatch/services/notification/internal/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var preferenceColumns = []string{"user_id", "email", "sms", "push", "compliance", "maintenance", "fuel", "system", "updated_at"}

func TestPreferencesRepository_Get_DefaultsWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPreferencesRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "notification_preferences" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows(preferenceColumns))

	prefs, err := repo.Get(ctx, "u-1")

	require.NoError(t, err)
	assert.Equal(t, entity.DefaultPreferences("u-1"), prefs)
}

func TestPreferencesRepository_Get_Stored(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPreferencesRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "notification_preferences" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows(preferenceColumns).AddRow("u-1", true, false, false, true, false, true, true, now))

	prefs, err := repo.Get(ctx, "u-1")

	require.NoError(t, err)
	assert.True(t, prefs.Allows(entity.ChannelEmail, entity.TypeCompliance))
	assert.False(t, prefs.Allows(entity.ChannelEmail, entity.TypeMaintenance))
	assert.False(t, prefs.Push)
}

func TestPreferencesRepository_GetMany_FillsDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPreferencesRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "notification_preferences" WHERE user_id IN \(\$1,\$2\)`).
		WithArgs("u-1", "u-2").
		WillReturnRows(sqlmock.NewRows(preferenceColumns).AddRow("u-1", false, true, false, true, true, true, true, now))

	prefs, err := repo.GetMany(ctx, []string{"u-1", "u-2"})

	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.True(t, prefs["u-1"].SMS)
	assert.False(t, prefs["u-1"].Email)
	assert.Equal(t, entity.DefaultPreferences("u-2"), prefs["u-2"])
}

func TestPreferencesRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPreferencesRepository(db)

	mock.ExpectExec(`INSERT INTO "notification_preferences" .* ON CONFLICT \("user_id"\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(ctx, entity.DefaultPreferences("u-1"))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
