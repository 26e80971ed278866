package persistent

import (
	"errors"
	"testing"
	"time"

	"fleetwatch/pkg/apperrors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFleetRepository_ListMonitoredTrucks(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	repo := NewFleetRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "trucks" WHERE status <> \$1 ORDER BY registration ASC`).
		WithArgs("retired").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration", "make", "model", "status", "odometer_km", "assigned_driver_id", "created_at", "updated_at"}).
			AddRow("t-1", "TRK-001", "Volvo", "FH16", "active", 120000, "u-3", now, now))
	mock.ExpectQuery(`SELECT \* FROM "compliance_documents" WHERE "compliance_documents"."truck_id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "truck_id", "kind", "reference", "expires_at", "created_at"}).
			AddRow("d-1", "t-1", "insurance", "POL-77", now.Add(48*time.Hour), now))
	mock.ExpectQuery(`SELECT \* FROM "maintenance_schedules" WHERE "maintenance_schedules"."truck_id" = \$1 AND completed_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "truck_id", "description", "due_at", "due_odometer_km", "completed_at", "created_at"}).
			AddRow("m-1", "t-1", "Oil change", nil, 121000, nil, now))
	mock.ExpectQuery(`SELECT \* FROM "fuel_logs" WHERE "fuel_logs"."truck_id" = \$1 ORDER BY logged_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "truck_id", "litres", "distance_km", "logged_at", "created_at"}).
			AddRow("f-1", "t-1", 120.0, 400.0, now.Add(-48*time.Hour), now).
			AddRow("f-2", "t-1", 126.0, 400.0, now.Add(-24*time.Hour), now))

	trucks, err := repo.ListMonitoredTrucks(ctx)

	require.NoError(t, err)
	require.Len(t, trucks, 1)
	truck := trucks[0]
	assert.Equal(t, "TRK-001", truck.Registration)
	assert.Equal(t, "u-3", truck.AssignedDriverID)
	assert.Equal(t, 120000, truck.OdometerKm)
	require.Len(t, truck.Documents, 1)
	assert.Equal(t, "insurance", truck.Documents[0].Kind)
	require.Len(t, truck.Schedules, 1)
	require.NotNil(t, truck.Schedules[0].DueOdometerKm)
	assert.Equal(t, 121000, *truck.Schedules[0].DueOdometerKm)
	assert.Nil(t, truck.Schedules[0].DueAt)
	require.Len(t, truck.FuelLogs, 2)
	assert.Equal(t, 126.0, truck.FuelLogs[1].Litres)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFleetRepository_ListMonitoredTrucks_ScanFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFleetRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "trucks"`).WillReturnError(errors.New("relation \"trucks\" does not exist"))

	_, err := repo.ListMonitoredTrucks(ctx)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodePersistenceFailed))
}
