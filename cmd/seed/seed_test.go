package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/models"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/repository/repotest"
)

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	stores := repotest.Stores(t)

	summary, err := seedDemo(ctx, stores, logger.Discard(), metrics.New(), demoOptions{
		Doctors:                3,
		Assistants:             1,
		Patients:               4,
		AppointmentsPerPatient: 2,
		Password:               "password123",
		Seed:                   42,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Doctors)
	assert.Equal(t, 4, summary.Patients)
	assert.Equal(t, 8, summary.Appointments)

	doctors, err := stores.Users.List(ctx, repository.UserQuery{Role: models.RoleDoctor})
	require.NoError(t, err)
	require.Len(t, doctors, 3)
	for _, d := range doctors {
		profile, err := stores.Doctors.FindByUserID(ctx, d.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, profile.Specialization)
	}

	counts, err := stores.Appointments.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, summary.Confirmed, counts[models.StatusConfirmed])
	assert.EqualValues(t, summary.Appointments-summary.Confirmed, counts[models.StatusPending])

	patients, err := stores.Users.List(ctx, repository.UserQuery{Role: models.RolePatient})
	require.NoError(t, err)
	require.NotEmpty(t, patients)
	assert.True(t, patients[0].CheckPassword("password123"))
}

func TestSeedDemoRequiresStaff(t *testing.T) {
	_, err := seedDemo(context.Background(), repotest.Stores(t), logger.Discard(), metrics.New(), demoOptions{Doctors: 0, Assistants: 1})
	assert.Error(t, err)
}
