package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/config"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/models"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/repository/repotest"
)

type fixture struct {
	stores       repository.Stores
	appointments *AppointmentService
	auth         *AuthService
	users        *UserService

	admin, pa, doctor, otherDoctor, patient, otherPatient Caller
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "test-access-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stores := repotest.Stores(t)
	log := logger.Discard()
	m := metrics.New()
	f := &fixture{
		stores:       stores,
		appointments: NewAppointmentService(stores, m, log),
		auth:         NewAuthService(stores, testConfig(), m, log),
		users:        NewUserService(stores, log),
	}

	f.admin = f.addUser(t, "Ada Admin", "admin@sipitali.test", models.RoleSuperAdmin)
	f.pa = f.addUser(t, "Pam Assistant", "pa@sipitali.test", models.RolePA)
	f.doctor = f.addUser(t, "Dr. Grey", "grey@sipitali.test", models.RoleDoctor)
	f.otherDoctor = f.addUser(t, "Dr. House", "house@sipitali.test", models.RoleDoctor)
	f.patient = f.addUser(t, "Pat Patient", "pat@sipitali.test", models.RolePatient)
	f.otherPatient = f.addUser(t, "Olive Other", "olive@sipitali.test", models.RolePatient)

	require.NoError(t, stores.Doctors.Save(context.Background(), &models.Doctor{
		UserID:         f.doctor.ID,
		Specialization: "Cardiology",
		LicenseNumber:  "LIC-100",
	}))
	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, role models.Role) Caller {
	t.Helper()

	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.Local)
	u := &models.User{
		Name:           name,
		Email:          email,
		Role:           role,
		Phone:          "+254700000000",
		DateOfBirth:    &dob,
		Address:        "1 Hospital Road",
		MedicalHistory: "asthma",
	}
	require.NoError(t, u.SetPassword("password123"))
	require.NoError(t, f.stores.Users.Create(context.Background(), u))
	return Caller{ID: u.ID, Role: role}
}

func (f *fixture) book(t *testing.T, patient Caller, date string) *AppointmentView {
	t.Helper()

	view, err := f.appointments.Create(context.Background(), patient, CreateAppointmentInput{
		DoctorID:        f.doctor.ID,
		AppointmentDate: date,
		AppointmentTime: "10:00",
		Reason:          "Checkup",
	})
	require.NoError(t, err)
	return view
}

func requireKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()

	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), err.Error())
	if msg != "" {
		require.Equal(t, msg, apperr.Message(err))
	}
}
