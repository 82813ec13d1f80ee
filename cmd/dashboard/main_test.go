package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/config"
	"sipitali-server/internal/dashboard"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/models"
	"sipitali-server/internal/ratelimit"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/repository/repotest"
	"sipitali-server/internal/routes"
)

type cli struct {
	t           *testing.T
	apiURL      string
	sessionPath string
	stores      repository.Stores
	doctorID    string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	stores := repotest.Stores(t)
	var doctorID string
	for _, u := range []*models.User{
		{Name: "Ada Admin", Email: "admin@sipitali.test", Role: models.RoleSuperAdmin},
		{Name: "Dr. Grey", Email: "grey@sipitali.test", Role: models.RoleDoctor},
		{Name: "Pat Patient", Email: "pat@sipitali.test", Role: models.RolePatient},
	} {
		require.NoError(t, u.SetPassword("password123"))
		require.NoError(t, stores.Users.Create(ctx, u))
		if u.Role == models.RoleDoctor {
			doctorID = u.ID
		}
	}
	require.NoError(t, stores.Doctors.Save(ctx, &models.Doctor{
		UserID:         doctorID,
		Specialization: "Cardiology",
		LicenseNumber:  "LIC-100",
		WorkingDays:    []string{"Monday", "Wednesday"},
	}))

	router := gin.New()
	routes.SetupRoutes(router, routes.Dependencies{
		Config: &config.Config{
			JWTSecret:                 "cli-access",
			JWTRefreshSecret:          "cli-refresh",
			JWTExpirationMinutes:      15,
			JWTRefreshExpirationHours: 24,
		},
		Stores:  stores,
		Log:     logger.Discard(),
		Metrics: metrics.New(),
		Limiter: ratelimit.NewMemoryLimiter(100, time.Minute),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &cli{
		t:           t,
		apiURL:      srv.URL + "/api",
		sessionPath: filepath.Join(t.TempDir(), "session.json"),
		stores:      stores,
		doctorID:    doctorID,
	}
}

// run executes one dashboard invocation with stdin and returns its output.
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd(&options{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--api", c.apiURL, "--session", c.sessionPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) login(email string) {
	c.t.Helper()
	out, err := c.run("", "login", "--email", email, "--password", "password123")
	require.NoError(c.t, err, out)
}

func TestBookWithDoctorPicker(t *testing.T) {
	c := newCLI(t)
	c.login("pat@sipitali.test")

	out, err := c.run("1\n2030-03-04\n10:30\nChest pain\n", "book")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Dr. Grey")
	assert.Contains(t, out, "Monday, Wednesday")
	assert.Contains(t, out, "Doctor: Date (YYYY-MM-DD): Time (HH:MM): Reason for visit: ")
	assert.Contains(t, out, "with Dr. Grey on March 4, 2030 at 10:30 AM is Pending")

	appts, err := c.stores.Appointments.List(context.Background(), repository.AppointmentQuery{DoctorID: c.doctorID})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Chest pain", appts[0].Reason)
	assert.Equal(t, models.StatusPending, appts[0].Status)
}

func TestBookWithFlags(t *testing.T) {
	c := newCLI(t)
	c.login("pat@sipitali.test")

	out, err := c.run("", "book", "--doctor", c.doctorID, "--date", "2030-03-05", "--time", "14:00", "--reason", "Follow-up visit")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "SPECIALIZATION")
	assert.Contains(t, out, "on March 5, 2030 at 2:00 PM is Pending")

	_, err = c.run("9\n", "book")
	assert.EqualError(t, err, "choose a doctor between 1 and 1")

	_, err = c.run("", "book", "--doctor", c.doctorID, "--date", "05/03/2030", "--time", "14:00", "--reason", "x")
	assert.EqualError(t, err, "Invalid appointment date, expected YYYY-MM-DD")
}

func TestBookRejectedForDoctors(t *testing.T) {
	c := newCLI(t)
	c.login("grey@sipitali.test")

	_, err := c.run("", "book", "--doctor", c.doctorID, "--date", "2030-03-05", "--time", "14:00", "--reason", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	assert.Contains(t, describe(err), "Your role cannot perform this action.")
}

var createdID = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestUsersCreateAndDelete(t *testing.T) {
	c := newCLI(t)
	c.login("admin@sipitali.test")

	out, err := c.run("secret12\n", "users", "create",
		"--name", "Dr. Okafor", "--email", "okafor@sipitali.test", "--role", "doctor",
		"--specialization", "Neurology", "--license", "LIC-77", "--working-days", "Monday,Friday")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Created doctor okafor@sipitali.test")
	assert.Contains(t, out, "Neurology, license LIC-77")

	m := createdID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	stored, err := c.stores.Users.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("secret12"))

	out, err = c.run("n\n", "users", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Are you sure you want to delete this user? [y/N]: ")
	assert.Contains(t, out, "Aborted")
	_, err = c.stores.Users.FindByID(context.Background(), id)
	require.NoError(t, err, "declining the prompt keeps the user")

	out, err = c.run("y\n", "users", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "User "+id+" deleted")
	_, err = c.stores.Doctors.FindByUserID(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = c.run("", "users", "delete", id, "--yes")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualError(t, err, "User not found")
}

func TestUsersCreateRequiresAdmin(t *testing.T) {
	c := newCLI(t)
	c.login("pat@sipitali.test")

	_, err := c.run("", "users", "create", "--name", "X", "--email", "x@sipitali.test", "--password", "secret12")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestCommandsNeedSession(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "book")
	assert.ErrorIs(t, err, errNoSession)
	_, err = c.run("", "users", "delete", "u1", "--yes")
	assert.ErrorIs(t, err, errNoSession)
}

func TestDescribeExpiredSession(t *testing.T) {
	err := &dashboard.APIError{Status: http.StatusUnauthorized, Message: "Invalid or expired token"}
	assert.Equal(t, "Invalid or expired token. Run `dashboard login` to sign in again.", describe(err))
	assert.Equal(t, "boom", describe(errors.New("boom")))
}
