package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("s3cret!"))

	assert.NotEqual(t, "s3cret!", u.Password)
	assert.True(t, u.CheckPassword("s3cret!"))
	assert.False(t, u.CheckPassword("S3cret!"))
}

func TestSanitizeOmitsPassword(t *testing.T) {
	u := &User{Name: "Ann", Email: "ann@example.com", Role: RolePatient, Password: "hash"}
	u.ID = "u1"

	s := u.Sanitize()
	assert.Equal(t, "u1", s.ID)
	assert.Equal(t, UserPublic{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: RolePatient}, u.Public())
}

func TestBeforeSaveNormalizesEmail(t *testing.T) {
	u := &User{Email: "  Ann@Example.COM ", Name: " Ann "}
	require.NoError(t, u.BeforeSave(nil))
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, "Ann", u.Name)
}

func TestEnumValidity(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("admin").Valid())

	for _, s := range AppointmentStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, AppointmentStatus("rescheduled").Valid())
}

func TestDoctorDefaults(t *testing.T) {
	d := &Doctor{}
	require.NoError(t, d.BeforeCreate(nil))

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "09:00", d.StartTime)
	assert.Equal(t, "17:00", d.EndTime)
	assert.Equal(t, []string{}, d.WorkingDays)
	assert.True(t, IsWeekday("Sunday"))
	assert.False(t, IsWeekday("sunday"))
}
