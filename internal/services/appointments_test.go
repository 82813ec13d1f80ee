package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/models"
)

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)

	view := f.book(t, f.patient, "2030-01-15")

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, models.StatusPending, view.Status)
	assert.Equal(t, "2030-01-15", view.AppointmentDate)
	assert.Nil(t, view.ConfirmedBy)
	assert.Nil(t, view.ConfirmedAt)
	require.NotNil(t, view.Patient)
	assert.Equal(t, f.patient.ID, view.Patient.ID)
	assert.Equal(t, "+254700000000", view.Patient.Phone)
	assert.Empty(t, view.Patient.MedicalHistory)
	require.NotNil(t, view.Doctor)
	assert.Equal(t, "Cardiology", view.Doctor.Specialization)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.appointments.Create(ctx, f.patient, CreateAppointmentInput{
		DoctorID:        f.doctor.ID,
		AppointmentDate: "2030-01-15",
		AppointmentTime: "10:00",
		Reason:          "   ",
	})
	requireKind(t, err, apperr.KindValidation, "Please provide all required fields")

	_, err = f.appointments.Create(ctx, f.patient, CreateAppointmentInput{
		DoctorID:        f.doctor.ID,
		AppointmentDate: "15/01/2030",
		AppointmentTime: "10:00",
		Reason:          "Checkup",
	})
	requireKind(t, err, apperr.KindValidation, "")

	for _, doctorID := range []string{f.patient.ID, "no-such-user"} {
		_, err = f.appointments.Create(ctx, f.patient, CreateAppointmentInput{
			DoctorID:        doctorID,
			AppointmentDate: "2030-01-15",
			AppointmentTime: "10:00",
			Reason:          "Checkup",
		})
		requireKind(t, err, apperr.KindInvalidReference, "Invalid doctor")
	}

	all, err := f.appointments.ListAll(ctx, f.admin)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateAppointmentPatientResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateAppointmentInput{
		DoctorID:        f.doctor.ID,
		AppointmentDate: "2030-01-15",
		AppointmentTime: "10:00",
		Reason:          "Checkup",
	}

	in.PatientID = f.otherPatient.ID
	_, err := f.appointments.Create(ctx, f.patient, in)
	requireKind(t, err, apperr.KindAuthorization, "")

	in.PatientID = ""
	_, err = f.appointments.Create(ctx, f.admin, in)
	requireKind(t, err, apperr.KindValidation, "")

	in.PatientID = f.doctor.ID
	_, err = f.appointments.Create(ctx, f.admin, in)
	requireKind(t, err, apperr.KindInvalidReference, "Invalid patient")

	in.PatientID = f.otherPatient.ID
	view, err := f.appointments.Create(ctx, f.admin, in)
	require.NoError(t, err)
	assert.Equal(t, f.otherPatient.ID, view.PatientID)

	_, err = f.appointments.Create(ctx, f.pa, in)
	requireKind(t, err, apperr.KindAuthorization, "")
	_, err = f.appointments.Create(ctx, f.doctor, in)
	requireKind(t, err, apperr.KindAuthorization, "")
}

func TestConfirmAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2030, 1, 10, 9, 30, 0, 0, time.Local)
	f.appointments.now = func() time.Time { return fixed }

	booked := f.book(t, f.patient, "2030-01-15")

	_, err := f.appointments.Confirm(ctx, f.patient, booked.ID)
	requireKind(t, err, apperr.KindAuthorization, "")
	_, err = f.appointments.Confirm(ctx, f.doctor, booked.ID)
	requireKind(t, err, apperr.KindAuthorization, "")

	view, err := f.appointments.Confirm(ctx, f.pa, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, view.Status)
	require.NotNil(t, view.ConfirmedBy)
	assert.Equal(t, f.pa.ID, view.ConfirmedBy.ID)
	assert.Equal(t, "Pam Assistant", view.ConfirmedBy.Name)
	require.NotNil(t, view.ConfirmedAt)
	assert.True(t, fixed.Equal(*view.ConfirmedAt))
	assert.Equal(t, "asthma", view.Patient.MedicalHistory)

	_, err = f.appointments.Confirm(ctx, f.admin, booked.ID)
	requireKind(t, err, apperr.KindInvalidTransition, "Appointment is not pending")

	_, err = f.appointments.Confirm(ctx, f.pa, "missing")
	requireKind(t, err, apperr.KindNotFound, "Appointment not found")
}

func TestConcurrentConfirmOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	booked := f.book(t, f.patient, "2030-01-15")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.appointments.Confirm(context.Background(), f.pa, booked.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	}
	assert.Equal(t, 1, wins)
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own := f.book(t, f.patient, "2030-01-15")

	_, err := f.appointments.Cancel(ctx, f.otherPatient, own.ID)
	requireKind(t, err, apperr.KindAuthorization, "Not authorized to cancel this appointment")
	_, err = f.appointments.Cancel(ctx, f.doctor, own.ID)
	requireKind(t, err, apperr.KindAuthorization, "")
	_, err = f.appointments.Cancel(ctx, f.patient, "missing")
	requireKind(t, err, apperr.KindNotFound, "Appointment not found")

	view, err := f.appointments.Cancel(ctx, f.patient, own.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, view.Status)

	_, err = f.appointments.Cancel(ctx, f.patient, own.ID)
	requireKind(t, err, apperr.KindInvalidTransition, "Appointment cannot be cancelled")
	_, err = f.appointments.Confirm(ctx, f.pa, own.ID)
	requireKind(t, err, apperr.KindInvalidTransition, "Appointment is not pending")

	confirmed := f.book(t, f.patient, "2030-01-16")
	_, err = f.appointments.Confirm(ctx, f.pa, confirmed.ID)
	require.NoError(t, err)
	view, err = f.appointments.Cancel(ctx, f.pa, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, view.Status)
	require.NotNil(t, view.ConfirmedBy, "confirmation fields survive cancellation")
}

func TestUpdateAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booked := f.book(t, f.patient, "2030-01-15")

	_, err := f.appointments.Update(ctx, f.patient, booked.ID, UpdateAppointmentInput{Reason: "x"})
	requireKind(t, err, apperr.KindAuthorization, "")

	_, err = f.appointments.Update(ctx, f.pa, booked.ID, UpdateAppointmentInput{Status: "rescheduled"})
	requireKind(t, err, apperr.KindValidation, "Invalid status")

	notes := "Bring previous results"
	view, err := f.appointments.Update(ctx, f.pa, booked.ID, UpdateAppointmentInput{
		AppointmentDate: "2030-02-01",
		AppointmentTime: "11:30",
		Notes:           &notes,
		Status:          models.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, view.Status)
	assert.Equal(t, "2030-02-01", view.AppointmentDate)
	assert.Equal(t, "11:30", view.AppointmentTime)
	assert.Equal(t, "Checkup", view.Reason)
	assert.Equal(t, notes, view.Notes)
	assert.Nil(t, view.ConfirmedBy)

	_, err = f.appointments.Cancel(ctx, f.admin, booked.ID)
	requireKind(t, err, apperr.KindInvalidTransition, "Appointment cannot be cancelled")

	_, err = f.appointments.Update(ctx, f.admin, "missing", UpdateAppointmentInput{})
	requireKind(t, err, apperr.KindNotFound, "")
}

func TestGetAppointmentVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booked := f.book(t, f.patient, "2030-01-15")

	for _, c := range []Caller{f.admin, f.pa, f.doctor, f.patient} {
		view, err := f.appointments.Get(ctx, c, booked.ID)
		require.NoError(t, err, c.Role)
		assert.Equal(t, "1 Hospital Road", view.Patient.Address)
	}
	for _, c := range []Caller{f.otherDoctor, f.otherPatient} {
		_, err := f.appointments.Get(ctx, c, booked.ID)
		requireKind(t, err, apperr.KindAuthorization, "")
	}

	_, err := f.appointments.Get(ctx, f.admin, "missing")
	requireKind(t, err, apperr.KindNotFound, "Appointment not found")
}

func TestAppointmentQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, f.patient, "2030-01-20")
	b := f.book(t, f.patient, "2030-01-10")
	c := f.book(t, f.otherPatient, "2030-01-15")

	mine, err := f.appointments.ListForPatient(ctx, f.patient)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, viewIDs(mine))

	pending, err := f.appointments.ListPending(ctx, f.pa)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, viewIDs(pending))

	all, err := f.appointments.ListAll(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, viewIDs(all))

	_, err = f.appointments.ListAll(ctx, f.pa)
	requireKind(t, err, apperr.KindAuthorization, "")
	_, err = f.appointments.ListPending(ctx, f.patient)
	requireKind(t, err, apperr.KindAuthorization, "")

	for _, id := range []string{a.ID, c.ID} {
		_, err := f.appointments.Confirm(ctx, f.pa, id)
		require.NoError(t, err)
	}

	schedule, err := f.appointments.DoctorSchedule(ctx, f.doctor, "")
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID}, viewIDs(schedule))

	adminView, err := f.appointments.DoctorSchedule(ctx, f.admin, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, viewIDs(schedule), viewIDs(adminView))

	empty, err := f.appointments.DoctorSchedule(ctx, f.otherDoctor, "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.appointments.DoctorSchedule(ctx, f.otherDoctor, f.doctor.ID)
	requireKind(t, err, apperr.KindAuthorization, "")
	_, err = f.appointments.DoctorSchedule(ctx, f.pa, "")
	requireKind(t, err, apperr.KindAuthorization, "")

	pending, err = f.appointments.ListPending(ctx, f.pa)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, viewIDs(pending))
}

func TestDeletedParticipantRendersAsNull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booked := f.book(t, f.patient, "2030-01-15")

	require.NoError(t, f.users.Delete(ctx, f.admin, f.patient.ID))

	view, err := f.appointments.Get(ctx, f.admin, booked.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Patient)
	assert.Equal(t, f.patient.ID, view.PatientID)
	require.NotNil(t, view.Doctor)
}

func TestAppointmentStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.appointments.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, AppointmentStats{}, *empty)

	// 2030-01-15 is a Tuesday; its week runs Sunday 13th to Saturday 19th.
	f.appointments.now = func() time.Time { return time.Date(2030, 1, 15, 14, 0, 0, 0, time.Local) }

	today := f.book(t, f.patient, "2030-01-15")
	sunday := f.book(t, f.patient, "2030-01-13")
	f.book(t, f.patient, "2030-01-19")
	f.book(t, f.patient, "2030-01-02")
	nextMonth := f.book(t, f.patient, "2030-02-01")

	_, err = f.appointments.Confirm(ctx, f.pa, today.ID)
	require.NoError(t, err)
	_, err = f.appointments.Confirm(ctx, f.pa, sunday.ID)
	require.NoError(t, err)
	_, err = f.appointments.Cancel(ctx, f.patient, nextMonth.ID)
	require.NoError(t, err)

	stats, err := f.appointments.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, AppointmentStats{
		Total:            5,
		Pending:          2,
		Confirmed:        2,
		Cancelled:        1,
		Today:            1,
		Weekly:           3,
		Monthly:          4,
		ConfirmationRate: 40,
		CancellationRate: 20,
	}, *stats)

	_, err = f.appointments.Stats(ctx, f.pa)
	requireKind(t, err, apperr.KindAuthorization, "")
}

func TestPercentageRounds(t *testing.T) {
	assert.Equal(t, 0, percentage(0, 0))
	assert.Equal(t, 33, percentage(1, 3))
	assert.Equal(t, 67, percentage(2, 3))
	assert.Equal(t, 100, percentage(4, 4))
}

func viewIDs(views []AppointmentView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
