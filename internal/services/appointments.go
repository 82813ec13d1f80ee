package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/authz"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/models"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/utils"
)

const (
	msgAppointmentNotFound = "Appointment not found"
	msgNotPending          = "Appointment is not pending"
	msgCannotCancel        = "Appointment cannot be cancelled"
	msgNotAllowedCancel    = "Not authorized to cancel this appointment"
	msgInvalidDoctor       = "Invalid doctor"
	msgInvalidPatient      = "Invalid patient"
)

// CreateAppointmentInput is a booking request. PatientID is only honoured for
// super_admin; patients always book for themselves.
type CreateAppointmentInput struct {
	DoctorID        string `json:"doctor" validate:"required"`
	PatientID       string `json:"patientId"`
	AppointmentDate string `json:"appointmentDate" validate:"required"`
	AppointmentTime string `json:"appointmentTime" validate:"required"`
	Reason          string `json:"reason" validate:"required"`
	Notes           string `json:"notes"`
}

// UpdateAppointmentInput patches an appointment. Empty fields are left alone.
type UpdateAppointmentInput struct {
	AppointmentDate string                   `json:"appointmentDate"`
	AppointmentTime string                   `json:"appointmentTime"`
	Reason          string                   `json:"reason"`
	Notes           *string                  `json:"notes"`
	Status          models.AppointmentStatus `json:"status"`
}

// AppointmentStats aggregates the appointment table.
type AppointmentStats struct {
	Total            int64 `json:"total"`
	Pending          int64 `json:"pending"`
	Confirmed        int64 `json:"confirmed"`
	Cancelled        int64 `json:"cancelled"`
	Completed        int64 `json:"completed"`
	Today            int64 `json:"today"`
	Weekly           int64 `json:"weekly"`
	Monthly          int64 `json:"monthly"`
	ConfirmationRate int   `json:"confirmationRate"`
	CancellationRate int   `json:"cancellationRate"`
}

// AppointmentService runs the booking workflow.
type AppointmentService struct {
	appointments repository.AppointmentStore
	users        repository.UserStore
	enricher     enricher
	metrics      *metrics.Metrics
	log          *logrus.Entry
	now          func() time.Time
}

func NewAppointmentService(stores repository.Stores, m *metrics.Metrics, log *logger.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: stores.Appointments,
		users:        stores.Users,
		enricher:     enricher{users: stores.Users, doctors: stores.Doctors},
		metrics:      m,
		log:          log.WithComponent("appointments"),
		now:          time.Now,
	}
}

func parseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(models.DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid appointment date, expected YYYY-MM-DD")
	}
	return d, nil
}

func (s *AppointmentService) findAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(msgAppointmentNotFound)
	}
	return appt, err
}

// findWithRole resolves id to a user holding role, or reports an invalid reference.
func (s *AppointmentService) findWithRole(ctx context.Context, id string, role models.Role, msg string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.InvalidReference(msg)
	}
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, apperr.InvalidReference(msg)
	}
	return user, nil
}

// Create books a pending appointment.
func (s *AppointmentService) Create(ctx context.Context, caller Caller, in CreateAppointmentInput) (*AppointmentView, error) {
	if err := authz.Check(caller.Role, authz.CreateAppointment); err != nil {
		return nil, err
	}

	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.PatientID = strings.TrimSpace(in.PatientID)
	in.AppointmentDate = strings.TrimSpace(in.AppointmentDate)
	in.AppointmentTime = strings.TrimSpace(in.AppointmentTime)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	date, err := parseDate(in.AppointmentDate)
	if err != nil {
		return nil, err
	}

	patientID := caller.ID
	switch caller.Role {
	case models.RolePatient:
		if in.PatientID != "" && in.PatientID != caller.ID {
			return nil, apperr.Authorization("Patients can only book appointments for themselves")
		}
	case models.RoleSuperAdmin:
		if in.PatientID == "" {
			return nil, apperr.Validation(utils.MissingFieldsMessage)
		}
		patientID = in.PatientID
	}

	if _, err := s.findWithRole(ctx, in.DoctorID, models.RoleDoctor, msgInvalidDoctor); err != nil {
		return nil, err
	}
	if caller.Role == models.RoleSuperAdmin {
		if _, err := s.findWithRole(ctx, patientID, models.RolePatient, msgInvalidPatient); err != nil {
			return nil, err
		}
	}

	appt := &models.Appointment{
		PatientID:       patientID,
		DoctorID:        in.DoctorID,
		AppointmentDate: date,
		AppointmentTime: in.AppointmentTime,
		Reason:          in.Reason,
		Status:          models.StatusPending,
		Notes:           strings.TrimSpace(in.Notes),
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(models.StatusPending)
	s.log.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"doctor_id":      appt.DoctorID,
		"booked_by":      caller.ID,
	}).Info("Appointment requested")

	return s.enricher.enrichOne(ctx, appt, contactDetail)
}

// Confirm moves a pending appointment to confirmed and records who confirmed it.
func (s *AppointmentService) Confirm(ctx context.Context, caller Caller, id string) (*AppointmentView, error) {
	if err := authz.Check(caller.Role, authz.ConfirmAppointment); err != nil {
		return nil, err
	}

	appt, err := s.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.StatusPending {
		return nil, apperr.InvalidTransition(msgNotPending)
	}

	now := s.now()
	confirmedBy := caller.ID
	updated, err := s.appointments.Transition(ctx, id,
		[]models.AppointmentStatus{models.StatusPending},
		repository.AppointmentChanges{
			Status:      models.StatusConfirmed,
			ConfirmedBy: &confirmedBy,
			ConfirmedAt: &now,
			UpdatedAt:   now,
		})
	if err != nil {
		return nil, s.transitionError(err, msgNotPending)
	}

	s.recordTransition(updated, caller, appt.Status)
	return s.enricher.enrichOne(ctx, updated, clinicalDetail)
}

// Cancel moves a pending or confirmed appointment to cancelled. Patients may only
// cancel their own.
func (s *AppointmentService) Cancel(ctx context.Context, caller Caller, id string) (*AppointmentView, error) {
	if err := authz.Check(caller.Role, authz.CancelAppointment); err != nil {
		return nil, err
	}

	appt, err := s.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanCancel(caller.Role, caller.ID, appt.PatientID) {
		return nil, apperr.Authorization(msgNotAllowedCancel)
	}
	if appt.Status != models.StatusPending && appt.Status != models.StatusConfirmed {
		return nil, apperr.InvalidTransition(msgCannotCancel)
	}

	updated, err := s.appointments.Transition(ctx, id,
		[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed},
		repository.AppointmentChanges{Status: models.StatusCancelled, UpdatedAt: s.now()})
	if err != nil {
		return nil, s.transitionError(err, msgCannotCancel)
	}

	s.recordTransition(updated, caller, appt.Status)
	return s.enricher.enrichOne(ctx, updated, contactDetail)
}

func (s *AppointmentService) transitionError(err error, staleMsg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgAppointmentNotFound)
	case errors.Is(err, repository.ErrStale):
		return apperr.InvalidTransition(staleMsg)
	}
	return err
}

func (s *AppointmentService) recordTransition(appt *models.Appointment, caller Caller, from models.AppointmentStatus) {
	s.metrics.RecordTransition(appt.Status)
	s.log.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"from":           from,
		"to":             appt.Status,
		"actor_id":       caller.ID,
		"actor_role":     caller.Role,
	}).Info("Appointment status changed")
}

// Update patches date, time, reason, notes and status. Status may be set to any
// valid value regardless of the current one; confirmation fields are left as is.
func (s *AppointmentService) Update(ctx context.Context, caller Caller, id string, in UpdateAppointmentInput) (*AppointmentView, error) {
	if err := authz.Check(caller.Role, authz.UpdateAppointment); err != nil {
		return nil, err
	}

	appt, err := s.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := appt.Status

	if v := strings.TrimSpace(in.AppointmentDate); v != "" {
		date, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		appt.AppointmentDate = date
	}
	if v := strings.TrimSpace(in.AppointmentTime); v != "" {
		appt.AppointmentTime = v
	}
	if v := strings.TrimSpace(in.Reason); v != "" {
		appt.Reason = v
	}
	if in.Notes != nil {
		appt.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, apperr.Validation("Invalid status")
		}
		appt.Status = in.Status
	}
	appt.UpdatedAt = s.now()

	if err := s.appointments.Save(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgAppointmentNotFound)
		}
		return nil, err
	}

	if appt.Status != previous {
		s.recordTransition(appt, caller, previous)
	}
	return s.enricher.enrichOne(ctx, appt, contactDetail)
}

// Get returns one appointment if the caller may see it.
func (s *AppointmentService) Get(ctx context.Context, caller Caller, id string) (*AppointmentView, error) {
	if err := authz.Check(caller.Role, authz.ViewAppointment); err != nil {
		return nil, err
	}

	appt, err := s.findAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(caller.Role, caller.ID, appt.PatientID, appt.DoctorID) {
		return nil, apperr.Authorization("Not authorized to view this appointment")
	}
	return s.enricher.enrichOne(ctx, appt, clinicalDetail)
}

// ListAll returns every appointment, newest first.
func (s *AppointmentService) ListAll(ctx context.Context, caller Caller) ([]AppointmentView, error) {
	return s.list(ctx, caller, authz.ListAppointments, repository.AppointmentQuery{}, contactDetail)
}

// ListForPatient returns the caller's own bookings, latest scheduled first.
func (s *AppointmentService) ListForPatient(ctx context.Context, caller Caller) ([]AppointmentView, error) {
	q := repository.AppointmentQuery{PatientID: caller.ID, Order: repository.OrderScheduleDesc}
	return s.list(ctx, caller, authz.ListOwnAppointments, q, contactDetail)
}

// ListPending returns the review queue, oldest request first.
func (s *AppointmentService) ListPending(ctx context.Context, caller Caller) ([]AppointmentView, error) {
	q := repository.AppointmentQuery{Status: models.StatusPending, Order: repository.OrderCreatedAsc}
	return s.list(ctx, caller, authz.ListPending, q, clinicalDetail)
}

// DoctorSchedule returns a doctor's confirmed appointments in chronological order.
// Doctors see their own schedule; super_admin may name any doctor.
func (s *AppointmentService) DoctorSchedule(ctx context.Context, caller Caller, doctorID string) ([]AppointmentView, error) {
	if err := authz.Check(caller.Role, authz.ViewDoctorSchedule); err != nil {
		return nil, err
	}

	target := caller.ID
	doctorID = strings.TrimSpace(doctorID)
	if doctorID != "" && doctorID != caller.ID {
		if caller.Role != models.RoleSuperAdmin {
			return nil, apperr.Authorization("Doctors can only view their own schedule")
		}
		target = doctorID
	}

	q := repository.AppointmentQuery{DoctorID: target, Status: models.StatusConfirmed, Order: repository.OrderScheduleAsc}
	return s.list(ctx, caller, authz.ViewDoctorSchedule, q, clinicalDetail)
}

func (s *AppointmentService) list(ctx context.Context, caller Caller, op authz.Operation, q repository.AppointmentQuery, level detail) ([]AppointmentView, error) {
	if err := authz.Check(caller.Role, op); err != nil {
		return nil, err
	}
	appts, err := s.appointments.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.enricher.enrich(ctx, appts, level)
}

// Stats counts appointments per status and per scheduling window. Windows are
// computed in the server's local time; the week starts on Sunday.
func (s *AppointmentService) Stats(ctx context.Context, caller Caller) (*AppointmentStats, error) {
	if err := authz.Check(caller.Role, authz.ViewAppointmentStats); err != nil {
		return nil, err
	}

	counts, err := s.appointments.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AppointmentStats{
		Pending:   counts[models.StatusPending],
		Confirmed: counts[models.StatusConfirmed],
		Cancelled: counts[models.StatusCancelled],
		Completed: counts[models.StatusCompleted],
	}
	for _, n := range counts {
		stats.Total += n
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	windows := []struct {
		dst      *int64
		from, to time.Time
	}{
		{&stats.Today, today, today.AddDate(0, 0, 1)},
		{&stats.Weekly, weekStart, weekStart.AddDate(0, 0, 7)},
		{&stats.Monthly, monthStart, monthStart.AddDate(0, 1, 0)},
	}
	for _, w := range windows {
		n, err := s.appointments.CountScheduledBetween(ctx, w.from, w.to)
		if err != nil {
			return nil, err
		}
		*w.dst = n
	}

	stats.ConfirmationRate = percentage(stats.Confirmed, stats.Total)
	stats.CancellationRate = percentage(stats.Cancelled, stats.Total)
	return stats, nil
}

func percentage(k, n int64) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(100 * float64(k) / float64(n)))
}
