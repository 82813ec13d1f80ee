// Package repository persists users, doctor profiles, appointments and refresh tokens.
package repository

import (
	"context"
	"errors"
	"time"

	"sipitali-server/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale is returned by a compare-and-set write whose precondition no longer holds.
	ErrStale = errors.New("record changed concurrently")
)

// AppointmentOrder selects the sort applied by AppointmentStore.List.
type AppointmentOrder int

const (
	OrderCreatedDesc  AppointmentOrder = iota // newest first
	OrderCreatedAsc                           // first come, first reviewed
	OrderScheduleDesc                         // appointment date then time, latest first
	OrderScheduleAsc                          // appointment date then time, earliest first
)

// AppointmentQuery filters AppointmentStore.List. Zero fields do not filter.
type AppointmentQuery struct {
	PatientID string
	DoctorID  string
	Status    models.AppointmentStatus
	Order     AppointmentOrder
}

// AppointmentChanges is applied by AppointmentStore.Transition.
type AppointmentChanges struct {
	Status      models.AppointmentStatus
	ConfirmedBy *string
	ConfirmedAt *time.Time
	UpdatedAt   time.Time
}

// UserQuery filters UserStore.List.
type UserQuery struct {
	Role        models.Role
	OrderByName bool // default is newest first
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	List(ctx context.Context, q UserQuery) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type DoctorStore interface {
	Save(ctx context.Context, doctor *models.Doctor) error
	FindByUserID(ctx context.Context, userID string) (*models.Doctor, error)
	FindByUserIDs(ctx context.Context, userIDs []string) ([]models.Doctor, error)
	FindByLicense(ctx context.Context, license string) (*models.Doctor, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

type AppointmentStore interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, q AppointmentQuery) ([]models.Appointment, error)
	Save(ctx context.Context, appt *models.Appointment) error
	// Transition applies changes only while the status is one of from.
	// It returns ErrNotFound for a missing id and ErrStale when the status moved.
	Transition(ctx context.Context, id string, from []models.AppointmentStatus, changes AppointmentChanges) (*models.Appointment, error)
	CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int64, error)
	// CountScheduledBetween counts appointments dated in [from, to). Only the
	// calendar dates of from and to, in their own location, are compared.
	CountScheduledBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error)
	FindUnrevoked(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string, now time.Time) error
}

// Pinger reports store reachability for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores bundles one implementation of every store.
type Stores struct {
	Users         UserStore
	Doctors       DoctorStore
	Appointments  AppointmentStore
	RefreshTokens RefreshTokenStore
	Health        Pinger
}
