package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// AppointmentStatuses lists every valid status.
var AppointmentStatuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

// Valid reports whether s is one of the four enumerated statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// DateLayout is the wire format of Appointment.AppointmentDate in requests.
const DateLayout = "2006-01-02"

// Appointment represents a booking request and its lifecycle.
// DoctorID references the doctor's User id, not the Doctor profile.
type Appointment struct {
	BaseModel
	PatientID       string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID        string            `gorm:"size:36;index;not null" json:"doctorId"`
	AppointmentDate time.Time         `gorm:"type:date;index;not null" json:"appointmentDate"`
	AppointmentTime string            `gorm:"size:20;not null" json:"appointmentTime"`
	Reason          string            `gorm:"size:500;not null" json:"reason"`
	Status          AppointmentStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	ConfirmedBy     *string           `gorm:"size:36" json:"confirmedBy"`
	ConfirmedAt     *time.Time        `json:"confirmedAt"`
	Notes           string            `gorm:"type:text" json:"notes,omitempty"`
}
