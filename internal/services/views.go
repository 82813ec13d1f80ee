// Package services implements the appointment workflow, identity and user
// administration operations on top of the repository stores.
package services

import (
	"context"
	"time"

	"sipitali-server/internal/models"
	"sipitali-server/internal/repository"
)

// Caller identifies the authenticated user invoking an operation.
type Caller struct {
	ID   string
	Role models.Role
}

// Participant is the display projection of a user referenced by an appointment.
type Participant struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	Address        string     `json:"address,omitempty"`
	MedicalHistory string     `json:"medicalHistory,omitempty"`
	Specialization string     `json:"specialization,omitempty"`
}

// AppointmentView is an appointment with its participants resolved. A reference
// to a deleted user resolves to nil.
type AppointmentView struct {
	ID              string                   `json:"id"`
	PatientID       string                   `json:"patientId"`
	DoctorID        string                   `json:"doctorId"`
	Patient         *Participant             `json:"patient"`
	Doctor          *Participant             `json:"doctor"`
	AppointmentDate string                   `json:"appointmentDate"`
	AppointmentTime string                   `json:"appointmentTime"`
	Reason          string                   `json:"reason"`
	Status          models.AppointmentStatus `json:"status"`
	ConfirmedBy     *Participant             `json:"confirmedBy"`
	ConfirmedAt     *time.Time               `json:"confirmedAt"`
	Notes           string                   `json:"notes,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// detail selects how much of the patient record a view carries.
type detail int

const (
	contactDetail  detail = iota // name, email, phone
	clinicalDetail               // plus date of birth, address, medical history
)

type enricher struct {
	users   repository.UserStore
	doctors repository.DoctorStore
}

func (e enricher) enrichOne(ctx context.Context, appt *models.Appointment, level detail) (*AppointmentView, error) {
	views, err := e.enrich(ctx, []models.Appointment{*appt}, level)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (e enricher) enrich(ctx context.Context, appts []models.Appointment, level detail) ([]AppointmentView, error) {
	views := make([]AppointmentView, 0, len(appts))
	if len(appts) == 0 {
		return views, nil
	}

	seen := make(map[string]bool)
	var userIDs, doctorIDs []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			userIDs = append(userIDs, id)
		}
	}
	doctorSeen := make(map[string]bool)
	for _, a := range appts {
		add(a.PatientID)
		add(a.DoctorID)
		if a.ConfirmedBy != nil {
			add(*a.ConfirmedBy)
		}
		if !doctorSeen[a.DoctorID] {
			doctorSeen[a.DoctorID] = true
			doctorIDs = append(doctorIDs, a.DoctorID)
		}
	}

	users, err := e.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	profiles, err := e.doctors.FindByUserIDs(ctx, doctorIDs)
	if err != nil {
		return nil, err
	}
	specialization := make(map[string]string, len(profiles))
	for _, p := range profiles {
		specialization[p.UserID] = p.Specialization
	}

	for _, a := range appts {
		v := AppointmentView{
			ID:              a.ID,
			PatientID:       a.PatientID,
			DoctorID:        a.DoctorID,
			AppointmentDate: a.AppointmentDate.Format(models.DateLayout),
			AppointmentTime: a.AppointmentTime,
			Reason:          a.Reason,
			Status:          a.Status,
			ConfirmedAt:     a.ConfirmedAt,
			Notes:           a.Notes,
			CreatedAt:       a.CreatedAt,
			UpdatedAt:       a.UpdatedAt,
		}
		if u, ok := byID[a.PatientID]; ok {
			p := &Participant{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
			if level == clinicalDetail {
				p.DateOfBirth = u.DateOfBirth
				p.Address = u.Address
				p.MedicalHistory = u.MedicalHistory
			}
			v.Patient = p
		}
		if u, ok := byID[a.DoctorID]; ok {
			v.Doctor = &Participant{ID: u.ID, Name: u.Name, Email: u.Email, Specialization: specialization[u.ID]}
		}
		if a.ConfirmedBy != nil {
			if u, ok := byID[*a.ConfirmedBy]; ok {
				v.ConfirmedBy = &Participant{ID: u.ID, Name: u.Name, Email: u.Email}
			}
		}
		views = append(views, v)
	}
	return views, nil
}
