package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/models"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/services"
)

type demoOptions struct {
	Doctors                int
	Assistants             int
	Patients               int
	AppointmentsPerPatient int
	Password               string
	Seed                   int64
}

type demoSummary struct {
	Doctors      int
	Assistants   int
	Patients     int
	Appointments int
	Confirmed    int
}

var (
	specializations = []string{
		"Cardiology",
		"Dermatology",
		"General Practice",
		"Neurology",
		"Orthopedics",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
	}
	reasons = []string{
		"Routine check-up",
		"Chest pain",
		"Persistent headache",
		"Skin rash",
		"Follow-up visit",
		"Back pain",
		"Vaccination",
		"Blood pressure review",
	}
	slots = []string{"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30", "15:00", "16:00"}
)

// seedDemo creates demo accounts through the services so every record passes
// the same validation as API traffic. Roughly half of the bookings are confirmed.
func seedDemo(ctx context.Context, stores repository.Stores, log *logger.Logger, m *metrics.Metrics, opts demoOptions) (demoSummary, error) {
	var summary demoSummary
	if opts.Doctors < 1 || opts.Assistants < 1 {
		return summary, fmt.Errorf("at least one doctor and one assistant are required")
	}

	f := gofakeit.New(uint64(opts.Seed))
	users := services.NewUserService(stores, log)
	appointments := services.NewAppointmentService(stores, m, log)
	seeder := services.Caller{ID: "seed", Role: models.RoleSuperAdmin}

	create := func(role models.Role, i int, profile *services.DoctorProfileInput) (*services.UserDetail, error) {
		dob := f.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.Local), time.Date(2005, 12, 31, 0, 0, 0, 0, time.Local))
		in := services.CreateUserInput{
			Name:          f.Name(),
			Email:         strings.ToLower(fmt.Sprintf("%s.%s%d@%s", role, f.Username(), i, f.DomainName())),
			Password:      opts.Password,
			Role:          role,
			Phone:         f.Phone(),
			DateOfBirth:   dob.Format(models.DateLayout),
			Address:       f.Street() + ", " + f.City(),
			DoctorProfile: profile,
		}
		if role == models.RolePatient {
			in.MedicalHistory = f.RandomString([]string{"", "asthma", "diabetes", "hypertension", "none reported"})
		}
		return users.Create(ctx, seeder, in)
	}

	doctorIDs := make([]string, 0, opts.Doctors)
	for i := 0; i < opts.Doctors; i++ {
		d, err := create(models.RoleDoctor, i, &services.DoctorProfileInput{
			Specialization: f.RandomString(specializations),
			LicenseNumber:  fmt.Sprintf("LIC-%d-%03d", f.Number(1000, 9999), i),
			WorkingDays:    []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			StartTime:      "09:00",
			EndTime:        "17:00",
		})
		if err != nil {
			return summary, fmt.Errorf("seed doctor: %w", err)
		}
		doctorIDs = append(doctorIDs, d.ID)
		summary.Doctors++
	}

	var assistant services.Caller
	for i := 0; i < opts.Assistants; i++ {
		pa, err := create(models.RolePA, i, nil)
		if err != nil {
			return summary, fmt.Errorf("seed assistant: %w", err)
		}
		assistant = services.Caller{ID: pa.ID, Role: models.RolePA}
		summary.Assistants++
	}

	today := time.Now()
	for i := 0; i < opts.Patients; i++ {
		p, err := create(models.RolePatient, i, nil)
		if err != nil {
			return summary, fmt.Errorf("seed patient: %w", err)
		}
		summary.Patients++
		patient := services.Caller{ID: p.ID, Role: models.RolePatient}

		for j := 0; j < opts.AppointmentsPerPatient; j++ {
			appt, err := appointments.Create(ctx, patient, services.CreateAppointmentInput{
				DoctorID:        doctorIDs[f.Number(0, len(doctorIDs)-1)],
				AppointmentDate: today.AddDate(0, 0, f.Number(0, 30)).Format(models.DateLayout),
				AppointmentTime: f.RandomString(slots),
				Reason:          f.RandomString(reasons),
			})
			if err != nil {
				return summary, fmt.Errorf("seed appointment: %w", err)
			}
			summary.Appointments++

			if f.Bool() {
				if _, err := appointments.Confirm(ctx, assistant, appt.ID); err != nil {
					return summary, fmt.Errorf("confirm appointment: %w", err)
				}
				summary.Confirmed++
			}
		}
	}

	log.WithComponent("seed").WithField("seed", opts.Seed).Info("Demo data seeded")
	return summary, nil
}
