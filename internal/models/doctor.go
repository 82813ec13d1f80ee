package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Weekdays are the accepted values of Doctor.WorkingDays.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsWeekday reports whether day is one of Weekdays.
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "17:00"
)

// Doctor is the profile extension of a user whose role is doctor.
type Doctor struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string    `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Specialization string    `gorm:"size:100;not null" json:"specialization"`
	LicenseNumber  string    `gorm:"size:100;uniqueIndex;not null" json:"licenseNumber"`
	WorkingDays    []string  `gorm:"serializer:json;type:text" json:"workingDays"`
	StartTime      string    `gorm:"size:5;default:'09:00'" json:"startTime"`
	EndTime        string    `gorm:"size:5;default:'17:00'" json:"endTime"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BeforeCreate assigns a UUID and fills the default availability window.
func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.ApplyDefaults()
	return nil
}

// ApplyDefaults fills an empty availability window with 09:00-17:00.
func (d *Doctor) ApplyDefaults() {
	if d.StartTime == "" {
		d.StartTime = DefaultStartTime
	}
	if d.EndTime == "" {
		d.EndTime = DefaultEndTime
	}
	if d.WorkingDays == nil {
		d.WorkingDays = []string{}
	}
}
