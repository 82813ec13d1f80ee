package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role enum
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleDoctor     Role = "doctor"
	RolePA         Role = "pa"
	RolePatient    Role = "patient"
)

// Roles lists every valid role.
var Roles = []Role{RoleSuperAdmin, RoleDoctor, RolePA, RolePatient}

// Valid reports whether r is one of the four enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleDoctor, RolePA, RolePatient:
		return true
	}
	return false
}

// MinPasswordLength is the shortest plain-text password accepted.
const MinPasswordLength = 6

// User represents a user in the system
type User struct {
	BaseModel
	Name            string     `gorm:"size:150;not null" json:"name"`
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password        string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Role            Role       `gorm:"size:20;index;not null" json:"role"`
	Phone           string     `gorm:"size:50" json:"phone,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Address         string     `gorm:"size:255" json:"address,omitempty"`
	DoctorProfileID *string    `gorm:"size:36" json:"doctorProfileId,omitempty"`
	MedicalHistory  string     `gorm:"type:text" json:"medicalHistory,omitempty"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	Phone           string     `json:"phone,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Address         string     `json:"address,omitempty"`
	DoctorProfileID *string    `json:"doctorProfileId,omitempty"`
	MedicalHistory  string     `json:"medicalHistory,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// UserPublic is the minimal projection returned alongside credentials.
type UserPublic struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BeforeSave keeps the stored email normalized whatever path wrote it.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	return nil
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Phone:           u.Phone,
		DateOfBirth:     u.DateOfBirth,
		Address:         u.Address,
		DoctorProfileID: u.DoctorProfileID,
		MedicalHistory:  u.MedicalHistory,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// Public returns the id/name/email/role projection.
func (u *User) Public() UserPublic {
	return UserPublic{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
