package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/authz"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/models"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/utils"
)

const msgLicenseInUse = "License number already in use"

// DoctorProfileInput creates or replaces a doctor's profile.
type DoctorProfileInput struct {
	Specialization string   `json:"specialization" validate:"required"`
	LicenseNumber  string   `json:"licenseNumber" validate:"required"`
	WorkingDays    []string `json:"workingDays"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
}

// CreateUserInput is an administrator's request to add a user of any role.
type CreateUserInput struct {
	Name           string              `json:"name" validate:"required"`
	Email          string              `json:"email" validate:"required,email"`
	Password       string              `json:"password" validate:"required,min=6"`
	Role           models.Role         `json:"role" validate:"required"`
	Phone          string              `json:"phone"`
	DateOfBirth    string              `json:"dateOfBirth"`
	Address        string              `json:"address"`
	MedicalHistory string              `json:"medicalHistory"`
	DoctorProfile  *DoctorProfileInput `json:"doctorProfile"`
}

// UpdateUserInput patches a user. Nil fields are left alone.
type UpdateUserInput struct {
	Name           *string      `json:"name"`
	Email          *string      `json:"email"`
	Password       *string      `json:"password"`
	Role           *models.Role `json:"role"`
	Phone          *string      `json:"phone"`
	DateOfBirth    *string      `json:"dateOfBirth"`
	Address        *string      `json:"address"`
	MedicalHistory *string      `json:"medicalHistory"`
}

// UserDetail is a sanitized user with its doctor profile, when it has one.
type UserDetail struct {
	models.UserSanitized
	DoctorProfile *models.Doctor `json:"doctorProfile,omitempty"`
}

// DoctorSummary is one entry of the doctor picker.
type DoctorSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
	WorkingDays    []string `json:"workingDays,omitempty"`
	StartTime      string   `json:"startTime,omitempty"`
	EndTime        string   `json:"endTime,omitempty"`
}

// UserService administers users and doctor profiles.
type UserService struct {
	users   repository.UserStore
	doctors repository.DoctorStore
	log     *logrus.Entry
}

func NewUserService(stores repository.Stores, log *logger.Logger) *UserService {
	return &UserService{
		users:   stores.Users,
		doctors: stores.Doctors,
		log:     log.WithComponent("users"),
	}
}

func (s *UserService) findUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return user, err
}

// List returns users newest first, optionally restricted to one role.
func (s *UserService) List(ctx context.Context, caller Caller, role models.Role) ([]models.UserSanitized, error) {
	if err := authz.Check(caller.Role, authz.ListUsers); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, apperr.Validation(msgInvalidRole)
	}

	users, err := s.users.List(ctx, repository.UserQuery{Role: role})
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSanitized, 0, len(users))
	for i := range users {
		out = append(out, users[i].Sanitize())
	}
	return out, nil
}

// Get returns one user with its doctor profile.
func (s *UserService) Get(ctx context.Context, caller Caller, id string) (*UserDetail, error) {
	if err := authz.Check(caller.Role, authz.ViewUser); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &UserDetail{UserSanitized: user.Sanitize()}
	if user.Role == models.RoleDoctor {
		profile, err := s.doctors.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		detail.DoctorProfile = profile
	}
	return detail, nil
}

// Create adds a user of any role. A doctor may be created together with its profile.
func (s *UserService) Create(ctx context.Context, caller Caller, in CreateUserInput) (*UserDetail, error) {
	if err := authz.Check(caller.Role, authz.CreateUser); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation(msgInvalidRole)
	}
	if in.DoctorProfile != nil && in.Role != models.RoleDoctor {
		return nil, apperr.Validation("Only doctors can have a doctor profile")
	}

	dob, err := parseBirthDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}

	var profile *models.Doctor
	if in.DoctorProfile != nil {
		if profile, err = s.buildProfile(ctx, "", *in.DoctorProfile); err != nil {
			return nil, err
		}
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Validation(msgUserExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		Name:           in.Name,
		Email:          in.Email,
		Role:           in.Role,
		Phone:          strings.TrimSpace(in.Phone),
		DateOfBirth:    dob,
		Address:        strings.TrimSpace(in.Address),
		MedicalHistory: strings.TrimSpace(in.MedicalHistory),
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Validation(msgUserExists)
		}
		return nil, err
	}

	if profile != nil {
		profile.UserID = user.ID
		if err := s.attachProfile(ctx, user, profile); err != nil {
			s.discardUser(ctx, user.ID)
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role, "created_by": caller.ID}).Info("User created")
	return &UserDetail{UserSanitized: user.Sanitize(), DoctorProfile: profile}, nil
}

// Update patches a user. Changing the password re-hashes it.
func (s *UserService) Update(ctx context.Context, caller Caller, id string, in UpdateUserInput) (*models.UserSanitized, error) {
	if err := authz.Check(caller.Role, authz.UpdateUser); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation(utils.MissingFieldsMessage)
		}
		user.Name = name
	}
	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if err := utils.Validate(struct {
			Email string `json:"email" validate:"required,email"`
		}{email}); err != nil {
			return nil, err
		}
		if other, err := s.users.FindByEmail(ctx, email); err == nil && other.ID != user.ID {
			return nil, apperr.Validation(msgUserExists)
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		user.Email = email
	}
	if in.Password != nil {
		if len(*in.Password) < models.MinPasswordLength {
			return nil, apperr.Validation(fmt.Sprintf("password must be at least %d characters", models.MinPasswordLength))
		}
		if err := user.SetPassword(*in.Password); err != nil {
			return nil, err
		}
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation(msgInvalidRole)
		}
		user.Role = *in.Role
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.DateOfBirth != nil {
		dob, err := parseBirthDate(*in.DateOfBirth)
		if err != nil {
			return nil, err
		}
		user.DateOfBirth = dob
	}
	if in.Address != nil {
		user.Address = strings.TrimSpace(*in.Address)
	}
	if in.MedicalHistory != nil {
		user.MedicalHistory = strings.TrimSpace(*in.MedicalHistory)
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperr.Validation(msgUserExists)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, err
	}

	sanitized := user.Sanitize()
	return &sanitized, nil
}

// Delete removes a user and its doctor profile. Appointments referencing the
// user are kept.
func (s *UserService) Delete(ctx context.Context, caller Caller, id string) error {
	if err := authz.Check(caller.Role, authz.DeleteUser); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		return err
	}
	if err := s.doctors.DeleteByUserID(ctx, id); err != nil {
		s.log.WithError(err).WithField("user_id", id).Warn("Failed to remove doctor profile of deleted user")
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "deleted_by": caller.ID}).Info("User deleted")
	return nil
}

// ListDoctors returns every doctor by name with their profile summary.
func (s *UserService) ListDoctors(ctx context.Context, caller Caller) ([]DoctorSummary, error) {
	if err := authz.Check(caller.Role, authz.ListDoctors); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx, repository.UserQuery{Role: models.RoleDoctor, OrderByName: true})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	profiles, err := s.doctors.FindByUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]models.Doctor, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}

	out := make([]DoctorSummary, 0, len(users))
	for _, u := range users {
		d := DoctorSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
		if p, ok := byUser[u.ID]; ok {
			d.Specialization = p.Specialization
			d.WorkingDays = p.WorkingDays
			d.StartTime = p.StartTime
			d.EndTime = p.EndTime
		}
		out = append(out, d)
	}
	return out, nil
}

// UpsertDoctorProfile creates or replaces the profile of a doctor user.
func (s *UserService) UpsertDoctorProfile(ctx context.Context, caller Caller, userID string, in DoctorProfileInput) (*models.Doctor, error) {
	if err := authz.Check(caller.Role, authz.ManageDoctorProfile); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleDoctor {
		return nil, apperr.InvalidReference(msgInvalidDoctor)
	}

	profile, err := s.buildProfile(ctx, user.ID, in)
	if err != nil {
		return nil, err
	}
	if err := s.attachProfile(ctx, user, profile); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "doctor_id": profile.ID}).Info("Doctor profile saved")
	return profile, nil
}

// buildProfile validates in and merges it into the existing profile of userID,
// if any. userID is empty while the doctor user does not exist yet.
func (s *UserService) buildProfile(ctx context.Context, userID string, in DoctorProfileInput) (*models.Doctor, error) {
	in.Specialization = strings.TrimSpace(in.Specialization)
	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	for _, day := range in.WorkingDays {
		if !models.IsWeekday(day) {
			return nil, apperr.Validation(fmt.Sprintf("Invalid working day: %s", day))
		}
	}
	if err := validateWorkingHours(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}

	if other, err := s.doctors.FindByLicense(ctx, in.LicenseNumber); err == nil && other.UserID != userID {
		return nil, apperr.Validation(msgLicenseInUse)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	profile := &models.Doctor{UserID: userID}
	if userID != "" {
		existing, err := s.doctors.FindByUserID(ctx, userID)
		if err == nil {
			profile = existing
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	profile.Specialization = in.Specialization
	profile.LicenseNumber = in.LicenseNumber
	profile.WorkingDays = append([]string{}, in.WorkingDays...)
	profile.StartTime = in.StartTime
	profile.EndTime = in.EndTime
	profile.ApplyDefaults()
	return profile, nil
}

func validateWorkingHours(start, end string) error {
	if start == "" && end == "" {
		return nil
	}
	if start == "" {
		start = models.DefaultStartTime
	}
	if end == "" {
		end = models.DefaultEndTime
	}
	s, err1 := time.Parse("15:04", start)
	e, err2 := time.Parse("15:04", end)
	if err1 != nil || err2 != nil || !s.Before(e) {
		return apperr.Validation("Invalid working hours, expected HH:MM with start before end")
	}
	return nil
}

func (s *UserService) attachProfile(ctx context.Context, user *models.User, profile *models.Doctor) error {
	if err := s.doctors.Save(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperr.Validation(msgLicenseInUse)
		}
		return err
	}
	if user.DoctorProfileID == nil || *user.DoctorProfileID != profile.ID {
		id := profile.ID
		user.DoctorProfileID = &id
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// discardUser removes a user whose creation could not be completed, so the
// email is free for a retry.
func (s *UserService) discardUser(ctx context.Context, userID string) {
	log := s.log.WithField("user_id", userID)
	if err := s.doctors.DeleteByUserID(ctx, userID); err != nil {
		log.WithError(err).Warn("Failed to remove doctor profile of incomplete user")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		log.WithError(err).Error("Failed to remove incomplete user")
		return
	}
	log.Warn("Removed user after doctor profile could not be saved")
}

// EnsureSuperAdmin creates the administrator account, or resets the password and
// role of an existing account with the same email. It reports whether a user was created.
func (s *UserService) EnsureSuperAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	in := struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}{strings.TrimSpace(name), models.NormalizeEmail(email), password}
	if err := utils.Validate(in); err != nil {
		return nil, false, err
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if err := existing.SetPassword(in.Password); err != nil {
			return nil, false, err
		}
		existing.Role = models.RoleSuperAdmin
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		s.log.WithField("user_id", existing.ID).Info("Super admin updated")
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, err
	}

	admin := &models.User{Name: in.Name, Email: in.Email, Role: models.RoleSuperAdmin}
	if err := admin.SetPassword(in.Password); err != nil {
		return nil, false, err
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	s.log.WithField("user_id", admin.ID).Info("Super admin created")
	return admin, true, nil
}
