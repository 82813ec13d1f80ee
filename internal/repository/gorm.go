package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"sipitali-server/internal/models"
)

// NewGormStores wires every store to the same gorm connection.
func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Users:         NewGormUserStore(db),
		Doctors:       NewGormDoctorStore(db),
		Appointments:  NewGormAppointmentStore(db),
		RefreshTokens: NewGormRefreshTokenStore(db),
		Health:        gormPinger{db: db},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

type gormPinger struct{ db *gorm.DB }

func (p gormPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GormUserStore persists users.
type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *GormUserStore) List(ctx context.Context, q UserQuery) ([]models.User, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}
	if q.OrderByName {
		query = query.Order("name asc")
	} else {
		query = query.Order("created_at desc")
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *GormUserStore) Update(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Save(user).Error)
}

func (s *GormUserStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormDoctorStore persists doctor profiles.
type GormDoctorStore struct {
	db *gorm.DB
}

func NewGormDoctorStore(db *gorm.DB) *GormDoctorStore {
	return &GormDoctorStore{db: db}
}

func (s *GormDoctorStore) Save(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		return translate(s.db.WithContext(ctx).Create(doctor).Error)
	}
	return translate(s.db.WithContext(ctx).Save(doctor).Error)
}

func (s *GormDoctorStore) FindByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&doctor).Error; err != nil {
		return nil, translate(err)
	}
	return &doctor, nil
}

func (s *GormDoctorStore) FindByUserIDs(ctx context.Context, userIDs []string) ([]models.Doctor, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var doctors []models.Doctor
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&doctors).Error; err != nil {
		return nil, translate(err)
	}
	return doctors, nil
}

func (s *GormDoctorStore) FindByLicense(ctx context.Context, license string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.db.WithContext(ctx).Where("license_number = ?", license).First(&doctor).Error; err != nil {
		return nil, translate(err)
	}
	return &doctor, nil
}

func (s *GormDoctorStore) DeleteByUserID(ctx context.Context, userID string) error {
	return translate(s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Doctor{}).Error)
}

// GormAppointmentStore persists appointments.
type GormAppointmentStore struct {
	db *gorm.DB
}

func NewGormAppointmentStore(db *gorm.DB) *GormAppointmentStore {
	return &GormAppointmentStore{db: db}
}

func (s *GormAppointmentStore) Create(ctx context.Context, appt *models.Appointment) error {
	return translate(s.db.WithContext(ctx).Create(appt).Error)
}

func (s *GormAppointmentStore) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &appt, nil
}

func (s *GormAppointmentStore) List(ctx context.Context, q AppointmentQuery) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).Model(&models.Appointment{})
	if q.PatientID != "" {
		query = query.Where("patient_id = ?", q.PatientID)
	}
	if q.DoctorID != "" {
		query = query.Where("doctor_id = ?", q.DoctorID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	switch q.Order {
	case OrderCreatedAsc:
		query = query.Order("created_at asc")
	case OrderScheduleDesc:
		query = query.Order("appointment_date desc").Order("appointment_time desc")
	case OrderScheduleAsc:
		query = query.Order("appointment_date asc").Order("appointment_time asc")
	default:
		query = query.Order("created_at desc")
	}

	var appts []models.Appointment
	if err := query.Find(&appts).Error; err != nil {
		return nil, translate(err)
	}
	return appts, nil
}

func (s *GormAppointmentStore) Save(ctx context.Context, appt *models.Appointment) error {
	return translate(s.db.WithContext(ctx).Save(appt).Error)
}

func (s *GormAppointmentStore) Transition(ctx context.Context, id string, from []models.AppointmentStatus, changes AppointmentChanges) (*models.Appointment, error) {
	updates := map[string]interface{}{
		"status":     changes.Status,
		"updated_at": changes.UpdatedAt,
	}
	if changes.ConfirmedBy != nil {
		updates["confirmed_by"] = *changes.ConfirmedBy
		updates["confirmed_at"] = changes.ConfirmedAt
	}

	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStale
	}
	return s.FindByID(ctx, id)
}

func (s *GormAppointmentStore) CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int64, error) {
	var rows []struct {
		Status models.AppointmentStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	counts := make(map[models.AppointmentStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *GormAppointmentStore) CountScheduledBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("appointment_date >= ? AND appointment_date < ?", from.Format(models.DateLayout), to.Format(models.DateLayout)).
		Count(&n).Error
	return n, translate(err)
}

// GormRefreshTokenStore persists refresh tokens.
type GormRefreshTokenStore struct {
	db *gorm.DB
}

func NewGormRefreshTokenStore(db *gorm.DB) *GormRefreshTokenStore {
	return &GormRefreshTokenStore{db: db}
}

func (s *GormRefreshTokenStore) Create(ctx context.Context, token *models.RefreshToken) error {
	return translate(s.db.WithContext(ctx).Create(token).Error)
}

func (s *GormRefreshTokenStore) FindActive(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, userID, false, now).
		First(&stored).Error
	if err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

func (s *GormRefreshTokenStore) FindUnrevoked(ctx context.Context, token string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token = ? AND is_revoked = ?", token, false).First(&stored).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

func (s *GormRefreshTokenStore) Revoke(ctx context.Context, id string, now time.Time) error {
	return translate(s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_revoked": true, "expires_at": now}).Error)
}
