// Package authz decides which roles may invoke which operations. It has no side
// effects and no storage access; callers pass in the ids it needs.
package authz

import (
	"fmt"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/models"
)

// Operation names a gated action.
type Operation string

const (
	CreateAppointment    Operation = "appointments:create"
	ListAppointments     Operation = "appointments:list"
	ListOwnAppointments  Operation = "appointments:list-own"
	ListPending          Operation = "appointments:list-pending"
	ViewDoctorSchedule   Operation = "appointments:doctor-schedule"
	ViewAppointment      Operation = "appointments:view"
	ConfirmAppointment   Operation = "appointments:confirm"
	CancelAppointment    Operation = "appointments:cancel"
	UpdateAppointment    Operation = "appointments:update"
	ViewAppointmentStats Operation = "appointments:stats"

	ListUsers           Operation = "users:list"
	ViewUser            Operation = "users:view"
	ListDoctors         Operation = "users:list-doctors"
	CreateUser          Operation = "users:create"
	UpdateUser          Operation = "users:update"
	DeleteUser          Operation = "users:delete"
	ManageDoctorProfile Operation = "users:doctor-profile"
	ViewSelf            Operation = "auth:me"
)

var (
	anyRole    = []models.Role{models.RoleSuperAdmin, models.RoleDoctor, models.RolePA, models.RolePatient}
	adminOnly  = []models.Role{models.RoleSuperAdmin}
	approvers  = []models.Role{models.RolePA, models.RoleSuperAdmin}
	clinicians = []models.Role{models.RoleSuperAdmin, models.RoleDoctor, models.RolePA}
)

var policy = map[Operation][]models.Role{
	CreateAppointment:    {models.RolePatient, models.RoleSuperAdmin},
	ListAppointments:     adminOnly,
	ListOwnAppointments:  {models.RolePatient, models.RoleSuperAdmin},
	ListPending:          approvers,
	ViewDoctorSchedule:   {models.RoleDoctor, models.RoleSuperAdmin},
	ViewAppointment:      anyRole,
	ConfirmAppointment:   approvers,
	CancelAppointment:    {models.RolePatient, models.RolePA, models.RoleSuperAdmin},
	UpdateAppointment:    approvers,
	ViewAppointmentStats: adminOnly,

	ListUsers:           adminOnly,
	ViewUser:            clinicians,
	ListDoctors:         anyRole,
	CreateUser:          adminOnly,
	UpdateUser:          adminOnly,
	DeleteUser:          adminOnly,
	ManageDoctorProfile: adminOnly,
	ViewSelf:            anyRole,
}

// orderedOperations fixes the iteration order of Operations.
var orderedOperations = []Operation{
	CreateAppointment, ListAppointments, ListOwnAppointments, ListPending, ViewDoctorSchedule,
	ViewAppointment, ConfirmAppointment, CancelAppointment, UpdateAppointment, ViewAppointmentStats,
	ListUsers, ViewUser, ListDoctors, CreateUser, UpdateUser, DeleteUser, ManageDoctorProfile, ViewSelf,
}

// Allowed reports whether role may invoke op. Unknown operations are denied.
func Allowed(role models.Role, op Operation) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Check is Allowed as an error.
func Check(role models.Role, op Operation) error {
	if Allowed(role, op) {
		return nil
	}
	return apperr.Authorization(fmt.Sprintf("User role '%s' is not authorized to access this route", role))
}

// Operations returns every operation role may invoke.
func Operations(role models.Role) []Operation {
	var ops []Operation
	for _, op := range orderedOperations {
		if Allowed(role, op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// CanCancel applies the ownership rule: patients cancel only their own bookings.
func CanCancel(role models.Role, callerID, patientID string) bool {
	if !Allowed(role, CancelAppointment) {
		return false
	}
	if role == models.RolePatient {
		return callerID == patientID
	}
	return true
}

// CanView applies the read rule for a single appointment: approvers see all,
// doctors see their own bookings, patients see their own requests.
func CanView(role models.Role, callerID, patientID, doctorID string) bool {
	switch role {
	case models.RoleSuperAdmin, models.RolePA:
		return true
	case models.RoleDoctor:
		return callerID == doctorID
	case models.RolePatient:
		return callerID == patientID
	}
	return false
}
