package handlers

import (
	"github.com/gin-gonic/gin"

	"sipitali-server/internal/middleware"
	"sipitali-server/internal/services"
	"sipitali-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Appointments *services.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Appointments: appointments}
}

// caller fetches the authenticated caller or answers 401.
func caller(c *gin.Context) (services.Caller, bool) {
	cl, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
	}
	return cl, ok
}

func appointmentList(appointments []services.AppointmentView) gin.H {
	if appointments == nil {
		appointments = []services.AppointmentView{}
	}
	return gin.H{"appointments": appointments, "count": len(appointments)}
}

// CreateAppointment books a pending appointment. Patients book for themselves.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req services.CreateAppointmentInput
	if !utils.BindJSON(c, &req) {
		return
	}

	appointment, err := h.Appointments.Create(c.Request.Context(), cl, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment created successfully. Waiting for PA confirmation.", gin.H{"appointment": appointment})
}

// GetAllAppointments lists every appointment, newest first.
func (h *AppointmentHandler) GetAllAppointments(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	appointments, err := h.Appointments.ListAll(c.Request.Context(), cl)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", appointmentList(appointments))
}

// GetMyAppointments lists the caller's own bookings.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	appointments, err := h.Appointments.ListForPatient(c.Request.Context(), cl)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", appointmentList(appointments))
}

// GetPendingAppointments lists the confirmation queue, oldest first.
func (h *AppointmentHandler) GetPendingAppointments(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	appointments, err := h.Appointments.ListPending(c.Request.Context(), cl)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Pending appointments retrieved successfully", appointmentList(appointments))
}

// GetDoctorSchedule lists confirmed appointments for the calling doctor, or
// for ?doctorId= when called by a super_admin.
func (h *AppointmentHandler) GetDoctorSchedule(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	appointments, err := h.Appointments.DoctorSchedule(c.Request.Context(), cl, c.Query("doctorId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule retrieved successfully", appointmentList(appointments))
}

// GetAppointmentStats returns the dashboard aggregates.
func (h *AppointmentHandler) GetAppointmentStats(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	stats, err := h.Appointments.Stats(c.Request.Context(), cl)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment statistics retrieved successfully", gin.H{"stats": stats})
}

// GetAppointmentByID returns one appointment with its participants.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	appointment, err := h.Appointments.Get(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment retrieved successfully", gin.H{"appointment": appointment})
}

// ConfirmAppointment moves a pending appointment to confirmed.
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	appointment, err := h.Appointments.Confirm(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment confirmed successfully", gin.H{"appointment": appointment})
}

// CancelAppointment cancels a pending or confirmed appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	appointment, err := h.Appointments.Cancel(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", gin.H{"appointment": appointment})
}

// UpdateAppointment patches schedule, reason, notes or status.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req services.UpdateAppointmentInput
	if !utils.BindJSON(c, &req) {
		return
	}

	appointment, err := h.Appointments.Update(c.Request.Context(), cl, c.Param("id"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", gin.H{"appointment": appointment})
}
