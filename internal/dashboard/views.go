package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sipitali-server/internal/authz"
	"sipitali-server/internal/models"
	"sipitali-server/internal/services"
)

// Action is a row-level write a view may offer.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

// Loader fetches the rows of a view.
type Loader func(ctx context.Context, c *Client) ([]services.AppointmentView, error)

// View is one appointment list a role's dashboard shows.
type View struct {
	Name      string
	Title     string
	Operation authz.Operation
	Load      Loader
	Actions   []Action
}

type viewDef struct {
	name, title string
	load        Loader
}

var viewCatalog = map[authz.Operation]viewDef{
	authz.ListAppointments: {"all", "All Appointments", func(ctx context.Context, c *Client) ([]services.AppointmentView, error) {
		return c.AllAppointments(ctx)
	}},
	authz.ListOwnAppointments: {"my-appointments", "My Appointments", func(ctx context.Context, c *Client) ([]services.AppointmentView, error) {
		return c.MyAppointments(ctx)
	}},
	authz.ListPending: {"pending", "Pending Confirmation", func(ctx context.Context, c *Client) ([]services.AppointmentView, error) {
		return c.PendingAppointments(ctx)
	}},
	authz.ViewDoctorSchedule: {"schedule", "Confirmed Schedule", func(ctx context.Context, c *Client) ([]services.AppointmentView, error) {
		return c.DoctorSchedule(ctx, "")
	}},
}

// ViewsFor lists the appointment views role may open, in policy order. The
// actions of each view are the writes the role may attempt.
func ViewsFor(role models.Role) []View {
	var actions []Action
	if authz.Allowed(role, authz.ConfirmAppointment) {
		actions = append(actions, ActionConfirm)
	}
	if authz.Allowed(role, authz.CancelAppointment) {
		actions = append(actions, ActionCancel)
	}

	var views []View
	for _, op := range authz.Operations(role) {
		def, ok := viewCatalog[op]
		if !ok {
			continue
		}
		v := View{Name: def.name, Title: def.title, Operation: op, Load: def.load}
		// The doctor schedule is read-only.
		if op != authz.ViewDoctorSchedule {
			v.Actions = actions
		}
		views = append(views, v)
	}
	return views
}

// FindView returns the named view of role, or the first one when name is empty.
func FindView(role models.Role, name string) (View, bool) {
	views := ViewsFor(role)
	if len(views) == 0 {
		return View{}, false
	}
	if name == "" {
		return views[0], true
	}
	for _, v := range views {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// RowActions narrows a view's actions to those valid for one appointment.
func RowActions(v View, caller services.Caller, appt services.AppointmentView) []Action {
	var out []Action
	for _, a := range v.Actions {
		switch a {
		case ActionConfirm:
			if appt.Status == models.StatusPending {
				out = append(out, a)
			}
		case ActionCancel:
			cancellable := appt.Status == models.StatusPending || appt.Status == models.StatusConfirmed
			if cancellable && authz.CanCancel(caller.Role, caller.ID, appt.PatientID) {
				out = append(out, a)
			}
		}
	}
	return out
}

// NewAppointmentList is an EntityList over appointments filtered by status and
// searched by participant names, reason and specialization.
func NewAppointmentList() *EntityList[services.AppointmentView] {
	return NewEntityList(
		func(a services.AppointmentView) string { return string(a.Status) },
		func(a services.AppointmentView) []string {
			fields := []string{a.Reason}
			if a.Patient != nil {
				fields = append(fields, a.Patient.Name, a.Patient.Email)
			}
			if a.Doctor != nil {
				fields = append(fields, a.Doctor.Name, a.Doctor.Specialization)
			}
			return fields
		},
	)
}

// NewUserList is an EntityList over users filtered by role and searched by
// name and email.
func NewUserList() *EntityList[models.UserSanitized] {
	return NewEntityList(
		func(u models.UserSanitized) string { return string(u.Role) },
		func(u models.UserSanitized) []string { return []string{u.Name, u.Email} },
	)
}

// PickDoctor resolves a picker answer, either a 1-based row number or a doctor id.
func PickDoctor(doctors []services.DoctorSummary, answer string) (services.DoctorSummary, error) {
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(doctors) {
			return services.DoctorSummary{}, fmt.Errorf("choose a doctor between 1 and %d", len(doctors))
		}
		return doctors[n-1], nil
	}
	for _, d := range doctors {
		if d.ID == answer {
			return d, nil
		}
	}
	return services.DoctorSummary{}, fmt.Errorf("unknown doctor %q", answer)
}
