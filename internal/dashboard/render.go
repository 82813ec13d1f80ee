package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"sipitali-server/internal/models"
	"sipitali-server/internal/services"
)

const notAvailable = "N/A"

// StatusLabel capitalises a status for display: "pending" becomes "Pending".
func StatusLabel(status models.AppointmentStatus) string {
	s := string(status)
	if s == "" {
		return notAvailable
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FormatDate renders YYYY-MM-DD as "January 2, 2006". Unparseable input is returned as is.
func FormatDate(value string) string {
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return value
	}
	return d.Format("January 2, 2006")
}

// FormatTime renders a 24-hour "15:04" as "3:04 PM". Other input is returned as is.
func FormatTime(value string) string {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return value
	}
	return t.Format("3:04 PM")
}

func participantName(p *services.Participant) string {
	if p == nil {
		return notAvailable
	}
	return p.Name
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderAppointments writes appointments as a table.
func RenderAppointments(w io.Writer, appts []services.AppointmentView) error {
	if len(appts) == 0 {
		_, err := fmt.Fprintln(w, "No appointments found.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tPATIENT\tDOCTOR\tREASON\tSTATUS")
	for _, a := range appts {
		doctor := participantName(a.Doctor)
		if a.Doctor != nil && a.Doctor.Specialization != "" {
			doctor += " (" + a.Doctor.Specialization + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			FormatDate(a.AppointmentDate),
			FormatTime(a.AppointmentTime),
			participantName(a.Patient),
			doctor,
			a.Reason,
			StatusLabel(a.Status),
		)
	}
	return tw.Flush()
}

// RenderStats writes the aggregate counters.
func RenderStats(w io.Writer, s *services.AppointmentStats) error {
	tw := newTable(w)
	rows := []struct {
		label string
		value string
	}{
		{"Total", fmt.Sprint(s.Total)},
		{"Pending", fmt.Sprint(s.Pending)},
		{"Confirmed", fmt.Sprint(s.Confirmed)},
		{"Cancelled", fmt.Sprint(s.Cancelled)},
		{"Completed", fmt.Sprint(s.Completed)},
		{"Today", fmt.Sprint(s.Today)},
		{"This week", fmt.Sprint(s.Weekly)},
		{"This month", fmt.Sprint(s.Monthly)},
		{"Confirmation rate", fmt.Sprintf("%d%%", s.ConfirmationRate)},
		{"Cancellation rate", fmt.Sprintf("%d%%", s.CancellationRate)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.label, r.value)
	}
	return tw.Flush()
}

// RenderUsers writes users as a table.
func RenderUsers(w io.Writer, users []models.UserSanitized) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, "No users found.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tPHONE\tJOINED")
	for _, u := range users {
		phone := u.Phone
		if phone == "" {
			phone = notAvailable
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Email, u.Role, phone, u.CreatedAt.Format("January 2, 2006"))
	}
	return tw.Flush()
}

// RenderDoctors writes the numbered doctor picker used when booking.
func RenderDoctors(w io.Writer, doctors []services.DoctorSummary) error {
	if len(doctors) == 0 {
		_, err := fmt.Fprintln(w, "No doctors available.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "#\tDOCTOR\tSPECIALIZATION\tDAYS\tHOURS")
	for i, d := range doctors {
		field := d.Specialization
		if field == "" {
			field = notAvailable
		}
		days := strings.Join(d.WorkingDays, ", ")
		if days == "" {
			days = notAvailable
		}
		hours := notAvailable
		if d.StartTime != "" && d.EndTime != "" {
			hours = FormatTime(d.StartTime) + " - " + FormatTime(d.EndTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, d.Name, field, days, hours)
	}
	return tw.Flush()
}
