package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/dashboard"
	"sipitali-server/internal/models"
	"sipitali-server/internal/services"
)

type options struct {
	apiURL      string
	sessionPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Role dashboards for the Sipitali booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("SIPITALI_API", "http://localhost:5000/api"), "Base URL of the booking API")
	rootCmd.PersistentFlags().StringVar(&opts.sessionPath, "session", defaultSessionPath(), "Where the sign-in session is stored")

	rootCmd.AddCommand(loginCmd(opts))
	rootCmd.AddCommand(watchCmd(opts))
	rootCmd.AddCommand(bookCmd(opts))
	rootCmd.AddCommand(confirmCmd(opts))
	rootCmd.AddCommand(cancelCmd(opts))
	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(usersCmd(opts))
	return rootCmd
}

// describe appends the next step for failures the user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, apperr.ErrAuthentication):
		return err.Error() + ". Run `dashboard login` to sign in again."
	case errors.Is(err, apperr.ErrAuthorization):
		return err.Error() + ". Your role cannot perform this action."
	}
	return err.Error()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// signedIn restores the session and a client carrying its token.
func signedIn(opts *options) (*session, *dashboard.Client, error) {
	s, err := loadSession(opts.sessionPath)
	if err != nil {
		return nil, nil, err
	}
	apiURL := s.APIURL
	if apiURL == "" {
		apiURL = opts.apiURL
	}
	c := dashboard.NewClient(apiURL, nil)
	c.SetToken(s.Token)
	return s, c, nil
}

func loginCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				var err error
				if password, err = newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).ask("Password"); err != nil {
					return err
				}
			}

			c := dashboard.NewClient(opts.apiURL, nil)
			result, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := saveSession(opts.sessionPath, &session{
				APIURL: opts.apiURL,
				Token:  result.Token,
				UserID: result.User.ID,
				Name:   result.User.Name,
				Role:   result.User.Role,
			}); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", result.User.Name, result.User.Role)
			for _, v := range dashboard.ViewsFor(result.User.Role) {
				fmt.Fprintf(cmd.OutOrStdout(), "  view %-16s %s\n", v.Name, v.Title)
			}
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func watchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a role view and refresh it periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			viewName, _ := cmd.Flags().GetString("view")
			interval, _ := cmd.Flags().GetDuration("interval")
			status, _ := cmd.Flags().GetString("status")
			search, _ := cmd.Flags().GetString("search")
			once, _ := cmd.Flags().GetBool("once")

			s, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			view, ok := dashboard.FindView(s.Role, viewName)
			if !ok {
				return fmt.Errorf("view %q is not available to role %s", viewName, s.Role)
			}

			list := dashboard.NewAppointmentList()
			list.SetFilter(status)
			list.SetSearch(search)
			caller := services.Caller{ID: s.UserID, Role: s.Role}
			out := cmd.OutOrStdout()

			refresh := func(ctx context.Context) error {
				appts, err := view.Load(ctx, c)
				if err != nil {
					return err
				}
				list.SetItems(appts)
				visible := list.Visible()

				fmt.Fprintf(out, "\n%s (%d of %d) at %s\n", view.Title, len(visible), list.Len(), time.Now().Format("3:04:05 PM"))
				if err := dashboard.RenderAppointments(out, visible); err != nil {
					return err
				}
				for _, a := range visible {
					if actions := dashboard.RowActions(view, caller, a); len(actions) > 0 {
						fmt.Fprintf(out, "  %s: %v\n", a.ID, actions)
					}
				}
				return nil
			}

			if once {
				return refresh(cmd.Context())
			}
			return dashboard.NewRefresher(interval, refresh, func(err error) {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}).Run(cmd.Context())
		},
	}
	cmd.Flags().String("view", "", "View name (defaults to the role's first view)")
	cmd.Flags().Duration("interval", 30*time.Second, "Refresh interval")
	cmd.Flags().String("status", "", "Only show this status (pending, confirmed, cancelled, completed)")
	cmd.Flags().String("search", "", "Case-insensitive search over names, reason and specialization")
	cmd.Flags().Bool("once", false, "Render once and exit")
	return cmd
}

func bookCmd(opts *options) *cobra.Command {
	var in services.CreateAppointmentInput
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment with a doctor",
		Long:  "Book an appointment. Details missing from the flags are asked for, starting with a doctor picker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := newPrompter(cmd.InOrStdin(), out)

			if in.DoctorID == "" {
				doctors, err := c.Doctors(cmd.Context())
				if err != nil {
					return err
				}
				if len(doctors) == 0 {
					return errors.New("no doctors are available for booking")
				}
				if err := dashboard.RenderDoctors(out, doctors); err != nil {
					return err
				}
				answer, err := p.ask("Doctor")
				if err != nil {
					return err
				}
				doctor, err := dashboard.PickDoctor(doctors, answer)
				if err != nil {
					return err
				}
				in.DoctorID = doctor.ID
			}

			for _, field := range []struct {
				dst      *string
				question string
			}{
				{&in.AppointmentDate, "Date (YYYY-MM-DD)"},
				{&in.AppointmentTime, "Time (HH:MM)"},
				{&in.Reason, "Reason for visit"},
			} {
				if *field.dst != "" {
					continue
				}
				if *field.dst, err = p.ask(field.question); err != nil {
					return err
				}
			}

			appt, err := c.BookAppointment(cmd.Context(), in)
			if err != nil {
				return err
			}
			doctor := "N/A"
			if appt.Doctor != nil {
				doctor = appt.Doctor.Name
			}
			fmt.Fprintf(out, "Appointment %s with %s on %s at %s is %s\n",
				appt.ID, doctor, dashboard.FormatDate(appt.AppointmentDate), dashboard.FormatTime(appt.AppointmentTime), dashboard.StatusLabel(appt.Status))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.DoctorID, "doctor", "", "Doctor user id (picked from a list when empty)")
	cmd.Flags().StringVar(&in.PatientID, "patient", "", "Patient user id (super_admin only)")
	cmd.Flags().StringVar(&in.AppointmentDate, "date", "", "Appointment date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.AppointmentTime, "time", "", "Appointment time, HH:MM")
	cmd.Flags().StringVar(&in.Reason, "reason", "", "Reason for the visit")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Additional notes")
	return cmd
}

func confirmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <appointment-id>",
		Short: "Confirm a pending appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			appt, err := c.ConfirmAppointment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appointment %s is now %s\n", appt.ID, dashboard.StatusLabel(appt.Status))
			return nil
		},
	}
}

func cancelCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <appointment-id>",
		Short: "Cancel a pending or confirmed appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			_, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			if !yes && !confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Are you sure you want to cancel this appointment?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
			appt, err := c.CancelAppointment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appointment %s is now %s\n", appt.ID, dashboard.StatusLabel(appt.Status))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func statsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show appointment statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return dashboard.RenderStats(cmd.OutOrStdout(), stats)
		},
	}
}

func usersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, create and delete users",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			search, _ := cmd.Flags().GetString("search")
			_, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			users, err := c.Users(cmd.Context(), models.Role(role))
			if err != nil {
				return err
			}
			list := dashboard.NewUserList()
			list.SetItems(users)
			list.SetSearch(search)
			return dashboard.RenderUsers(cmd.OutOrStdout(), list.Visible())
		},
	}
	cmd.Flags().String("role", "", "Only list this role")
	cmd.Flags().String("search", "", "Case-insensitive search over name and email")
	cmd.AddCommand(usersCreateCmd(opts))
	cmd.AddCommand(usersDeleteCmd(opts))
	return cmd
}

func usersCreateCmd(opts *options) *cobra.Command {
	var (
		in      services.CreateUserInput
		role    string
		profile services.DoctorProfileInput
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user of any role",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			in.Role = models.Role(role)
			if profile.Specialization != "" || profile.LicenseNumber != "" {
				in.DoctorProfile = &profile
			}
			if in.Password == "" {
				if in.Password, err = newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).ask("Password"); err != nil {
					return err
				}
			}

			user, err := c.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", user.Role, user.Email, user.ID)
			if user.DoctorProfile != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s, license %s\n", user.DoctorProfile.Specialization, user.DoctorProfile.LicenseNumber)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", string(models.RolePatient), "super_admin, doctor, pa or patient")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.DateOfBirth, "dob", "", "Date of birth, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.Address, "address", "", "Postal address")
	cmd.Flags().StringVar(&in.MedicalHistory, "medical-history", "", "Medical history (patients)")
	cmd.Flags().StringVar(&profile.Specialization, "specialization", "", "Doctor specialization")
	cmd.Flags().StringVar(&profile.LicenseNumber, "license", "", "Doctor license number")
	cmd.Flags().StringSliceVar(&profile.WorkingDays, "working-days", nil, "Doctor working days, e.g. Monday,Tuesday")
	cmd.Flags().StringVar(&profile.StartTime, "start", "", "Doctor start time, HH:MM")
	cmd.Flags().StringVar(&profile.EndTime, "end", "", "Doctor end time, HH:MM")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func usersDeleteCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user and its doctor profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			_, c, err := signedIn(opts)
			if err != nil {
				return err
			}
			if !yes && !confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Are you sure you want to delete this user?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
			if err := c.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
