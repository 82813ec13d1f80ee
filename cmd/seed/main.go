package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sipitali-server/internal/config"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/services"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "seed",
		Short:        "Bootstrap accounts and demo data for the booking server",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(demoCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// open loads config and connects to the configured database.
func open() (*config.Config, *logger.Logger, repository.Stores, func() error, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, repository.Stores{}, nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	stores, closeDB, err := repository.Open(cfg.Database, false)
	if err != nil {
		return nil, nil, repository.Stores{}, nil, err
	}
	return cfg, log, stores, closeDB, nil
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create the super_admin account, or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, stores, closeDB, err := open()
			if err != nil {
				return err
			}
			defer closeDB()

			name, email, password := cfg.SeedAdmin.Name, cfg.SeedAdmin.Email, cfg.SeedAdmin.Password
			if v, _ := cmd.Flags().GetString("name"); v != "" {
				name = v
			}
			if v, _ := cmd.Flags().GetString("email"); v != "" {
				email = v
			}
			if v, _ := cmd.Flags().GetString("password"); v != "" {
				password = v
			}
			if email == "" || password == "" {
				return fmt.Errorf("admin email and password are required (SEED_ADMIN_EMAIL, SEED_ADMIN_PASSWORD or flags)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			admin, created, err := services.NewUserService(stores, log).EnsureSuperAdmin(ctx, name, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created super_admin %s (%s)\n", admin.Email, admin.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Reset super_admin %s (%s)\n", admin.Email, admin.ID)
			}
			return nil
		},
	}
	cmd.Flags().String("name", "", "Admin display name (default SEED_ADMIN_NAME)")
	cmd.Flags().String("email", "", "Admin email (default SEED_ADMIN_EMAIL)")
	cmd.Flags().String("password", "", "Admin password (default SEED_ADMIN_PASSWORD)")
	return cmd
}

func demoCmd() *cobra.Command {
	opts := demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Insert fake doctors, assistants, patients and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, stores, closeDB, err := open()
			if err != nil {
				return err
			}
			defer closeDB()

			if opts.Seed == 0 {
				opts.Seed = time.Now().UnixNano()
			}
			summary, err := seedDemo(cmd.Context(), stores, log, metrics.New(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Seeded %d doctors, %d assistants, %d patients, %d appointments (%d confirmed). Password: %s\n",
				summary.Doctors, summary.Assistants, summary.Patients, summary.Appointments, summary.Confirmed, opts.Password)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Doctors, "doctors", 5, "Number of doctors")
	cmd.Flags().IntVar(&opts.Assistants, "assistants", 2, "Number of physician assistants")
	cmd.Flags().IntVar(&opts.Patients, "patients", 20, "Number of patients")
	cmd.Flags().IntVar(&opts.AppointmentsPerPatient, "appointments", 2, "Appointments booked per patient")
	cmd.Flags().StringVar(&opts.Password, "password", "password123", "Password of every demo account")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed (0 picks one)")
	return cmd
}
