package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/app"
	"catalog-admin/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", admin.UserMessage(err))
		os.Exit(1)
	}
}

// newApp reads the config and creates a ConsoleApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "banner create").
func newApp(cmd *cobra.Command, operation string) (*app.ConsoleApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	a, err := app.NewConsoleApp(cmd.Context(), cfg, operation, app.WithStderr(os.Stderr, level))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// prompter answers confirmations on the terminal, or always yes with --yes.
func prompter(cmd *cobra.Command) *app.Prompter {
	yes, _ := cmd.Flags().GetBool("yes")
	return app.NewPrompter(os.Stdin, os.Stderr, yes)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printRejected(rejected []*admin.ValidationError) {
	for _, r := range rejected {
		fmt.Fprintf(os.Stderr, "skipped: %s\n", r.Error())
	}
}

func printPage(p *admin.Pagination) {
	if p == nil {
		return
	}
	fmt.Printf("\npage %d of %d (%d total)\n", p.Page, p.Pages, p.Total)
}

var rootCmd = &cobra.Command{
	Use:           "cadmin",
	Short:         "Catalog admin console",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		operatorID := uuid.New().String()
		cfg := config.NewConfig(operatorID, defaults["base_dir"])
		if baseURL, _ := cmd.Flags().GetString("api"); baseURL != "" {
			cfg.API.BaseURL = baseURL
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Operator ID: %s\n", operatorID)
		fmt.Printf("Base Dir:    %s\n", defaults["base_dir"])
		fmt.Printf("API:         %s\n", cfg.API.BaseURL)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Operator ID: %s\n", cfg.OperatorID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("API:         %s (timeout %ds, upload %ds)\n", cfg.API.BaseURL, cfg.API.Timeout, cfg.API.UploadTimeout)
		fmt.Printf("Session:     %s\n", cfg.Session.Type)
		fmt.Printf("Database:    %s\n", cfg.Database.Type)
		fmt.Printf("Archive:     %s\n", cfg.Archive.Type)
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the backing API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "login")
		if err != nil {
			return err
		}
		defer a.Close()

		p := prompter(cmd)
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			if email, err = p.ReadLine("Email: "); err != nil {
				return err
			}
		}
		password, err := p.ReadPassword("Password: ")
		if err != nil {
			return err
		}
		if email == "" || password == "" {
			return errors.New("Please fill in all required fields")
		}

		sess, err := a.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s <%s>\n", sess.Operator.Name, sess.Operator.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "logout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "whoami")
		if err != nil {
			return err
		}
		defer a.Close()

		op, err := a.WhoAmI(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s>  role:%s  id:%s\n", op.Name, op.Email, op.Role, op.ID)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Message,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Echo debug logs to stderr")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to confirmation prompts")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("api", "", "Backing API base URL")

	// session commands
	loginCmd.Flags().StringP("email", "e", "", "Operator email")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
