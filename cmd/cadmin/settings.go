package main

import (
	"fmt"
	"strings"

	"catalog-admin/internal/api"

	"github.com/spf13/cobra"
)

// settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage store settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show store settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "settings show")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Settings(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("merchantUPI: %s\n", s.MerchantUPI)
		fmt.Printf("siteName:    %s\n", s.SiteName)
		fmt.Printf("siteEmail:   %s\n", s.SiteEmail)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE...",
	Short: "Change store settings",
	Long:  "Change store settings. KEY is one of: " + strings.Join(api.SettingsFields, ", "),
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes := make(map[string]string, len(args))
		for _, arg := range args {
			k, v, ok := strings.Cut(arg, "=")
			if !ok || k == "" {
				return fmt.Errorf("expected KEY=VALUE, got %q", arg)
			}
			changes[k] = v
		}

		a, err := newApp(cmd, "settings set")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.UpdateSettings(cmd.Context(), changes)
		if err != nil {
			return err
		}
		fmt.Printf("Settings updated. merchantUPI=%s siteName=%s siteEmail=%s\n", s.MerchantUPI, s.SiteName, s.SiteEmail)
		return nil
	},
}

var settingsUPICmd = &cobra.Command{
	Use:   "merchant-upi",
	Short: "Show the merchant UPI id used at checkout",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "settings merchant-upi")
		if err != nil {
			return err
		}
		defer a.Close()

		upi, err := a.MerchantUPI(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(upi)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUPICmd)

	rootCmd.AddCommand(settingsCmd)
}
