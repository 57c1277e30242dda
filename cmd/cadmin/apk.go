package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// apk command
var apkCmd = &cobra.Command{
	Use:   "apk",
	Short: "Manage the installable app package",
}

var apkStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the published app package",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "apk status")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.PackageStatus(cmd.Context())
		if err != nil {
			return err
		}
		if !s.Available || s.FileInfo == nil {
			fmt.Println("No app package published.")
			return nil
		}
		fmt.Printf("Version:  %s\n", s.FileInfo.Version)
		fmt.Printf("Size:     %d bytes\n", s.FileInfo.Size)
		fmt.Printf("Uploaded: %s\n", formatTime(s.FileInfo.UploadedAt))
		fmt.Printf("Download: %s\n", a.PackageDownloadURL())
		return nil
	},
}

var apkUploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Publish a new app package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("version")

		a, err := newApp(cmd, "apk upload")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.UploadPackage(cmd.Context(), args[0], version)
		if res != nil {
			printRejected(res.Rejected)
		}
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		return nil
	},
}

var apkDownloadURLCmd = &cobra.Command{
	Use:   "download-url",
	Short: "Print the public download link",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "apk download-url")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.PackageDownloadURL())
		return nil
	},
}

var apkArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived app packages",
}

var apkArchiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived app packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "apk archive list")
		if err != nil {
			return err
		}
		defer a.Close()

		pkgs, err := a.ArchivedPackages()
		if err != nil {
			return err
		}
		if len(pkgs) == 0 {
			fmt.Println("No archived packages (is an archive configured?).")
			return nil
		}
		for _, p := range pkgs {
			version := p.Version
			if version == "" {
				version = "-"
			}
			fmt.Printf("%s  %-10s  %10d  %s  %s\n", p.Checksum[:12], version, p.Size, formatTime(p.ArchivedAt), p.Name)
		}
		return nil
	},
}

func init() {
	apkCmd.AddCommand(apkStatusCmd)
	apkCmd.AddCommand(apkUploadCmd)
	apkUploadCmd.Flags().String("version", "", "Version label sent with the package")
	apkCmd.AddCommand(apkDownloadURLCmd)
	apkCmd.AddCommand(apkArchiveCmd)
	apkArchiveCmd.AddCommand(apkArchiveListCmd)

	rootCmd.AddCommand(apkCmd)
}
