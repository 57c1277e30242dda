package main

import (
	"fmt"

	"catalog-admin/internal/app"
	"catalog-admin/internal/submit"

	"github.com/spf13/cobra"
)

// banner command
var bannerCmd = &cobra.Command{
	Use:   "banner",
	Short: "Manage promotional banners",
}

var bannerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List banners",
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")

		a, err := newApp(cmd, "banner list")
		if err != nil {
			return err
		}
		defer a.Close()

		banners, err := a.Banners(cmd.Context(), activeOnly)
		if err != nil {
			return err
		}
		if len(banners) == 0 {
			fmt.Println("No banners.")
			return nil
		}

		for _, b := range banners {
			state := "inactive"
			if b.IsActive {
				state = "active"
			}
			fmt.Printf("%s  %-8s  #%-3d  %d image(s)  %s\n", b.ID, state, b.Order, len(b.Images), b.Title)
		}
		return nil
	},
}

var bannerShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a banner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "banner show")
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.Banner(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("banner %s not found", args[0])
		}

		fmt.Printf("ID:          %s\n", b.ID)
		fmt.Printf("Title:       %s\n", b.Title)
		fmt.Printf("Description: %s\n", b.Description)
		fmt.Printf("Active:      %t\n", b.IsActive)
		fmt.Printf("Order:       %d\n", b.Order)
		fmt.Printf("Created:     %s\n", formatTime(b.CreatedAt))
		for _, img := range b.Images {
			primary := ""
			if img.IsPrimary {
				primary = "  [primary]"
			}
			fmt.Printf("  %s  %s%s\n", img.ID, img.URL, primary)
		}
		return nil
	},
}

var bannerDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a banner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "banner delete")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.DeleteBanner(cmd.Context(), args[0], prompter(cmd))
		if err != nil {
			return err
		}
		if deleted {
			fmt.Printf("Banner %s deleted.\n", args[0])
		}
		return nil
	},
}

var bannerToggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Switch a banner between active and inactive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "banner toggle")
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.ToggleBanner(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Banner %s active: %t\n", b.ID, b.IsActive)
		return nil
	},
}

var bannerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a banner",
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveBanner(cmd, "")
	},
}

var bannerEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a banner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveBanner(cmd, args[0])
	},
}

func saveBanner(cmd *cobra.Command, id string) error {
	req, err := editRequest(cmd, id)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		req.Fields = append(req.Fields, submit.Field{Name: "title", Value: v})
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		req.Fields = append(req.Fields, submit.Field{Name: "description", Value: v})
	}
	if flags.Changed("active") {
		v, _ := flags.GetBool("active")
		req.Fields = append(req.Fields, submit.Field{Name: "isActive", Value: v})
	}
	if flags.Changed("order") {
		v, _ := flags.GetInt("order")
		req.Fields = append(req.Fields, submit.Field{Name: "order", Value: v})
	}

	a, err := newApp(cmd, operationName("banner", id))
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.SaveBanner(cmd.Context(), req, prompter(cmd))
	if res != nil {
		printRejected(res.Rejected)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s (id %s)\n", res.Message, res.ID)
	return nil
}

// editRequest collects the image flags shared by banner and product edits.
func editRequest(cmd *cobra.Command, id string) (app.EditRequest, error) {
	flags := cmd.Flags()
	images, _ := flags.GetStringArray("image")
	primary, _ := flags.GetInt("primary")
	primaryExisting, _ := flags.GetString("primary-existing")
	deletes, _ := flags.GetStringArray("delete-image")

	if primary >= len(images) {
		return app.EditRequest{}, fmt.Errorf("--primary %d but only %d --image given", primary, len(images))
	}
	if primary >= 0 && primaryExisting != "" {
		return app.EditRequest{}, fmt.Errorf("--primary and --primary-existing are mutually exclusive")
	}
	if id == "" && (primaryExisting != "" || len(deletes) > 0) {
		return app.EditRequest{}, fmt.Errorf("--primary-existing and --delete-image need an existing entity")
	}

	req := app.EditRequest{
		ID:              id,
		Files:           images,
		Primary:         primary,
		PrimaryExisting: primaryExisting,
		DeleteAssets:    deletes,
	}
	// Banners opt in to keeping stored images; products opt in to replacing them.
	if flags.Changed("keep-images") {
		keep, _ := flags.GetBool("keep-images")
		req.KeepExisting = &keep
	}
	if flags.Changed("replace-images") {
		replace, _ := flags.GetBool("replace-images")
		keep := !replace
		req.KeepExisting = &keep
	}
	return req, nil
}

func operationName(entity, id string) string {
	if id == "" {
		return entity + " create"
	}
	return entity + " edit"
}

func addImageFlags(cmd *cobra.Command, edit bool) {
	cmd.Flags().StringArray("image", nil, "Image file to upload (repeatable, kept in order)")
	cmd.Flags().Int("primary", -1, "Index of the --image to make primary")
	if edit {
		cmd.Flags().String("primary-existing", "", "ID of a stored image to make primary")
		cmd.Flags().StringArray("delete-image", nil, "ID of a stored image to delete now (repeatable)")
	}
}

func init() {
	bannerCmd.AddCommand(bannerListCmd)
	bannerListCmd.Flags().Bool("active", false, "Only list active banners")
	bannerCmd.AddCommand(bannerShowCmd)
	bannerCmd.AddCommand(bannerDeleteCmd)
	bannerCmd.AddCommand(bannerToggleCmd)

	for _, c := range []*cobra.Command{bannerCreateCmd, bannerEditCmd} {
		c.Flags().String("title", "", "Banner title")
		c.Flags().String("description", "", "Banner description")
		c.Flags().Bool("active", true, "Show the banner in the storefront")
		c.Flags().Int("order", 0, "Display order")
		addImageFlags(c, c == bannerEditCmd)
		bannerCmd.AddCommand(c)
	}
	bannerEditCmd.Flags().Bool("keep-images", false, "Keep stored images when adding new ones")

	rootCmd.AddCommand(bannerCmd)
}
