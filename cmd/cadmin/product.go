package main

import (
	"fmt"
	"strings"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/submit"

	"github.com/spf13/cobra"
)

// product command
var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage catalog products",
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q admin.ProductQuery
		q.Search, _ = cmd.Flags().GetString("search")
		q.Category, _ = cmd.Flags().GetString("category")
		q.Page, _ = cmd.Flags().GetInt("page")
		q.Limit, _ = cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "product list")
		if err != nil {
			return err
		}
		defer a.Close()

		products, page, err := a.Products(cmd.Context(), q)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			fmt.Println("No products found.")
			return nil
		}

		for _, p := range products {
			fmt.Printf("%s  %-12s  %9.2f  stock:%-5d  %s\n", p.ID, p.Category, p.DmartPrice, p.StockQuantity, p.Name)
		}
		printPage(page)
		return nil
	},
}

var productShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "product show")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Product(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("product %s not found", args[0])
		}

		veg := "-"
		if p.IsVeg != nil {
			veg = fmt.Sprint(*p.IsVeg)
		}
		fmt.Printf("ID:          %s\n", p.ID)
		fmt.Printf("Name:        %s\n", p.Name)
		fmt.Printf("Description: %s\n", p.Description)
		fmt.Printf("Brand:       %s\n", p.Brand)
		fmt.Printf("Category:    %s\n", p.Category)
		fmt.Printf("MRP:         %.2f\n", p.MRP)
		fmt.Printf("Price:       %.2f\n", p.DmartPrice)
		fmt.Printf("Weight:      %s\n", p.Weight)
		fmt.Printf("Veg:         %s\n", veg)
		fmt.Printf("Stock:       %d\n", p.StockQuantity)
		fmt.Printf("Featured:    %t\n", p.Featured)
		fmt.Printf("Rating:      %.1f (%d reviews)\n", p.Rating, p.ReviewsCount)
		fmt.Printf("Badge:       %s\n", p.Badge)
		fmt.Printf("Tags:        %s\n", strings.Join(p.Tags, ", "))
		for _, img := range p.Images {
			primary := ""
			if img.IsPrimary {
				primary = "  [primary]"
			}
			fmt.Printf("  %s  %s%s\n", img.ID, img.URL, primary)
		}
		return nil
	},
}

var productCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveProduct(cmd, "")
	},
}

var productEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveProduct(cmd, args[0])
	},
}

// productFlags maps flag names to draft field names.
var productFlags = []struct {
	flag, field, kind string
}{
	{"name", "name", "string"},
	{"description", "description", "string"},
	{"mrp", "mrp", "float"},
	{"price", "dmartPrice", "float"},
	{"weight", "weight", "string"},
	{"brand", "brand", "string"},
	{"category", "category", "string"},
	{"veg", "isVeg", "bool"},
	{"tags", "tags", "strings"},
	{"stock", "stockQuantity", "int"},
	{"featured", "featured", "bool"},
	{"badge", "badge", "string"},
}

func saveProduct(cmd *cobra.Command, id string) error {
	req, err := editRequest(cmd, id)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	for _, pf := range productFlags {
		if !flags.Changed(pf.flag) {
			continue
		}
		var v any
		switch pf.kind {
		case "string":
			v, _ = flags.GetString(pf.flag)
		case "float":
			v, _ = flags.GetFloat64(pf.flag)
		case "int":
			v, _ = flags.GetInt(pf.flag)
		case "bool":
			v, _ = flags.GetBool(pf.flag)
		case "strings":
			v, _ = flags.GetStringSlice(pf.flag)
		}
		req.Fields = append(req.Fields, submit.Field{Name: pf.field, Value: v})
	}

	a, err := newApp(cmd, operationName("product", id))
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.SaveProduct(cmd.Context(), req, prompter(cmd))
	if res != nil {
		printRejected(res.Rejected)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s (id %s)\n", res.Message, res.ID)
	return nil
}

var productDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "product delete")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.DeleteProduct(cmd.Context(), args[0], prompter(cmd))
		if err != nil {
			return err
		}
		if deleted {
			fmt.Printf("Product %s deleted.\n", args[0])
		}
		return nil
	},
}

var productRatingCmd = &cobra.Command{
	Use:   "rating ID RATING",
	Short: "Set a product's rating (0-5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rating float64
		if _, err := fmt.Sscanf(args[1], "%g", &rating); err != nil {
			return fmt.Errorf("invalid rating %q", args[1])
		}
		reviews, _ := cmd.Flags().GetInt("reviews")

		a, err := newApp(cmd, "product rating")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.UpdateRating(cmd.Context(), args[0], rating, reviews)
		if err != nil {
			return err
		}
		fmt.Printf("%s rated %.1f (%d reviews)\n", p.Name, p.Rating, p.ReviewsCount)
		return nil
	},
}

var productStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "product stats")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Products:     %d (%d active)\n", s.TotalProducts, s.ActiveProducts)
		fmt.Printf("In stock:     %d\n", s.InStockProducts)
		fmt.Printf("Out of stock: %d\n", s.OutOfStockProducts)
		if len(s.CategoryStats) > 0 {
			fmt.Println("\nBy category:")
			for _, c := range s.CategoryStats {
				fmt.Printf("  %-20s %d\n", c.Category, c.Count)
			}
		}
		if len(s.RecentProducts) > 0 {
			fmt.Println("\nRecently added:")
			for _, p := range s.RecentProducts {
				fmt.Printf("  %s  %s\n", p.ID, p.Name)
			}
		}
		return nil
	},
}

func init() {
	productCmd.AddCommand(productListCmd)
	productListCmd.Flags().String("search", "", "Search text")
	productListCmd.Flags().String("category", "", "Filter by category")
	productListCmd.Flags().Int("page", 1, "Page number")
	productListCmd.Flags().Int("limit", 20, "Products per page")

	productCmd.AddCommand(productShowCmd)
	productCmd.AddCommand(productDeleteCmd)
	productCmd.AddCommand(productRatingCmd)
	productRatingCmd.Flags().Int("reviews", 0, "Number of reviews")
	productCmd.AddCommand(productStatsCmd)

	for _, c := range []*cobra.Command{productCreateCmd, productEditCmd} {
		c.Flags().String("name", "", "Product name")
		c.Flags().String("description", "", "Product description")
		c.Flags().Float64("mrp", 0, "Maximum retail price")
		c.Flags().Float64("price", 0, "Selling price")
		c.Flags().String("weight", "", "Pack weight, e.g. 500g")
		c.Flags().String("brand", "", "Brand")
		c.Flags().String("category", "", "Category")
		c.Flags().Bool("veg", false, "Vegetarian")
		c.Flags().StringSlice("tags", nil, "Comma separated tags")
		c.Flags().Int("stock", 0, "Stock quantity")
		c.Flags().Bool("featured", false, "Feature on the home page")
		c.Flags().String("badge", "", "Badge text")
		addImageFlags(c, c == productEditCmd)
		productCmd.AddCommand(c)
	}
	productEditCmd.Flags().Bool("replace-images", false, "Drop all stored images on save")

	rootCmd.AddCommand(productCmd)
}
