package main

import (
	"fmt"
	"strings"

	"catalog-admin/internal/admin"

	"github.com/spf13/cobra"
)

// order command
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Manage customer orders",
}

func orderQuery(cmd *cobra.Command) admin.OrderQuery {
	var q admin.OrderQuery
	q.Status, _ = cmd.Flags().GetString("status")
	q.Page, _ = cmd.Flags().GetInt("page")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	return q
}

func printOrders(orders []admin.Order, page *admin.Pagination) {
	if len(orders) == 0 {
		fmt.Println("No orders found.")
		return
	}
	for _, o := range orders {
		fmt.Printf("%s  %-14s  %-10s  %10.2f  %s  %s\n",
			o.ID, o.OrderNumber, o.Status, o.OrderSummary.FinalTotal, formatTime(o.CreatedAt), o.DeliveryAddress.FullName)
	}
	printPage(page)
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "order list")
		if err != nil {
			return err
		}
		defer a.Close()

		orders, page, err := a.Orders(cmd.Context(), "", orderQuery(cmd))
		if err != nil {
			return err
		}
		printOrders(orders, page)
		return nil
	},
}

var orderByUserCmd = &cobra.Command{
	Use:   "by-user USER_ID",
	Short: "List a customer's orders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "order by-user")
		if err != nil {
			return err
		}
		defer a.Close()

		orders, page, err := a.Orders(cmd.Context(), args[0], orderQuery(cmd))
		if err != nil {
			return err
		}
		printOrders(orders, page)
		return nil
	},
}

var orderShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byNumber, _ := cmd.Flags().GetBool("number")

		a, err := newApp(cmd, "order show")
		if err != nil {
			return err
		}
		defer a.Close()

		o, err := a.Order(cmd.Context(), args[0], byNumber)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("order %s not found", args[0])
		}

		addr := o.DeliveryAddress
		fmt.Printf("ID:       %s\n", o.ID)
		fmt.Printf("Number:   %s\n", o.OrderNumber)
		fmt.Printf("Status:   %s\n", o.Status)
		fmt.Printf("Payment:  %s (%s)\n", o.PaymentMethod, o.PaymentStatus)
		fmt.Printf("Placed:   %s\n", formatTime(o.CreatedAt))
		fmt.Printf("Ship to:  %s, %s, %s, %s %s (%s)\n", addr.FullName, addr.Address, addr.City, addr.State, addr.Pincode, addr.Phone)
		fmt.Println()
		for _, line := range o.Products {
			fmt.Printf("  %3d x %-30s %9.2f\n", line.Quantity, line.Name, line.TotalPrice)
		}
		fmt.Printf("\nItems: %d  Total: %.2f  Saved: %.2f\n",
			o.OrderSummary.TotalItems, o.OrderSummary.FinalTotal, o.OrderSummary.TotalSavings)
		return nil
	},
}

var orderStatusCmd = &cobra.Command{
	Use:   "status ID STATUS",
	Short: "Set an order's status",
	Long:  "Set an order's status. STATUS is one of: " + strings.Join(admin.OrderStatuses, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "order status")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.UpdateOrderStatus(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Order %s is now %s\n", args[0], args[1])
		return nil
	},
}

var orderDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "order delete")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.DeleteOrder(cmd.Context(), args[0], prompter(cmd))
		if err != nil {
			return err
		}
		if deleted {
			fmt.Printf("Order %s deleted.\n", args[0])
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{orderListCmd, orderByUserCmd} {
		c.Flags().String("status", "", "Filter by status")
		c.Flags().Int("page", 1, "Page number")
		c.Flags().Int("limit", 20, "Orders per page")
		orderCmd.AddCommand(c)
	}
	orderCmd.AddCommand(orderShowCmd)
	orderShowCmd.Flags().Bool("number", false, "Look the order up by order number")
	orderCmd.AddCommand(orderStatusCmd)
	orderCmd.AddCommand(orderDeleteCmd)

	rootCmd.AddCommand(orderCmd)
}
