package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yashagency/storefront-client/internal/domain"
)

func newProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the product catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			var view struct {
				Products []domain.Product `json:"products"`
			}
			if err := c.do("GET", "/v1/products", nil, &view); err != nil {
				return err
			}

			if len(view.Products) == 0 {
				fmt.Println("no products")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE")
			for _, p := range view.Products {
				fmt.Fprintf(w, "%s\t%s\t%.2f\n", p.ID, p.Name, p.Price)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "invalidate",
		Short: "Drop the cached catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.do("POST", "/v1/products/invalidate", nil, nil); err != nil {
				return err
			}
			fmt.Println("catalog cache invalidated")
			return nil
		},
	})

	return cmd
}

func newNotificationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Show notifications from the last poll",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			var view struct {
				Notifications []domain.Notification `json:"notifications"`
			}
			if err := c.do("GET", "/v1/notifications", nil, &view); err != nil {
				return err
			}

			if len(view.Notifications) == 0 {
				fmt.Println("no notifications")
				return nil
			}
			for _, n := range view.Notifications {
				marker := " "
				if !n.Read {
					marker = "*"
				}
				fmt.Printf("%s %s  %s\n", marker, n.CreatedAt.Format("2006-01-02 15:04"), n.Message)
			}
			return nil
		},
	}
}
