package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yashagency/storefront-client/internal/domain"
)

type cartView struct {
	Cart []domain.CartItem `json:"cart"`
}

func newCartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and edit the local cart",
	}

	cmd.AddCommand(
		newCartLsCommand(),
		newCartAddCommand(),
		newCartSetCommand(),
		newCartRmCommand(),
		newCartClearCommand(),
		newCartSyncCommand(),
	)

	return cmd
}

func newCartLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List cart items",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			var view cartView
			if err := c.do("GET", "/v1/cart", nil, &view); err != nil {
				return err
			}
			printCart(view.Cart)
			return nil
		},
	}
}

func newCartAddCommand() *cobra.Command {
	var (
		name  string
		price float64
		size  string
		color string
	)

	cmd := &cobra.Command{
		Use:   "add <productID>",
		Short: "Add one unit of a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			payload := map[string]any{
				"productId": args[0],
				"name":      name,
				"price":     price,
			}
			if v := variantFromFlags(size, color); v != nil {
				payload["selectedVariant"] = v
			}

			var view cartView
			if err := c.do("POST", "/v1/cart/items", payload, &view); err != nil {
				return err
			}
			printCart(view.Cart)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().Float64Var(&price, "price", 0, "unit price")
	cmd.Flags().StringVar(&size, "size", "", "variant size")
	cmd.Flags().StringVar(&color, "color", "", "variant color")

	return cmd
}

func newCartSetCommand() *cobra.Command {
	var size, color string

	cmd := &cobra.Command{
		Use:   "set <productID> <quantity>",
		Short: "Set the quantity of a cart item (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}

			c, err := newClient()
			if err != nil {
				return err
			}

			payload := map[string]any{"quantity": qty}
			if v := variantFromFlags(size, color); v != nil {
				payload["selectedVariant"] = v
			}

			var view cartView
			path := "/v1/cart/items/" + url.PathEscape(args[0])
			if err := c.do("PUT", path, payload, &view); err != nil {
				return err
			}
			printCart(view.Cart)
			return nil
		},
	}

	cmd.Flags().StringVar(&size, "size", "", "variant size")
	cmd.Flags().StringVar(&color, "color", "", "variant color")

	return cmd
}

func newCartRmCommand() *cobra.Command {
	var size, color string

	cmd := &cobra.Command{
		Use:   "rm <productID>",
		Short: "Remove a cart item",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			path := "/v1/cart/items/" + url.PathEscape(args[0])
			if size != "" || color != "" {
				q := url.Values{}
				if size != "" {
					q.Set("size", size)
				}
				if color != "" {
					q.Set("color", color)
				}
				path += "?" + q.Encode()
			}

			var view cartView
			if err := c.do("DELETE", path, nil, &view); err != nil {
				return err
			}
			printCart(view.Cart)
			return nil
		},
	}

	cmd.Flags().StringVar(&size, "size", "", "variant size")
	cmd.Flags().StringVar(&color, "color", "", "variant color")

	return cmd
}

func newCartClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every item from the cart",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.do("DELETE", "/v1/cart", nil, nil); err != nil {
				return err
			}
			fmt.Println("cart cleared")
			return nil
		},
	}
}

func newCartSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replace the local cart with the server's copy",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			var view cartView
			if err := c.do("POST", "/v1/cart/sync", nil, &view); err != nil {
				return err
			}
			printCart(view.Cart)
			return nil
		},
	}
}

func variantFromFlags(size, color string) *domain.Variant {
	if size == "" && color == "" {
		return nil
	}
	return &domain.Variant{Size: size, Color: color}
}

func printCart(items []domain.CartItem) {
	if len(items) == 0 {
		fmt.Println("cart is empty")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tNAME\tVARIANT\tQTY\tPRICE")
	for _, it := range items {
		variant := "-"
		if it.Variant != nil {
			variant = it.Variant.Size
			if it.Variant.Color != "" {
				if variant != "" {
					variant += "/"
				}
				variant += it.Variant.Color
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n", it.ProductID, it.Name, variant, it.Quantity, it.Price)
	}
	w.Flush()
}
