package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type sessionView struct {
	State string `json:"state"`
	User  *struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user,omitempty"`
}

func newLoginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the storefront",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			var view sessionView
			payload := map[string]string{"email": email, "password": password}
			if err := c.do("POST", "/v1/session/login", payload, &view); err != nil {
				return err
			}
			if view.User != nil {
				fmt.Printf("logged in as %s <%s>\n", view.User.Name, view.User.Email)
			} else {
				fmt.Println("logged in")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear local session state",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.do("POST", "/v1/session/logout", nil, nil); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func newSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session state",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			var view sessionView
			if err := c.do("GET", "/v1/session", nil, &view); err != nil {
				return err
			}
			if view.User != nil {
				fmt.Printf("%s (%s <%s>)\n", view.State, view.User.Name, view.User.Email)
			} else {
				fmt.Println(view.State)
			}
			return nil
		},
	}
}
