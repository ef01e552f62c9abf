package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/users"
)

func newUsersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users and manage their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := c.users(cmd)
			if err != nil {
				return err
			}
			list, err := session.Users(ctx)
			if err != nil {
				return err
			}
			return c.render(list, func(w io.Writer) error {
				rows := make([][]string, 0, len(list))
				for _, u := range list {
					admin := ""
					if u.Admin() {
						admin = "yes"
					}
					rows = append(rows, []string{u.Name, u.Username, u.Email, admin})
				}
				return table(w, []string{"NAME", "USERNAME", "EMAIL", "ADMIN"}, rows)
			})
		},
	}
	cmd.AddCommand(
		newWhoamiCmd(c),
		newRoleCmd(c, "grant", true),
		newRoleCmd(c, "revoke", false),
	)
	return cmd
}

func (c *cli) users(cmd *cobra.Command) (*users.Session, error) {
	app, err := c.session(cmd.Context())
	if err != nil {
		return nil, err
	}
	return app.Users()
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.users(cmd)
			if err != nil {
				return err
			}
			user, err := session.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			return c.render(user, nil)
		},
	}
}

func newRoleCmd(c *cli, use string, enabled bool) *cobra.Command {
	short := "Grant a role to a user"
	if !enabled {
		short = "Revoke a role from a user"
	}

	return &cobra.Command{
		Use:   use + " <user> <role>",
		Short: short,
		Long: short + `. The user is matched by id, username or email. Roles:
isAdmin, canViewPublicData, canViewPublicMetadata, canAddSharedMetadata,
canQueryMetadata.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := c.users(cmd)
			if err != nil {
				return err
			}
			list, err := session.Users(ctx)
			if err != nil {
				return err
			}
			target, err := findUser(list, args[0])
			if err != nil {
				return err
			}
			return session.SetRole(ctx, target, domain.Role(args[1]), enabled)
		},
	}
}

func findUser(list []domain.User, key string) (*domain.User, error) {
	for i := range list {
		u := &list[i]
		if u.ID == key || u.IRI == key || strings.EqualFold(u.Username, key) || strings.EqualFold(u.Email, key) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, key)
}
