package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect users",
	}
	cmd.AddCommand(a.usersListCmd())
	return cmd
}

func (a *app) usersListCmd() *cobra.Command {
	var company int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, optionally of one company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			users, err := s.repos.Users.Load(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"),
				headerStyle.Render("Email"),
				headerStyle.Render("Role"),
				headerStyle.Render("Company"),
				headerStyle.Render("Manager"))
			for _, u := range users {
				if company > 0 && u.CompanyID != company {
					continue
				}
				manager := mutedStyle.Render("-")
				if u.ManagerID != nil {
					manager = fmt.Sprint(*u.ManagerID)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CompanyID, manager)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&company, "company", 0, "only list users of this company id")
	return cmd
}
