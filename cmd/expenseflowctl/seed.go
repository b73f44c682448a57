package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"expenseflow/internal/auth"
	"expenseflow/internal/repository"
)

func (a *app) seedCmd() *cobra.Command {
	var (
		file  string
		force bool
		cost  int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load companies, users and expenses from a YAML file",
		Long: `Load demo data into the store. A store that already has users is
left alone unless --force is given, in which case its data is replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			seed, err := repository.LoadSeed(file)
			if err != nil {
				return err
			}

			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.repos.Seeder(auth.NewBcryptHasher(cost)).Apply(ctx, seed, force)
			if err != nil {
				return fmt.Errorf("apply seed: %w", err)
			}
			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintln(out, "Store already has users; nothing seeded (use --force to replace)")
				return nil
			}
			fmt.Fprintf(out, "Seeded %d companies, %d users, %d expenses\n", res.Companies, res.Users, res.Expenses)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "./data/seed.yaml", "seed file")
	cmd.Flags().BoolVar(&force, "force", false, "replace existing data")
	cmd.Flags().IntVar(&cost, "bcrypt-cost", 10, "bcrypt cost for seeded passwords")
	return cmd
}
