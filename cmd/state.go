package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segreq/internal/repository"
	"github.com/NamanBalaji/segreq/internal/styles"
)

func newStateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Manage confirmed entity lengths",
	}

	cmd.AddCommand(
		newStateListCmd(opts),
		newStateSetCmd(opts),
		newStateForgetCmd(opts),
	)

	return cmd
}

func (o *rootOptions) withRepository(fn func(repository.Repository) error) error {
	repo, err := repository.NewBboltRepository(o.cfg.StateDB)
	if err != nil {
		return err
	}
	defer repo.Close()

	return fn(repo)
}

func newStateListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every resource with a confirmed entity length",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRepository(func(repo repository.Repository) error {
				records, err := repo.FindAll()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, styles.FooterStyle.Render("no confirmed resources"))
					return nil
				}

				slices.SortFunc(records, func(a, b *repository.Record) int {
					return strings.Compare(a.URL, b.URL)
				})

				for _, r := range records {
					fmt.Fprintln(out, styles.Field(r.URL, fmt.Sprintf("%d (%s)", r.EntityLength, r.ConfirmedAt.Format(time.RFC3339))))
				}

				return nil
			})
		},
	}
}

func newStateSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set URL LENGTH",
		Short: "Record the entity length of a resource, replacing any confirmed one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			length, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || length <= 0 {
				return fmt.Errorf("invalid entity length %q", args[1])
			}

			return opts.withRepository(func(repo repository.Repository) error {
				record := &repository.Record{
					URL:          args[0],
					EntityLength: length,
					ConfirmedAt:  time.Now().UTC(),
				}

				if err := repo.Save(record); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), styles.Field(record.URL, fmt.Sprint(record.EntityLength)))
				return nil
			})
		},
	}
}

func newStateForgetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forget URL",
		Short: "Drop the confirmed entity length of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRepository(func(repo repository.Repository) error {
				if err := repo.Delete(repository.RecordID(args[0])); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), styles.SuccessStyle.Render("forgot "+args[0]))
				return nil
			})
		},
	}
}
