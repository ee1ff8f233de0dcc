package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/server"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "expiration policy commands",
}

func init() {
	policyCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	policyCmd.AddCommand(setPolicyCmd())
	policyCmd.AddCommand(getPolicyCmd())
}

func setPolicyCmd() *cobra.Command {
	var family string
	var organizationID string
	var draftMonths int
	var publishedMonths int
	var disabled bool

	var required = []string{"organization"}

	command := &cobra.Command{
		Use:     "set",
		Short:   "set the expiration policy of an organization",
		Example: "catalog policy set -o <organization-id> -f service --draft 6 --published 12",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				policy := &model.ExpirationPolicy{
					OrganizationID:          organizationID,
					EntityType:              f.String(),
					DraftLifetimeMonths:     draftMonths,
					PublishedLifetimeMonths: publishedMonths,
					Disabled:                disabled,
				}
				if err := app.Store.SaveExpirationPolicy(ctx, policy); err != nil {
					return err
				}

				color.Green("policy saved")
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&organizationID, "organization", "o", "", "organization id (required)")
	command.Flags().IntVar(&draftMonths, "draft", 6, "draft lifetime in months")
	command.Flags().IntVar(&publishedMonths, "published", 12, "published lifetime in months")
	command.Flags().BoolVar(&disabled, "disabled", false, "versions of the organization never expire")

	return command
}

func getPolicyCmd() *cobra.Command {
	var family string
	var organizationID string

	var required = []string{"organization"}

	command := &cobra.Command{
		Use:   "get",
		Short: "show the expiration policy of an organization",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				policy, err := app.Store.GetExpirationPolicy(ctx, organizationID, f)
				if err != nil {
					return err
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.SetHeader([]string{"Organization", "Family", "Draft", "Published", "Disabled"})
				table.Append([]string{
					policy.OrganizationID,
					policy.EntityType,
					strconv.Itoa(policy.DraftLifetimeMonths),
					strconv.Itoa(policy.PublishedLifetimeMonths),
					strconv.FormatBool(policy.Disabled),
				})
				table.Render()
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&organizationID, "organization", "o", "", "organization id (required)")

	return command
}
