package cmd

import (
	"context"

	"github.com/emrgen/servicecatalog/internal/config"
	"github.com/emrgen/servicecatalog/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "scheduled job commands",
}

func init() {
	jobsCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	jobsCmd.AddCommand(runJobsCmd())
	jobsCmd.AddCommand(scheduleJobCmd())
	jobsCmd.AddCommand(expireJobCmd())
}

func runJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the scheduled jobs until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			if err := server.Start(config.LoadConfig()); err != nil {
				logrus.Fatal(err)
			}
		},
	}
}

func scheduleJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "perform the scheduled publishes and archives that are due",
		Run: func(cmd *cobra.Command, args []string) {
			runWithApp(func(ctx context.Context, app *server.App) error {
				results, err := app.Service.ExecuteScheduledTransitions(ctx)
				if err != nil {
					return err
				}

				printResults(results)
				return nil
			})
		},
	}
}

func expireJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "archive and remove the versions whose expiration date has passed",
		Run: func(cmd *cobra.Command, args []string) {
			runWithApp(func(ctx context.Context, app *server.App) error {
				results, err := app.Service.GetExpirationTasks(ctx, timeNow())
				if err != nil {
					return err
				}

				printResults(results)
				return nil
			})
		},
	}
}
