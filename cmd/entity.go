package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/server"
	"github.com/emrgen/servicecatalog/internal/service"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "entity lifecycle commands",
}

func init() {
	entityCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	entityCmd.AddCommand(createEntityCmd())
	entityCmd.AddCommand(saveEntityCmd())
	entityCmd.AddCommand(transitionCmd("publish", "publish a draft or modified version",
		func(ctx context.Context, app *server.App, family domain.Family, versionID string, req service.Request) (*model.EntityVersion, error) {
			return app.Service.Publish(ctx, family, versionID, req)
		}))
	entityCmd.AddCommand(transitionCmd("withdraw", "withdraw a published version",
		func(ctx context.Context, app *server.App, family domain.Family, versionID string, req service.Request) (*model.EntityVersion, error) {
			return app.Service.Withdraw(ctx, family, versionID, req)
		}))
	entityCmd.AddCommand(transitionCmd("archive", "archive a version",
		func(ctx context.Context, app *server.App, family domain.Family, versionID string, req service.Request) (*model.EntityVersion, error) {
			return app.Service.Archive(ctx, family, versionID, req)
		}))
	entityCmd.AddCommand(transitionCmd("restore", "restore an archived or deleted version",
		func(ctx context.Context, app *server.App, family domain.Family, versionID string, req service.Request) (*model.EntityVersion, error) {
			return app.Service.Restore(ctx, family, versionID, nil, req)
		}))
	entityCmd.AddCommand(deleteEntityCmd())
	entityCmd.AddCommand(scheduleEntityCmd())
	entityCmd.AddCommand(copyEntityCmd())
	entityCmd.AddCommand(archiveEntitiesCmd())
	entityCmd.AddCommand(connectEntityCmd())
	entityCmd.AddCommand(showEntityCmd())
	entityCmd.AddCommand(historyEntityCmd())
}

func createEntityCmd() *cobra.Command {
	var family string
	var organizationID string
	var languages []string

	var required = []string{"organization", "languages"}

	command := &cobra.Command{
		Use:     "create",
		Short:   "create an entity with a first draft version",
		Example: "catalog entity create -f service -o <organization-id> -l fi,sv",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				v, err := app.Service.CreateEntity(ctx, f, organizationID, languages, request(-1))
				if err != nil {
					return err
				}

				printVersion(ctx, app, v)
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&organizationID, "organization", "o", "", "owning organization id (required)")
	command.Flags().StringSliceVarP(&languages, "languages", "l", nil, "language codes (required)")

	return command
}

func saveEntityCmd() *cobra.Command {
	var family string
	var rootID string
	var languages []string
	var lockVersion int64

	var required = []string{"root-id"}

	command := &cobra.Command{
		Use:   "save",
		Short: "record an edit of an entity",
		Long:  `record an edit: the editable version gets a new minor version, otherwise a new version is created from the latest one`,
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				v, err := app.Service.SaveEntityVersion(ctx, f, rootID, languages, request(lockVersion))
				if err != nil {
					return err
				}

				printVersion(ctx, app, v)
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&rootID, "root-id", "r", "", "root id (required)")
	command.Flags().StringSliceVarP(&languages, "languages", "l", nil, "languages to add")
	command.Flags().Int64Var(&lockVersion, "lock", -1, "lock version the edit is based on")

	return command
}

type transitionFunc func(ctx context.Context, app *server.App, family domain.Family, versionID string, req service.Request) (*model.EntityVersion, error)

func transitionCmd(use, short string, transition transitionFunc) *cobra.Command {
	var family string
	var versionID string
	var lockVersion int64

	var required = []string{"version-id"}

	command := &cobra.Command{
		Use:     use,
		Short:   short,
		Example: fmt.Sprintf("catalog entity %s -f service -v <version-id>", use),
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				v, err := transition(ctx, app, f, versionID, request(lockVersion))
				if err != nil {
					return err
				}

				printVersion(ctx, app, v)
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&versionID, "version-id", "v", "", "version id (required)")
	command.Flags().Int64Var(&lockVersion, "lock", -1, "lock version the change is based on")

	return command
}

func deleteEntityCmd() *cobra.Command {
	var family string
	var versionID string
	var action string
	var expireMonths int

	var required = []string{"version-id"}

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete, remove or archive a version",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				var months *int
				if cmd.Flag("expire-months").Changed {
					months = &expireMonths
				}

				v, err := app.Service.ChangeEntityVersionedToDeleted(ctx, f, versionID, publishing.Action(action), months, nil, request(-1))
				if err != nil {
					return err
				}

				printVersion(ctx, app, v)
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&versionID, "version-id", "v", "", "version id (required)")
	command.Flags().StringVarP(&action, "action", "a", string(publishing.ActionDelete), "Delete, Remove or Archive")
	command.Flags().IntVar(&expireMonths, "expire-months", 0, "expire the version after this many months")

	return command
}

func scheduleEntityCmd() *cobra.Command {
	var family string
	var versionID string
	var validFrom string
	var validTo string

	var required = []string{"version-id"}

	command := &cobra.Command{
		Use:     "schedule",
		Short:   "schedule the publishing and archiving of a version",
		Example: "catalog entity schedule -f service -v <version-id> --from 2025-01-01T00:00:00Z --to 2025-12-31T00:00:00Z",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}
				from, err := parseTime(validFrom)
				if err != nil {
					return err
				}
				to, err := parseTime(validTo)
				if err != nil {
					return err
				}

				v, err := app.Service.SetSchedule(ctx, f, versionID, from, to, request(-1))
				if err != nil {
					return err
				}

				printVersion(ctx, app, v)
				printField("Publish at", formatTime(v.ValidFrom))
				printField("Archive at", formatTime(v.ValidTo))
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&versionID, "version-id", "v", "", "version id (required)")
	command.Flags().StringVar(&validFrom, "from", "", "publish time (RFC3339)")
	command.Flags().StringVar(&validTo, "to", "", "archive time (RFC3339)")

	return command
}

func copyEntityCmd() *cobra.Command {
	var family string
	var rootIDs []string
	var organizationID string

	var required = []string{"root-id", "organization"}

	command := &cobra.Command{
		Use:   "copy",
		Short: "copy entities to an organization",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				copies, err := app.Service.ExecuteCopyEntities(ctx, f, rootIDs, organizationID, request(-1))
				if err != nil {
					return err
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.SetHeader([]string{"Source", "Copy"})
				for i, id := range copies {
					table.Append([]string{rootIDs[i], id})
				}
				table.Render()
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringSliceVarP(&rootIDs, "root-id", "r", nil, "root ids to copy (required)")
	command.Flags().StringVarP(&organizationID, "organization", "o", "", "target organization id (required)")

	return command
}

func archiveEntitiesCmd() *cobra.Command {
	var family string
	var rootIDs []string
	var restore bool

	var required = []string{"root-id"}

	command := &cobra.Command{
		Use:   "archive-all",
		Short: "archive or restore whole entities",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				var results []service.ItemResult
				if restore {
					results, err = app.Service.ExecuteRestoreEntities(ctx, f, rootIDs, nil, request(-1))
				} else {
					results, err = app.Service.ExecuteArchiveEntities(ctx, f, rootIDs, request(-1))
				}
				if err != nil {
					return err
				}

				printResults(results)
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringSliceVarP(&rootIDs, "root-id", "r", nil, "root ids (required)")
	command.Flags().BoolVar(&restore, "restore", false, "restore instead of archive")

	return command
}

func connectEntityCmd() *cobra.Command {
	var serviceRootID string
	var channelRootID string
	var mandatory bool

	var required = []string{"service", "channel"}

	command := &cobra.Command{
		Use:   "connect",
		Short: "connect a service to a service channel",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				connection, err := app.Service.Connect(ctx, serviceRootID, channelRootID, mandatory)
				if err != nil {
					return err
				}

				color.Green("connected: %d\n", connection.ID)
				return nil
			})
		},
	}

	command.Flags().StringVarP(&serviceRootID, "service", "s", "", "service root id (required)")
	command.Flags().StringVarP(&channelRootID, "channel", "c", "", "service channel root id (required)")
	command.Flags().BoolVar(&mandatory, "mandatory", false, "the connection may not be removed by cascades")

	return command
}

func showEntityCmd() *cobra.Command {
	var family string
	var rootID string

	var required = []string{"root-id"}

	command := &cobra.Command{
		Use:   "show",
		Short: "show the versions of an entity",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				versions, err := app.Service.ListVersions(ctx, f, rootID)
				if err != nil {
					return err
				}

				entities := make([]domain.MultilingualEntity, len(versions))
				for i, v := range versions {
					entities[i] = v
				}
				availabilities := app.Service.GetLanguageAvailabilities(entities)
				now := timeNow()

				table := tablewriter.NewWriter(os.Stdout)
				table.SetHeader([]string{"ID", "Version", "Status", "Languages", "Expires", "Lock"})
				for i, v := range versions {
					var languages []string
					for _, la := range availabilities[i] {
						languages = append(languages, la.GetLanguage()+":"+la.GetStatus())
					}

					expireOn, err := app.Service.GetExpirationDate(ctx, f, v)
					if err != nil {
						return err
					}
					expires := formatTime(expireOn)
					if service.GetIsWarningVisible(expireOn, now, app.Config.WarningWindow) {
						expires = color.YellowString(expires)
					}

					table.Append([]string{v.ID, versionNumber(ctx, app, v), v.Status, strings.Join(languages, " "), expires, strconv.FormatInt(v.LockVersion, 10)})
				}
				table.Render()

				if published, err := app.Service.GetPublishedVersion(ctx, f, rootID); err == nil {
					printField("Published", published.ID)
				}
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&rootID, "root-id", "r", "", "root id (required)")

	return command
}

func historyEntityCmd() *cobra.Command {
	var versionID string

	var required = []string{"version-id"}

	command := &cobra.Command{
		Use:   "history",
		Short: "show the history of a version",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				history, err := app.Service.ListHistory(ctx, versionID)
				if err != nil {
					return err
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.SetHeader([]string{"Time", "Action", "Language", "From", "To", "Actor", "Prior"})
				for _, entry := range history {
					prior := "-"
					state, err := service.DecodeHistorySnapshot(entry)
					if err != nil {
						logrus.Warn(err)
					} else if state != nil {
						prior = string(state.Status)
					}
					table.Append([]string{formatTime(&entry.ModifiedAt), entry.Action, entry.Language, entry.FromStatus, entry.ToStatus, entry.Actor, prior})
				}
				table.Render()
				return nil
			})
		},
	}

	command.Flags().StringVarP(&versionID, "version-id", "v", "", "version id (required)")

	return command
}

func versionNumber(ctx context.Context, app *server.App, v *model.EntityVersion) string {
	if v.VersioningID == nil {
		return "-"
	}
	record, err := app.Store.GetVersioning(ctx, *v.VersioningID)
	if err != nil {
		return "?"
	}

	return record.Version()
}

func printVersion(ctx context.Context, app *server.App, v *model.EntityVersion) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Root", "ID", "Version", "Status", "Lock"})
	table.Append([]string{v.RootID, v.ID, versionNumber(ctx, app, v), v.Status, strconv.FormatInt(v.LockVersion, 10)})
	table.Render()
}
