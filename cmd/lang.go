package cmd

import (
	"context"
	"strconv"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/server"
	"github.com/emrgen/servicecatalog/internal/service"
	"github.com/spf13/cobra"
)

var langCmd = &cobra.Command{
	Use:   "lang",
	Short: "per language publishing commands",
}

type languageFunc func(ctx context.Context, app *server.App, family domain.Family, versionID, language string, req service.Request) (*model.EntityVersion, error)

func init() {
	langCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	langCmd.AddCommand(languageCmd("archive", "archive one language of a version",
		func(ctx context.Context, app *server.App, family domain.Family, versionID, language string, req service.Request) (*model.EntityVersion, error) {
			return app.Service.ArchiveLanguage(ctx, family, versionID, language, req)
		}))
	langCmd.AddCommand(languageCmd("restore", "restore an archived or withdrawn language",
		func(ctx context.Context, app *server.App, family domain.Family, versionID, language string, req service.Request) (*model.EntityVersion, error) {
			return app.Service.RestoreLanguage(ctx, family, versionID, language, req)
		}))
	langCmd.AddCommand(languageCmd("withdraw", "withdraw one published language",
		func(ctx context.Context, app *server.App, family domain.Family, versionID, language string, req service.Request) (*model.EntityVersion, error) {
			return app.Service.WithdrawLanguage(ctx, family, versionID, language, req)
		}))
	langCmd.AddCommand(listLanguagesCmd())
}

func languageCmd(use, short string, change languageFunc) *cobra.Command {
	var family string
	var versionID string
	var language string
	var lockVersion int64

	var required = []string{"version-id", "language"}

	command := &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			runWithApp(func(ctx context.Context, app *server.App) error {
				f, err := domain.ParseFamily(family)
				if err != nil {
					return err
				}

				v, err := change(ctx, app, f, versionID, language, request(lockVersion))
				if err != nil {
					return err
				}

				printVersion(ctx, app, v)
				for _, la := range v.LanguageAvailabilities {
					printField(la.Language, la.Status)
				}
				return nil
			})
		},
	}

	familyFlag(command, &family)
	command.Flags().StringVarP(&versionID, "version-id", "v", "", "version id (required)")
	command.Flags().StringVarP(&language, "language", "l", "", "language code (required)")
	command.Flags().Int64Var(&lockVersion, "lock", -1, "lock version the change is based on")

	return command
}

func listLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list the supported languages",
		Run: func(cmd *cobra.Command, args []string) {
			runWithApp(func(ctx context.Context, app *server.App) error {
				for i, code := range app.Languages.Get().Codes() {
					printField(strconv.Itoa(i+1), code)
				}
				return nil
			})
		},
	}
}
