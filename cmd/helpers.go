package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/emrgen/servicecatalog/internal/config"
	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/server"
	"github.com/emrgen/servicecatalog/internal/service"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// openApp wires the engine against the configured database.
func openApp(ctx context.Context) (*server.App, error) {
	cfg := config.LoadConfig()
	return server.NewApp(ctx, cfg, config.GetDb(cfg))
}

// runWithApp opens the engine, runs the command and reports its error.
func runWithApp(run func(ctx context.Context, app *server.App) error) {
	ctx := context.Background()
	app, err := openApp(ctx)
	if err != nil {
		logrus.Error(err)
		return
	}
	defer func() {
		if err := app.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	if err := run(ctx, app); err != nil {
		printError(err)
	}
}

func timeNow() time.Time {
	return time.Now().UTC()
}

func actor() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}

	return "cli"
}

func request(lockVersion int64) service.Request {
	req := service.Request{Actor: actor()}
	if lockVersion >= 0 {
		req.LockVersion = &lockVersion
	}

	return req
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()

	return &t, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Format(time.RFC3339)
}

func printField(label, value string) {
	color.Set(color.FgCyan)
	fmt.Print(label)
	color.Unset()
	fmt.Printf(": %s\n", value)
}

func printError(err error) {
	color.Red("%s: %v\n", service.ReasonCode(err), err)
}

func printResults(results []service.ItemResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Root", "Version", "Status", "Reason"})
	for _, r := range results {
		table.Append([]string{r.RootID, r.VersionID, r.Status, r.Reason})
	}
	table.Render()
}

func familyFlag(command *cobra.Command, family *string) {
	names := make([]string, len(domain.Families))
	for i, f := range domain.Families {
		names[i] = f.String()
	}
	command.Flags().StringVarP(family, "family", "f", domain.FamilyService.String(), "entity family: "+strings.Join(names, ", "))
}

// checkMissingFlags checks if the required flags are set and returns ok if they are set
func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			provided := strings.Join(providedFlags, " ")
			color.Green("provide: %s\n", provided)
		}

		cmd.Println("")

		_ = cmd.Usage()

		return true
	}

	return false
}
