package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "service catalog publishing tool",
	Example: `catalog entity create -f service -o <organization-id> -l fi,sv
catalog entity publish -f service -v <version-id>
catalog entity show -f service -r <root-id>
catalog entity copy -f service -r <root-id> -o <organization-id>
catalog lang archive -f service -v <version-id> -l sv
catalog policy set -o <organization-id> -f service --draft 6 --published 12
catalog jobs run`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(entityCmd)
	rootCmd.AddCommand(langCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
