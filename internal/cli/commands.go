package cli

import (
	"github.com/spf13/cobra"
	"github.com/terraincognita07/nestling/internal/config"
)

// New returns the nestling root command.
func New() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "nestling",
		Short:         "Infant care tracker with pattern predictions and alarms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultDotEnvPath, "dotenv file merged into the environment")

	envPath := func() string { return envFile }
	cmd.AddCommand(serveCmd(envPath))
	cmd.AddCommand(predictCmd(envPath))
	cmd.AddCommand(alarmsCmd(envPath))
	return cmd
}
