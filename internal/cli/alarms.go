package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/nestling/internal/services"
)

func alarmsCmd(envPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alarms",
		Short: "Inspect and control alarms",
	}
	cmd.AddCommand(alarmsResumeCmd(envPath))
	return cmd
}

func alarmsResumeCmd(envPath func() string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Clear the global alarm pause",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(envPath(), nil)
			if err != nil {
				return err
			}
			defer env.close()
			return RunResumeAlarms(cmd.OutOrStdout(), env.tracker, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "also drop every snooze")
	return cmd
}

func RunResumeAlarms(out io.Writer, tracker *services.Tracker, force bool) error {
	_, paused := tracker.Alarms()
	if err := tracker.ResumeAlarms(force); err != nil {
		return fmt.Errorf("resume alarms: %w", err)
	}

	switch {
	case !paused && !force:
		fmt.Fprintln(out, "Alarms were not paused")
	case force:
		fmt.Fprintln(out, "✅ Alarms resumed, snoozes cleared")
	default:
		fmt.Fprintln(out, "✅ Alarms resumed")
	}
	return nil
}
