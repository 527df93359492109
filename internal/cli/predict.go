package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/nestling/internal/services"
)

func predictCmd(envPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [key...]",
		Short: "Print current predictions",
		Long: `Print the next expected time for each pattern key.
Keys: feed, diaperWet, diaperDirty, sleepStart, sleepWake, pump. Without
arguments every key is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRuntime(envPath(), nil)
			if err != nil {
				return err
			}
			defer env.close()
			return RunPredict(cmd.OutOrStdout(), env.tracker, args)
		},
	}
}

// RunPredict writes one line per key: key, local time, confidence and basis.
func RunPredict(out io.Writer, tracker *services.Tracker, rawKeys []string) error {
	keys := services.PatternKeys()
	if len(rawKeys) > 0 {
		keys = keys[:0:0]
		for _, raw := range rawKeys {
			key, ok := services.ParsePatternKey(strings.TrimSpace(raw))
			if !ok {
				return fmt.Errorf("unknown prediction key %q", raw)
			}
			keys = append(keys, key)
		}
	}

	for _, key := range keys {
		prediction := tracker.Predict(key)
		if _, err := fmt.Fprintln(out, formatPrediction(prediction, tracker.Location())); err != nil {
			return err
		}
	}
	return nil
}

func formatPrediction(prediction services.Prediction, location *time.Location) string {
	if !prediction.HasTime() {
		return fmt.Sprintf("%-12s -", prediction.Key)
	}
	confidence := string(prediction.Confidence)
	if confidence == "" {
		confidence = "-"
	}
	return fmt.Sprintf("%-12s %s  %-6s %s",
		prediction.Key,
		prediction.At.In(location).Format("2006-01-02 15:04"),
		confidence,
		prediction.Basis,
	)
}
