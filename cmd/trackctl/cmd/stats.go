package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show delivery statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data, status, err := newAPI().do(ctx, "GET", "/v1/stats", nil)
		if err != nil {
			return err
		}
		if status != 200 {
			return fmt.Errorf("relay answered status %d: %s", status, string(data))
		}

		if jsonOutput {
			fmt.Println(string(data))
			return nil
		}

		var snap struct {
			TotalProcessed          uint64  `json:"total_processed"`
			Succeeded               uint64  `json:"succeeded"`
			Failed                  uint64  `json:"failed"`
			DuplicatesPrevented     uint64  `json:"duplicates_prevented"`
			AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
		}
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("parse stats: %w", err)
		}

		fmt.Println(renderStats(snap.TotalProcessed, snap.Succeeded, snap.Failed, snap.DuplicatesPrevented, snap.AverageProcessingTimeMs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
