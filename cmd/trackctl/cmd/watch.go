package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	watchDownstream string
	watchKind       string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch delivery activity in real time",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := url.Values{}
		if watchDownstream != "" {
			q.Set("downstream", watchDownstream)
		}
		if watchKind != "" {
			q.Set("kind", watchKind)
		}
		path := "/v1/activity"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		resp, err := newAPI().stream(ctx, path)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		m := newWatchModel()
		p := tea.NewProgram(m)

		go func() {
			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "data:") {
					continue
				}
				var a activity
				if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &a); err != nil {
					continue
				}
				p.Send(activityMsg(a))
			}
			p.Send(streamClosedMsg{})
		}()

		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDownstream, "downstream", "", "filter by downstream name")
	watchCmd.Flags().StringVar(&watchKind, "kind", "", "filter by event kind")
}
