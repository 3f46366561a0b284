package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sendKind        string
	sendAmount      float64
	sendCurrency    string
	sendEmail       string
	sendPhone       string
	sendTransaction string
	sendProductID   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a test event to the relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]any{}
		if cmd.Flags().Changed("amount") {
			payload["amount"] = sendAmount
		}
		if sendCurrency != "" {
			payload["currency"] = sendCurrency
		}
		if sendEmail != "" {
			payload["email"] = sendEmail
		}
		if sendPhone != "" {
			payload["phone"] = sendPhone
		}
		if sendTransaction != "" {
			payload["transaction_id"] = sendTransaction
		}
		if sendProductID != "" {
			payload["product_id"] = sendProductID
		}

		body := map[string]any{
			"kind":        sendKind,
			"occurred_at": time.Now().UTC().Format(time.RFC3339),
			"payload":     payload,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data, status, err := newAPI().do(ctx, "POST", "/v1/events", body)
		if err != nil {
			return err
		}

		if jsonOutput {
			fmt.Println(string(data))
			return nil
		}

		var resp struct {
			Status      string `json:"status"`
			EventID     string `json:"event_id"`
			Fingerprint string `json:"fingerprint"`
			Error       string `json:"error"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("parse response (status %d): %w", status, err)
		}
		if resp.Error != "" {
			return fmt.Errorf("relay answered %d: %s", status, resp.Error)
		}

		fmt.Println(renderSendResult(resp.Status, resp.EventID, resp.Fingerprint))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendKind, "kind", "view_content", "event kind")
	sendCmd.Flags().Float64Var(&sendAmount, "amount", 0, "monetary amount")
	sendCmd.Flags().StringVar(&sendCurrency, "currency", "", "currency code")
	sendCmd.Flags().StringVar(&sendEmail, "email", "", "contact email")
	sendCmd.Flags().StringVar(&sendPhone, "phone", "", "contact phone")
	sendCmd.Flags().StringVar(&sendTransaction, "transaction", "", "external transaction id")
	sendCmd.Flags().StringVar(&sendProductID, "product", "", "product id")
}
