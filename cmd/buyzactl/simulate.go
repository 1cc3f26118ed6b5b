package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/flow"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/messages"
	"github.com/munashe04/buyza/pkg/session"
	"github.com/munashe04/buyza/pkg/sheets"
	"github.com/munashe04/buyza/pkg/whatsapp"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate <from> <message>",
	Short: "Send a customer message through the bot",
	Long: `Send a customer message through the bot.

By default the message is posted to a running server's /chatbot/simulate
endpoint and the replies are sent to WhatsApp as usual.

With --offline the conversation runs in process against an in-memory
ledger and the replies are printed instead of sent. Pass "-" as the
message to read one message per line from stdin.

Example:
  buyzactl simulate 263771234567 hi
  buyzactl simulate 263771234567 "Order: Shoes R850 Delivery: Gweru" --url http://localhost:3000
  buyzactl simulate 263771234567 - --offline`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		offline, _ := cmd.Flags().GetBool("offline")
		url, _ := cmd.Flags().GetString("url")

		var err error
		if offline {
			log.Configure(log.Config{Level: "warn", Output: os.Stderr})
			audit.SetEnabled(false)
			err = simulateOffline(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], args[1])
		} else {
			err = simulateRemote(cmd.Context(), cmd.OutOrStdout(), url, args[0], args[1])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Simulation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("url", fmt.Sprintf("http://localhost:%d", defaultPortInt()), "Server base URL")
	simulateCmd.Flags().Bool("offline", false, "Run the conversation in process and print the replies")
}

type simulateRequest struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

func simulateRemote(ctx context.Context, out io.Writer, baseURL, from, message string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(simulateRequest{From: from, Message: message})
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/chatbot/simulate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(reply)))
	}
	_, err = fmt.Fprintln(out, strings.TrimSpace(string(reply)))
	return err
}

// printSender writes outbound messages instead of sending them
type printSender struct {
	out io.Writer
}

var _ whatsapp.Sender = printSender{}

func (p printSender) SendText(_ context.Context, to, body string) (*whatsapp.SendResponse, error) {
	_, err := fmt.Fprintf(p.out, "bot -> %s:\n%s\n\n", to, body)
	if err != nil {
		return nil, err
	}
	return &whatsapp.SendResponse{MessagingProduct: "whatsapp"}, nil
}

func simulateOffline(ctx context.Context, in io.Reader, out io.Writer, from, message string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ledger := sheets.NewLedger(sheets.NewMemoryValues())
	if err := ledger.EnsureTabs(ctx); err != nil {
		return err
	}
	svc := flow.NewService(flow.Config{
		Ledger:   ledger,
		Sessions: session.NewMemoryStore(0),
		Messages: messages.Default(),
		Sender:   printSender{out: out},
	})

	send := func(text string) error {
		payload := whatsapp.SimulatedPayload(from, text, time.Now())
		return svc.HandleIncoming(ctx, &payload)
	}

	if message != "-" {
		return send(message)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := send(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
