package main

import (
	"encoding/json"
	"fmt"

	"github.com/go-zeromq/zmq4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pushkind/crawler-service/config"
	"github.com/pushkind/crawler-service/internal/dispatch"
)

var sendAddress string

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <envelope-json>",
	Short: "Send a control envelope to a running worker",
	Long: `Validate a JSON control envelope and push it to a worker's pull
socket. The worker picks it up like any other queued job.`,
	Example: `  crawler-service send '{"Crawler":{"Selector":"rusteaco"}}'
  crawler-service send '{"Benchmark":42}'
  crawler-service send --address tcp://10.0.0.5:5555 '{"CategoryMatch":7}'`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendAddress, "address", "", "Worker pull socket address (defaults to the configured one)")
}

func runSend(cmd *cobra.Command, args []string) error {
	payload := []byte(args[0])

	// Reject envelopes the worker would only log and drop.
	var env dispatch.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}

	address := sendAddress
	if address == "" {
		address = config.GetZMQAddress()
	}

	sock := zmq4.NewPush(cmd.Context())
	defer sock.Close()

	if err := sock.Dial(address); err != nil {
		return fmt.Errorf("failed to dial %s: %w", address, err)
	}

	if err := sock.Send(zmq4.NewMsg(payload)); err != nil {
		return fmt.Errorf("failed to send envelope: %w", err)
	}

	log.Info().
		Str("address", address).
		Str("kind", string(env.Kind())).
		Msg("Envelope sent")

	return nil
}
