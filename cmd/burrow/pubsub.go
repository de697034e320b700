package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/burrow/pkg/client"
	"github.com/cuemby/burrow/pkg/config"
)

func brokerAddr(cmd *cobra.Command) string {
	if cmd.Flags().Changed("addr") {
		addr, _ := cmd.Flags().GetString("addr")
		return addr
	}
	cfg, err := config.Load()
	if err != nil {
		return "127.0.0.1:9876"
	}
	return cfg.ListenAddress
}

var publishCmd = &cobra.Command{
	Use:   "publish <topic> <payload>",
	Short: "Publish a payload to a topic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.Dial(brokerAddr(cmd))
		if err != nil {
			return err
		}
		defer c.Close()

		return c.Publish(args[0], []byte(args[1]))
	},
}

// receivedEvent is the CLI rendering of one delivered event.
type receivedEvent struct {
	Topic   string `json:"topic" yaml:"topic"`
	Payload string `json:"payload" yaml:"payload"`
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <topic> [topic...]",
	Short: "Subscribe to topics and print received events",
	Long: `Subscribe to one or more topics and print each received event until
interrupted. The --output flag selects raw, json, or yaml rendering.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != "raw" && output != "json" && output != "yaml" {
			return fmt.Errorf("unknown output format %q", output)
		}

		c, err := client.Dial(brokerAddr(cmd))
		if err != nil {
			return err
		}
		defer c.Close()

		for _, topic := range args {
			if err := c.Subscribe(topic); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		for {
			msg, err := c.Receive(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			event := receivedEvent{
				Topic:   msg.Header.EventName,
				Payload: string(msg.Payload),
			}
			switch output {
			case "json":
				line, err := json.Marshal(event)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(line))
			case "yaml":
				doc, err := yaml.Marshal(event)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "---\n%s", doc)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", event.Topic, event.Payload)
			}
		}
	},
}

func init() {
	publishCmd.Flags().String("addr", "", "Broker address (default 127.0.0.1:9876, env BURROW_LISTEN)")
	subscribeCmd.Flags().String("addr", "", "Broker address (default 127.0.0.1:9876, env BURROW_LISTEN)")
	subscribeCmd.Flags().String("output", "raw", "Output format: raw, json, or yaml")
}
