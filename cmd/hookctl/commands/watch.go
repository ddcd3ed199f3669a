package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dyluth/hookbus/pkg/hook"
)

var watchCmd = &cobra.Command{
	Use:   "watch <pattern>",
	Short: "Tail every event matching a topic pattern",
	Long: `Tail every event matching pattern (e.g. "build::*" or "**") as it
arrives, printing the topic and its JSON payload one line at a time
until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	pattern := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	h := hook.New(hook.Options{Name: "hookctl", Type: "hookctl", Host: host, Port: port})
	// Registering under pattern (even with a no-op body) is what actually
	// announces the subscription to the broker; OnAny below does the
	// printing so the real matched topic is available, not just pattern.
	h.On(pattern, func(data any, reply hook.ReplyFunc) {})
	h.OnAny(func(topic string, data any) {
		if !hook.MatchesPattern(pattern, topic) {
			return
		}
		payload, _ := json.Marshal(data)
		fmt.Printf("%s %s\n", color.CyanString(topic), string(payload))
	})

	if err := h.Start(ctx); err != nil {
		return err
	}
	defer h.Stop(context.Background())
	if h.Role() != hook.RoleClient {
		return fmt.Errorf("hookctl: no hook group is listening on %s:%d", host, port)
	}

	fmt.Fprintf(os.Stderr, "watching %q as %s, ctrl-c to stop\n", pattern, h.Name())
	<-ctx.Done()
	return nil
}
