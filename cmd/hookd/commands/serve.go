package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyluth/hookbus/internal/auxredis"
	"github.com/dyluth/hookbus/internal/hookconfig"
	"github.com/dyluth/hookbus/internal/spawner"
	"github.com/dyluth/hookbus/pkg/hook"
)

var (
	configPath string
	project    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start this hook and block until it is stopped",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "hookbus.yml", "path to the hook's YAML configuration")
	serveCmd.Flags().StringVar(&project, "project", "hookbus", "label used to group any spawned child containers")
	rootCmd.AddCommand(serveCmd)
	// serve is also the default action when hookd is invoked bare.
	rootCmd.RunE = runServe
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := hookconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("hookd: %w", err)
	}

	opts := cfg.ToOptions()
	opts.Version = version
	opts.Logger = logrusLogger{}

	if len(opts.Hooks) > 0 {
		sp, err := spawner.NewDockerSpawner(runCtx, project)
		if err != nil {
			return fmt.Errorf("hookd: %w", err)
		}
		defer sp.Close()
		opts.Spawner = sp
	}

	h := hook.New(opts)
	h.On("hook::listening", func(data any, reply hook.ReplyFunc) {
		logrus.WithField("addr", data).Info("listening, acting as broker")
	})
	h.On("hook::connected", func(data any, reply hook.ReplyFunc) {
		logrus.WithField("broker", data).Info("connected, acting as peer")
	})
	h.On("hook::disconnected", func(data any, reply hook.ReplyFunc) {
		logrus.WithField("peer", data).Warn("disconnected")
	})

	if err := h.Start(runCtx); err != nil {
		return fmt.Errorf("hookd: start: %w", err)
	}
	logrus.WithField("name", h.Name()).Info("hook started")

	<-runCtx.Done()
	return h.Stop(context.Background())
}

// logrusLogger adapts hook.Logger onto a structured logrus field.
type logrusLogger struct{}

func (logrusLogger) Log(topic string, data any) {
	logrus.WithField("topic", topic).WithField("data", data).Debug("emit")
}

var _ = auxredis.TypeName // keep the redis driver's init() linked in
