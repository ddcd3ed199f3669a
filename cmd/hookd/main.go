// Command hookd runs a single hook on the network: it either binds the
// configured address and becomes the broker for its group, or connects to
// whoever already bound it and becomes a peer, entirely determined at
// start time by which one got there first.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/hookbus/cmd/hookd/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersionInfo(version, commit)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logrus.WithField("signal", sig).Info("shutting down")
		cancel()
	}()
	defer cancel()

	if err := commands.Execute(ctx); err != nil {
		logrus.WithError(err).Error("hookd exited with error")
		os.Exit(1)
	}
}
