package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/hookbus/internal/clidisplay"
	"github.com/dyluth/hookbus/pkg/hook"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List every hook connected to the group",
	RunE:  runPeers,
}

func init() {
	rootCmd.AddCommand(peersCmd)
}

func runPeers(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h := hook.New(hook.Options{
		Name: "hookctl",
		Type: "hookctl",
		Host: host,
		Port: port,
	})
	if err := h.Start(ctx); err != nil {
		return err
	}
	defer h.Stop(context.Background())
	if h.Role() != hook.RoleClient {
		return fmt.Errorf("hookctl: no hook group is listening on %s:%d", host, port)
	}

	peers, err := h.Peers(ctx)
	if err != nil {
		return err
	}

	rows := make([]clidisplay.PeerRow, 0, len(peers))
	for _, p := range peers {
		rows = append(rows, clidisplay.PeerRow{
			Name:          p.Name,
			Type:          p.Type,
			RemoteAddress: p.RemoteAddress,
			RemotePort:    p.RemotePort,
			Subscriptions: p.Subscriptions,
		})
	}
	clidisplay.PrintPeerTable(os.Stdout, rows)
	return nil
}
