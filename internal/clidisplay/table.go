package clidisplay

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// PeerRow is the display-ready shape of one connected peer, independent of
// the registry's own PeerRecord so this package never needs to import the
// hook package directly.
type PeerRow struct {
	Name          string
	Type          string
	RemoteAddress string
	RemotePort    int
	Subscriptions []string
}

// PrintPeerTable renders peers to w as an aligned table, sorted by name,
// one row per peer with its subscription patterns joined onto a single
// column.
func PrintPeerTable(w io.Writer, peers []PeerRow) {
	sorted := append([]PeerRow(nil), peers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "TYPE", "REMOTE", "SUBSCRIPTIONS"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, p := range sorted {
		remote := fmt.Sprintf("%s:%d", p.RemoteAddress, p.RemotePort)
		table.Append([]string{p.Name, p.Type, remote, strings.Join(p.Subscriptions, ", ")})
	}

	table.Render()
}
