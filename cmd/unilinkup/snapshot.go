package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/store"
)

const timestampLayout = "2006-01-02 15:04"

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Work with snapshot files",
	}
	cmd.AddCommand(newSnapshotInspectCmd())
	return cmd
}

func newSnapshotInspectCmd() *cobra.Command {
	var pingLimit int
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the sessions and pings held in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectSnapshot(cmd, args[0], pingLimit)
		},
	}
	cmd.Flags().IntVar(&pingLimit, "pings", 20, "newest pings to list (0 lists all)")
	return cmd
}

func inspectSnapshot(cmd *cobra.Command, path string, pingLimit int) error {
	snap, err := store.ReadSnapshot(path)
	if err != nil {
		return err
	}
	// A scratch store applies the same history bound the bot would.
	scratch := store.New(store.Options{MaxPingHistory: snap.MaxPingHistory})
	res, err := scratch.LoadSnapshot(cmd.Context(), path)
	if err != nil {
		return err
	}
	if !res.Found {
		return errors.New("snapshot disappeared while loading")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "snapshot %s (version %s, saved %s)\n", path, versionOf(snap), savedAt(snap))
	renderSessions(out, scratch.Sessions())
	pings := scratch.RecentPings(0)
	renderPings(out, pings, pingLimit)
	renderSummary(out, meetup.Summarize(pings))
	return nil
}

func versionOf(s store.Snapshot) string {
	if s.Version == "" {
		return "unversioned"
	}
	return s.Version
}

func savedAt(s store.Snapshot) string {
	if s.SavedAt.IsZero() {
		return "unknown"
	}
	return s.SavedAt.Format(timestampLayout)
}

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func renderSessions(out io.Writer, sessions []meetup.Session) {
	t := newTable(out, fmt.Sprintf("Sessions (%d)", len(sessions)))
	t.AppendHeader(table.Row{"User", "Name", "State", "Type", "Location", "Time", "Friends", "Last activity"})
	for _, s := range sessions {
		t.AppendRow(table.Row{
			s.UserID,
			s.DisplayName,
			s.State,
			s.Type,
			s.Location,
			s.TimeValue(),
			strings.Join(s.SelectedFriends, ", "),
			s.LastActivity.Format(timestampLayout),
		})
	}
	t.Render()
}

func renderPings(out io.Writer, pings []meetup.Ping, limit int) {
	shown := pings
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	t := newTable(out, fmt.Sprintf("Pings (%d of %d, newest first)", len(shown), len(pings)))
	t.AppendHeader(table.Row{"Sent", "Organizer", "Type", "Location", "Time", "Invited"})
	for _, p := range shown {
		t.AppendRow(table.Row{
			p.CreatedAt.Format(timestampLayout),
			p.OrganizerName,
			p.Type,
			p.Location,
			p.Time,
			strings.Join(p.InvitedFriends, ", "),
		})
	}
	t.Render()
}

func renderSummary(out io.Writer, sum meetup.Summary) {
	t := newTable(out, "Summary")
	t.AppendRows([]table.Row{
		{"Total pings", sum.Total},
		{"Lunch", sum.Lunch},
		{"Study", sum.Study},
		{"Unique organizers", sum.UniqueOrganizers},
		{"Unique locations", sum.UniqueLocations},
	})
	if sum.PopularLocation != "" {
		t.AppendRow(table.Row{"Most popular location", fmt.Sprintf("%s (%d)", sum.PopularLocation, sum.PopularCount)})
	}
	t.Render()
}
