package commands

import (
	"fmt"
	"time"

	"ejudge-client/internal/components/chrono"
	"ejudge-client/internal/components/telemetry"
	"ejudge-client/internal/scrapers/ejudge"
	"ejudge-client/internal/stalker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	onlineWatch    *bool
	onlineSpec     *string
	onlineMatch    *[]string
	onlineProfiles *bool
)

func init() {
	onlineWatch = onlineCmd.Flags().Bool("watch", false, "Keep polling and print who comes and goes.")
	onlineSpec = onlineCmd.Flags().String("every", "@every 5s", "The cron spec of the polls when watching.")
	onlineMatch = onlineCmd.Flags().StringArray("match", nil, "Only report users whose name contains this.")
	onlineProfiles = onlineCmd.Flags().Bool("profiles", false, "Fetch the full profile of every user seen.")
	rootCmd.AddCommand(onlineCmd)
}

func printOnline(users []ejudge.UserActivity, now time.Time) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Username", "Name", "Last seen", "Page"})
	for _, u := range users {
		lastSeen := u.LastSeenText
		if u.LastSeen != nil {
			lastSeen = formatTime(u.LastSeen, now)
		}
		t.AppendRow(table.Row{u.Account.ID, u.Account.Username, u.Account.Fullname, lastSeen, u.CurrentURL})
	}
	t.Render()
}

func printSnapshot(snapshot stalker.Snapshot) {
	stamp := snapshot.At.Format(time.TimeOnly)
	for _, sighting := range snapshot.Sightings {
		if !sighting.New {
			continue
		}
		line := fmt.Sprintf("%s + %s (%s) on %s", stamp, sighting.Account.Username, sighting.Account.Fullname, sighting.Activity.CurrentURL)
		if sighting.Account.Email != "" {
			line += " " + sighting.Account.Email
		}
		fmt.Println(line)
	}
	for _, account := range snapshot.Left {
		fmt.Printf("%s - %s (%s)\n", stamp, account.Username, account.Fullname)
	}
}

var onlineCmd = &cobra.Command{
	Use:   "online [--watch]",
	Short: "Lists the users currently online.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if !*onlineWatch {
			users, err := current.client.OnlineUsers(ctx)
			if err != nil {
				fatal("failed to get online users", err)
			}
			printOnline(users, current.clock.Now())
			return
		}

		telemetry.InstrumentPerfStats(ctx, 30*time.Second)

		cron := chrono.NewStandardCron(current.tel, current.clock.Location())
		defer cron.Stop()

		watcher, err := stalker.New(current.client, cron, current.clock, stalker.Options{
			Spec:          *onlineSpec,
			Watch:         *onlineMatch,
			FetchProfiles: *onlineProfiles,
		}, current.tel)
		if err != nil {
			fatal("failed to create the watcher", err)
		}
		defer watcher.Close()

		snapshot, err := watcher.Poll(ctx)
		if err != nil {
			fatal("failed to get online users", err)
		}
		printSnapshot(snapshot)

		stop, err := watcher.Start(ctx, printSnapshot)
		if err != nil {
			fatal("failed to start watching", err)
		}
		defer stop()

		<-ctx.Done()
	},
}
