package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pterodactyl/hangar/config"
	"github.com/pterodactyl/hangar/filesystem"
	"github.com/pterodactyl/hangar/internal/database"
	"github.com/pterodactyl/hangar/loggers/cli"
	"github.com/pterodactyl/hangar/system"
)

var usersArgs struct {
	Activity string
	Limit    int
}

func newUsersCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "users",
		Short: "List registered users, their login state and storage usage.",
		PreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			log.SetHandler(cli.Default)
		},
		Run: usersCmdRun,
	}

	command.Flags().StringVar(&usersArgs.Activity, "activity", "", "print the most recent activity for the given user instead")
	command.Flags().IntVar(&usersArgs.Limit, "limit", 25, "the number of activity entries to print")

	return command
}

func usersCmdRun(cmd *cobra.Command, _ []string) {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Second*30)
	defer cancel()

	cfg := config.Get()
	if usersArgs.Activity != "" {
		if err := printActivity(ctx, cfg, usersArgs.Activity, usersArgs.Limit); err != nil {
			log.WithField("error", err).Fatal("failed to read user activity")
		}
		return
	}

	store := newCredentialStore(cfg)
	users, err := store.Users(ctx)
	if err != nil {
		log.WithField("error", err).Fatal("failed to read registered users")
		return
	}
	online, err := store.LoggedIn(ctx)
	if err != nil {
		log.WithField("error", err).Fatal("failed to read logged in users")
		return
	}
	active := make(map[string]bool, len(online))
	for _, u := range online {
		active[u] = true
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Username", "Logged In", "Usage"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, u := range users {
		usage := "-"
		if size, err := filesystem.New(cfg.System.Data, nil).DirectorySize(u); err == nil {
			usage = system.FormatBytes(size)
		}
		table.Append([]string{u, strconv.FormatBool(active[u]), usage})
	}
	table.Render()
	fmt.Printf("%d registered, %d logged in\n", len(users), len(online))
}

func printActivity(ctx context.Context, cfg *config.Configuration, user string, limit int) error {
	db, err := database.Open(cfg.System.DatabasePath())
	if err != nil {
		return err
	}
	activity, err := database.NewActivityStore(db).Recent(ctx, user, limit)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Timestamp", "Event", "IP", "Session", "Metadata"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, a := range activity {
		meta, _ := a.Metadata.Value()
		table.Append([]string{
			a.Timestamp.Local().Format(time.RFC3339),
			string(a.Event),
			a.IP,
			a.Session,
			fmt.Sprint(meta),
		})
	}
	table.Render()
	return nil
}
