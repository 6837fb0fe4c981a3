package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/TxnLab/lpstaking/internal/lib/events"
)

func GetEventsCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "events",
		Aliases: []string{"e"},
		Usage:   "Display the recorded event history of the pool, newest first",
		Before:  initControllers,
		Action:  EventsList,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Only events for this depositor",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of events to show",
				Value: 50,
			},
		},
	}
}

func EventsList(ctx context.Context, cmd *cli.Command) error {
	records, err := App.eventDB.Query(ctx, App.cfg.PoolID, cmd.String("owner"), int(cmd.Int("limit")))
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayEvents(App.out, records)
	return nil
}

func displayEvents(out io.Writer, records []events.Record) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Seq\tTime\tKind\tOwner\tData\t")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", rec.Seq, formatTime(rec.Time), rec.Kind, rec.Owner, rec.Data)
	}
	tw.Flush()
}
