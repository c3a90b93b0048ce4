package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/jessyrel/wedding-rsvp/internal/app"
	"github.com/jessyrel/wedding-rsvp/internal/config"
	"github.com/jessyrel/wedding-rsvp/internal/logging"
	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

const usage = `usage: rsvp-admin [flags] <command>

commands:
  list          print every RSVP
  stats         print attendance statistics
  init          create or repair the configured store
  verify-mail   connect to the SMTP server and authenticate

flags:
`

// errUsage is returned for an unknown or missing command.
var errUsage = errors.New("unknown command")

// verifier is implemented by senders that can test their connection.
type verifier interface {
	Verify(ctx context.Context) error
}

func main() {
	fs := flag.NewFlagSet("rsvp-admin", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "overall command timeout")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(ctx, a, fs.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}

	switch args[0] {
	case "list":
		records, err := a.Store.ReadAll(ctx)
		if err != nil {
			return err
		}
		printRecords(out, records, a.Config.Event.Location())
		return nil
	case "stats":
		stats, err := a.Store.Statistics(ctx)
		if err != nil {
			return err
		}
		printStatistics(out, stats)
		return nil
	case "init":
		if err := a.Store.Initialize(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s store ready\n", a.Config.Store.Driver)
		return nil
	case "verify-mail":
		v, ok := a.Sender.(verifier)
		if !ok {
			return errors.New("no SMTP server configured (EMAIL_HOST is empty)")
		}
		if err := v.Verify(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "connected to %s:%d\n", a.Config.Mail.Host, a.Config.Mail.Port)
		return nil
	default:
		return fmt.Errorf("%w %q", errUsage, args[0])
	}
}

func printRecords(w io.Writer, records []rsvp.Record, loc *time.Location) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Email", "Phone", "Attending", "Guests", "Dietary", "Message", "Received"})
	table.SetAutoWrapText(false)
	for _, r := range records {
		guests := ""
		if r.Attending {
			guests = strconv.Itoa(r.GuestCount())
		}
		attending := "no"
		if r.Attending {
			attending = "yes"
		}
		table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			r.Email,
			r.Phone,
			attending,
			guests,
			r.DietaryRestrictions,
			r.Message,
			r.Timestamp.In(loc).Format("2006-01-02 15:04"),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "", "Total", strconv.Itoa(len(records))})
	table.Render()
}

func printStatistics(w io.Writer, stats rsvp.Statistics) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Count"})
	table.AppendBulk([][]string{
		{"Responses", strconv.Itoa(stats.Total)},
		{"Attending", strconv.Itoa(stats.Attending)},
		{"Not attending", strconv.Itoa(stats.NotAttending)},
		{"Total guests", strconv.Itoa(stats.TotalGuests)},
	})
	table.Render()
}
