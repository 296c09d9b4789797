// Command itam-export writes one CSV report from the ITAM backend using the
// same filters and formats as the dashboard gateway.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/example/itamdash/internal/config"
	"github.com/example/itamdash/internal/export"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/logger"
	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
)

type options struct {
	configPath string
	kind       string
	token      string
	out        string
	ticket     pipeline.TicketFilter
	from, to   string
	asset      pipeline.AssetFilter
	days       int
	severity   string
}

func main() {
	var opts options
	fs := pflag.NewFlagSet("itam-export", pflag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.StringVarP(&opts.kind, "kind", "k", "tickets", "report to write: tickets, stats, hardware or warranty")
	fs.StringVar(&opts.token, "token", os.Getenv("ITAM_TOKEN"), "bearer token used against the ITAM API")
	fs.StringVarP(&opts.out, "out", "o", ".", "output file, or directory for the default file name; - for stdout")
	fs.StringVar(&opts.ticket.Status, "status", pipeline.All, "ticket status filter")
	fs.StringVar(&opts.ticket.Priority, "priority", pipeline.All, "ticket priority filter")
	fs.StringVar(&opts.ticket.Category, "category", pipeline.All, "ticket category filter")
	fs.StringVar(&opts.ticket.DateRange, "date-range", pipeline.All, "today, week, month or quarter")
	fs.StringVar(&opts.ticket.AssignedTo, "assigned-to", pipeline.All, "assignee name or unassigned")
	fs.StringVar(&opts.ticket.SLA, "sla", pipeline.All, "yes or no to keep SLA compliant or breached tickets")
	fs.StringVar(&opts.from, "from", "", "first creation day to include (YYYY-MM-DD)")
	fs.StringVar(&opts.to, "to", "", "last creation day to include (YYYY-MM-DD)")
	fs.StringVar(&opts.asset.Filter, "filter", pipeline.All, "hardware filter: assigned, unassigned, desktop, laptop, server or a platform")
	fs.IntVar(&opts.days, "days", 30, "warranty horizon in days")
	fs.StringVar(&opts.severity, "severity", pipeline.All, "warranty alert severity")
	var search string
	fs.StringVarP(&search, "search", "s", "", "free text search")
	_ = fs.Parse(os.Args[1:])
	opts.ticket.Search = search
	opts.asset.Search = search

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "itam-export:", err)
		os.Exit(2)
	}
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := itam.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout).WithServiceToken(cfg.ServiceToken)
	if opts.token != "" {
		ctx = itam.WithToken(ctx, opts.token)
	}

	path, err := run(ctx, client, opts, time.Now(), log)
	if errors.Is(err, export.ErrNoRows) {
		log.Warn().Str("kind", opts.kind).Msg("nothing to export for these filters")
		os.Exit(1)
	}
	if err != nil {
		log.Error().Err(err).Str("kind", opts.kind).Msg("export failed")
		os.Exit(1)
	}
	log.Info().Str("kind", opts.kind).Str("file", path).Msg("export written")
}

// report renders one kind of export and names its file.
type report struct {
	filename string
	write    func(io.Writer) error
}

func run(ctx context.Context, client *itam.Client, opts options, now time.Time, log zerolog.Logger) (string, error) {
	rep, err := build(ctx, client, opts, now, log)
	if err != nil {
		return "", err
	}
	return writeReport(opts.out, rep)
}

func build(ctx context.Context, client *itam.Client, opts options, now time.Time, log zerolog.Logger) (report, error) {
	switch opts.kind {
	case "tickets", "stats":
		f := opts.ticket
		var err error
		if f.StartDate, err = parseDay(opts.from); err != nil {
			return report{}, errors.Wrap(err, "--from")
		}
		if f.EndDate, err = parseDay(opts.to); err != nil {
			return report{}, errors.Wrap(err, "--to")
		}
		all, err := client.AllTickets(ctx)
		if err != nil {
			return report{}, err
		}
		policy := pipeline.ExportPolicy
		tickets := pipeline.FilterTickets(pipeline.SortTickets(all, policy.Sort), f, policy.Exclusion, now)
		if opts.kind == "stats" {
			return report{
				filename: export.Filename("ticket_statistics", now),
				write:    func(w io.Writer) error { return export.WriteStats(w, tickets, now) },
			}, nil
		}
		return report{
			filename: export.TicketFilename("tickets", f, now),
			write:    func(w io.Writer) error { return export.WriteTickets(w, tickets, now) },
		}, nil

	case "hardware":
		list, err := client.ListHardware(ctx, itam.HardwareParams{Page: 1, Limit: itam.FullFetchLimit})
		if err != nil {
			return report{}, err
		}
		users, err := client.Users(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("user list unavailable, owners left blank")
		}
		idx := models.IndexAssignments(users)
		items := pipeline.FilterHardware(list.Items, opts.asset, idx)
		var tokens []string
		if !pipeline.IsAll(opts.asset.Filter) {
			tokens = append(tokens, opts.asset.Filter)
		}
		return report{
			filename: export.Filename("hardware", now, tokens...),
			write:    func(w io.Writer) error { return export.WriteHardware(w, items, idx) },
		}, nil

	case "warranty":
		list, err := client.WarrantyAlerts(ctx, itam.AlertParams{Days: opts.days, Page: 1, Limit: itam.FullFetchLimit, Severity: opts.severity})
		if err != nil {
			return report{}, err
		}
		var tokens []string
		if !pipeline.IsAll(opts.severity) {
			tokens = append(tokens, opts.severity)
		}
		return report{
			filename: export.Filename("warranty_alerts", now, tokens...),
			write:    func(w io.Writer) error { return export.WriteWarranty(w, list.Alerts) },
		}, nil
	}
	return report{}, errors.Errorf("unknown report kind %q", opts.kind)
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	return t, errors.WithStack(err)
}

// writeReport goes through a temp file so an empty report never leaves a
// partial file behind.
func writeReport(out string, rep report) (string, error) {
	if out == "-" {
		w := bufio.NewWriter(os.Stdout)
		if err := rep.write(w); err != nil {
			return "", err
		}
		return "stdout", errors.WithStack(w.Flush())
	}

	path := out
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		path = filepath.Join(out, rep.filename)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".itam-export-*")
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer os.Remove(tmp.Name())

	if err := rep.write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	return path, errors.WithStack(os.Rename(tmp.Name(), path))
}
