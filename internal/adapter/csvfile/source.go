package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Options describes where the exports live and how they are laid out.
type Options struct {
	EventsPath  string
	TicketsPath string // empty disables the ticket dataset
	// HeaderRow is the 1-based row holding the event column headers. The OMS
	// export has two title rows above it.
	HeaderRow     int
	EventColumns  domain.EventColumns
	TicketColumns domain.TicketColumns
	Location      *time.Location
}

// RowError is one row rejected at the load boundary.
type RowError struct {
	Table string `json:"table"`
	Row   int    `json:"row"` // 1-based record in the file
	Err   string `json:"error"`
}

// Report summarizes one load.
type Report struct {
	EventRows     int        `json:"event_rows"`
	TicketRows    int        `json:"ticket_rows"`
	TicketsLoaded bool       `json:"tickets_loaded"`
	Dropped       []RowError `json:"dropped"`
}

// Source reads the outage and ticket exports from CSV files.
// It implements pipeline.Source.
type Source struct {
	opts   Options
	logger *slog.Logger
}

// NewSource creates a Source. A nil location reads timestamps as local time.
func NewSource(opts Options, logger *slog.Logger) *Source {
	if opts.HeaderRow < 1 {
		opts.HeaderRow = 1
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Source{opts: opts, logger: logger}
}

// Extract loads both tables. Rejected rows are logged and counted.
func (s *Source) Extract(ctx context.Context) (domain.Dataset, error) {
	ds, report, err := s.Load(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}
	for _, d := range report.Dropped {
		s.logger.Warn("row rejected, skipping", "table", d.Table, "row", d.Row, "error", d.Err)
	}
	return ds, nil
}

// Load reads both tables concurrently. A missing or unreadable ticket file
// leaves the dataset without tickets; an unreadable event file fails the load.
func (s *Source) Load(ctx context.Context) (domain.Dataset, Report, error) {
	var (
		events        []domain.Event
		eventDrops    []RowError
		tickets       []domain.Ticket
		ticketDrops   []RowError
		ticketsLoaded bool
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, eventDrops, err = s.readEvents(ctx)
		return err
	})
	g.Go(func() error {
		if s.opts.TicketsPath == "" {
			return nil
		}
		var err error
		tickets, ticketDrops, err = s.readTickets(ctx)
		switch {
		case err == nil:
			ticketsLoaded = true
		case errors.Is(err, os.ErrNotExist):
			s.logger.Info("ticket file not found, cross-references disabled", "path", s.opts.TicketsPath)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.logger.Warn("ticket file unreadable, cross-references disabled", "path", s.opts.TicketsPath, "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Dataset{}, Report{}, err
	}

	dropped := append(eventDrops, ticketDrops...)
	report := Report{
		EventRows:     len(events),
		TicketRows:    len(tickets),
		TicketsLoaded: ticketsLoaded,
		Dropped:       dropped,
	}
	return domain.Dataset{
		Events:        events,
		Tickets:       tickets,
		TicketsLoaded: ticketsLoaded,
		DroppedRows:   len(dropped),
	}, report, nil
}

func (s *Source) readEvents(ctx context.Context) ([]domain.Event, []RowError, error) {
	rows, err := readRecords(s.opts.EventsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read events: %w", err)
	}
	if len(rows) < s.opts.HeaderRow {
		return nil, nil, fmt.Errorf("read events: %s has no header row %d", s.opts.EventsPath, s.opts.HeaderRow)
	}

	header := rows[s.opts.HeaderRow-1]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var (
		events []domain.Event
		drops  []RowError
	)
	for i, cells := range rows[s.opts.HeaderRow:] {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if blank(cells) {
			continue
		}
		row := make(domain.RawRow, len(header))
		for j, name := range header {
			if j < len(cells) && name != "" {
				row[name] = cells[j]
			}
		}
		e, err := domain.ParseEventRow(row, s.opts.EventColumns, s.opts.Location)
		if err != nil {
			drops = append(drops, RowError{Table: "events", Row: s.opts.HeaderRow + i + 1, Err: err.Error()})
			continue
		}
		events = append(events, e)
	}
	return events, drops, nil
}

func (s *Source) readTickets(ctx context.Context) ([]domain.Ticket, []RowError, error) {
	rows, err := readRecords(s.opts.TicketsPath)
	if err != nil {
		return nil, nil, err
	}

	var (
		tickets []domain.Ticket
		drops   []RowError
	)
	// First row holds the headers; columns are addressed by position.
	for i := 1; i < len(rows); i++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if blank(rows[i]) {
			continue
		}
		t, err := domain.ParseTicketRow(rows[i], s.opts.TicketColumns, s.opts.Location)
		if err != nil {
			drops = append(drops, RowError{Table: "tickets", Row: i + 1, Err: err.Error()})
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, drops, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readRecords reads a whole CSV file. Spreadsheet exports vary between comma
// and semicolon separators, so the separator is taken from the first lines.
func readRecords(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffComma(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
}

func sniffComma(data []byte) rune {
	head := data
	// Title rows above the header may carry no separators at all.
	for i, n := 0, 0; i < len(data); i++ {
		if data[i] == '\n' {
			if n++; n == 5 {
				head = data[:i]
				break
			}
		}
	}
	if bytes.Count(head, []byte(";")) > bytes.Count(head, []byte(",")) {
		return ';'
	}
	return ','
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
