// Command genmock writes a synthetic OMS outage export and CM ticket export,
// then runs the analysis on them to produce an expected-output fixture. The
// fixtures back the integration tests and local demos.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/mock \
//	  -elements 40 \
//	  -seed 7
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/outage-chain-etl/internal/adapter/filesink"
	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory for the generated exports and fixture")
	elements := flag.Int("elements", 40, "number of network elements")
	days := flag.Int("days", 3, "days of outages per element")
	seed := flag.Uint64("seed", 7, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if *elements < 1 || *days < 1 {
		return fmt.Errorf("-elements and -days must be positive")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	gen := newGenerator(*seed, *elements, *days)
	events, tickets := gen.generate()

	eventsPath := filepath.Join(*outDir, "outages.csv")
	ticketsPath := filepath.Join(*outDir, "tickets.csv")
	if err := writeEvents(eventsPath, events); err != nil {
		return fmt.Errorf("writing outage export: %w", err)
	}
	log.Printf("wrote %d outage rows: %s", len(events), eventsPath)
	if err := writeTickets(ticketsPath, tickets); err != nil {
		return fmt.Errorf("writing ticket export: %w", err)
	}
	log.Printf("wrote %d ticket rows: %s", len(tickets), ticketsPath)

	// Read the files back through the real loader so the fixture matches what
	// the service produces for them.
	src := csvfile.NewSource(csvfile.Options{
		EventsPath:    eventsPath,
		TicketsPath:   ticketsPath,
		HeaderRow:     3,
		EventColumns:  domain.DefaultEventColumns(),
		TicketColumns: domain.DefaultTicketColumns(),
		Location:      time.UTC,
	}, slog.Default())
	ds, err := src.Extract(context.Background())
	if err != nil {
		return fmt.Errorf("reloading exports: %w", err)
	}

	// Fixed clock for reproducible run timestamps.
	clock := clockwork.NewFakeClockAt(baseDate.AddDate(0, 0, *days+1).Add(6 * time.Hour))
	settings := domain.DefaultSettings()
	result := domain.NewAnalyzer(settings).Analyze(ds)
	runMeta := domain.AnalysisRun{
		ID:          fmt.Sprintf("genmock-%d", *seed),
		StartedAt:   clock.Now(),
		GeneratedAt: clock.Now(),
		Settings:    settings,
		Stats:       result.Stats,
		DroppedRows: ds.DroppedRows,
		Records:     result.Records,
	}

	expectedPath := filepath.Join(*outDir, "expected_chains.json")
	sink, err := filesink.NewWriter(expectedPath, filesink.FormatJSON, slog.Default())
	if err != nil {
		return err
	}
	if err := sink.Publish(context.Background(), runMeta); err != nil {
		return fmt.Errorf("writing expected fixture: %w", err)
	}
	log.Printf("wrote expected fixture: %s", expectedPath)

	printStats(runMeta)
	return nil
}

func printStats(run domain.AnalysisRun) {
	fmt.Printf("\nOutages: %d (dropped rows: %d)\n", run.Stats.Events, run.DroppedRows)
	fmt.Printf("Element groups: %d, equipment groups: %d\n", run.Stats.ElementGroups, run.Stats.EquipmentGroups)

	kinds := make([]string, 0, len(run.Stats.Chains))
	for k := range run.Stats.Chains {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	fmt.Printf("Chains (%d): ", len(run.Records))
	for _, k := range kinds {
		fmt.Printf("%s=%d ", k, run.Stats.Chains[domain.ChainKind(k)])
	}
	fmt.Println()

	var withTickets int
	for _, r := range run.Records {
		if r.CallTickets != "" || r.SharedTickets != "" {
			withTickets++
		}
	}
	fmt.Printf("Chains with ticket references: %d\n", withTickets)
}
