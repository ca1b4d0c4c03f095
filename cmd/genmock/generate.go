package main

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
)

const ticketColumnCount = 30

type mockOutage struct {
	id        string
	stage     int
	element   string
	start     time.Time
	end       time.Time
	direction string
	scada     bool
	lastCall  *time.Time
	custCall  *time.Time
	equipment string
	source    string
	calls     int
	severity  string
}

type mockTicket struct {
	customer string
	ticket   string
	outage   string
	created  time.Time
}

type generator struct {
	rng      *rand.Rand
	elements int
	days     int

	nextOutage int
	nextTicket int
}

func newGenerator(seed uint64, elements, days int) *generator {
	return &generator{
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		elements:   elements,
		days:       days,
		nextOutage: 500000,
		nextTicket: 7000000,
	}
}

// generate produces outages per element and tickets for outages with calls.
// The output depends only on the seed and sizes.
func (g *generator) generate() ([]mockOutage, []mockTicket) {
	var outages []mockOutage
	var tickets []mockTicket

	for el := range g.elements {
		element := fmt.Sprintf("OG-%03d/KÖK-%02d", el+1, el%7+1)
		source, equipment := "Dağıtım-OG", ""
		if el%2 == 0 {
			source = "Dağıtım-AG"
			// Small pool so transformers repeat across elements.
			equipment = fmt.Sprintf("%d.0", 1003000+g.rng.IntN(max(g.elements/3, 1)))
		}

		for day := range g.days {
			t := baseDate.AddDate(0, 0, day).Add(time.Duration(g.rng.IntN(12*60)) * time.Minute)
			var prevEnd time.Time
			for range 1 + g.rng.IntN(4) {
				if !prevEnd.IsZero() {
					t = prevEnd.Add(g.nextGap())
				}
				o := g.outage(element, source, equipment, t)
				outages = append(outages, o)
				tickets = append(tickets, g.tickets(o)...)

				// Occasional second stage with the same ID ending later.
				if g.rng.IntN(10) == 0 {
					stage := o
					stage.stage = 2
					stage.start = o.start.Add(time.Duration(5+g.rng.IntN(20)) * time.Minute)
					stage.end = o.end.Add(time.Duration(10+g.rng.IntN(60)) * time.Minute)
					stage.lastCall, stage.custCall = nil, nil
					outages = append(outages, stage)
					o.end = stage.end
				}
				prevEnd = o.end
			}
		}
	}
	return outages, tickets
}

// nextGap is mostly small enough to chain, sometimes negative to produce
// overlapping and nested outages.
func (g *generator) nextGap() time.Duration {
	switch p := g.rng.IntN(10); {
	case p < 5:
		return time.Duration(g.rng.IntN(15)) * time.Minute
	case p < 6:
		return -time.Duration(10+g.rng.IntN(30)) * time.Minute
	case p < 8:
		return time.Duration(20+g.rng.IntN(40)) * time.Minute
	default:
		return time.Duration(3+g.rng.IntN(10)) * time.Hour
	}
}

func (g *generator) outage(element, source, equipment string, start time.Time) mockOutage {
	g.nextOutage++
	duration := time.Duration(10+g.rng.IntN(170)) * time.Minute
	if g.rng.IntN(10) == 0 {
		duration = time.Duration(9*60+g.rng.IntN(5*60)) * time.Minute
	}

	o := mockOutage{
		id:        fmt.Sprintf("%d.0", g.nextOutage),
		stage:     1,
		element:   element,
		start:     start,
		end:       start.Add(duration),
		direction: []string{"IN", "OUT", ""}[g.rng.IntN(3)],
		scada:     g.rng.IntN(3) == 0,
		equipment: equipment,
		source:    source,
		severity:  []string{"OG", "AG", "YG"}[g.rng.IntN(3)],
	}
	switch p := g.rng.IntN(10); {
	case p < 3:
		c := start.Add(-time.Duration(5+g.rng.IntN(25)) * time.Minute)
		o.lastCall = &c
	case p < 5:
		c := o.end.Add(time.Duration(5+g.rng.IntN(55)) * time.Minute)
		o.custCall = &c
	}
	if o.lastCall != nil || o.custCall != nil {
		o.calls = 1 + g.rng.IntN(12)
	}
	return o
}

func (g *generator) tickets(o mockOutage) []mockTicket {
	if o.calls == 0 {
		return nil
	}
	n := 1 + g.rng.IntN(3)
	out := make([]mockTicket, 0, n)
	for range n {
		g.nextTicket++
		created := o.start.Add(time.Duration(g.rng.IntN(30)) * time.Minute)
		switch {
		case o.lastCall != nil:
			created = *o.lastCall
		case o.custCall != nil:
			created = *o.custCall
		}
		out = append(out, mockTicket{
			customer: fmt.Sprintf("M%05d", g.rng.IntN(60)),
			ticket:   fmt.Sprintf("W%d", g.nextTicket),
			outage:   o.id,
			created:  created.Add(time.Duration(g.rng.IntN(3)) * time.Minute),
		})
	}
	return out
}

func writeEvents(path string, outages []mockOutage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cols := domain.DefaultEventColumns()
	w := csv.NewWriter(f)
	w.Comma = ';'
	rows := [][]string{
		{"Kesinti Raporu"},
		{"Rapor Tarihi", baseDate.Format("02.01.2006")},
		{
			cols.ID, cols.Stage, cols.NetworkElement, cols.Start, cols.End, cols.Direction, cols.SCADA,
			cols.LastCall, cols.FirstNonCustomerCall, cols.FirstCustomerCall, cols.EquipmentID,
			cols.SourceClass, cols.CallCount, cols.Severity,
		},
	}
	for _, o := range outages {
		scada := ""
		if o.scada {
			scada = "X"
		}
		rows = append(rows, []string{
			o.id, fmt.Sprint(o.stage), o.element,
			o.start.Format(domain.TimestampLayout), o.end.Format(domain.TimestampLayout),
			o.direction, scada, formatOptional(o.lastCall), "", formatOptional(o.custCall),
			o.equipment, o.source, fmt.Sprint(o.calls), o.severity,
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeTickets(path string, tickets []mockTicket) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cols := domain.DefaultTicketColumns()
	w := csv.NewWriter(f)
	header := make([]string, ticketColumnCount)
	for i := range header {
		header[i] = fmt.Sprintf("Alan%02d", i+1)
	}
	rows := [][]string{header}
	for _, t := range tickets {
		row := make([]string, ticketColumnCount)
		row[cols.CustomerKey] = t.customer
		row[cols.TicketID] = t.ticket
		row[cols.OutageID] = t.outage
		row[cols.CreatedAt] = t.created.Format(domain.TimestampLayout)
		rows = append(rows, row)
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(domain.TimestampLayout)
}
