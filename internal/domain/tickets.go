package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Bounds is an outage's own start and effective end.
type Bounds struct {
	Start time.Time
	End   time.Time
}

// TicketIndex cross-references outages with customer tickets. A nil
// *TicketIndex stands for an absent ticket dataset and resolves nothing.
type TicketIndex struct {
	byOutage map[string][]Ticket
}

// NewTicketIndex groups tickets by outage ID, keeping dataset order.
func NewTicketIndex(tickets []Ticket) *TicketIndex {
	idx := &TicketIndex{byOutage: make(map[string][]Ticket)}
	for _, t := range tickets {
		if t.OutageID == "" {
			continue
		}
		idx.byOutage[t.OutageID] = append(idx.byOutage[t.OutageID], t)
	}
	return idx
}

type ticketPair struct {
	outageID string
	ticketID string
}

// SharedTickets lists the customers who raised tickets on every one of the
// given outages, as "customer → outage [ticket], ..." lines ordered by
// customer key. Outages without any ticket rows do not take part.
func (idx *TicketIndex) SharedTickets(outageIDs []string) string {
	if idx == nil || len(outageIDs) < 2 {
		return ""
	}

	type outageCustomers struct {
		id        string
		customers map[string][]ticketPair
	}
	var perOutage []outageCustomers
	for _, id := range outageIDs {
		rows := idx.byOutage[id]
		if len(rows) == 0 {
			continue
		}
		customers := make(map[string][]ticketPair)
		for _, t := range rows {
			if t.CustomerKey == "" {
				continue
			}
			pairs := customers[t.CustomerKey]
			if t.TicketID != "" {
				pairs = append(pairs, ticketPair{outageID: id, ticketID: t.TicketID})
			}
			customers[t.CustomerKey] = pairs
		}
		perOutage = append(perOutage, outageCustomers{id: id, customers: customers})
	}
	if len(perOutage) < 2 {
		return ""
	}

	var shared []string
	for key := range perOutage[0].customers {
		common := true
		for _, oc := range perOutage[1:] {
			if _, ok := oc.customers[key]; !ok {
				common = false
				break
			}
		}
		if common {
			shared = append(shared, key)
		}
	}
	slices.Sort(shared)

	lines := make([]string, 0, len(shared))
	for _, key := range shared {
		seen := make(map[ticketPair]struct{})
		var parts []string
		for _, oc := range perOutage {
			for _, p := range oc.customers[key] {
				if _, ok := seen[p]; ok {
					continue
				}
				seen[p] = struct{}{}
				parts = append(parts, fmt.Sprintf("%s [%s]", p.outageID, p.ticketID))
			}
		}
		if len(parts) > 0 {
			lines = append(lines, key+" → "+strings.Join(parts, ", "))
		}
	}
	return strings.Join(lines, "\n")
}

// CallTickets lists the tickets opened before the start of each pre-call
// outage and after the effective end of each post-call outage.
func (idx *TicketIndex) CallTickets(pre, post []string, bounds map[string]Bounds) string {
	if idx == nil {
		return ""
	}

	var parts []string
	if s := idx.ticketsAround(pre, bounds, func(created time.Time, b Bounds) bool {
		return created.Before(b.Start)
	}); s != "" {
		parts = append(parts, "Öncesi: "+s)
	}
	if s := idx.ticketsAround(post, bounds, func(created time.Time, b Bounds) bool {
		return created.After(b.End)
	}); s != "" {
		parts = append(parts, "Sonrası: "+s)
	}
	return strings.Join(parts, " | ")
}

func (idx *TicketIndex) ticketsAround(ids []string, bounds map[string]Bounds, match func(time.Time, Bounds) bool) string {
	var groups []string
	for _, id := range ids {
		b, ok := bounds[id]
		if !ok {
			continue
		}
		var tickets []string
		for _, t := range idx.byOutage[id] {
			if t.TicketID == "" || t.CreatedAt == nil {
				continue
			}
			if match(*t.CreatedAt, b) && !slices.Contains(tickets, t.TicketID) {
				tickets = append(tickets, t.TicketID)
			}
		}
		if len(tickets) == 0 {
			continue
		}
		slices.Sort(tickets)
		groups = append(groups, fmt.Sprintf("%s (%s)", id, strings.Join(tickets, ", ")))
	}
	return strings.Join(groups, "; ")
}

// Tickets returns the ticket rows recorded for the given outages, in outage
// order.
func (idx *TicketIndex) Tickets(outageIDs []string) []Ticket {
	if idx == nil {
		return nil
	}
	var out []Ticket
	for _, id := range outageIDs {
		out = append(out, idx.byOutage[id]...)
	}
	return out
}
