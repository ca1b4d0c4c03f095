package domain

import "time"

// Direction is the IN/OUT flag of an outage row.
type Direction string

const (
	DirectionUnknown Direction = ""
	DirectionIn      Direction = "IN"
	DirectionOut     Direction = "OUT"
)

// Event is one outage row. Multi-stage outages repeat the same ID across rows,
// one row per stage.
type Event struct {
	ID             string    `json:"id"`
	Stage          string    `json:"stage,omitempty"`
	NetworkElement string    `json:"network_element"`
	EquipmentID    string    `json:"equipment_id,omitempty"` // cleaned, empty when absent
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Direction      Direction `json:"direction,omitempty"`
	SCADA          bool      `json:"scada"`

	LastCall             *time.Time `json:"last_call,omitempty"`
	FirstNonCustomerCall *time.Time `json:"first_non_customer_call,omitempty"`
	FirstCustomerCall    *time.Time `json:"first_customer_call,omitempty"`

	CallCount   int    `json:"call_count"`
	Severity    string `json:"severity,omitempty"`
	SourceClass string `json:"source_class,omitempty"`
}

// Calls returns the event's call timestamps that are present.
func (e Event) Calls() []time.Time {
	calls := make([]time.Time, 0, 3)
	for _, c := range []*time.Time{e.LastCall, e.FirstNonCustomerCall, e.FirstCustomerCall} {
		if c != nil {
			calls = append(calls, *c)
		}
	}
	return calls
}

// Ticket is one row of the customer ticket dataset.
type Ticket struct {
	OutageID    string     `json:"outage_id"`
	CustomerKey string     `json:"customer_key,omitempty"`
	TicketID    string     `json:"ticket_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Dataset is the fully materialized input of one analysis run.
type Dataset struct {
	Events []Event
	// Tickets is only consulted when TicketsLoaded is true. An absent ticket
	// dataset disables cross-referencing without failing the run.
	Tickets       []Ticket
	TicketsLoaded bool
	DroppedRows   int
}

// EffectiveEnds maps an outage ID to the latest End across all of its rows.
type EffectiveEnds map[string]time.Time

// NewEffectiveEnds computes the effective end of every ID in events.
func NewEffectiveEnds(events []Event) EffectiveEnds {
	ends := make(EffectiveEnds, len(events))
	for _, e := range events {
		if cur, ok := ends[e.ID]; !ok || e.End.After(cur) {
			ends[e.ID] = e.End
		}
	}
	return ends
}

// Of returns the effective end of e, falling back to the row's own End.
func (ee EffectiveEnds) Of(e Event) time.Time {
	if end, ok := ee[e.ID]; ok {
		return end
	}
	return e.End
}
