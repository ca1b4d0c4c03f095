package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_Analyze(t *testing.T) {
	analyzer := NewAnalyzer(DefaultSettings())

	t.Run("empty dataset", func(t *testing.T) {
		got := analyzer.Analyze(Dataset{})
		assert.NotNil(t, got.Records)
		assert.Empty(t, got.Records)
		assert.Equal(t, 0, got.Stats.Events)
	})

	t.Run("gap beyond tolerance reports nothing", func(t *testing.T) {
		got := analyzer.Analyze(Dataset{Events: []Event{
			outage(t, "A", "E1", "10:00", "11:00"),
			outage(t, "B", "E1", "11:30", "12:00"),
		}})
		assert.Empty(t, got.Records)
		assert.Equal(t, 2, got.Stats.SingletonsDropped)
	})

	t.Run("sequential chain", func(t *testing.T) {
		got := analyzer.Analyze(Dataset{Events: []Event{
			outage(t, "B", "E1", "11:10", "12:00"),
			outage(t, "A", "E1", "10:00", "11:00"),
		}})
		require.Len(t, got.Records, 1)
		r := got.Records[0]
		assert.Equal(t, KindSequential, r.Kind)
		assert.Equal(t, "sequential", r.Type)
		assert.Equal(t, []float64{10.0}, r.Gaps)
		assert.Equal(t, "A;B", r.Members)
		assert.Equal(t, "E1", r.NetworkElement)
		assert.Equal(t, "02:00:00", r.Duration)
		assert.Equal(t, 1, got.Stats.Chains[KindSequential])
	})

	t.Run("nested chain keeps the outer bounds", func(t *testing.T) {
		got := analyzer.Analyze(Dataset{Events: []Event{
			outage(t, "A", "E2", "10:00", "12:00"),
			outage(t, "B", "E2", "11:00", "11:30"),
		}})
		require.Len(t, got.Records, 1)
		r := got.Records[0]
		assert.Equal(t, KindNested, r.Kind)
		assert.Equal(t, at(t, "10:00"), r.Start)
		assert.Equal(t, at(t, "12:00"), r.End)
		assert.Empty(t, r.Gaps)
	})

	t.Run("equipment recurrence across elements", func(t *testing.T) {
		a := outage(t, "A", "E1", "10:00", "11:00")
		b := outage(t, "B", "E2", "11:10", "12:00")
		for _, e := range []*Event{&a, &b} {
			e.EquipmentID = "T1"
			e.SourceClass = DefaultDistributionLabel
		}
		got := analyzer.Analyze(Dataset{Events: []Event{a, b}})

		require.Len(t, got.Records, 1)
		r := got.Records[0]
		assert.Equal(t, KindEquipment, r.Kind)
		assert.Equal(t, "TM:T1 (E1 | E2)", r.NetworkElement)
		assert.Equal(t, []float64{10.0}, r.Gaps)
		assert.Contains(t, r.MemberTimes, "[E1]")
		assert.Equal(t, 1, got.Stats.EquipmentGroups)
	})

	t.Run("equipment pass ignores other source classes", func(t *testing.T) {
		a := outage(t, "A", "E1", "10:00", "11:00")
		b := outage(t, "B", "E2", "11:10", "12:00")
		a.EquipmentID, b.EquipmentID = "T1", "T1"
		got := analyzer.Analyze(Dataset{Events: []Event{a, b}})
		assert.Empty(t, got.Records)
	})

	t.Run("pre-call chain with ticket cross-reference", func(t *testing.T) {
		a := outage(t, "A", "E3", "10:00", "11:00")
		a.FirstCustomerCall = ptr(at(t, "09:50"))
		b := outage(t, "B", "E3", "11:05", "11:30")
		ds := Dataset{
			Events: []Event{a, b},
			Tickets: []Ticket{
				{OutageID: "A", CustomerKey: "C1", TicketID: "42", CreatedAt: ptr(at(t, "09:55"))},
				{OutageID: "B", CustomerKey: "C1", TicketID: "43", CreatedAt: ptr(at(t, "11:10"))},
			},
			TicketsLoaded: true,
		}
		got := analyzer.Analyze(ds)

		require.Len(t, got.Records, 1)
		r := got.Records[0]
		assert.Equal(t, CallTimingPre, r.CallTiming)
		assert.Equal(t, "sequential - pre", r.Type)
		assert.Equal(t, "Öncesi: A (42)", r.CallTickets)
		assert.Equal(t, "C1 → A [42], B [43]", r.SharedTickets)
	})

	t.Run("pre and post calls in one chain", func(t *testing.T) {
		a := outage(t, "A", "E4", "10:00", "12:00")
		a.FirstCustomerCall = ptr(at(t, "09:50"))
		b := outage(t, "B", "E4", "11:00", "11:30")
		b.LastCall = ptr(at(t, "11:45"))
		ds := Dataset{
			Events: []Event{a, b},
			Tickets: []Ticket{
				{OutageID: "A", CustomerKey: "C1", TicketID: "t1", CreatedAt: ptr(at(t, "09:55"))},
				{OutageID: "B", CustomerKey: "C2", TicketID: "t2", CreatedAt: ptr(at(t, "11:40"))},
			},
			TicketsLoaded: true,
		}
		got := analyzer.Analyze(ds)

		require.Len(t, got.Records, 1)
		r := got.Records[0]
		assert.Equal(t, CallTimingBoth, r.CallTiming)
		assert.Equal(t, "nested - pre+post", r.Type)
		assert.Equal(t, "Öncesi: A (t1) | Sonrası: B (t2)", r.CallTickets)
		assert.Empty(t, r.SharedTickets)
	})

	t.Run("tickets ignored when the dataset is absent", func(t *testing.T) {
		a := outage(t, "A", "E3", "10:00", "11:00")
		a.LastCall = ptr(at(t, "11:30"))
		b := outage(t, "B", "E3", "11:05", "11:30")
		ds := Dataset{
			Events:  []Event{a, b},
			Tickets: []Ticket{{OutageID: "A", CustomerKey: "C1", TicketID: "42", CreatedAt: ptr(at(t, "11:40"))}},
		}
		got := analyzer.Analyze(ds)

		require.Len(t, got.Records, 1)
		assert.Equal(t, CallTimingPost, got.Records[0].CallTiming)
		assert.Empty(t, got.Records[0].CallTickets)
		assert.Empty(t, got.Records[0].SharedTickets)
	})

	t.Run("records ordered by element then start", func(t *testing.T) {
		got := analyzer.Analyze(Dataset{Events: []Event{
			outage(t, "C", "E9", "08:00", "09:00"),
			outage(t, "D", "E9", "09:05", "09:30"),
			outage(t, "A", "E1", "14:00", "15:00"),
			outage(t, "B", "E1", "15:05", "15:30"),
			outage(t, "E", "E1", "06:00", "07:00"),
			outage(t, "F", "E1", "06:30", "06:45"),
		}})
		require.Len(t, got.Records, 3)
		assert.Equal(t, "E;F", got.Records[0].Members)
		assert.Equal(t, "A;B", got.Records[1].Members)
		assert.Equal(t, "C;D", got.Records[2].Members)
	})

	t.Run("member fields", func(t *testing.T) {
		a := outage(t, "A", "E4", "10:00", "11:00")
		a.Direction, a.SCADA, a.CallCount, a.Severity, a.Stage = DirectionIn, true, 3, "OG", "1"
		b := outage(t, "B", "E4", "11:05", "11:30")
		b.Direction, b.CallCount, b.Severity, b.Stage = DirectionOut, 1, "AG", "2"
		got := analyzer.Analyze(Dataset{Events: []Event{a, b}})

		require.Len(t, got.Records, 1)
		r := got.Records[0]
		assert.Equal(t, "IN/OUT", r.Direction)
		assert.Equal(t, "1/2", r.SCADARatio)
		assert.Equal(t, "3; 1", r.CallCounts)
		assert.Equal(t, "AG; OG", r.Severities)
		assert.Equal(t,
			"1) A [1] 15.03.2024 10:00:00 → 15.03.2024 11:00:00\n2) B [2] 15.03.2024 11:05:00 → 15.03.2024 11:30:00",
			r.MemberTimes)
	})

	t.Run("nearby outages on the same transformer", func(t *testing.T) {
		a := outage(t, "A", "E5", "10:00", "11:00")
		b := outage(t, "B", "E5", "11:05", "11:30")
		other := outage(t, "X", "E6", "18:00", "19:00")
		for _, e := range []*Event{&a, &b, &other} {
			e.EquipmentID = "5005"
			e.SourceClass = DefaultDistributionLabel
		}
		got := analyzer.Analyze(Dataset{Events: []Event{a, b, other}})

		var element *IncidentRecord
		for i := range got.Records {
			if got.Records[i].NetworkElement == "E5" {
				element = &got.Records[i]
			}
		}
		require.NotNil(t, element)
		assert.Equal(t, "X", element.EquipmentScan)
	})
}

func TestAnalyzer_Idempotent(t *testing.T) {
	ds := Dataset{Events: []Event{
		outage(t, "A", "E1", "10:00", "11:00"),
		outage(t, "B", "E1", "11:10", "12:00"),
		outage(t, "C", "E2", "10:00", "12:00"),
		outage(t, "D", "E2", "11:00", "11:30"),
	}}
	analyzer := NewAnalyzer(DefaultSettings())

	first := analyzer.Analyze(ds)
	second := analyzer.Analyze(ds)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("analysis changed between runs (-first +second):\n%s", diff)
	}
	for _, r := range first.Records {
		assert.Regexp(t, `^chain-[0-9a-f]{16}$`, r.ID)
	}
}
