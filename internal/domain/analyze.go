package domain

import (
	"slices"
	"strings"
)

// Stats summarizes one analysis run.
type Stats struct {
	Events            int               `json:"events" yaml:"events"`
	ElementGroups     int               `json:"element_groups" yaml:"element_groups"`
	EquipmentGroups   int               `json:"equipment_groups" yaml:"equipment_groups"`
	IndexedEquipment  int               `json:"indexed_equipment" yaml:"indexed_equipment"`
	Chains            map[ChainKind]int `json:"chains" yaml:"chains"`
	SingletonsDropped int               `json:"singletons_dropped" yaml:"singletons_dropped"`
}

// Analysis is the result of Analyzer.Analyze.
type Analysis struct {
	Records []IncidentRecord
	Stats   Stats
}

// Analyzer groups outages into incidents. It holds no state between runs.
type Analyzer struct {
	settings Settings
}

// NewAnalyzer creates an Analyzer. Settings are expected to be validated by
// the caller.
func NewAnalyzer(settings Settings) *Analyzer {
	return &Analyzer{settings: settings}
}

// Settings returns the settings the analyzer was built with.
func (a *Analyzer) Settings() Settings {
	return a.settings
}

// Analyze chains the dataset's outages, first per network element and then
// per transformer for distribution outages, and returns the incident records
// ordered by network element label and start.
func (a *Analyzer) Analyze(ds Dataset) Analysis {
	stats := Stats{Events: len(ds.Events), Chains: make(map[ChainKind]int)}
	if len(ds.Events) == 0 {
		return Analysis{Records: []IncidentRecord{}, Stats: stats}
	}

	ends := NewEffectiveEnds(ds.Events)
	rb := recordBuilder{
		settings:  a.settings,
		ends:      ends,
		equipment: NewEquipmentIndex(ds.Events, a.settings.EquipmentScanHours),
	}
	if ds.TicketsLoaded {
		rb.tickets = NewTicketIndex(ds.Tickets)
	}
	stats.IndexedEquipment = rb.equipment.Len()

	records := []IncidentRecord{}

	byElement := groupBy(ds.Events, func(e Event) string { return e.NetworkElement })
	stats.ElementGroups = len(byElement)
	elementChains := NewChainBuilder(a.settings, ends)
	for _, g := range byElement {
		for c := range elementChains.Chains(g.events) {
			if c.Kind == KindSingleton {
				stats.SingletonsDropped++
				continue
			}
			stats.Chains[c.Kind]++
			records = append(records, rb.build(c, g.key))
		}
	}

	var distribution []Event
	for _, e := range ds.Events {
		if strings.TrimSpace(e.SourceClass) == a.settings.DistributionLabel {
			distribution = append(distribution, e)
		}
	}
	byEquipment := groupBy(distribution, func(e Event) string { return CleanEquipmentID(e.EquipmentID) })
	equipmentChains := NewEquipmentChainBuilder(a.settings, ends)
	for _, g := range byEquipment {
		if g.key == "" || len(g.events) < 2 {
			continue
		}
		stats.EquipmentGroups++
		for c := range equipmentChains.Chains(g.events) {
			stats.Chains[c.Kind]++
			records = append(records, rb.build(c, equipmentLabel(g.key, c.Events)))
		}
	}

	slices.SortStableFunc(records, func(x, y IncidentRecord) int {
		if c := strings.Compare(x.NetworkElement, y.NetworkElement); c != 0 {
			return c
		}
		return x.Start.Compare(y.Start)
	})

	return Analysis{Records: records, Stats: stats}
}

type eventGroup struct {
	key    string
	events []Event
}

// groupBy buckets events by key, returning groups ordered by key with each
// group's events sorted by start.
func groupBy(events []Event, key func(Event) string) []eventGroup {
	buckets := make(map[string][]Event)
	for _, e := range events {
		k := key(e)
		buckets[k] = append(buckets[k], e)
	}

	groups := make([]eventGroup, 0, len(buckets))
	for k, evs := range buckets {
		SortByStart(evs)
		groups = append(groups, eventGroup{key: k, events: evs})
	}
	slices.SortFunc(groups, func(a, b eventGroup) int { return strings.Compare(a.key, b.key) })
	return groups
}
