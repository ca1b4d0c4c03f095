package domain

import (
	"iter"
	"math"
	"slices"
	"time"
)

// ChainKind classifies how the outages of a chain relate to each other.
type ChainKind string

const (
	KindNested     ChainKind = "nested"
	KindSequential ChainKind = "sequential"
	KindSingleton  ChainKind = "singleton"
	KindEquipment  ChainKind = "equipment-recurrence"
)

// Chain is a group of outages treated as a single incident.
type Chain struct {
	Kind   ChainKind
	Events []Event   // deduplicated by ID, ordered by start
	Gaps   []float64 // minutes between linked outages, one decimal
}

type linkKind int

const (
	linkNested linkKind = iota
	linkSequential
)

type link struct {
	prev, next Event
	kind       linkKind
	gap        time.Duration
}

type runState int

const (
	runEmpty runState = iota
	runBuilding
	runNestedPending
	runSequentialPending
)

// run accumulates adjacent outages until a break in the chain.
type run struct {
	events []Event
	links  []link
}

func (r *run) state() runState {
	switch {
	case len(r.events) == 0:
		return runEmpty
	case len(r.links) == 0:
		return runBuilding
	}
	for _, l := range r.links {
		if l.kind == linkNested {
			return runNestedPending
		}
	}
	return runSequentialPending
}

// ChainBuilder partitions the outages of one grouping key into chains.
type ChainBuilder struct {
	settings Settings
	ends     EffectiveEnds
	// equipment switches to the cross-element rules: successors on the same
	// network element break the run and only strictly positive gaps link.
	equipment bool
}

// NewChainBuilder returns a builder for network-element grouping.
func NewChainBuilder(settings Settings, ends EffectiveEnds) ChainBuilder {
	return ChainBuilder{settings: settings, ends: ends}
}

// NewEquipmentChainBuilder returns a builder for equipment grouping.
func NewEquipmentChainBuilder(settings Settings, ends EffectiveEnds) ChainBuilder {
	return ChainBuilder{settings: settings, ends: ends, equipment: true}
}

// Chains yields the chains found in events, which must be sorted by start.
func (b ChainBuilder) Chains(events []Event) iter.Seq[Chain] {
	return func(yield func(Chain) bool) {
		var r run
		for _, e := range events {
			if b.extend(&r, e) {
				continue
			}
			if !b.flush(r, yield) {
				return
			}
			r = run{events: []Event{e}}
		}
		b.flush(r, yield)
	}
}

// extend appends e to the run when it links to the last accumulated outage.
func (b ChainBuilder) extend(r *run, e Event) bool {
	if r.state() == runEmpty {
		r.events = append(r.events, e)
		return true
	}
	prev := r.events[len(r.events)-1]
	if e.ID == prev.ID {
		return false
	}
	if b.equipment && e.NetworkElement == prev.NetworkElement {
		return false
	}

	prevEnd := b.ends.Of(prev)
	gap := e.Start.Sub(prevEnd)
	allowed := b.settings.AllowedGap(prev, prevEnd)

	var kind linkKind
	switch {
	case b.equipment && gap > 0 && gap <= allowed:
		kind = linkSequential
	case b.equipment:
		return false
	case gap <= 0:
		kind = linkNested
	case gap <= allowed:
		kind = linkSequential
	default:
		return false
	}

	r.events = append(r.events, e)
	r.links = append(r.links, link{prev: prev, next: e, kind: kind, gap: gap})
	return true
}

func (b ChainBuilder) flush(r run, yield func(Chain) bool) bool {
	if b.equipment {
		if len(r.events) < 2 {
			return true
		}
		gaps := make([]float64, len(r.links))
		for i, l := range r.links {
			gaps[i] = gapMinutes(l.gap)
		}
		return yield(Chain{Kind: KindEquipment, Events: r.events, Gaps: gaps})
	}

	switch r.state() {
	case runEmpty:
		return true
	case runBuilding:
		return yield(Chain{Kind: KindSingleton, Events: r.events})
	}

	var nested, sequential []link
	for _, l := range r.links {
		if l.kind == linkNested {
			nested = append(nested, l)
		} else {
			sequential = append(sequential, l)
		}
	}

	if len(nested) > 0 {
		if !yield(Chain{Kind: KindNested, Events: linkMembers(nested)}) {
			return false
		}
	}
	if len(sequential) > 0 {
		gaps := make([]float64, len(sequential))
		for i, l := range sequential {
			gaps[i] = gapMinutes(l.gap)
		}
		if !yield(Chain{Kind: KindSequential, Events: linkMembers(sequential), Gaps: gaps}) {
			return false
		}
	}
	return true
}

// linkMembers collects the outages taking part in links, first row per ID,
// ordered by start.
func linkMembers(links []link) []Event {
	seen := make(map[string]struct{}, len(links)+1)
	members := make([]Event, 0, len(links)+1)
	for _, l := range links {
		for _, e := range [2]Event{l.prev, l.next} {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			members = append(members, e)
		}
	}
	SortByStart(members)
	return members
}

// SortByStart orders events by start time, keeping input order for ties.
func SortByStart(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})
}

func gapMinutes(d time.Duration) float64 {
	return math.Round(d.Minutes()*10) / 10
}
