package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// EquipmentLabelPrefix marks records produced by the equipment pass.
const EquipmentLabelPrefix = "TM:"

// CallTiming tells whether customers called before or after their outage.
type CallTiming string

const (
	CallTimingNone CallTiming = ""
	CallTimingPre  CallTiming = "pre"
	CallTimingPost CallTiming = "post"
	CallTimingBoth CallTiming = "pre+post"
)

// IncidentRecord is one reported chain.
type IncidentRecord struct {
	ID             string     `json:"id" yaml:"id"`
	NetworkElement string     `json:"network_element" yaml:"network_element"`
	Direction      string     `json:"direction" yaml:"direction"`
	Start          time.Time  `json:"start" yaml:"start"`
	End            time.Time  `json:"end" yaml:"end"`
	Duration       string     `json:"duration" yaml:"duration"`
	Kind           ChainKind  `json:"kind" yaml:"kind"`
	CallTiming     CallTiming `json:"call_timing,omitempty" yaml:"call_timing,omitempty"`
	Type           string     `json:"type" yaml:"type"`
	Gaps           []float64  `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Members        string     `json:"members" yaml:"members"`
	MemberTimes    string     `json:"member_times" yaml:"member_times"`
	SCADARatio     string     `json:"scada_ratio" yaml:"scada_ratio"`
	CallCounts     string     `json:"call_counts" yaml:"call_counts"`
	Severities     string     `json:"severities,omitempty" yaml:"severities,omitempty"`
	CallTickets    string     `json:"call_tickets,omitempty" yaml:"call_tickets,omitempty"`
	SharedTickets  string     `json:"shared_tickets,omitempty" yaml:"shared_tickets,omitempty"`
	EquipmentScan  string     `json:"equipment_scan,omitempty" yaml:"equipment_scan,omitempty"`
}

// MemberIDs splits Members back into outage IDs.
func (r IncidentRecord) MemberIDs() []string {
	if r.Members == "" {
		return nil
	}
	return strings.Split(r.Members, ";")
}

// recordBuilder turns chains into incident records using the run's indexes.
type recordBuilder struct {
	settings  Settings
	ends      EffectiveEnds
	equipment *EquipmentIndex
	tickets   *TicketIndex
}

func (rb recordBuilder) build(c Chain, label string) IncidentRecord {
	members := c.Events

	start := members[0].Start
	end := rb.ends.Of(members[0])
	ids := make([]string, len(members))
	for i, e := range members {
		if e.Start.Before(start) {
			start = e.Start
		}
		if eff := rb.ends.Of(e); eff.After(end) {
			end = eff
		}
		ids[i] = e.ID
	}

	timing, pre, post := classifyCalls(members, rb.ends)
	kindLabel := string(c.Kind)
	if timing != CallTimingNone {
		kindLabel += " - " + string(timing)
	}

	var callTickets string
	if (len(pre) > 0 || len(post) > 0) && rb.tickets != nil {
		bounds := make(map[string]Bounds, len(members))
		for _, e := range members {
			bounds[e.ID] = Bounds{Start: e.Start, End: rb.ends.Of(e)}
		}
		callTickets = rb.tickets.CallTickets(pre, post, bounds)
	}

	var scan string
	if c.Kind != KindEquipment && strings.TrimSpace(members[0].SourceClass) == rb.settings.DistributionLabel {
		scan = rb.equipment.ScanNearby(members, start, end)
	}

	return IncidentRecord{
		ID:             recordID(c.Kind, label, ids),
		NetworkElement: label,
		Direction:      chainDirection(members),
		Start:          start,
		End:            end,
		Duration:       FormatDuration(end.Sub(start)),
		Kind:           c.Kind,
		CallTiming:     timing,
		Type:           kindLabel,
		Gaps:           slices.Clone(c.Gaps),
		Members:        strings.Join(ids, ";"),
		MemberTimes:    memberTimes(members, c.Kind == KindEquipment),
		SCADARatio:     scadaRatio(members),
		CallCounts:     callCounts(members),
		Severities:     severities(members),
		CallTickets:    callTickets,
		SharedTickets:  rb.tickets.SharedTickets(ids),
		EquipmentScan:  scan,
	}
}

// classifyCalls checks every call against the outage's own bounds. It returns
// the chain label and the IDs with pre- and post-outage calls in member order.
func classifyCalls(members []Event, ends EffectiveEnds) (CallTiming, []string, []string) {
	var pre, post []string
	for _, e := range members {
		end := ends.Of(e)
		for _, call := range e.Calls() {
			switch {
			case call.Before(e.Start):
				if !slices.Contains(pre, e.ID) {
					pre = append(pre, e.ID)
				}
			case call.After(end):
				if !slices.Contains(post, e.ID) {
					post = append(post, e.ID)
				}
			}
		}
	}

	switch {
	case len(pre) > 0 && len(post) > 0:
		return CallTimingBoth, pre, post
	case len(pre) > 0:
		return CallTimingPre, pre, post
	case len(post) > 0:
		return CallTimingPost, pre, post
	default:
		return CallTimingNone, pre, post
	}
}

func chainDirection(members []Event) string {
	var dirs []Direction
	for _, e := range members {
		if e.Direction != DirectionUnknown && !slices.Contains(dirs, e.Direction) {
			dirs = append(dirs, e.Direction)
		}
	}
	switch len(dirs) {
	case 0:
		return "-"
	case 1:
		return string(dirs[0])
	default:
		return "IN/OUT"
	}
}

func memberTimes(members []Event, byElement bool) string {
	lines := make([]string, len(members))
	for i, e := range members {
		tag := e.Stage
		if byElement {
			tag = e.NetworkElement
		}
		lines[i] = fmt.Sprintf("%d) %s [%s] %s → %s", i+1, e.ID, tag, FormatTimestamp(e.Start), FormatTimestamp(e.End))
	}
	return strings.Join(lines, "\n")
}

func scadaRatio(members []Event) string {
	n := 0
	for _, e := range members {
		if e.SCADA {
			n++
		}
	}
	return fmt.Sprintf("%d/%d", n, len(members))
}

func callCounts(members []Event) string {
	counts := make([]string, len(members))
	for i, e := range members {
		counts[i] = strconv.Itoa(e.CallCount)
	}
	return strings.Join(counts, "; ")
}

func severities(members []Event) string {
	var levels []string
	for _, e := range members {
		s := strings.TrimSpace(e.Severity)
		if s != "" && !slices.Contains(levels, s) {
			levels = append(levels, s)
		}
	}
	slices.Sort(levels)
	return strings.Join(levels, "; ")
}

// equipmentLabel names an equipment chain after its transformer and the
// network elements it spans.
func equipmentLabel(equipmentID string, members []Event) string {
	var elements []string
	for _, e := range members {
		if !slices.Contains(elements, e.NetworkElement) {
			elements = append(elements, e.NetworkElement)
		}
	}
	slices.Sort(elements)
	return fmt.Sprintf("%s%s (%s)", EquipmentLabelPrefix, equipmentID, strings.Join(elements, " | "))
}

// recordID derives a stable ID so re-running the same input yields the same
// keys downstream.
func recordID(kind ChainKind, label string, ids []string) string {
	input := fmt.Sprintf("%s|%s|%s", kind, label, strings.Join(ids, ";"))
	hash := sha256.Sum256([]byte(input))
	return "chain-" + hex.EncodeToString(hash[:8])
}
