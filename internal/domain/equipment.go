package domain

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CleanEquipmentID normalizes a transformer number. Spreadsheet exports turn
// numeric IDs into floats ("1003007.0"), so numeric values are reduced to
// their integer form. Empty and "nan" cells are absent.
func CleanEquipmentID(raw string) string {
	return cleanIdentifier(raw)
}

func cleanIdentifier(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	if n, ok := integerString(s); ok {
		return n
	}
	return s
}

// integerString converts a numeric-looking value to its integer string form.
func integerString(s string) (string, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

type indexedOutage struct {
	id    string
	start time.Time
}

// EquipmentIndex looks up every outage recorded on a transformer. It is built
// once per analysis run and owned by that run.
type EquipmentIndex struct {
	byEquipment map[string][]indexedOutage
	scan        time.Duration
}

// NewEquipmentIndex indexes events by cleaned equipment ID. Events without an
// equipment ID are skipped.
func NewEquipmentIndex(events []Event, scanHours int) *EquipmentIndex {
	idx := &EquipmentIndex{
		byEquipment: make(map[string][]indexedOutage),
		scan:        time.Duration(scanHours) * time.Hour,
	}
	for _, e := range events {
		eq := CleanEquipmentID(e.EquipmentID)
		if eq == "" {
			continue
		}
		idx.byEquipment[eq] = append(idx.byEquipment[eq], indexedOutage{id: e.ID, start: e.Start})
	}
	return idx
}

// Len reports the number of distinct transformers indexed.
func (idx *EquipmentIndex) Len() int {
	return len(idx.byEquipment)
}

// ScanNearby returns the ";"-joined IDs of other outages on the chain's
// transformers that started within the scan window around [from, to].
func (idx *EquipmentIndex) ScanNearby(members []Event, from, to time.Time) string {
	if idx == nil || len(idx.byEquipment) == 0 || len(members) == 0 {
		return ""
	}

	inChain := make(map[string]struct{}, len(members))
	var equipment []string
	for _, e := range members {
		inChain[e.ID] = struct{}{}
		if eq := CleanEquipmentID(e.EquipmentID); eq != "" && !slices.Contains(equipment, eq) {
			equipment = append(equipment, eq)
		}
	}
	if len(equipment) == 0 {
		return ""
	}

	windowStart := from.Add(-idx.scan)
	windowEnd := to.Add(idx.scan)

	found := make(map[string]struct{})
	for _, eq := range equipment {
		for _, o := range idx.byEquipment[eq] {
			if _, ok := inChain[o.id]; ok {
				continue
			}
			if o.start.Before(windowStart) || o.start.After(windowEnd) {
				continue
			}
			found[o.id] = struct{}{}
		}
	}
	if len(found) == 0 {
		return ""
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareIDs)
	return strings.Join(ids, ";")
}

// compareIDs orders outage IDs numerically when both are integers.
func compareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}
