package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

var (
	// ErrMissingField is returned when a required cell is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidTimestamp is returned when a required timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// RawRow is one spreadsheet row keyed by column header.
type RawRow map[string]string

// EventColumns maps outage fields to the column headers of the export.
type EventColumns struct {
	Direction            string `yaml:"direction"`
	ID                   string `yaml:"id"`
	Stage                string `yaml:"stage"`
	NetworkElement       string `yaml:"network_element"`
	Start                string `yaml:"start"`
	End                  string `yaml:"end"`
	SCADA                string `yaml:"scada"`
	LastCall             string `yaml:"last_call"`
	FirstNonCustomerCall string `yaml:"first_non_customer_call"`
	FirstCustomerCall    string `yaml:"first_customer_call"`
	EquipmentID          string `yaml:"equipment_id"`
	SourceClass          string `yaml:"source_class"`
	CallCount            string `yaml:"call_count"`
	Severity             string `yaml:"severity"`
}

// DefaultEventColumns returns the headers of the OMS outage export.
func DefaultEventColumns() EventColumns {
	return EventColumns{
		Direction:            "Tablo-1 IN-OUT FLG",
		ID:                   "Kesinti No",
		Stage:                "Kademe",
		NetworkElement:       "Şebeke Unsuru",
		Start:                "Kesinti Başlama Zamanı",
		End:                  "Kesinti/Kademe Bitiş Zamanı",
		SCADA:                "Scada Kesintisi",
		LastCall:             "Son Çağrı Zamanı",
		FirstNonCustomerCall: "İlk Müşteri Dışı Çağrı Zamanı",
		FirstCustomerCall:    "İlk Müşteri Çağrı Zamanı",
		EquipmentID:          "CBS TM No",
		SourceClass:          "Kaynağa Göre",
		CallCount:            "Toplam Çağrı Sayısı",
		Severity:             "Kesinti Seviyesi",
	}
}

// TicketColumns holds zero-based column positions of the headerless ticket
// export.
type TicketColumns struct {
	CustomerKey int `yaml:"customer_key"`
	TicketID    int `yaml:"ticket_id"`
	OutageID    int `yaml:"outage_id"`
	CreatedAt   int `yaml:"created_at"`
}

// DefaultTicketColumns returns the positions used by the CM export
// (columns C, W, AB and AD).
func DefaultTicketColumns() TicketColumns {
	return TicketColumns{CustomerKey: 2, TicketID: 22, OutageID: 27, CreatedAt: 29}
}

// timestampLayouts are tried in order before falling back to the date parser.
var timestampLayouts = []string{
	TimestampLayout,
	"02.01.2006 15:04",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseEventRow maps one export row onto an Event. Rows missing the outage ID,
// network element, start or end are rejected; optional cells that fail to
// parse are treated as absent.
func ParseEventRow(row RawRow, cols EventColumns, loc *time.Location) (Event, error) {
	id := NormalizeID(row[cols.ID])
	if id == "" {
		return Event{}, fmt.Errorf("%w: %s", ErrMissingField, cols.ID)
	}
	element := cleanText(row[cols.NetworkElement])
	if element == "" {
		return Event{}, fmt.Errorf("%w: %s", ErrMissingField, cols.NetworkElement)
	}
	start, err := parseRequiredTimestamp(row[cols.Start], cols.Start, loc)
	if err != nil {
		return Event{}, err
	}
	end, err := parseRequiredTimestamp(row[cols.End], cols.End, loc)
	if err != nil {
		return Event{}, err
	}
	if end.Before(start) {
		return Event{}, fmt.Errorf("%w: %s=%q before %s=%q", ErrInvalidTimestamp,
			cols.End, cleanText(row[cols.End]), cols.Start, cleanText(row[cols.Start]))
	}

	return Event{
		ID:                   id,
		Stage:                cleanIdentifier(row[cols.Stage]),
		NetworkElement:       element,
		EquipmentID:          CleanEquipmentID(row[cols.EquipmentID]),
		Start:                start,
		End:                  end,
		Direction:            parseDirection(row[cols.Direction]),
		SCADA:                strings.EqualFold(strings.TrimSpace(row[cols.SCADA]), "X"),
		LastCall:             parseOptionalTimestamp(row[cols.LastCall], loc),
		FirstNonCustomerCall: parseOptionalTimestamp(row[cols.FirstNonCustomerCall], loc),
		FirstCustomerCall:    parseOptionalTimestamp(row[cols.FirstCustomerCall], loc),
		CallCount:            parseIntOrZero(row[cols.CallCount]),
		Severity:             cleanText(row[cols.Severity]),
		SourceClass:          cleanText(row[cols.SourceClass]),
	}, nil
}

// ParseTicketRow maps one positional ticket row onto a Ticket. Rows without an
// outage ID are rejected.
func ParseTicketRow(cells []string, cols TicketColumns, loc *time.Location) (Ticket, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	id := NormalizeID(cell(cols.OutageID))
	if id == "" {
		return Ticket{}, fmt.Errorf("%w: outage id (column %d)", ErrMissingField, cols.OutageID)
	}
	return Ticket{
		OutageID:    id,
		CustomerKey: cleanIdentifier(cell(cols.CustomerKey)),
		TicketID:    cleanIdentifier(cell(cols.TicketID)),
		CreatedAt:   parseOptionalTimestamp(cell(cols.CreatedAt), loc),
	}, nil
}

// NormalizeID strips float artefacts from outage IDs ("42.0" -> "42").
func NormalizeID(raw string) string {
	return cleanIdentifier(raw)
}

func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

func parseDirection(s string) Direction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return DirectionIn
	case "OUT":
		return DirectionOut
	default:
		return DirectionUnknown
	}
}

func parseIntOrZero(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v)
}

func parseRequiredTimestamp(s, field string, loc *time.Location) (time.Time, error) {
	s = cleanText(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	t, err := parseTimestamp(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q", ErrInvalidTimestamp, field, s)
	}
	return t, nil
}

func parseOptionalTimestamp(s string, loc *time.Location) *time.Time {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	t, err := parseTimestamp(s, loc)
	if err != nil {
		return nil
	}
	return &t
}

// fallbackParser only accepts absolute dates, so relative or partial cells
// never resolve against the current time.
var fallbackParser = dps.Parser{ParserTypes: []dps.ParserType{dps.AbsoluteTime}}

// parseTimestamp reads day-first timestamps. Known export layouts are tried
// first; anything else goes through the natural-language date parser. A cell
// shaped like a known layout but holding an impossible value is rejected.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		var perr *time.ParseError
		if errors.As(err, &perr) && strings.Contains(perr.Message, "out of range") {
			return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
		}
	}

	parsed, err := fallbackParser.Parse(&dps.Configuration{DateOrder: dps.DMY, StrictParsing: true}, s)
	if err != nil {
		return time.Time{}, err
	}
	if parsed.IsZero() {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	t := parsed.Time
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}
