package filesink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// csvHeader follows the column headings of the field teams' chain report.
var csvHeader = []string{
	"ID",
	"SebekeUnsuru",
	"IN-OUT Durumu",
	"BirlesikBaslama",
	"BirlesikBitis",
	"Süre (hh:mm:ss)",
	"Tur",
	"Ardışık Farklar (dk)",
	"İlgiliKesintiler(;)",
	"KesintiZamanlari",
	"Scada Kesintisi Oranı",
	"Toplam Çağrı Sayısı",
	"Kesinti Seviyesi",
	"OMS Ticket IDs",
	"Ortak W Değerleri",
	"TM Kesintileri",
}

// Writer replaces a report file with every run.
// It implements pipeline.Sink.
type Writer struct {
	path   string
	format string
	logger *slog.Logger
}

// NewWriter creates a file sink. The format must be json, yaml or csv.
func NewWriter(path, format string, logger *slog.Logger) (*Writer, error) {
	switch format {
	case FormatJSON, FormatYAML, FormatCSV:
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	return &Writer{path: path, format: format, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "file" }

// Publish writes the run to a temporary file next to the report and renames
// it into place, so readers never see a partial report.
func (w *Writer) Publish(_ context.Context, run domain.AnalysisRun) error {
	var buf bytes.Buffer
	if err := Encode(&buf, w.format, run); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}

	w.logger.Debug("report written", "path", w.path, "format", w.format, "records", len(run.Records))
	return nil
}

// Encode renders a run in the given format. JSON and YAML carry the run
// metadata; CSV carries the records only.
func Encode(out io.Writer, format string, run domain.AnalysisRun) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return encodeCSV(out, run.Records)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

func encodeCSV(out io.Writer, records []domain.IncidentRecord) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("encode csv report: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("encode csv report: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r domain.IncidentRecord) []string {
	return []string{
		r.ID,
		r.NetworkElement,
		r.Direction,
		domain.FormatTimestamp(r.Start),
		domain.FormatTimestamp(r.End),
		r.Duration,
		r.Type,
		domain.FormatGaps(r.Gaps),
		r.Members,
		r.MemberTimes,
		r.SCADARatio,
		r.CallCounts,
		r.Severities,
		r.CallTickets,
		r.SharedTickets,
		r.EquipmentScan,
	}
}
