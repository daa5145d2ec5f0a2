// package formatter exports links to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/shared"
)

// Format names an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
	JSON     Format = "json"
)

// Formats lists the supported formats in the order the CLI shows them.
var Formats = []Format{CSV, Markdown, Text, JSON}

// ParseFormat accepts a format name or a common alias ("markdown", "text").
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, name)
	}
}

// LinkRecord is the flat, serializable form of a [models.Link].
type LinkRecord struct {
	Sequence       int       `json:"sequence"`
	TriggerID      string    `json:"trigger_id"`
	TriggerName    string    `json:"trigger_name"`
	TriggerArtists []string  `json:"trigger_artists"`
	TriggerURI     string    `json:"trigger_uri"`
	TargetID       string    `json:"target_id"`
	TargetName     string    `json:"target_name"`
	TargetArtists  []string  `json:"target_artists"`
	TargetURI      string    `json:"target_uri"`
	CreatedAt      time.Time `json:"created_at"`
}

// Record flattens link.
func Record(link *models.Link) LinkRecord {
	trigger, target := link.Trigger(), link.Target()
	return LinkRecord{
		Sequence:       link.Sequence(),
		TriggerID:      trigger.ID,
		TriggerName:    trigger.Name,
		TriggerArtists: trigger.Artists,
		TriggerURI:     trigger.URI,
		TargetID:       target.ID,
		TargetName:     target.Name,
		TargetArtists:  target.Artists,
		TargetURI:      target.URI,
		CreatedAt:      link.CreatedAt(),
	}
}

// ExportToCSV converts links to CSV with columns: Sequence, Trigger ID, Trigger, Trigger Artist, Target ID, Target, Target Artist, Target URI
func ExportToCSV(links []*models.Link) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Trigger ID", "Trigger", "Trigger Artist", "Target ID", "Target", "Target Artist", "Target URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, link := range links {
		trigger, target := link.Trigger(), link.Target()
		record := []string{
			strconv.Itoa(link.Sequence()),
			trigger.ID,
			trigger.Name,
			trigger.Artist(),
			target.ID,
			target.Name,
			target.Artist(),
			target.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders links as a Markdown table.
func ExportToMarkdown(links []*models.Link) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Links\n\n")
	fmt.Fprintf(&buf, "**Links**: %d\n\n", len(links))

	if len(links) == 0 {
		buf.WriteString("_No links yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Trigger | Queues | Added |\n")
	buf.WriteString("|---|---------|--------|-------|\n")
	for _, link := range links {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s |\n",
			link.Sequence(),
			escapeCell(link.Trigger().String()),
			escapeCell(link.Target().String()),
			humanize.Time(link.CreatedAt()),
		)
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportToText renders one link per line, the way `links list` prints them.
func ExportToText(links []*models.Link) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Links: %d\n\n", len(links))
	for _, link := range links {
		fmt.Fprintf(&buf, "%d. %s\n", link.Sequence(), link)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders links as an indented JSON array of [LinkRecord].
func ExportToJSON(links []*models.Link) ([]byte, error) {
	records := make([]LinkRecord, 0, len(links))
	for _, link := range links {
		records = append(records, Record(link))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal links: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders links in format.
func Export(format Format, links []*models.Link) ([]byte, error) {
	switch format {
	case CSV:
		return ExportToCSV(links)
	case Markdown:
		return ExportToMarkdown(links)
	case Text:
		return ExportToText(links)
	case JSON:
		return ExportToJSON(links)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// DefaultFilename returns links.{format}.
func DefaultFilename(format Format) string {
	return "links." + string(format)
}

// WriteExport renders links and writes them to path, defaulting to [DefaultFilename].
//
// Returns the path written.
func WriteExport(format Format, links []*models.Link, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(format)
	}

	data, err := Export(format, links)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
