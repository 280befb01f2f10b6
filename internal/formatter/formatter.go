// package formatter renders feed events to export formats (CSV, Markdown, plain text, JSON)
// and writes the manifests produced by bulk tasks.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
)

// EventExport is a snapshot of one feed for a user.
type EventExport struct {
	FeedType   models.FeedType `json:"feed_type"`
	Username   string          `json:"username"`
	ExportedAt time.Time       `json:"exported_at"`
	Events     []models.Event  `json:"events"`
}

// exportMetadata is the JSON sidecar written next to CSV exports.
type exportMetadata struct {
	FeedType   string    `json:"feed_type"`
	Title      string    `json:"title"`
	Username   string    `json:"username"`
	ExportedAt time.Time `json:"exported_at"`
	EventCount int       `json:"event_count"`
	Newest     int64     `json:"newest,omitempty"`
	Oldest     int64     `json:"oldest,omitempty"`
}

func (e *EventExport) now() time.Time {
	if e.ExportedAt.IsZero() {
		return time.Now()
	}
	return e.ExportedAt
}

// baseName is the default file stem: {user}_{feed}.
func (e *EventExport) baseName() string {
	return fmt.Sprintf("%s_%s", e.Username, e.FeedType)
}

// ExportToCSV converts an EventExport to CSV format with columns:
// ID, Type, User, Created, Track, Artist, Recording MSID, Recording MBID, Summary
func ExportToCSV(export *EventExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Type", "User", "Created", "Track", "Artist", "Recording MSID", "Recording MBID", "Summary"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range export.Events {
		id := ""
		if e.ID.Valid {
			id = strconv.FormatInt(e.ID.Value, 10)
		}
		record := []string{
			id,
			string(e.EventType),
			e.UserName,
			strconv.FormatInt(e.Created, 10),
			e.TrackName(),
			e.ArtistName(),
			e.RecordingMSID(),
			e.RecordingMBID(),
			e.Summary(),
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

// ExportToMarkdown converts an EventExport to Markdown. Cover art links to the
// Cover Art Archive unless coverDir holds a downloaded copy named {caa_id}.jpg.
func ExportToMarkdown(export *EventExport, coverDir string) ([]byte, error) {
	var buf bytes.Buffer
	now := export.now()

	buf.WriteString(fmt.Sprintf("# %s: %s\n\n", export.FeedType.Title(), export.Username))
	buf.WriteString(fmt.Sprintf("**Exported**: %s\n", now.Format(time.RFC1123)))
	buf.WriteString(fmt.Sprintf("**Events**: %d\n\n", len(export.Events)))

	buf.WriteString("## Events\n\n")
	for i, e := range export.Events {
		buf.WriteString(fmt.Sprintf("%d. %s (%s)", i+1, e.Summary(), shared.FormatRelative(e.Created, now)))
		if mb := models.MusicBrainzURL(e); mb != "" {
			buf.WriteString(fmt.Sprintf(" [MusicBrainz](%s)", mb))
		}
		buf.WriteString("\n")

		if cover := coverArtRef(e, coverDir); cover != "" {
			buf.WriteString(fmt.Sprintf("   ![Cover](%s)\n", cover))
		}
		if blurb := e.Metadata.BlurbContent; blurb != "" {
			buf.WriteString(fmt.Sprintf("   > %s\n", blurb))
		}
		if text := e.Metadata.Text; text != "" {
			buf.WriteString(fmt.Sprintf("   > %s\n", shared.Truncate(text, 280)))
		}
	}

	return buf.Bytes(), nil
}

func coverArtRef(e models.Event, coverDir string) string {
	caa := e.CAAID()
	if caa == 0 {
		return e.CoverArtURL()
	}
	if coverDir != "" {
		name := fmt.Sprintf("%d.jpg", caa)
		if _, err := os.Stat(filepath.Join(coverDir, name)); err == nil {
			return name
		}
	}
	return e.CoverArtURL()
}

// ExportToText converts an EventExport to plain text, one event per line.
func ExportToText(export *EventExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Feed: %s\n", export.FeedType.Title()))
	buf.WriteString(fmt.Sprintf("User: %s\n", export.Username))
	buf.WriteString(fmt.Sprintf("Events: %d\n\n", len(export.Events)))

	for i, e := range export.Events {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s %s\n", i+1, e.ID, shared.FormatFeedTime(e.Created), e.Summary()))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the whole export, events included.
func ExportToJSON(export *EventExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ToMetadataJSON generates a JSON representation of the export metadata (without events)
func ToMetadataJSON(export *EventExport) ([]byte, error) {
	meta := exportMetadata{
		FeedType:   export.FeedType.String(),
		Title:      export.FeedType.Title(),
		Username:   export.Username,
		ExportedAt: export.now().UTC(),
		EventCount: len(export.Events),
	}
	if n := len(export.Events); n > 0 {
		meta.Newest = export.Events[0].Created
		meta.Oldest = export.Events[n-1].Created
	}
	return shared.MarshalJSON(meta, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	EventsFile   string
	MetadataFile string
}

// WriteCSVExport exports a feed to CSV format with accompanying metadata JSON file.
//
// Defaults to {user}_{feed} as the base filename & creates {base}_events.csv and {base}_metadata.json
func WriteCSVExport(export *EventExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.baseName()
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	eventsFile := baseFilepath + "_events.csv"
	if err := os.WriteFile(eventsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{EventsFile: eventsFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport writes {dir}/README.md. The directory defaults to {user}_{feed}.
//
// Cover art already downloaded into the same directory is referenced locally.
func WriteMarkdownExport(export *EventExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.baseName()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export, outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a feed to plain text format.
//
// Defaults to {user}_{feed}_events.txt as the filename.
func WriteTextExport(export *EventExport, path string) (string, error) {
	if path == "" {
		path = export.baseName() + "_events.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the full export as JSON. Defaults to {user}_{feed}_events.json.
func WriteJSONExport(export *EventExport, path string) (string, error) {
	if path == "" {
		path = export.baseName() + "_events.json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}

// WriteExport dispatches on format: csv, markdown (md), text (txt) or json.
// It returns every file written.
func WriteExport(export *EventExport, format, target string) ([]string, error) {
	switch format {
	case "csv":
		res, err := WriteCSVExport(export, target)
		if err != nil {
			return nil, err
		}
		return []string{res.EventsFile, res.MetadataFile}, nil
	case "markdown", "md":
		path, err := WriteMarkdownExport(export, target)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case "text", "txt":
		path, err := WriteTextExport(export, target)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case "json":
		path, err := WriteJSONExport(export, target)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, format)
	}
}
