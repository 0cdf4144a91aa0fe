// package formatter renders job collections for the CLI (plain text table, CSV, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Format is an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// TimeLayout is used for start and end times in every format.
const TimeLayout = "2006-01-02 15:04:05"

// ParseFormat maps a flag value to a [Format]. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv or markdown)", shared.ErrInvalidFlag, s)
	}
}

// Filter returns the jobs whose id fuzzy-matches query, closest match first.
//
// Matching is case-insensitive; ties keep collection order. An empty query returns jobs unchanged.
func Filter(jobs []models.Job, query string) []models.Job {
	query = strings.TrimSpace(query)
	if query == "" {
		return jobs
	}

	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
	}

	ranks := fuzzy.RankFindFold(query, ids)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]models.Job, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, jobs[r.OriginalIndex])
	}
	return out
}

// Export renders c in format f.
func Export(c models.Collection, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(c)
	case FormatMarkdown:
		return ExportToMarkdown(c)
	case FormatText, "":
		return ExportToText(c)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportToCSV converts a collection to CSV with columns: ID, Status, Progress, Files, Total, Current File, Started, Ended
func ExportToCSV(c models.Collection) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Status", "Progress", "Files", "Total", "Current File", "Started", "Ended"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range c.Jobs {
		record := []string{
			job.ID,
			job.Status.String(),
			strconv.Itoa(shared.ClampPercent(job.Progress)),
			strconv.Itoa(job.FilesDownloaded),
			strconv.Itoa(job.TotalFiles),
			job.CurrentFile,
			formatTime(job.StartTime, ""),
			formatTime(job.EndTime, ""),
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

// ExportToMarkdown converts a collection to a Markdown summary and job table
func ExportToMarkdown(c models.Collection) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Downloads\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d\n", c.Total))
	buf.WriteString(fmt.Sprintf("**Active**: %d\n", c.Active))
	buf.WriteString(fmt.Sprintf("**Completed**: %d\n", c.Completed))
	buf.WriteString(fmt.Sprintf("**Failed**: %d\n\n", c.Failed))

	if len(c.Jobs) == 0 {
		buf.WriteString("_No downloads yet_\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| Account | Status | Progress | Files | Current File | Started |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, job := range c.Jobs {
		buf.WriteString(fmt.Sprintf("| %s | %s | %d%% | %s | %s | %s |\n",
			escapeCell(job.ID),
			job.Status,
			shared.ClampPercent(job.Progress),
			FilesText(job),
			escapeCell(shared.Truncate(job.CurrentFile, 30)),
			formatTime(job.StartTime, "-"),
		))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a collection to an aligned plain text table
func ExportToText(c models.Collection) ([]byte, error) {
	var buf bytes.Buffer

	if len(c.Jobs) == 0 {
		buf.WriteString("No downloads yet\n")
		return buf.Bytes(), nil
	}

	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSTATUS\tPROGRESS\tFILES\tCURRENT FILE\tSTARTED")
	for _, job := range c.Jobs {
		current := shared.Truncate(job.CurrentFile, 30)
		if current == "" {
			current = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\t%s\n",
			job.ID,
			job.Status,
			shared.ClampPercent(job.Progress),
			FilesText(job),
			current,
			formatTime(job.StartTime, "-"),
		)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write table: %w", err)
	}

	buf.WriteString(fmt.Sprintf("\n%d total, %d active, %d completed, %d failed\n", c.Total, c.Active, c.Completed, c.Failed))
	return buf.Bytes(), nil
}

// FilesText renders the file counter of a job as "n" or "n/total".
func FilesText(j models.Job) string {
	if j.HasTotal() {
		return fmt.Sprintf("%d/%d", j.FilesDownloaded, j.TotalFiles)
	}
	return strconv.Itoa(j.FilesDownloaded)
}

// WriteExport renders c in format f to path.
//
// Defaults to downloads.{txt,csv,md} in the working directory.
func WriteExport(c models.Collection, f Format, path string) (string, error) {
	if path == "" {
		path = "downloads." + extension(f)
	}

	data, err := Export(c, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func extension(f Format) string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func formatTime(t time.Time, empty string) string {
	if t.IsZero() {
		return empty
	}
	return t.Local().Format(TimeLayout)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
