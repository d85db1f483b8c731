// Package csvreport appends monthly developer summaries to a CSV report.
package csvreport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrReportWrite wraps every failure to append a row.
	ErrReportWrite = errors.New("report write error")
	// ErrHeaderMismatch means the existing file was written with another column set.
	ErrHeaderMismatch = errors.New("existing report header does not match")
)

// DefaultOutput is the report file used when no path is given.
const DefaultOutput = "Developer_Report_Template.csv"

// Header is the fixed column set of the report. "Current Work" is kept for
// compatibility with the report template and is always left blank.
var Header = []string{
	"Month",
	"Name",
	"Project(s)",
	"Current Work",
	"Completed Tasks / Fixes",
	"Next Steps / Plans for Next Month",
}

// Row is one run's output for one author and window.
type Row struct {
	Month       string
	Name        string
	Projects    string
	CurrentWork string
	Completed   string
	NextSteps   string
}

// NewRow builds a row, joining the project names with ", ".
func NewRow(month, name string, projects []string, completed, nextSteps string) Row {
	return Row{
		Month:     month,
		Name:      name,
		Projects:  strings.Join(projects, ", "),
		Completed: completed,
		NextSteps: nextSteps,
	}
}

func (r Row) record() []string {
	return []string{r.Month, r.Name, r.Projects, r.CurrentWork, r.Completed, r.NextSteps}
}

// Append writes row to the CSV at path. A new (or empty) file gets the header
// first; an existing file must already carry exactly that header.
func Append(path string, row Row) error {
	needsHeader, err := checkHeader(path)
	if err != nil {
		return err
	}

	// #nosec G304 -- User provides the output path via flag.
	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", ErrReportWrite, path, err)
	}

	w := csv.NewWriter(file)
	if needsHeader {
		_ = w.Write(Header)
	}
	_ = w.Write(row.record())
	w.Flush()

	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("%w: failed to write %s: %v", ErrReportWrite, path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", ErrReportWrite, path, err)
	}
	return nil
}

// checkHeader reports whether path still needs a header row.
func checkHeader(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to stat %s: %v", ErrReportWrite, path, err)
	}
	if info.Size() == 0 {
		return true, nil
	}

	// #nosec G304 -- User provides the output path via flag.
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("%w: failed to open %s: %v", ErrReportWrite, path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	existing, err := r.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("%w: failed to read header of %s: %v", ErrReportWrite, path, err)
	}
	if !slices.Equal(existing, Header) {
		return false, fmt.Errorf("%w: %w: %s has %q", ErrReportWrite, ErrHeaderMismatch, path, existing)
	}
	return false, nil
}
