// Package csvio converts project lists to and from CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/isdelr/paytrack-be/internal/models"
)

// Header is the column layout written by ExportProjects.
var Header = []string{"Name", "Due Date", "Status"}

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrMissingColumn   = errors.New("missing required column")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrDuplicateColumn = errors.New("duplicate column")
)

// ExportProjects writes one row per project. Payments are not part of the export.
func ExportProjects(w io.Writer, projects []models.Project) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range projects {
		if err := cw.Write([]string{p.Name, p.DueDate.String(), p.Status}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type column int

const (
	colName column = iota
	colDueDate
	colStatus
)

// Row is one project line of an import. Line is the 1-based line in the file.
type Row struct {
	Line    int
	Name    string
	DueDate string
	Status  string
}

// Reader streams project rows out of a CSV file whose header uses the
// exported column names. Header matching ignores case, spaces and underscores,
// so "Due Date", "due_date" and "dueDate" are the same column.
type Reader struct {
	r       *csv.Reader
	columns []column
}

// NewReader consumes and checks the header line.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}
	return &Reader{r: cr, columns: columns}, nil
}

func mapHeader(header []string) ([]column, error) {
	seen := make(map[column]bool)
	columns := make([]column, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		var c column
		switch normalize(h) {
		case "name":
			c = colName
		case "duedate":
			c = colDueDate
		case "status":
			c = colStatus
		default:
			return nil, fmt.Errorf("%w %q", ErrUnknownColumn, h)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w %q", ErrDuplicateColumn, h)
		}
		seen[c] = true
		columns[i] = c
	}
	if !seen[colName] {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, "Name")
	}
	if !seen[colDueDate] {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, "Due Date")
	}
	return columns, nil
}

func normalize(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	return strings.ReplaceAll(h, "_", "")
}

// Next returns the next row, or io.EOF after the last one.
func (r *Reader) Next() (Row, error) {
	record, err := r.r.Read()
	if err != nil {
		return Row{}, err
	}
	line, _ := r.r.FieldPos(0)

	row := Row{Line: line}
	for i, value := range record {
		switch r.columns[i] {
		case colName:
			row.Name = value
		case colDueDate:
			row.DueDate = value
		case colStatus:
			row.Status = value
		}
	}
	return row, nil
}
