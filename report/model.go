// Package report builds JSON reports from crunched alignment tables
// and GFF consensus summaries. The object model (attributes, tables
// of columns, plot groups) matches the schema that downstream report
// viewers consume.
package report

import (
	"encoding/json"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
)

// Attribute is a single named scalar shown in a report summary.
type Attribute struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Column is one column of a report table. Values holds one entry per
// table row.
type Column struct {
	ID     string        `json:"id"`
	Header string        `json:"header"`
	Values []interface{} `json:"values"`
}

// Table is a column-oriented report table.
type Table struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Columns []Column `json:"columns"`
}

// AddValue appends v to the column with the given id. Unknown ids are
// ignored rather than corrupting row alignment of the other columns.
func (t *Table) AddValue(columnID string, v interface{}) {
	for i := range t.Columns {
		if t.Columns[i].ID == columnID {
			t.Columns[i].Values = append(t.Columns[i].Values, v)
			return
		}
	}
}

// Plot references one rendered image. Rendering itself happens
// outside this package; reports carry only the file references.
type Plot struct {
	ID        string `json:"id"`
	Image     string `json:"image"`
	Caption   string `json:"caption,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// PlotGroup collects related plots under one title.
type PlotGroup struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Legend    string `json:"legend,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Plots     []Plot `json:"plots"`
}

// Report is a complete report document.
type Report struct {
	ID         string      `json:"id"`
	Title      string      `json:"title,omitempty"`
	Version    string      `json:"version"`
	Attributes []Attribute `json:"attributes"`
	Tables     []Table     `json:"tables"`
	PlotGroups []PlotGroup `json:"plotGroups"`
}

// Version is stamped into every report this package produces.
const Version = "0.1.0"

// WriteJSON serializes r to w as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile serializes r to the named file. Any path scheme
// understood by base/file works, so reports can land directly on S3.
func (r *Report) WriteFile(path string) (err error) {
	ctx := vcontext.Background()
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "creating report file:", path)
	}
	defer file.CloseAndReport(ctx, f, &err)
	return r.WriteJSON(f.Writer(ctx))
}
