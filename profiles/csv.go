// Package profiles parses and serializes the CSV profile records consumed
// by the messaging workflow. The engine does not own these documents; it
// only reads them to decide which rows to act on.
package profiles

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Record is one CSV row. ProfileURL is the only required column; all other
// columns are carried as free-form attributes so round-tripping through
// save_csv preserves them. Rows marked skip are loaded but never acted on.
type Record struct {
	ProfileURL string
	Username   string
	Skip       bool
	Attributes map[string]string
}

// Document is a parsed CSV preserving column order for serialization.
type Document struct {
	Columns []string
	Records []Record
}

// Actionable returns the records the messaging workflow should process, in
// order, excluding rows marked skip or missing a profile URL.
func (d *Document) Actionable() []Record {
	out := make([]Record, 0, len(d.Records))
	for _, rec := range d.Records {
		if rec.Skip || rec.ProfileURL == "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Parse decodes CSV bytes. A missing profile_url column is an error; the
// dashboard rejects such uploads before any workflow can start.
func Parse(data []byte) (*Document, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse csv: empty document")
	}

	columns := rows[0]
	urlCol := -1
	for i, col := range columns {
		if strings.EqualFold(strings.TrimSpace(col), "profile_url") {
			urlCol = i
			break
		}
	}
	if urlCol < 0 {
		return nil, fmt.Errorf("csv missing required column: profile_url")
	}

	doc := &Document{Columns: columns}
	for _, row := range rows[1:] {
		rec := Record{Attributes: make(map[string]string, len(columns))}
		for i, col := range columns {
			if i >= len(row) {
				break
			}
			val := row[i]
			rec.Attributes[col] = val
			switch strings.ToLower(strings.TrimSpace(col)) {
			case "profile_url":
				rec.ProfileURL = strings.TrimSpace(val)
			case "username":
				rec.Username = strings.TrimSpace(val)
			case "skip":
				rec.Skip = isTrue(val)
			}
		}
		doc.Records = append(doc.Records, rec)
	}
	return doc, nil
}

// Marshal serializes the document back to CSV in the original column order.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(doc.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range doc.Records {
		row := make([]string, len(doc.Columns))
		for i, col := range doc.Columns {
			row[i] = rec.Attributes[col]
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// FromMaps builds a document from the dashboard's row-object form used by
// the save_csv endpoint. Column order follows the first row's keys as
// provided.
func FromMaps(rows []map[string]string, columns []string) *Document {
	doc := &Document{Columns: columns}
	for _, row := range rows {
		rec := Record{Attributes: row}
		rec.ProfileURL = strings.TrimSpace(row["profile_url"])
		rec.Username = strings.TrimSpace(row["username"])
		rec.Skip = isTrue(row["skip"])
		doc.Records = append(doc.Records, rec)
	}
	return doc
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}
