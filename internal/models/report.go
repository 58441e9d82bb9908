package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates the supported report categories.
type ReportType string

const (
	ReportStudents    ReportType = "students"
	ReportCompanies   ReportType = "companies"
	ReportAttachments ReportType = "attachments"
	ReportNSSFReturns ReportType = "nssf_returns"
)

// ReportTypes lists the supported reports with display labels, in display order.
var ReportTypes = []ReportTypeInfo{
	{Key: ReportStudents, Label: "Students Report"},
	{Key: ReportCompanies, Label: "Companies Report"},
	{Key: ReportAttachments, Label: "Attachments Report"},
	{Key: ReportNSSFReturns, Label: "NSSF Returns Report"},
}

// ReportTypeInfo pairs a report key with its label.
type ReportTypeInfo struct {
	Key   ReportType `json:"key"`
	Label string     `json:"label"`
}

// Valid reports whether t is a supported report type.
func (t ReportType) Valid() bool {
	for _, info := range ReportTypes {
		if info.Key == t {
			return true
		}
	}
	return false
}

// Label returns the display title for t.
func (t ReportType) Label() string {
	for _, info := range ReportTypes {
		if info.Key == t {
			return info.Label
		}
	}
	return string(t)
}

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportParams are the filters a report was generated with, persisted as JSONB.
type ReportParams struct {
	StartDate string       `json:"start_date,omitempty"`
	EndDate   string       `json:"end_date,omitempty"`
	Status    string       `json:"status,omitempty"`
	Format    ReportFormat `json:"format"`
}

// Value marshals params to JSON for persistence.
func (p ReportParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ReportParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReportParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportParams", value)
	}
	if len(data) == 0 {
		*p = ReportParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report params: %w", err)
	}
	return nil
}

// ReportHistory records every generated report.
type ReportHistory struct {
	ID            string       `db:"id" json:"id"`
	ReportType    ReportType   `db:"report_type" json:"report_type"`
	GeneratedBy   *string      `db:"generated_by" json:"generated_by,omitempty"`
	GeneratedAt   time.Time    `db:"generated_at" json:"generated_at"`
	Parameters    ReportParams `db:"parameters" json:"parameters"`
	DownloadCount int          `db:"download_count" json:"download_count"`
}

// ReportFilter is the parsed filter set for a report request.
type ReportFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	Format    ReportFormat
}

// ReportFile is a rendered report ready to stream.
type ReportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
