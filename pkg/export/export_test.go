package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	d := Dataset{
		Title:       "Attachments Report",
		Headers:     []string{"Student", "Company", "Status"},
		GeneratedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	d.AddRow("S001", "Acme, Ltd", "approved")
	d.AddRow("S002", "Beta Corp")
	return d
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Company,Status", lines[0])
	assert.Equal(t, `S001,"Acme, Ltd",approved`, lines[1])
	assert.Equal(t, "S002,Beta Corp,", lines[2])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterManyRowsAndColumns(t *testing.T) {
	d := Dataset{Headers: []string{"A", "B", "C", "D", "E", "F", "G"}}
	for i := 0; i < 120; i++ {
		d.AddRow(strings.Repeat("long value ", 8), "b", "c", "d", "e", "f", "g")
	}
	out, err := NewPDFExporter().Render(d)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	require.Error(t, err)
}
