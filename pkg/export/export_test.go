package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title: "Progress report",
		Sections: []Section{
			{
				Title:   "Lessons",
				Columns: []Column{{Key: "date", Title: "Date"}, {Key: "content", Title: "Content", Width: 3}},
				Rows:    []map[string]string{{"date": "2024-01-08", "content": "Chapter 1"}},
			},
			{
				Title:   "Exams",
				Columns: []Column{{Key: "title", Title: "Title"}, {Key: "score", Title: "Score"}},
				Rows:    []map[string]string{{"title": "Midterm", "score": "88"}},
			},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	body := string(out[len(utf8BOM):])
	assert.Contains(t, body, "Date,Content\n2024-01-08,Chapter 1\n")
	assert.Contains(t, body, "Title,Score\nMidterm,88\n")
	assert.Less(t, strings.Index(body, "Lessons"), strings.Index(body, "Exams"))
}

func TestCSVExporterRequiresSections(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))
	assert.Equal(t, "abcdefg...", truncate(strings.Repeat("abcdefghij", 3), 19))
}
