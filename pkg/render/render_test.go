package render

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student ID", "Grade Value"},
		Rows: []map[string]string{
			{"Student ID": "s1", "Grade Value": "92"},
			{"Student ID": "s2", "Grade Value": "88"},
		},
	}
}

func TestCSVRendererEscapingRoundTrip(t *testing.T) {
	tricky := []string{
		`plain`,
		`has,comma`,
		`has "quotes"`,
		"has\nnewline",
		`mix, "of" every` + "\nthing",
	}
	rows := make([]map[string]string, 0, len(tricky))
	for _, v := range tricky {
		rows = append(rows, map[string]string{"Value": v})
	}

	file, err := NewCSVRenderer().Render(Dataset{Headers: []string{"Value"}, Rows: rows}, "")
	require.NoError(t, err)

	parsed, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, parsed, len(tricky)+1)
	for i, v := range tricky {
		require.Equal(t, v, parsed[i+1][0])
	}
}

func TestCSVRendererRejectsEmptyDataset(t *testing.T) {
	_, err := NewCSVRenderer().Render(Dataset{Headers: []string{"A"}}, "")
	require.Error(t, err)

	_, err = NewCSVRenderer().Render(Dataset{Rows: []map[string]string{{"A": "1"}}}, "")
	require.Error(t, err)
}

func TestPDFRendererProducesReadableDocument(t *testing.T) {
	file, err := NewPDFRenderer().Render(sampleDataset(), "Transcript")
	require.NoError(t, err)
	require.Equal(t, "pdf", file.Extension)
	require.Equal(t, ContentTypePDF, file.ContentType)
	require.True(t, bytes.HasPrefix(file.Data, []byte("%PDF-")))
	require.Contains(t, string(file.Data), "Transcript")
	require.Contains(t, string(file.Data), "Records: 2")
}

func TestPDFRendererCapsRows(t *testing.T) {
	rows := make([]map[string]string, 0, 25)
	for i := 0; i < 25; i++ {
		rows = append(rows, map[string]string{"Student ID": "s", "Grade Value": "90"})
	}
	file, err := NewPDFRenderer().Render(Dataset{Headers: []string{"Student ID", "Grade Value"}, Rows: rows}, "Report Card")
	require.NoError(t, err)
	require.Contains(t, string(file.Data), "... and 15 more records")
}

func TestPDFRendererRejectsEmptyDataset(t *testing.T) {
	_, err := NewPDFRenderer().Render(Dataset{Headers: []string{"A"}}, "Transcript")
	require.Error(t, err)
}

func TestXLSXRendererRelabelsCSV(t *testing.T) {
	file, err := NewXLSXRenderer().Render(sampleDataset(), "")
	require.NoError(t, err)
	require.Equal(t, "xlsx", file.Extension)
	require.Equal(t, ContentTypeXLSX, file.ContentType)

	first := strings.SplitN(string(file.Data), "\n", 2)[0]
	require.Equal(t, "Student ID,Grade Value", strings.TrimRight(first, "\r"))
}
