package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"Student", "Score", "Attendance"},
		Rows: []map[string]string{
			{"Student": "Amira", "Score": "88", "Attendance": "95%"},
			{"Student": "Bilal", "Score": "72", "Attendance": "90%"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)
	require.Equal(t, "Student,Score,Attendance\nAmira,88,95%\nBilal,72,90%\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	data := Dataset{
		Headers: []string{"Student", "Score"},
		Rows:    []map[string]string{{"Student": "Amira", "Score": "88"}},
	}

	out, err := exporter.Render(data, "Class Report")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, "%PDF", string(out[:4]))
}
