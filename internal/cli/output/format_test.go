package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "env", input: "env", want: FormatEnv},
		{name: "dotenv alias", input: " dotenv ", want: FormatEnv},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type serviceList struct {
	Names []string `json:"names" yaml:"names"`
}

func (s serviceList) Headers() []string { return []string{"Name"} }

func (s serviceList) Rows() [][]string {
	rows := make([][]string, len(s.Names))
	for i, n := range s.Names {
		rows[i] = []string{n}
	}
	return rows
}

func (s serviceList) Env() map[string]string {
	return map[string]string{"SERVICES": "postgres redis", "COUNT": "2"}
}

func TestPrinterPrint(t *testing.T) {
	data := serviceList{Names: []string{"postgres", "redis"}}

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatTable, []string{"NAME", "postgres", "redis"}},
		{FormatJSON, []string{`"names": [`, `"postgres"`}},
		{FormatYAML, []string{"names:", "- postgres"}},
		{FormatEnv, []string{"COUNT=2\n", `SERVICES="postgres redis"`}},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewPrinter(&buf, tt.format, false).Print(data))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestPrinterPrint_Fallbacks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(map[string]int{"port": 5432}))
	assert.Equal(t, "port: 5432\n", buf.String())

	err := NewPrinter(&buf, FormatEnv, false).Print(42)
	assert.ErrorContains(t, err, "cannot be printed as env")
}

func TestPrinterStatusMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	p.Success("started")
	p.Warning("slow")
	p.Error("failed")
	assert.Equal(t, "started\nslow\nfailed\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, FormatTable, true).Success("ok")
	assert.Equal(t, "\033[32mok\033[0m\n", buf.String())
}

func TestPrinterStatusSuppressedForStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON, true)
	p.Success("started")
	p.Println("hello")
	assert.Empty(t, buf.String())
}

func TestColorSupported(t *testing.T) {
	assert.False(t, ColorSupported(&bytes.Buffer{}))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, StdoutPrinter(FormatTable, false).ColorEnabled())
}
