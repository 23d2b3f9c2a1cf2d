package district

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 27, table.Len())

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, table, again)
}

func TestResolve(t *testing.T) {
	table := MustDefault()

	tests := []struct {
		code   string
		want   string
		wantOK bool
	}{
		{code: "BP", want: "BUKIT PANJANG", wantOK: true},
		{code: "bp", want: "BUKIT PANJANG", wantOK: true},
		{code: " TP ", want: "TOA PAYOH", wantOK: true},
		{code: "KWN", want: "KALLANG/WHAMPOA", wantOK: true},
		{code: "CT", want: "CENTRAL AREA", wantOK: true},
		{code: "TG", want: "TENGAH", wantOK: true},
		{code: "XX", wantOK: false},
		{code: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := table.Resolve(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonical(t *testing.T) {
	table := MustDefault()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "exact", input: "BISHAN", want: "BISHAN", wantOK: true},
		{name: "lower case", input: "bukit panjang", want: "BUKIT PANJANG", wantOK: true},
		{name: "extra spaces", input: "  toa   payoh ", want: "TOA PAYOH", wantOK: true},
		{name: "alias", input: "Kallang", want: "KALLANG/WHAMPOA", wantOK: true},
		{name: "slash variant", input: "KALLANG WHAMPOA", want: "KALLANG/WHAMPOA", wantOK: true},
		{name: "central alias", input: "central", want: "CENTRAL AREA", wantOK: true},
		{name: "contains", input: "TAMPINES NORTH", want: "TAMPINES", wantOK: true},
		{name: "trailing words", input: "Ang Mo Kio Avenue 3", want: "ANG MO KIO", wantOK: true},
		{name: "ambiguous prefix", input: "BUKIT", want: "BUKIT", wantOK: false},
		{name: "fragment", input: "mo", want: "MO", wantOK: false},
		{name: "partial word", input: "SENG", want: "SENG", wantOK: false},
		{name: "word prefix only", input: "TAMPINESVILLE", want: "TAMPINESVILLE", wantOK: false},
		{name: "unknown", input: "ATLANTIS", want: "ATLANTIS", wantOK: false},
		{name: "empty", input: "   ", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Canonical(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "districts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codes:\n  zz: zedtown\n"), 0o600))

	table, err := Load(path)
	require.NoError(t, err)

	name, ok := table.Resolve("ZZ")
	assert.True(t, ok)
	assert.Equal(t, "ZEDTOWN", name)
	assert.Equal(t, []string{"ZEDTOWN"}, table.Names())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("codes: ["))
	assert.Error(t, err)

	_, err = Parse([]byte("aliases:\n  a: b\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
