package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructurePage_CellSplitting(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "runs of two or more spaces delimit cells",
			line: "नाम   उम्र   शहर",
			want: []string{"नाम", "उम्र", "शहर"},
		},
		{
			name: "single spaces are intra-cell content",
			line: "श्री राम शर्मा",
			want: []string{"श्री राम शर्मा"},
		},
		{
			name: "tabs count as whitespace runs",
			line: "a\t\tb",
			want: []string{"a", "b"},
		},
		{
			name: "mixed gap widths",
			line: "name  age some city",
			want: []string{"name", "age some city"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := StructurePage(tt.line)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0])
		})
	}
}

func TestStructurePage_DropsBlankLines(t *testing.T) {
	rows := StructurePage("first  row\n\n   \n\t\nsecond  row\n")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"first", "row"}, rows[0])
	assert.Equal(t, []string{"second", "row"}, rows[1])
}

func TestStructurePage_RaggedRowsPreserved(t *testing.T) {
	rows := StructurePage("a  b  c\nd  e\nf")
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 3)
	assert.Len(t, rows[1], 2)
	assert.Len(t, rows[2], 1)
}

func TestStructurePages_EmptyPageIsAdvisoryNotFailure(t *testing.T) {
	record, advisories := StructurePages([]string{
		"row  one",
		"   \n\t\n",
		"row  three",
	})

	require.Len(t, record.Rows, 2)
	require.Len(t, advisories, 1)
	assert.Equal(t, 2, advisories[0].Page)
}

func TestStructurePages_AllBlankYieldsZeroRows(t *testing.T) {
	record, advisories := StructurePages([]string{"", "  \n  "})
	assert.Empty(t, record.Rows)
	assert.Len(t, advisories, 2)
}

func TestStructurePages_PageOrderPreserved(t *testing.T) {
	record, _ := StructurePages([]string{"p1r1\np1r2", "p2r1"})
	require.Len(t, record.Rows, 3)
	assert.Equal(t, []string{"p1r1"}, record.Rows[0])
	assert.Equal(t, []string{"p1r2"}, record.Rows[1])
	assert.Equal(t, []string{"p2r1"}, record.Rows[2])
}
