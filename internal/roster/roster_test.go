package roster

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSVWithHeader(t *testing.T) {
	input := "\ufeff전화번호,이름,학교,학년\n" +
		"010-1234-5678,김민수,한빛중,2\n" +
		"\n" +
		"01098765432, 이서연 ,새솔고,3학년\n"

	res, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, Row{Line: 2, Phone: "01012345678", Name: "김민수", School: "한빛중", Grade: 2}, res.Rows[0])
	assert.Equal(t, Row{Line: 4, Phone: "01098765432", Name: "이서연", School: "새솔고", Grade: 3}, res.Rows[1])
}

func TestParseCSVHeaderAfterBlankRows(t *testing.T) {
	input := ",,,\n" +
		"phone,name,school,grade\n" +
		"010-1234-5678,Kim,Seoul,3\n" +
		"이름,전화,학교,학년\n"

	res, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, Row{Line: 3, Phone: "01012345678", Name: "Kim", School: "Seoul", Grade: 3}, res.Rows[0])
	// a label row further down is data, not a header
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Line)
}

func TestParseCSVReportsBadRows(t *testing.T) {
	input := "010-1111-2222,A,S,1\n" +
		"02-123-4567,B,S,1\n" +
		"010-3333-4444,,S,1\n" +
		"010-5555-6666,C,S,13\n" +
		"010-7777-8888,D,S,x\n"

	res, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1, res.Rows[0].Line)

	lines := make([]int, 0, len(res.Errors))
	for _, e := range res.Errors {
		lines = append(lines, e.Line)
	}
	assert.Equal(t, []int{2, 3, 4, 5}, lines)
	assert.Contains(t, res.Errors[1].Message, "name is required")
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("phone,name,school,grade\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseRowRestoresDroppedLeadingZero(t *testing.T) {
	row, err := ParseRow(7, []string{"1012345678", "Kim", "", "6"})
	require.NoError(t, err)
	assert.Equal(t, "01012345678", row.Phone)
	assert.Equal(t, 6, row.Grade)
}

func TestIsHeader(t *testing.T) {
	assert.True(t, IsHeader([]string{"phone", "name"}))
	assert.True(t, IsHeader([]string{"전화번호"}))
	assert.False(t, IsHeader([]string{"010-1234-5678"}))
	assert.False(t, IsHeader([]string{""}))
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"phone", "name", "school", "grade"},
		{"010-2222-3333", "박지훈", "바른초", 5},
		{"not a phone", "X", "Y", 1},
	}
	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "01022223333", res.Rows[0].Phone)
	assert.Equal(t, 5, res.Rows[0].Grade)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)
}
