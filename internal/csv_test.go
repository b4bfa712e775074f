package internal

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	name string
	qty  int
}

func rowFromCSV(record, headers []string) (row, error) {
	qty, err := strconv.Atoi(record[1])
	if err != nil {
		return row{}, err
	}
	return row{name: record[0], qty: qty}, nil
}

func TestParseCSVWithHeader(t *testing.T) {
	input := "name,qty\nbento,3\nsandwich, 5\n"

	var rows []row
	for result := range ParseCSV(strings.NewReader(input), true, rowFromCSV) {
		require.NoError(t, result.Error)
		rows = append(rows, result.Value)
	}

	assert.Equal(t, []row{{"bento", 3}, {"sandwich", 5}}, rows)
}

func TestParseCSVReportsLineOfBadRecord(t *testing.T) {
	input := "bento,3\nonigiri,many\n"

	var lastErr error
	var lastLine int
	for result := range ParseCSV(strings.NewReader(input), false, rowFromCSV) {
		if result.Error != nil {
			lastErr = result.Error
			lastLine = result.LineNum
		}
	}

	require.Error(t, lastErr)
	assert.Equal(t, 2, lastLine)
	assert.Contains(t, lastErr.Error(), "line 2")
}

func TestParseCSVStopsWhenConsumerBreaks(t *testing.T) {
	input := "a,1\nb,2\nc,3\n"

	count := 0
	for range ParseCSV(strings.NewReader(input), false, rowFromCSV) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}
