package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestOutputColumnSpan(t *testing.T) {
	first, err := excelize.ColumnNumberToName(FirstOutputCol)
	require.NoError(t, err)
	last, err := excelize.ColumnNumberToName(LastOutputCol)
	require.NoError(t, err)

	assert.Equal(t, "L", first)
	assert.Equal(t, "AB", last)
	assert.Equal(t, 17, OutputColumnCount)
}
