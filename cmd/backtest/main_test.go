package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	from, to, err := window("", "", "2020-05-29")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, to.Sub(from))
	assert.Equal(t, "America/New_York", from.Location().String())

	from, to, err = window("2020-05-28T13:30:00Z", "", "")
	require.NoError(t, err)
	assert.True(t, from.Equal(time.Date(2020, 5, 28, 13, 30, 0, 0, time.UTC)))
	assert.True(t, to.IsZero())

	_, _, err = window("2020-05-29", "2020-05-28", "")
	assert.Error(t, err)

	_, _, err = window("", "", "yesterday")
	assert.Error(t, err)
}
