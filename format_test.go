package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"THEME", "IMAGES"}, [][]string{
		{"Earth", "3"},
		{"Deep Space", "12"},
	})

	want := "THEME       IMAGES\n" +
		"Earth       3\n" +
		"Deep Space  12\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintTable_NilHeadersOmitsHeaderRow(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, nil, [][]string{
		{"Earth", "3"},
		{"Mars", "7"},
	})

	want := "Earth  3\n" +
		"Mars   7\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintTable_Empty(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, nil, nil)

	require.Empty(t, buf.String())
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	sameYear := time.Date(now.Year(), time.March, 5, 14, 30, 0, 0, time.Local)
	assert.Equal(t, "Mar  5 14:30", formatTime(sameYear))

	otherYear := time.Date(2000, time.March, 5, 14, 30, 0, 0, time.Local)
	assert.Equal(t, "Mar  5  2000", formatTime(otherYear))
}
