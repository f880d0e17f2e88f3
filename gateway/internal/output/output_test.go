package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer

	Success(&buf, "Created %d jobs", 3)
	Error(&buf, "failed: %s", "boom")
	Info(&buf, "queue %s", "ig:comment_jobs")
	Warn(&buf, "careful")

	assert.Equal(t, "✓ Created 3 jobs\n✗ failed: boom\nqueue ig:comment_jobs\n⚠ careful\n", buf.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, map[string]int{"length": 2}))

	assert.Contains(t, buf.String(), "\n  \"length\": 2\n")
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["length"])
}

func TestTable_Render(t *testing.T) {
	table := NewTable("COMMENT", "MEDIA")
	table.AddRow("c1", "media-123")
	table.AddRow("comment-22")
	table.AddRow("c3", "m3", "dropped")

	var buf bytes.Buffer
	table.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "COMMENT     MEDIA      ", lines[0])
	assert.Equal(t, "----------  ---------  ", lines[1])
	assert.Equal(t, "c1          media-123  ", lines[2])
	assert.Equal(t, "comment-22             ", lines[3])
	assert.NotContains(t, buf.String(), "dropped")
}
