package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"story-maker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const diamond = `{
	"title": "다이아몬드",
	"nodes": [
		{"id": "A", "content": "시작"},
		{"id": "B", "content": "왼쪽"},
		{"id": "C", "content": "오른쪽"},
		{"id": "D", "title": "행복한 결말", "content": "모두 만났다"}
	],
	"links": [
		{"source": "A", "target": "B", "label": "왼쪽으로"},
		{"source": "A", "target": "C", "label": "오른쪽으로"},
		{"source": "B", "target": "D"},
		{"source": "C", "target": "D"}
	]
}`

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunToStdout(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var stdout bytes.Buffer

	err := run([]string{"-in", writeInput(t, diamond)}, &stdout, zap.New(core))
	require.NoError(t, err)

	var doc models.StoryDocument
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, "다이아몬드", doc.Metadata.Title)
	require.NoError(t, models.VerifyTree(&doc))
	require.NoError(t, models.Validate(&doc))
	assert.Len(t, doc.Nodes["start"].Choices, 2)

	assert.NotZero(t, logs.FilterMessage("Import warning").Len(), "shared ending should be reported")
	assert.Equal(t, 1, logs.FilterMessage("Story converted").Len())
}

func TestRunToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	var stdout bytes.Buffer

	err := run([]string{"-in", writeInput(t, diamond), "-out", out}, &stdout, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, stdout.Len())

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc models.StoryDocument
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Contains(t, doc.Nodes, "start")
}

func TestRunErrors(t *testing.T) {
	t.Run("Missing input flag", func(t *testing.T) {
		var stdout bytes.Buffer
		assert.Error(t, run(nil, &stdout, zap.NewNop()))
	})

	t.Run("Unreadable file", func(t *testing.T) {
		var stdout bytes.Buffer
		err := run([]string{"-in", filepath.Join(t.TempDir(), "missing.json")}, &stdout, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("Unknown shape", func(t *testing.T) {
		var stdout bytes.Buffer
		err := run([]string{"-in", writeInput(t, `{"hello": "world"}`)}, &stdout, zap.NewNop())
		assert.Error(t, err)
		assert.Zero(t, stdout.Len())
	})

	t.Run("Node limit", func(t *testing.T) {
		var stdout bytes.Buffer
		err := run([]string{"-in", writeInput(t, diamond), "-max-nodes", "2"}, &stdout, zap.NewNop())
		assert.Error(t, err)
	})
}
