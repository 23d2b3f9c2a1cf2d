package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdbsearch/internal/model"
)

func TestPrintResponse(t *testing.T) {
	resp := &model.QueryResponse{
		RunID: "run-1",
		Conversation: []model.Message{
			{Role: model.RoleUser, Content: "4-room flats in Bishan"},
			{Role: model.RoleAssistant, Content: "Found 2 flats near Bishan."},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printResponse(&buf, resp, false))
	assert.Equal(t, "\n=== FINAL RESPONSE ===\nFound 2 flats near Bishan.\n", buf.String())
}

func TestPrintResponse_NoAssistantMessage(t *testing.T) {
	resp := &model.QueryResponse{
		Conversation: []model.Message{{Role: model.RoleUser, Content: "hello"}},
	}

	var buf bytes.Buffer
	require.NoError(t, printResponse(&buf, resp, false))
	assert.Contains(t, buf.String(), "No output extracted.")
}

func TestPrintResponse_JSON(t *testing.T) {
	resp := &model.QueryResponse{RunID: "run-9", Total: 4}

	var buf bytes.Buffer
	require.NoError(t, printResponse(&buf, resp, true))

	var decoded model.QueryResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-9", decoded.RunID)
	assert.Equal(t, 4, decoded.Total)
}
