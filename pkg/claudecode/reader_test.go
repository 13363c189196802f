package claudecode

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/agentdeck/pkg/sessions"
)

func appendHistoryLine(t *testing.T, dirs Dirs, entry HistoryEntry) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dirs.Root, 0o755))
	f, err := os.OpenFile(dirs.HistoryPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	_, err = f.Write(append(data, '\n'))
	require.NoError(t, err)
}

func writeTranscript(t *testing.T, dirs Dirs, project, sessionID string, lines []TranscriptLine) string {
	t.Helper()
	projectDir := filepath.Join(dirs.ProjectsDir(), project)
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	path := dirs.TranscriptPath(projectDir, sessionID)
	require.NoError(t, writeTranscriptLines(path, lines, false))
	return path
}

func userLine(sessionID, id, parent, text, ts string) TranscriptLine {
	line := TranscriptLine{
		Type:      LineTypeUser,
		UUID:      id,
		SessionID: sessionID,
		Timestamp: ts,
		Message:   &MessagePayload{Role: "user", Content: MessageContent{Text: text}},
	}
	if parent != "" {
		line.ParentUUID = &parent
	}
	return line
}

func assistantLine(sessionID, id, parent string, blocks []ContentBlock, usage *Usage, ts string) TranscriptLine {
	line := TranscriptLine{
		Type:      LineTypeAssistant,
		UUID:      id,
		SessionID: sessionID,
		Timestamp: ts,
		Message:   &MessagePayload{Role: "assistant", Content: MessageContent{Blocks: blocks}, Usage: usage},
	}
	if parent != "" {
		line.ParentUUID = &parent
	}
	return line
}

func TestListSessions(t *testing.T) {
	dirs := testDirs(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	appendHistoryLine(t, dirs, HistoryEntry{Display: "older prompt", Timestamp: base.UnixMilli(), Project: "/home/me/app", SessionID: "sess-a"})
	appendHistoryLine(t, dirs, HistoryEntry{Display: "newer prompt", Timestamp: base.Add(2 * time.Hour).UnixMilli(), Project: "/home/me/web", SessionID: "sess-b"})
	appendHistoryLine(t, dirs, HistoryEntry{Display: "follow-up", Timestamp: base.Add(3 * time.Hour).UnixMilli(), Project: "/home/me/app", SessionID: "sess-a"})

	writeTranscript(t, dirs, "-home-me-app", "sess-a", []TranscriptLine{
		userLine("sess-a", "u1", "", "older prompt", "2026-02-27T10:00:00Z"),
		assistantLine("sess-a", "a1", "u1", []ContentBlock{{Type: BlockTypeText, Text: "answer"}}, &Usage{InputTokens: 10, OutputTokens: 20}, "2026-02-27T10:01:00Z"),
		userLine("sess-a", "u2", "a1", "follow-up", "2026-02-27T13:00:00Z"),
	})

	summaries, err := NewReader(dirs).ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Sorted by last use, newest first: sess-a was touched at +3h.
	assert.Equal(t, "sess-a", summaries[0].SessionID)
	assert.Equal(t, "older prompt", summaries[0].Display)
	assert.Equal(t, 3, summaries[0].MessageCount)
	assert.Equal(t, 10, summaries[0].InputTokens)
	assert.Equal(t, 20, summaries[0].OutputTokens)
	assert.Equal(t, base, summaries[0].Created)
	assert.Equal(t, base.Add(3*time.Hour), summaries[0].LastUsed)

	// sess-b has no transcript: history-only data, zero counts.
	assert.Equal(t, "sess-b", summaries[1].SessionID)
	assert.Equal(t, 0, summaries[1].MessageCount)
	assert.Empty(t, summaries[1].TranscriptPath)
}

func TestListSessionsNoHistory(t *testing.T) {
	summaries, err := NewReader(testDirs(t)).ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestLoadSession(t *testing.T) {
	dirs := testDirs(t)
	ctx := context.Background()

	appendHistoryLine(t, dirs, HistoryEntry{Display: "hello", Timestamp: time.Now().UnixMilli(), Project: "/home/me/app", SessionID: "sess-a"})
	writeTranscript(t, dirs, "-home-me-app", "sess-a", []TranscriptLine{
		{Type: LineTypeFileHistorySnapshot, MessageID: "snap"},
		userLine("sess-a", "u1", "", "hello", "2026-02-27T10:00:00Z"),
		assistantLine("sess-a", "a1", "u1", []ContentBlock{
			{Type: BlockTypeThinking, Thinking: "consider the question"},
			{Type: BlockTypeText, Text: "hi there"},
		}, nil, "2026-02-27T10:01:00Z"),
		{Type: LineTypeCustomTitle, CustomTitle: "Greeting", SessionID: "sess-a"},
	})

	session, err := NewReader(dirs).LoadSession(ctx, "sess-a")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "sess-a", session.ClaudeSessionID)
	assert.Equal(t, "Greeting", session.Title)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, sessions.RoleUser, session.Messages[0].Role)
	assert.Equal(t, "hello", session.Messages[0].Content)
	assert.Equal(t, "[Thinking: consider the question]\n\nhi there", session.Messages[1].Content)
}

func TestLoadSessionAbsent(t *testing.T) {
	dirs := testDirs(t)
	ctx := context.Background()
	reader := NewReader(dirs)

	// No transcript at all.
	session, err := reader.LoadSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, session)

	// Transcript present but no history metadata.
	writeTranscript(t, dirs, "-home-me-app", "orphan", []TranscriptLine{
		userLine("orphan", "u1", "", "hi", "2026-02-27T10:00:00Z"),
	})
	session, err = reader.LoadSession(ctx, "orphan")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestReadTranscriptSkipsGarbage(t *testing.T) {
	dirs := testDirs(t)
	ctx := context.Background()

	projectDir := filepath.Join(dirs.ProjectsDir(), "-home-me-app")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	path := dirs.TranscriptPath(projectDir, "sess-a")

	content := `{"type":"user","uuid":"u1","message":{"role":"user","content":"ok"}}
not json at all
{"type":"assistant","uuid":"a1","message":{"role":"assistant","content":[{"type":"text","text":"fine"}]}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lines, err := readTranscript(ctx, path)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	dirs := testDirs(t)
	ctx := context.Background()
	w := newTestWriter(dirs)

	original := sampleSession(t.TempDir())
	result, err := w.ExportSession(ctx, original, "")
	require.NoError(t, err)

	loaded, err := NewReader(dirs).LoadSession(ctx, result.SessionID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, original.Title, loaded.Title)
	require.Len(t, loaded.Messages, len(original.Messages))
	for i := range original.Messages {
		assert.Equal(t, original.Messages[i].Role, loaded.Messages[i].Role)
		assert.Equal(t, original.Messages[i].Content, loaded.Messages[i].Content)
	}
}
