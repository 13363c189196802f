// Package claudecode reads and writes Claude Code's on-disk session format:
// per-project JSONL transcripts under ~/.claude/projects, a flat history log,
// and a per-project sessions-index.json summary file.
package claudecode

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Transcript line types.
const (
	LineTypeUser                = "user"
	LineTypeAssistant           = "assistant"
	LineTypeCustomTitle         = "custom-title"
	LineTypeFileHistorySnapshot = "file-history-snapshot"
)

// Content block types within a message.
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ContentBlock is one typed element of a message's content array.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// MessageContent is either a bare string or an array of content blocks on
// the wire. Blocks wins when both are set.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
}

// MarshalJSON writes the array form when blocks are present, else a string.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts both wire forms.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Blocks = nil
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return errors.Wrap(err, "message content is neither string nor block array")
	}
	c.Blocks = blocks
	return nil
}

// Usage carries token counters attached to assistant messages.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// MessagePayload is the message body of a user or assistant line.
type MessagePayload struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
	Usage   *Usage         `json:"usage,omitempty"`
}

// TranscriptLine is one JSON object in a session transcript. Only the fields
// relevant to the line's type are populated.
type TranscriptLine struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid,omitempty"`
	ParentUUID  *string         `json:"parentUuid,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	CWD         string          `json:"cwd,omitempty"`
	GitBranch   string          `json:"gitBranch,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	IsSidechain bool            `json:"isSidechain,omitempty"`
	Message     *MessagePayload `json:"message,omitempty"`

	// custom-title marker lines
	CustomTitle string `json:"customTitle,omitempty"`

	// file-history-snapshot marker lines
	MessageID string          `json:"messageId,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}

// IsConversational reports whether the line is a user or assistant message.
func (l *TranscriptLine) IsConversational() bool {
	return l.Type == LineTypeUser || l.Type == LineTypeAssistant
}

// HistoryEntry is one line of the flat append-only history log, recording a
// session touch event.
type HistoryEntry struct {
	Display   string `json:"display"`
	Timestamp int64  `json:"timestamp"`
	Project   string `json:"project"`
	SessionID string `json:"sessionId"`
}

// SessionIndex is the per-project sessions-index.json document.
type SessionIndex struct {
	Version int          `json:"version"`
	Entries []IndexEntry `json:"entries"`
}

const indexVersion = 1

// IndexEntry summarizes one session for fast listing. Created and Modified
// are RFC3339 strings taken from the first and last transcript line.
type IndexEntry struct {
	SessionID    string `json:"sessionId"`
	FullPath     string `json:"fullPath"`
	FileMtime    int64  `json:"fileMtime"`
	FirstPrompt  string `json:"firstPrompt"`
	CustomTitle  string `json:"customTitle,omitempty"`
	MessageCount int    `json:"messageCount"`
	Created      string `json:"created"`
	Modified     string `json:"modified"`
	GitBranch    string `json:"gitBranch"`
	ProjectPath  string `json:"projectPath"`
	IsSidechain  bool   `json:"isSidechain"`
}
