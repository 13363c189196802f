package claudecode

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/agentdeck/agentdeck/pkg/sessions"
)

// Reader lists and loads sessions written by the external tool.
type Reader struct {
	dirs Dirs
}

// NewReader builds a Reader over the given config tree.
func NewReader(dirs Dirs) *Reader {
	return &Reader{dirs: dirs}
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID      string
	Project        string
	Display        string
	Created        time.Time
	LastUsed       time.Time
	MessageCount   int
	InputTokens    int
	OutputTokens   int
	TranscriptPath string
}

// readTranscript parses a JSONL transcript, skipping lines that do not parse.
func readTranscript(ctx context.Context, path string) ([]TranscriptLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []TranscriptLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var line TranscriptLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			logger.G(ctx).WithError(err).WithField("path", path).Debug("skipping unparsable transcript line")
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return lines, nil
}

// readHistory parses the flat history log, skipping unparsable lines. A
// missing log yields an empty slice.
func (r *Reader) readHistory(ctx context.Context) ([]HistoryEntry, error) {
	f, err := os.Open(r.dirs.HistoryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to open history log")
	}
	defer f.Close()

	var entries []HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logger.G(ctx).WithError(err).Debug("skipping unparsable history entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// findTranscript locates <sessionID>.jsonl under any project folder.
func (r *Reader) findTranscript(sessionID string) string {
	pattern := filepath.Join(r.dirs.ProjectsDir(), "**", sessionID+transcriptSuffix)
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// ListSessions groups the history log by session id and augments each group
// with message counts and token totals from the matching transcript when one
// exists. Results are sorted by last use, newest first.
func (r *Reader) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	history, err := r.readHistory(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*SessionSummary)
	var order []string
	for _, entry := range history {
		if entry.SessionID == "" {
			continue
		}
		ts := time.UnixMilli(entry.Timestamp)
		summary, ok := byID[entry.SessionID]
		if !ok {
			summary = &SessionSummary{
				SessionID: entry.SessionID,
				Project:   entry.Project,
				Display:   entry.Display,
				Created:   ts,
				LastUsed:  ts,
			}
			byID[entry.SessionID] = summary
			order = append(order, entry.SessionID)
			continue
		}
		if ts.Before(summary.Created) {
			summary.Created = ts
			summary.Display = entry.Display
		}
		if ts.After(summary.LastUsed) {
			summary.LastUsed = ts
		}
	}

	results := make([]SessionSummary, 0, len(order))
	for _, id := range order {
		summary := byID[id]
		if path := r.findTranscript(id); path != "" {
			summary.TranscriptPath = path
			lines, err := readTranscript(ctx, path)
			if err != nil {
				logger.G(ctx).WithError(err).WithField("sessionId", id).Debug("transcript unreadable, listing history data only")
			}
			for _, line := range lines {
				if !line.IsConversational() {
					continue
				}
				summary.MessageCount++
				if line.Message != nil && line.Message.Usage != nil {
					summary.InputTokens += line.Message.Usage.InputTokens
					summary.OutputTokens += line.Message.Usage.OutputTokens
				}
			}
		}
		results = append(results, *summary)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].LastUsed.After(results[j].LastUsed)
	})
	return results, nil
}

// LoadSession reads one session into the internal model. It returns nil
// without error when either the transcript file or the history metadata is
// missing.
func (r *Reader) LoadSession(ctx context.Context, sessionID string) (*sessions.Session, error) {
	path := r.findTranscript(sessionID)
	if path == "" {
		return nil, nil
	}

	history, err := r.readHistory(ctx)
	if err != nil {
		return nil, err
	}
	var meta *HistoryEntry
	for i := range history {
		if history[i].SessionID == sessionID {
			meta = &history[i]
			break
		}
	}
	if meta == nil {
		return nil, nil
	}

	lines, err := readTranscript(ctx, path)
	if err != nil {
		return nil, err
	}

	session := &sessions.Session{
		ID:              sessionID,
		ClaudeSessionID: sessionID,
		WorkingDir:      meta.Project,
		CreatedAt:       time.UnixMilli(meta.Timestamp),
	}

	for _, line := range lines {
		if line.Type == LineTypeCustomTitle && line.CustomTitle != "" {
			session.Title = line.CustomTitle
			continue
		}
		if !line.IsConversational() || line.Message == nil {
			continue
		}
		if line.CWD != "" {
			session.WorkingDir = line.CWD
		}

		msg := sessions.Message{
			ID:   line.UUID,
			Role: sessions.Role(line.Type),
		}
		if ts, err := time.Parse(time.RFC3339, line.Timestamp); err == nil {
			msg.CreatedAt = ts
			session.UpdatedAt = ts
		}
		msg.Content = contentToInternal(line.Message.Content)
		if msg.Content == "" {
			continue
		}
		session.Messages = append(session.Messages, msg)
	}

	return session, nil
}

// contentToInternal flattens wire content into the internal inline form,
// preserving text and thinking block order. Tool blocks are not part of the
// internal model and are dropped.
func contentToInternal(content MessageContent) string {
	if content.Blocks == nil {
		return strings.TrimSpace(content.Text)
	}

	var segments []sessions.Segment
	for _, block := range content.Blocks {
		switch block.Type {
		case BlockTypeText:
			if text := strings.TrimSpace(block.Text); text != "" {
				segments = append(segments, sessions.Segment{Text: text})
			}
		case BlockTypeThinking:
			if thinking := strings.TrimSpace(block.Thinking); thinking != "" {
				segments = append(segments, sessions.Segment{Thinking: true, Text: thinking})
			}
		}
	}
	return sessions.JoinContent(segments)
}
