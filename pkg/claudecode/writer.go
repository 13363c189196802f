package claudecode

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/gitexec"
	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/agentdeck/agentdeck/pkg/sessions"
)

// Writer exports internal sessions into the external transcript format.
type Writer struct {
	dirs  Dirs
	now   func() time.Time
	newID func() string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// WithIDGenerator overrides how new external ids are minted.
func WithIDGenerator(newID func() string) WriterOption {
	return func(w *Writer) { w.newID = newID }
}

// NewWriter builds a Writer over the given config tree.
func NewWriter(dirs Dirs, opts ...WriterOption) *Writer {
	w := &Writer{
		dirs:  dirs,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ExportResult reports where an export landed.
type ExportResult struct {
	SessionID        string
	ProjectPath      string
	ProjectDir       string
	TranscriptPath   string
	AppendedMessages int
}

// ExportSession writes a session into the external format with upsert
// semantics: a first export writes the full transcript, history log entry,
// and index entry; a repeat export appends only messages not already present
// (matched by id) and refreshes the index. Exporting an unchanged session is
// a no-op apart from the index rebuild.
func (w *Writer) ExportSession(ctx context.Context, session *sessions.Session, projectNameHint string) (*ExportResult, error) {
	if session == nil || len(session.Messages) == 0 {
		return nil, errors.New("cannot export an empty session")
	}

	externalID := session.ClaudeSessionID
	if externalID == "" {
		externalID = w.newID()
	}

	cwd := w.resolveWorkingDir(ctx, session)
	branch := gitexec.CurrentBranch(ctx, cwd)

	projectDir := w.dirs.ProjectDir(cwd)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create project directory")
	}
	transcriptPath := w.dirs.TranscriptPath(projectDir, externalID)

	result := &ExportResult{
		SessionID:      externalID,
		ProjectPath:    cwd,
		ProjectDir:     projectDir,
		TranscriptPath: transcriptPath,
	}

	_, statErr := os.Stat(transcriptPath)
	if statErr == nil {
		appended, err := w.appendDelta(ctx, transcriptPath, session, externalID, cwd, branch)
		if err != nil {
			return nil, err
		}
		result.AppendedMessages = appended
	} else {
		if err := w.writeFullTranscript(transcriptPath, session, externalID, cwd, branch); err != nil {
			return nil, err
		}
		result.AppendedMessages = len(session.Messages)
		if err := w.appendHistory(session, projectNameHint, externalID, cwd); err != nil {
			return nil, err
		}
	}

	if err := w.rebuildIndex(ctx, projectDir, transcriptPath, externalID, cwd); err != nil {
		return nil, err
	}
	return result, nil
}

// resolveWorkingDir prefers the session's own directory, falls back to the
// process cwd, and resolves symlinks when possible.
func (w *Writer) resolveWorkingDir(ctx context.Context, session *sessions.Session) string {
	cwd := session.WorkingDir
	if cwd == "" {
		if processCwd, err := os.Getwd(); err == nil {
			cwd = processCwd
		}
	}
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		return resolved
	}
	logger.G(ctx).WithField("cwd", cwd).Debug("could not resolve working directory through symlinks")
	return cwd
}

// writeFullTranscript converts the whole session into a linear parent-linked
// chain prefixed with a one-time file-history-snapshot marker.
func (w *Writer) writeFullTranscript(path string, session *sessions.Session, externalID, cwd, branch string) error {
	lines := []TranscriptLine{{
		Type:      LineTypeFileHistorySnapshot,
		MessageID: w.newID(),
		SessionID: externalID,
		Timestamp: w.timestamp(time.Time{}),
		Snapshot:  json.RawMessage(`{}`),
	}}

	parent := ""
	for _, msg := range session.Messages {
		line := w.messageToLine(msg, externalID, cwd, branch, parent)
		parent = line.UUID
		lines = append(lines, line)
	}

	if session.Title != "" {
		lines = append(lines, TranscriptLine{
			Type:        LineTypeCustomTitle,
			CustomTitle: session.Title,
			SessionID:   externalID,
		})
	}

	return writeTranscriptLines(path, lines, false)
}

// appendDelta appends only the messages whose ids are not already in the
// transcript, anchored to the current last message. The custom-title marker
// is rewritten only when the title actually changed.
func (w *Writer) appendDelta(ctx context.Context, path string, session *sessions.Session, externalID, cwd, branch string) (int, error) {
	existing, err := readTranscript(ctx, path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read existing transcript")
	}

	seen := make(map[string]bool)
	parent := ""
	existingTitle := ""
	for _, line := range existing {
		if line.IsConversational() && line.UUID != "" {
			seen[line.UUID] = true
			parent = line.UUID
		}
		if line.Type == LineTypeCustomTitle {
			existingTitle = line.CustomTitle
		}
	}

	var delta []TranscriptLine
	for _, msg := range session.Messages {
		if msg.ID != "" && seen[msg.ID] {
			continue
		}
		line := w.messageToLine(msg, externalID, cwd, branch, parent)
		parent = line.UUID
		delta = append(delta, line)
	}

	if session.Title != "" && session.Title != existingTitle {
		delta = append(delta, TranscriptLine{
			Type:        LineTypeCustomTitle,
			CustomTitle: session.Title,
			SessionID:   externalID,
		})
	}

	appended := 0
	for _, line := range delta {
		if line.IsConversational() {
			appended++
		}
	}
	if len(delta) == 0 {
		return 0, nil
	}
	return appended, writeTranscriptLines(path, delta, true)
}

// messageToLine converts one internal message, splitting inline thinking
// back into ordered content blocks for assistant turns.
func (w *Writer) messageToLine(msg sessions.Message, externalID, cwd, branch string, parent string) TranscriptLine {
	id := msg.ID
	if id == "" {
		id = w.newID()
	}

	line := TranscriptLine{
		Type:      string(msg.Role),
		UUID:      id,
		SessionID: externalID,
		CWD:       cwd,
		GitBranch: branch,
		Timestamp: w.timestamp(msg.CreatedAt),
		Message:   &MessagePayload{Role: string(msg.Role)},
	}
	if parent != "" {
		line.ParentUUID = &parent
	}

	if msg.Role == sessions.RoleAssistant {
		var blocks []ContentBlock
		for _, seg := range sessions.SplitContent(msg.Content) {
			if seg.Thinking {
				blocks = append(blocks, ContentBlock{Type: BlockTypeThinking, Thinking: seg.Text})
			} else {
				blocks = append(blocks, ContentBlock{Type: BlockTypeText, Text: seg.Text})
			}
		}
		line.Message.Content = MessageContent{Blocks: blocks}
	} else {
		line.Message.Content = MessageContent{Text: msg.Content}
	}
	return line
}

func (w *Writer) timestamp(t time.Time) string {
	if t.IsZero() {
		t = w.now()
	}
	return t.UTC().Format(time.RFC3339)
}

// appendHistory records a session touch event in the flat history log.
func (w *Writer) appendHistory(session *sessions.Session, projectNameHint, externalID, cwd string) error {
	display := session.FirstUserText()
	if display == "" {
		display = session.Title
	}
	if display == "" {
		display = projectNameHint
	}

	entry := HistoryEntry{
		Display:   display,
		Timestamp: w.now().UnixMilli(),
		Project:   cwd,
		SessionID: externalID,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to serialize history entry")
	}

	if err := os.MkdirAll(filepath.Dir(w.dirs.HistoryPath()), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.dirs.HistoryPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open history log")
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

// rebuildIndex recomputes this session's index entry from the transcript and
// rewrites the per-project index sorted by modified time, newest first. The
// transcript is the source of truth; prior index state is never trusted.
func (w *Writer) rebuildIndex(ctx context.Context, projectDir, transcriptPath, externalID, cwd string) error {
	lines, err := readTranscript(ctx, transcriptPath)
	if err != nil {
		return errors.Wrap(err, "failed to read transcript for indexing")
	}

	entry := IndexEntry{
		SessionID:   externalID,
		FullPath:    transcriptPath,
		ProjectPath: cwd,
	}
	for _, line := range lines {
		if line.Type == LineTypeCustomTitle {
			entry.CustomTitle = line.CustomTitle
		}
		if !line.IsConversational() {
			continue
		}
		entry.MessageCount++
		if entry.Created == "" && line.Timestamp != "" {
			entry.Created = line.Timestamp
		}
		if line.Timestamp != "" {
			entry.Modified = line.Timestamp
		}
		if line.GitBranch != "" {
			entry.GitBranch = line.GitBranch
		}
		if entry.FirstPrompt == "" && line.Type == LineTypeUser && line.Message != nil {
			entry.FirstPrompt = firstTextOf(line.Message.Content)
		}
	}
	if info, err := os.Stat(transcriptPath); err == nil {
		entry.FileMtime = info.ModTime().UnixMilli()
	}

	index := loadIndex(ctx, w.dirs.IndexPath(projectDir))
	filtered := index.Entries[:0]
	for _, existing := range index.Entries {
		if existing.SessionID != externalID {
			filtered = append(filtered, existing)
		}
	}
	index.Entries = append(filtered, entry)
	sort.SliceStable(index.Entries, func(i, j int) bool {
		return index.Entries[i].Modified > index.Entries[j].Modified
	})
	index.Version = indexVersion

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize session index")
	}
	return os.WriteFile(w.dirs.IndexPath(projectDir), append(data, '\n'), 0o644)
}

// loadIndex reads the per-project index, degrading to an empty one on any
// failure since it is rebuilt from transcripts anyway.
func loadIndex(ctx context.Context, path string) SessionIndex {
	index := SessionIndex{Version: indexVersion}
	data, err := os.ReadFile(path)
	if err != nil {
		return index
	}
	if err := json.Unmarshal(data, &index); err != nil {
		logger.G(ctx).WithError(err).WithField("path", path).Debug("ignoring corrupt session index")
		return SessionIndex{Version: indexVersion}
	}
	return index
}

func firstTextOf(content MessageContent) string {
	if content.Blocks == nil {
		return strings.TrimSpace(content.Text)
	}
	for _, block := range content.Blocks {
		if block.Type == BlockTypeText {
			if text := strings.TrimSpace(block.Text); text != "" {
				return text
			}
		}
	}
	return ""
}

func writeTranscriptLines(path string, lines []TranscriptLine, appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	for _, line := range lines {
		data, err := json.Marshal(line)
		if err != nil {
			return errors.Wrap(err, "failed to serialize transcript line")
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
	}
	return nil
}
