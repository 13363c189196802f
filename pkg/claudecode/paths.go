package claudecode

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	projectsDirName  = "projects"
	historyFileName  = "history.jsonl"
	indexFileName    = "sessions-index.json"
	transcriptSuffix = ".jsonl"
)

// Dirs resolves locations inside the external tool's config tree.
type Dirs struct {
	Root string
}

// DefaultDirs points at ~/.claude.
func DefaultDirs() Dirs {
	home, err := os.UserHomeDir()
	if err != nil {
		return Dirs{Root: ".claude"}
	}
	return Dirs{Root: filepath.Join(home, ".claude")}
}

// ProjectsDir is the directory holding per-project transcript folders.
func (d Dirs) ProjectsDir() string {
	return filepath.Join(d.Root, projectsDirName)
}

// HistoryPath is the flat append-only history log.
func (d Dirs) HistoryPath() string {
	return filepath.Join(d.Root, historyFileName)
}

// ProjectDir returns the transcript folder for the given working directory.
func (d Dirs) ProjectDir(workingDir string) string {
	return filepath.Join(d.ProjectsDir(), EncodeProjectPath(workingDir))
}

// IndexPath is the sessions-index.json inside a project folder.
func (d Dirs) IndexPath(projectDir string) string {
	return filepath.Join(projectDir, indexFileName)
}

// TranscriptPath is the JSONL file for one session inside a project folder.
func (d Dirs) TranscriptPath(projectDir, sessionID string) string {
	return filepath.Join(projectDir, sessionID+transcriptSuffix)
}

// EncodeProjectPath maps an absolute working directory onto the external
// tool's folder naming: path separators and dots become dashes, so
// /home/me/src/app.web becomes -home-me-src-app-web.
func EncodeProjectPath(workingDir string) string {
	encoded := strings.ReplaceAll(workingDir, string(filepath.Separator), "-")
	encoded = strings.ReplaceAll(encoded, ".", "-")
	return encoded
}
