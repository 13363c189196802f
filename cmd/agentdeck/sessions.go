package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/pkg/claudecode"
	"github.com/agentdeck/agentdeck/pkg/config"
	"github.com/agentdeck/agentdeck/pkg/presenter"
	"github.com/agentdeck/agentdeck/pkg/sessions"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Read and write Claude Code sessions",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	sessionsExportCmd.Flags().String("project-name", "", "Display name used when the session has no user prompt")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsCmd.AddCommand(sessionsWatchCmd)
}

func claudeDirs(cfg *config.Config) claudecode.Dirs {
	if cfg.ClaudeDir != "" {
		return claudecode.Dirs{Root: cfg.ClaudeDir}
	}
	return claudecode.DefaultDirs()
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Claude Code sessions, most recent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		summaries, err := claudecode.NewReader(claudeDirs(cfg)).ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			presenter.Info("No sessions found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tLAST USED\tMSGS\tTOKENS\tPROJECT\tPROMPT")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
				s.SessionID, s.LastUsed.Format("2006-01-02 15:04"), s.MessageCount,
				s.InputTokens+s.OutputTokens, s.Project, truncate(s.Display, 50))
		}
		return tw.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print one session's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		session, err := claudecode.NewReader(claudeDirs(cfg)).LoadSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if session == nil {
			return errors.Errorf("session %s not found", args[0])
		}

		if session.Title != "" {
			presenter.Section(session.Title)
		}
		for _, msg := range session.Messages {
			fmt.Printf("[%s] %s\n\n", msg.Role, msg.Content)
		}
		return nil
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session.json>",
	Short: "Export a session file into the Claude Code transcript format",
	Long: `Export a session into Claude Code's on-disk format. The input is a JSON
file holding the session (id, title, workingDir, messages). Re-exporting the
same session appends only new messages.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		projectName, _ := cmd.Flags().GetString("project-name")

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", args[0])
		}
		var session sessions.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return errors.Wrapf(err, "%s is not a valid session file", args[0])
		}

		result, err := claudecode.NewWriter(claudeDirs(cfg)).ExportSession(cmd.Context(), &session, projectName)
		if err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Exported session %s (%d new messages)", result.SessionID, result.AppendedMessages))
		presenter.Info(fmt.Sprintf("Transcript: %s", result.TranscriptPath))
		return nil
	},
}

var sessionsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for transcript changes and print affected session ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		changed, err := claudecode.NewWatcher(claudeDirs(cfg)).Watch(cmd.Context())
		if err != nil {
			return err
		}

		presenter.Info("Watching for session changes, Ctrl-C to stop")
		for sessionID := range changed {
			fmt.Println(sessionID)
		}
		return nil
	},
}
