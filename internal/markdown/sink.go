// Package markdown renders memories into the append-only human-readable
// log. The block format is a stable contract; downstream tooling greps it.
package markdown

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eva-agent/eva-memory/internal/models"
)

const maxEntitiesPerBlock = 8

// Sink appends rendered memory blocks to the daily log and, when the
// memory carries a project, to that project's log. It never reads
// existing content back.
type Sink struct {
	dailyDir    string
	projectsDir string
	logger      *slog.Logger
}

func NewSink(dailyDir, projectsDir string, logger *slog.Logger) *Sink {
	return &Sink{dailyDir: dailyDir, projectsDir: projectsDir, logger: logger}
}

// Append writes the memory block to the daily file and the project file.
// Returns an error only when the daily write fails; a project write
// failure is logged and swallowed since the daily log already holds the
// record.
func (s *Sink) Append(mem models.Memory) error {
	block := Render(mem)
	today := time.Now().UTC().Format("2006-01-02")

	dailyPath := filepath.Join(s.dailyDir, today+".md")
	header := fmt.Sprintf("# Memory Log: %s\n\n", today)
	if err := appendWithHeader(dailyPath, header, block); err != nil {
		return fmt.Errorf("writing daily log: %w", err)
	}

	if mem.Project != "" {
		projectPath := filepath.Join(s.projectsDir, mem.Project+".md")
		header := fmt.Sprintf("# Project: %s\n\n", mem.Project)
		if err := appendWithHeader(projectPath, header, block); err != nil {
			s.logger.Warn("project log write failed", "project", mem.Project, "error", err)
		}
	}
	return nil
}

func appendWithHeader(path, header, block string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(block)
	return err
}

// Render produces the markdown block for one memory. Optional lines are
// emitted only when the field is set.
func Render(mem models.Memory) string {
	var b strings.Builder

	created := mem.Created.UTC().Format(time.RFC3339)
	fmt.Fprintf(&b, "## [%s] %s\n", strings.ToUpper(mem.Type), mem.Summary)
	fmt.Fprintf(&b, "- **ID:** `%s`\n", mem.ID)
	fmt.Fprintf(&b, "- **Importance:** %s (%d/10)\n", strings.Repeat("*", mem.Importance), mem.Importance)
	fmt.Fprintf(&b, "- **Time:** %s\n", created)

	if mem.Project != "" {
		fmt.Fprintf(&b, "- **Project:** %s\n", mem.Project)
	}
	if len(mem.Entities) > 0 {
		entities := mem.Entities
		if len(entities) > maxEntitiesPerBlock {
			entities = entities[:maxEntitiesPerBlock]
		}
		fmt.Fprintf(&b, "- **Entities:** %s\n", strings.Join(entities, ", "))
	}
	if len(mem.Tags) > 0 {
		tagged := make([]string, len(mem.Tags))
		for i, t := range mem.Tags {
			tagged[i] = "#" + t
		}
		fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(tagged, ", "))
	}
	if mem.Confidence != 0 {
		fmt.Fprintf(&b, "- **Confidence:** %g\n", mem.Confidence)
	}
	if mem.DecayDays != nil {
		fmt.Fprintf(&b, "- **Expires:** %d days\n", *mem.DecayDays)
	}
	if mem.Supersedes != "" {
		fmt.Fprintf(&b, "- **Supersedes:** `%s`\n", mem.Supersedes)
	}
	if mem.SourceChannel != "" {
		fmt.Fprintf(&b, "- **Source:** %s", mem.SourceChannel)
		if mem.SourceMessageID != "" {
			fmt.Fprintf(&b, " (%s)", mem.SourceMessageID)
		}
		b.WriteString("\n")
	}
	if mem.DeleteReason != "" {
		fmt.Fprintf(&b, "- **Delete Reason:** %s\n", mem.DeleteReason)
	}

	fmt.Fprintf(&b, "\n%s\n\n---\n\n", mem.Content)
	return b.String()
}
