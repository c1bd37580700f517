package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"

	"github.com/markis/gh-streamdoc/internal/record"
	"github.com/markis/gh-streamdoc/internal/stream"
)

// TerminalRenderer prints a record as it assembles. Each section is printed
// once, in order, as soon as it and every section before it are complete.
type TerminalRenderer struct {
	markdown  *glamour.TermRenderer
	plainText bool
	out       io.Writer

	titled    bool
	printed   int
	completed map[int]bool
}

func NewTerminalRenderer(usePlainText bool, wrap int, out io.Writer) *TerminalRenderer {
	var md *glamour.TermRenderer
	if !usePlainText {
		md, _ = glamour.NewTermRenderer(
			markdown.WithWrap(wrap),
			glamour.WithAutoStyle(),
		)
	}

	return &TerminalRenderer{
		markdown:  md,
		plainText: usePlainText || md == nil,
		out:       out,
		completed: make(map[int]bool),
	}
}

// Render consumes updates until the channel is closed.
func (t *TerminalRenderer) Render(updates <-chan stream.Update) error {
	for u := range updates {
		if err := t.apply(u); err != nil {
			return err
		}
	}
	return nil
}

func (t *TerminalRenderer) apply(u stream.Update) error {
	for _, i := range u.CompletedSections {
		t.completed[i] = true
	}
	rec := u.Record

	// The title may still be growing until the first section shows up.
	if !t.titled && rec.Title != "" && (len(rec.Sections) > 0 || u.Final) {
		if err := t.renderContent("# " + rec.Title + "\n"); err != nil {
			return err
		}
		t.titled = true
	}

	for t.printed < len(rec.Sections) && (u.Final || t.completed[t.printed]) {
		if err := t.renderContent(sectionMarkdown(rec.Sections[t.printed])); err != nil {
			return err
		}
		t.printed++
	}

	if u.Final {
		fmt.Fprintln(t.out)
	}
	return nil
}

func (t *TerminalRenderer) renderContent(content string) error {
	if t.plainText {
		fmt.Fprintln(t.out, content)
		return nil
	}

	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "#") {
		fmt.Fprintln(t.out)
	}

	mdContent, err := t.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	fmt.Fprintln(t.out, strings.TrimSpace(mdContent))
	return nil
}

func sectionMarkdown(sec record.Section) string {
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(sec.Title)
	if sec.Kind != "" {
		fmt.Fprintf(&b, " (%s)", sec.Kind)
	}
	b.WriteString("\n\n")

	for _, f := range sec.Fields {
		fmt.Fprintf(&b, "**%s:** %s\n\n", f.Label, formatValue(f.Value))
	}
	for _, it := range sec.Items {
		if it.Description == "" {
			fmt.Fprintf(&b, "- **%s**\n", it.Title)
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", it.Title, it.Description)
	}
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

// RenderRaw prints the stream text as it arrives. Each buffer extends the
// previous one, so only the new suffix is written.
func RenderRaw(buffers <-chan string, out io.Writer) error {
	prev := 0
	for buf := range buffers {
		if len(buf) < prev {
			prev = 0
		}
		if _, err := io.WriteString(out, buf[prev:]); err != nil {
			return fmt.Errorf("failed to write stream: %w", err)
		}
		prev = len(buf)
	}
	_, err := fmt.Fprintln(out)
	return err
}
