package describe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cvickery/rules-archive/internal/database"
	"github.com/cvickery/rules-archive/internal/models"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const clearLine = "\r\x1b[K"

// Persister writes each batch back to the snapshot's transfer_rules table.
type Persister struct {
	store   database.RuleStore
	total   int
	Updated int64
	logger  *zap.SugaredLogger
}

func NewPersister(store database.RuleStore, total int, logger *zap.SugaredLogger) *Persister {
	return &Persister{store: store, total: total, logger: logger}
}

func (p *Persister) Write(ctx context.Context, schema string, batch []models.RuleDescription) error {
	n, err := p.store.UpdateDescriptions(ctx, schema, batch)
	if err != nil {
		return err
	}
	p.Updated += n
	p.logger.Infof("Updated %d of %d rule descriptions", p.Updated, p.total)
	return nil
}

// Printer writes one line per rule, truncated to the display width when it is known.
type Printer struct {
	out      io.Writer
	width    int
	progress bool
	total    int
	done     int
}

func NewPrinter(out io.Writer, width int, total int) *Printer {
	return &Printer{out: out, width: width, total: total}
}

// NewTerminalPrinter sizes lines to the terminal and shows progress when f is one.
func NewTerminalPrinter(f *os.File, total int) *Printer {
	p := NewPrinter(f, 0, total)
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		if width, _, err := term.GetSize(fd); err == nil {
			p.width = width
		}
		p.progress = true
	}
	return p
}

func (p *Printer) Write(_ context.Context, _ string, batch []models.RuleDescription) error {
	for _, d := range batch {
		p.done++
		line := d.RuleKey + " " + d.Description
		if p.width > 0 {
			line = runewidth.Truncate(line, p.width, "…")
		}
		if p.progress {
			line = clearLine + line
		}
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
		if p.progress {
			if _, err := fmt.Fprintf(p.out, "%d of %d", p.done, p.total); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finish clears the progress line.
func (p *Printer) Finish() error {
	if !p.progress {
		return nil
	}
	_, err := io.WriteString(p.out, clearLine)
	return err
}
