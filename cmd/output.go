package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/TFMV/dirhunt/internal/pool"
	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
)

// result is one reported target directory.
type result struct {
	ScanID       string     `json:"scan_id"`
	Path         string     `json:"path"`
	Dangerous    bool       `json:"dangerous"`
	SizeBytes    *int64     `json:"size_bytes,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Action       string     `json:"action,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Outcomes of --delete recorded in result.Action.
const (
	actionDeleted      = "deleted"
	actionWouldDelete  = "would-delete"
	actionDeleteFailed = "delete-failed"
)

// filter drops results by size or project age. Both checks need a measured
// result.
type filter struct {
	largerThan int64
	olderThan  time.Duration
}

func (f filter) active() bool {
	return f.largerThan > 0 || f.olderThan > 0
}

func (f filter) keep(res result, now time.Time) bool {
	if f.largerThan > 0 && (res.SizeBytes == nil || *res.SizeBytes < f.largerThan) {
		return false
	}
	if f.olderThan > 0 && (res.LastModified == nil || now.Sub(*res.LastModified) < f.olderThan) {
		return false
	}
	return true
}

func newFilter() (filter, error) {
	var f filter
	if s := viper.GetString("larger-than"); s != "" {
		size, err := units.RAMInBytes(s)
		if err != nil {
			return f, fmt.Errorf("invalid larger-than value: %w", err)
		}
		f.largerThan = size
	}
	if s := viper.GetString("older-than"); s != "" {
		d, err := parseDuration(s)
		if err != nil {
			return f, fmt.Errorf("invalid older-than value: %w", err)
		}
		f.olderThan = d
	}
	return f, nil
}

// parseDuration parses a duration string with support for days (d)
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, err
		}
		return time.Duration(n * 24 * float64(time.Hour)), nil
	}
	return time.ParseDuration(s)
}

func useColor(w io.Writer) bool {
	if viper.GetBool("no-color") {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newPrinter(w io.Writer, format, template, scanID string, colored bool) *printer {
	return &printer{w: w, format: format, template: template, scanID: scanID, color: colored}
}

func (p *printer) print(res result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	if res.Action == actionDeleted {
		p.deleted++
		if res.SizeBytes != nil {
			p.freed += *res.SizeBytes
		}
	}
	res.ScanID = p.scanID

	switch {
	case p.format == "json":
		data, err := json.Marshal(res)
		if err != nil {
			fmt.Fprintf(p.w, "{\"path\":%q,\"error\":%q}\n", res.Path, err)
			return
		}
		fmt.Fprintln(p.w, string(data))
	case p.template != "":
		fmt.Fprintln(p.w, expandTemplate(p.template, res))
	default:
		fmt.Fprintln(p.w, p.textLine(res))
	}
}

func (p *printer) textLine(res result) string {
	var b strings.Builder
	if res.SizeBytes != nil {
		fmt.Fprintf(&b, "%10s  ", units.HumanSize(float64(*res.SizeBytes)))
	}
	path := res.Path
	if p.color {
		if res.Dangerous {
			path = color.YellowString(path)
		} else {
			path = color.GreenString(path)
		}
	}
	b.WriteString(path)
	if res.LastModified != nil {
		age := units.HumanDuration(time.Since(*res.LastModified))
		if p.color {
			age = color.HiBlackString(age)
		}
		fmt.Fprintf(&b, "  (%s ago)", age)
	}
	if res.Dangerous {
		warn := "[!] dangerous"
		if p.color {
			warn = color.RedString(warn)
		}
		b.WriteString("  " + warn)
	}
	if res.Action != "" {
		action := "[" + res.Action + "]"
		if res.Error != "" {
			action = "[" + res.Action + ": " + res.Error + "]"
		}
		if p.color {
			if res.Action == actionDeleteFailed {
				action = color.RedString(action)
			} else {
				action = color.CyanString(action)
			}
		}
		b.WriteString("  " + action)
	}
	return b.String()
}

// expandTemplate replaces placeholders in a template with values from a result
func expandTemplate(template string, res result) string {
	size := ""
	if res.SizeBytes != nil {
		size = strconv.FormatInt(*res.SizeBytes, 10)
	}
	modified := ""
	if res.LastModified != nil {
		modified = res.LastModified.Format(time.RFC3339)
	}
	r := strings.NewReplacer(
		`{""}`, strconv.Quote(res.Path),
		"{}", res.Path,
		"{base}", filepath.Base(res.Path),
		"{dir}", filepath.Dir(res.Path),
		"{size}", size,
		"{time}", modified,
		"{dangerous}", strconv.FormatBool(res.Dangerous),
		"{action}", res.Action,
	)
	return r.Replace(template)
}

func (p *printer) summary(w io.Writer, stats pool.Stats, status pool.Status, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := status.String()
	if p.color {
		switch status {
		case pool.StatusFinished:
			label = color.GreenString(label)
		case pool.StatusDead:
			label = color.RedString(label)
		default:
			label = color.YellowString(label)
		}
	}
	fmt.Fprintf(w, "\nScan %s: %d results, %d directories read in %s (%d walkers)\n",
		label, p.count, stats.CompletedSearchTasks, elapsed.Round(time.Millisecond), len(stats.WorkersJobs))
	if p.deleted > 0 {
		fmt.Fprintf(w, "Deleted %d folders, %s freed\n", p.deleted, units.HumanSize(float64(p.freed)))
	}
}
