package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}

	return "", errors.Errorf("unknown report format: %q", s)
}

func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(r), "encode json report")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, "encode yaml report")
		}
		return errors.Wrap(enc.Close(), "encode yaml report")
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r *Report) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	var b strings.Builder

	for _, g := range r.Groups {
		fmt.Fprintf(&b, "%s %s\n", cyan(humanize.IBytes(g.Size)), gray(g.Crc32))
		fmt.Fprintf(&b, "  %s %s\n", green("keep"), g.Original)
		for _, d := range g.Duplicates {
			if d.HardlinkOf != "" {
				fmt.Fprintf(&b, "  %s %s %s\n", gray("link"), d.Path, gray("-> "+d.HardlinkOf))
				continue
			}
			fmt.Fprintf(&b, "  %s %s\n", yellow("dupe"), d.Path)
		}
		b.WriteString("\n")
	}

	s := r.Summary
	fmt.Fprintf(&b, "%s\n", cyan("Summary"))
	fmt.Fprintf(&b, "  Files:       %d in %d folders\n", s.Files, s.Dirs)
	fmt.Fprintf(&b, "  Groups:      %d\n", s.Groups)
	fmt.Fprintf(&b, "  Duplicates:  %d (%d hardlinked)\n", s.Duplicates, s.Hardlinks)
	fmt.Fprintf(&b, "  Wasted:      %s\n", humanize.IBytes(s.WastedBytes))
	fmt.Fprintf(&b, "  Reclaimable: %s\n", green(humanize.IBytes(s.ReclaimableBytes)))
	if s.Ignored > 0 {
		fmt.Fprintf(&b, "  Ignored:     %s\n", yellow(fmt.Sprintf("%d", s.Ignored)))
	}
	fmt.Fprintf(&b, "  Elapsed:     %s\n", s.Elapsed)

	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write text report")
}
