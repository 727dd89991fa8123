package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/suykerbuyk/bargain-timeline/internal/archive"
	"github.com/suykerbuyk/bargain-timeline/internal/check"
	"github.com/suykerbuyk/bargain-timeline/internal/config"
	"github.com/suykerbuyk/bargain-timeline/internal/dataset"
	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/help"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
	"github.com/suykerbuyk/bargain-timeline/internal/render"
	"github.com/suykerbuyk/bargain-timeline/internal/store"
	"github.com/suykerbuyk/bargain-timeline/internal/timeline"
)

// valueFlags take an argument; positional() skips it.
var valueFlags = map[string]bool{
	"--group":   true,
	"--from":    true,
	"--to":      true,
	"--article": true,
	"--addr":    true,
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("bt: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "help", "--help", "-h":
		if len(args) > 0 {
			if c, ok := lookup(strings.Join(args, " ")); ok {
				fmt.Print(help.FormatTerminal(c))
				return
			}
		}
		usage()
		return

	case "version":
		fmt.Printf("bt v%s (bargain-timeline)\n", help.Version)
		return
	}

	if hasFlag(args, "--help", "-h") {
		name := cmd
		if p := positional(args); len(p) > 0 {
			name += " " + p[0]
		}
		c, ok := lookup(name)
		if !ok {
			c, ok = lookup(cmd)
		}
		if ok {
			fmt.Print(help.FormatTerminal(c))
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	ctx := context.Background()

	switch cmd {
	case "init":
		events := cfg.Data.Events
		if p := positional(args); len(p) > 0 {
			events = p[0]
		}
		path, err := config.WriteDefault(events)
		if err != nil {
			fatal("init: %v", err)
		}
		fmt.Printf("config: %s\n", config.CompressHome(path))

	case "timeline":
		runTimeline(ctx, cfg, args)

	case "changes":
		p := positional(args)
		if len(p) < 2 {
			fatal("usage: bt changes <article> <date>")
		}
		date, err := negotiation.ParseDate(p[1])
		if err != nil {
			fatal("changes: %v", err)
		}
		tl := mustBuild(ctx, cfg)
		fmt.Print(render.Changes(p[0], date, tl.LookupChanges(p[0], date), cfg.Timeline.WrapWidth))

	case "recent":
		p := positional(args)
		if len(p) < 1 {
			fatal("usage: bt recent <article>")
		}
		tl := mustBuild(ctx, cfg)
		recent := tl.MostRecent(p[0])
		if recent == nil {
			if _, err := tl.Classify(p[0]); err != nil {
				fatal("recent: %v", err)
			}
			fatal("recent: no changes logged for %q", p[0])
		}
		sum, _ := tl.Summary(p[0])
		fmt.Print(render.Recent(p[0], sum, recent, cfg.Timeline.WrapWidth))

	case "groups":
		fmt.Print(render.Groups(mustBuild(ctx, cfg)))

	case "import":
		runImport(ctx, cfg, args)

	case "archive":
		runArchive(cfg, args)

	case "check":
		report := check.Run(ctx, cfg)
		fmt.Print(report.Format())
		if report.HasFailures() {
			os.Exit(1)
		}

	case "serve":
		if err := runServe(ctx, cfg, args); err != nil {
			fatal("serve: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func runTimeline(ctx context.Context, cfg config.Config, args []string) {
	var (
		view timeline.View
		err  error
	)
	if g := flagValue(args, "--group"); g != "" {
		if view.Group, err = groups.ParseName(g); err != nil {
			fatal("timeline: %v", err)
		}
	}
	if s := flagValue(args, "--from"); s != "" {
		if view.From, err = negotiation.ParseDate(s); err != nil {
			fatal("timeline: --from: %v", err)
		}
	}
	if s := flagValue(args, "--to"); s != "" {
		if view.To, err = negotiation.ParseDate(s); err != nil {
			fatal("timeline: --to: %v", err)
		}
	}

	tl := mustBuild(ctx, cfg)
	ivs := tl.Select(view)
	if a := flagValue(args, "--article"); a != "" {
		ivs = timeline.FilterByArticle(ivs, a)
	}

	title := strings.TrimSpace("bt timeline " + strings.Join(args, " "))
	if hasFlag(args, "--markdown") {
		fmt.Print(render.Markdown(ivs, "Bargaining timeline"))
		return
	}
	fmt.Print(render.Timeline(ivs, render.Options{Title: title, Width: cfg.Timeline.WrapWidth}))
}

func runImport(ctx context.Context, cfg config.Config, args []string) {
	path := cfg.Data.Events
	if p := positional(args); len(p) > 0 {
		path = p[0]
	}

	l, err := negotiation.LoadFile(path)
	if err != nil {
		fatal("import: %v", err)
	}
	warnMalformed(l.Malformed)

	if cfg.Archive.OnImport && !archive.IsCompressed(path) {
		snap, err := archive.Snapshot(path, cfg.Archive.Dir, time.Now())
		if err != nil {
			log.Printf("warning: snapshot %s: %v", path, err)
		} else {
			fmt.Printf("snapshot: %s\n", config.CompressHome(snap))
		}
	}

	s, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		fatal("import: %v", err)
	}
	defer s.Close()

	imp, err := s.ReplaceEvents(ctx, path, l.Events, len(l.Malformed))
	if err != nil {
		fatal("import: %v", err)
	}
	fmt.Printf("imported %s events (%d malformed) into %s\n",
		humanize.Comma(int64(imp.Events)), imp.Malformed, config.CompressHome(cfg.Store.Path))
}

func runArchive(cfg config.Config, args []string) {
	sub := "snapshot"
	if p := positional(args); len(p) > 0 {
		sub = p[0]
	}

	switch sub {
	case "snapshot":
		snap, err := archive.Snapshot(cfg.Data.Events, cfg.Archive.Dir, time.Now())
		if err != nil {
			fatal("archive: %v", err)
		}
		var before, after int64
		if info, err := os.Stat(cfg.Data.Events); err == nil {
			before = info.Size()
		}
		if info, err := os.Stat(snap); err == nil {
			after = info.Size()
		}
		fmt.Printf("snapshot: %s (%s -> %s)\n", config.CompressHome(snap),
			humanize.Bytes(uint64(before)), humanize.Bytes(uint64(after)))

	case "list":
		snaps, err := archive.List(cfg.Data.Events, cfg.Archive.Dir)
		if err != nil {
			fatal("archive: %v", err)
		}
		if len(snaps) == 0 {
			fmt.Printf("no snapshots of %s in %s\n", config.CompressHome(cfg.Data.Events), config.CompressHome(cfg.Archive.Dir))
			return
		}
		for _, snap := range snaps {
			info, err := os.Stat(snap)
			if err != nil {
				log.Printf("warning: %v", err)
				continue
			}
			fmt.Printf("  %-64s %8s   %s\n", config.CompressHome(snap),
				humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
		}

	default:
		fatal("usage: bt archive [snapshot | list]")
	}
}

// mustBuild loads and derives the timeline, warning about skipped rows.
func mustBuild(ctx context.Context, cfg config.Config) *timeline.Timeline {
	res, err := dataset.Build(ctx, cfg)
	if err != nil {
		fatal("build timeline: %v", err)
	}
	warnMalformed(res.Malformed)
	return res.Timeline
}

func warnMalformed(malformed []*negotiation.MalformedRecordError) {
	for _, m := range malformed {
		log.Printf("warning: skipped %v", m)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, help.FormatUsage(help.TopLevel, help.Subcommands))
}

func lookup(name string) (help.Command, bool) {
	for _, c := range help.Subcommands {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range help.ArchiveSubcommands {
		if c.Name == name {
			return c, true
		}
	}
	return help.Command{}, false
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, flag+"=") {
			return strings.TrimPrefix(a, flag+"=")
		}
	}
	return ""
}

func hasFlag(args []string, flags ...string) bool {
	for _, a := range args {
		for _, f := range flags {
			if a == f {
				return true
			}
		}
	}
	return false
}

// positional returns args that are neither flags nor flag values.
func positional(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--") || a == "-h" {
			if valueFlags[a] {
				i++
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "bt: "+format+"\n", args...)
	os.Exit(1)
}
