package help

import "strings"

// Version is the bt release version, set at build time via -ldflags.
// Defaults to "dev" when built without version injection (e.g. `go run`).
var Version = "dev"

// Flag describes a command-line flag.
type Flag struct {
	Name string // e.g. "--group <name>"
	Desc string
}

// Arg describes a positional argument.
type Arg struct {
	Name     string // e.g. "article"
	Desc     string
	Optional bool
}

// Command describes a bt subcommand (or the top-level binary when Name is "").
type Command struct {
	Name        string   // "timeline", "archive list", etc; "" for top-level
	Synopsis    string   // one-line description (lowercase, for --help header)
	Brief       string   // short description for usage table (capitalized)
	Usage       string   // full usage line, e.g. "bt recent <article>"
	TableUsage  string   // shortened usage for the top-level table (if different from Usage)
	Args        []Arg
	Flags       []Flag
	Description string   // multi-line prose (stored verbatim)
	Examples    []string // one per line, without leading 2-space indent
	SeeAlso     []string // man page cross-refs, e.g. "bt(1)"
}

// tableUsage returns TableUsage if set, otherwise Usage.
func (c Command) tableUsage() string {
	if c.TableUsage != "" {
		return c.TableUsage
	}
	return c.Usage
}

// ManName returns the man page name: "bt" for top-level, "bt-<name>" for subs.
// Spaces in Name are replaced with hyphens (e.g. "archive list" → "bt-archive-list").
func (c Command) ManName() string {
	if c.Name == "" {
		return "bt"
	}
	return "bt-" + strings.ReplaceAll(c.Name, " ", "-")
}

// TopLevel is the top-level bt command (used by FormatUsage).
var TopLevel = Command{
	Name:     "",
	Synopsis: "bargaining timeline from a negotiation change log",
}

var CmdInit = Command{
	Name:     "init",
	Synopsis: "write a default configuration",
	Brief:    "Write a default config",
	Usage:    "bt init [events.csv]",
	Args: []Arg{
		{Name: "events.csv", Desc: "Change log path (default: data/contract_negotiations.csv)", Optional: true},
	},
	Description: `Writes a default config to ~/.config/bargain-timeline/config.toml
pointing at the given change log. An existing config is left untouched.`,
	Examples: []string{
		"bt init                         Use the default log path",
		"bt init ~/gsu/negotiations.csv  Point at a specific log",
	},
	SeeAlso: []string{"bt(1)", "bt-check(1)"},
}

var CmdTimeline = Command{
	Name:       "timeline",
	Synopsis:   "print the derived negotiation intervals",
	Brief:      "Print derived intervals",
	Usage:      "bt timeline [--group <name>] [--from <date>] [--to <date>] [--article <name>] [--markdown]",
	TableUsage: "bt timeline [--group G] [...]",
	Flags: []Flag{
		{Name: "--group <name>", Desc: "Only articles in this group (e.g. Compensation)"},
		{Name: "--from <date>", Desc: "Only intervals still open on or after this date"},
		{Name: "--to <date>", Desc: "Only intervals started on or before this date"},
		{Name: "--article <name>", Desc: "Only this article"},
		{Name: "--markdown", Desc: "Emit a markdown table instead of aligned text"},
	},
	Description: `Loads the change log, classifies every article and derives one interval
per logged change. An interval ends on the first later date on which a
different party changed the same article, or at the present cutoff when
nobody has answered yet. Changes made by two parties on the same day do
not end each other.

Rows that cannot be parsed are skipped with a warning. An article that
belongs to no group is an error; add it to the groups file.`,
	Examples: []string{
		"bt timeline                                     Every interval",
		"bt timeline --group Benefits                    One group",
		"bt timeline --from 2024-09-01 --to 2024-12-31   One term",
		"bt timeline --markdown > timeline.md            Markdown table",
	},
	SeeAlso: []string{"bt(1)", "bt-changes(1)", "bt-groups(1)"},
}

var CmdChanges = Command{
	Name:     "changes",
	Synopsis: "show the changes to an article on one date",
	Brief:    "Show changes on a date",
	Usage:    "bt changes <article> <date>",
	Args: []Arg{
		{Name: "article", Desc: "Article name, quoted if it contains spaces"},
		{Name: "date", Desc: "Change date (YYYY-MM-DD or M/D/YYYY)"},
	},
	Description: `Lists every change recorded for the article on that date, in log order.
Several parties may have changed the article on the same day; all of
them are shown. Prints nothing when no change matches.`,
	Examples: []string{
		"bt changes Salary 2024-02-01",
		`bt changes "No Strike/No Lockout" 3/14/2024`,
	},
	SeeAlso: []string{"bt(1)", "bt-recent(1)"},
}

var CmdRecent = Command{
	Name:     "recent",
	Synopsis: "show the latest state of an article",
	Brief:    "Show an article's latest state",
	Usage:    "bt recent <article>",
	Args: []Arg{
		{Name: "article", Desc: "Article name, quoted if it contains spaces"},
	},
	Description: `Prints the summary for the article and every change made on its most
recent date. The summary comes from the summaries file when one is
configured, otherwise from the most recent changes themselves.`,
	Examples: []string{
		`bt recent "Health Benefits"`,
	},
	SeeAlso: []string{"bt(1)", "bt-changes(1)"},
}

var CmdGroups = Command{
	Name:     "groups",
	Synopsis: "list article groups and their change counts",
	Brief:    "List groups and articles",
	Usage:    "bt groups",
	Description: `Lists each group with the logged articles it contains, the number of
changes per article and the date of the article's latest change.`,
	SeeAlso: []string{"bt(1)", "bt-timeline(1)"},
}

var CmdImport = Command{
	Name:     "import",
	Synopsis: "load the change log into the event store",
	Brief:    "Import the log into the store",
	Usage:    "bt import [events.csv]",
	Args: []Arg{
		{Name: "events.csv", Desc: "Change log to import (default: data.events)", Optional: true},
	},
	Description: `Parses the change log and replaces the contents of the sqlite event
store with it. Malformed rows are skipped and counted. When
archive.on_import is set, a compressed snapshot of the log is written
first.

Set data.source = "store" to build timelines from the store instead of
the CSV file.`,
	SeeAlso: []string{"bt(1)", "bt-archive(1)"},
}

var CmdArchive = Command{
	Name:       "archive",
	Synopsis:   "manage compressed snapshots of the change log",
	Brief:      "Snapshot or list log archives",
	Usage:      "bt archive [snapshot | list]",
	TableUsage: "bt archive [snapshot | list]",
	Description: `Snapshots are zstd-compressed copies of the change log named
{base}-{UTC timestamp}.csv.zst under archive.dir. Every command that
reads the log also accepts a snapshot path.

Subcommands:
  bt archive snapshot   Write a snapshot of data.events (default)
  bt archive list       List existing snapshots, newest last`,
	SeeAlso: []string{"bt(1)", "bt-archive-snapshot(1)", "bt-archive-list(1)", "bt-import(1)"},
}

var CmdCheck = Command{
	Name:     "check",
	Synopsis: "validate config, change log, and groups",
	Brief:    "Validate config, log, and groups",
	Usage:    "bt check",
	Description: `Runs diagnostic checks and prints a pass/warn/FAIL report:
  - Config file location and validity
  - Change log readable, with malformed row count
  - Every logged article belongs to a group
  - Summaries file coverage
  - Changes dated after the present cutoff
  - Event store and last import

Exit code 0 if all checks pass or warn, 1 if any check fails.`,
	SeeAlso: []string{"bt(1)", "bt-init(1)"},
}

var CmdServe = Command{
	Name:       "serve",
	Synopsis:   "serve the timeline over HTTP",
	Brief:      "Run the JSON query API",
	Usage:      "bt serve [--addr <host:port>] [--no-watch]",
	TableUsage: "bt serve [--addr A]",
	Flags: []Flag{
		{Name: "--addr <host:port>", Desc: "Listen address (default: server.bind_addr)"},
		{Name: "--no-watch", Desc: "Do not rebuild when the input files change"},
	},
	Description: `Builds the timeline and answers queries until interrupted:

  GET /api/intervals?group=&from=&to=&article=
  GET /api/changes?article=&date=
  GET /api/recent?article=
  GET /api/summary?article=
  GET /api/articles, /api/groups, /api/ticks
  GET /health, /metrics

When watching, a change to the log, groups or summaries file rebuilds
the timeline. A failed rebuild keeps the previous timeline in service.`,
	SeeAlso: []string{"bt(1)", "bt-timeline(1)"},
}

var CmdVersion = Command{
	Name:     "version",
	Synopsis: "print version",
	Brief:    "Print version",
	Usage:    "bt version",
	SeeAlso:  []string{"bt(1)"},
}

var CmdArchiveSnapshot = Command{
	Name:     "archive snapshot",
	Synopsis: "write a compressed snapshot of the change log",
	Brief:    "Snapshot the change log",
	Usage:    "bt archive snapshot",
	Description: `Compresses data.events with zstd into archive.dir and prints the
snapshot path with the size before and after compression.`,
	SeeAlso: []string{"bt(1)", "bt-archive(1)", "bt-archive-list(1)"},
}

var CmdArchiveList = Command{
	Name:     "archive list",
	Synopsis: "list snapshots of the change log",
	Brief:    "List log snapshots",
	Usage:    "bt archive list",
	Description: `Lists the snapshots of data.events in archive.dir, oldest first, with
their size and age.`,
	SeeAlso: []string{"bt(1)", "bt-archive(1)", "bt-archive-snapshot(1)"},
}

// ArchiveSubcommands is the ordered list of archive sub-subcommands.
var ArchiveSubcommands = []Command{
	CmdArchiveSnapshot,
	CmdArchiveList,
}

// Subcommands is the ordered list of all subcommands.
var Subcommands = []Command{
	CmdInit,
	CmdTimeline,
	CmdChanges,
	CmdRecent,
	CmdGroups,
	CmdImport,
	CmdArchive,
	CmdCheck,
	CmdServe,
	CmdVersion,
}
