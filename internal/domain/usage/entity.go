package usage

import (
	"strings"
)

// Command is one of the tracked bot commands. The set is closed: every
// value maps to a fixed counter column.
type Command int

const (
	CommandStart Command = iota
	CommandAnalyze
	CommandAnalyzeForMe
	CommandSummarize
	CommandTZ
	CommandPremium

	numCommands
)

type commandDef struct {
	name    string
	column  string
	aliases []string
}

var commandDefs = [numCommands]commandDef{
	CommandStart:        {name: "start", column: "start_count"},
	CommandAnalyze:      {name: "analyze", column: "analyze_count"},
	CommandAnalyzeForMe: {name: "analyze_for_me", column: "analyze_for_me_count"},
	CommandSummarize:    {name: "summarize", column: "summarize_count"},
	CommandTZ:           {name: "tz", column: "tz_count", aliases: []string{"тз"}},
	CommandPremium:      {name: "premium", column: "premium_count"},
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandDefs))
	for i, def := range commandDefs {
		m[def.name] = Command(i)
		for _, alias := range def.aliases {
			m[alias] = Command(i)
		}
	}
	return m
}()

// UserIDColumn is the primary key column name, first in every export
const UserIDColumn = "user_id"

// Commands returns all tracked commands in column order
func Commands() []Command {
	out := make([]Command, numCommands)
	for i := range out {
		out[i] = Command(i)
	}
	return out
}

// Columns returns the export header: user_id followed by every counter column
func Columns() []string {
	cols := make([]string, 0, numCommands+1)
	cols = append(cols, UserIDColumn)
	for _, def := range commandDefs {
		cols = append(cols, def.column)
	}
	return cols
}

// NormalizeName reduces raw command text to a bare lowercase name:
// "/Start@TeamyBot arg" becomes "start".
func NormalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	if fields := strings.Fields(name); len(fields) > 0 {
		name = fields[0]
	}
	name = strings.TrimPrefix(name, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

// ParseCommand maps raw command text ("/tz", "TZ", "/start@TeamyBot") to a
// tracked command. ok is false for anything outside the closed set.
func ParseCommand(raw string) (Command, bool) {
	cmd, ok := commandsByName[NormalizeName(raw)]
	return cmd, ok
}

// Valid reports whether c belongs to the closed set
func (c Command) Valid() bool {
	return c >= 0 && c < numCommands
}

// Name is the canonical command name without the leading slash
func (c Command) Name() string {
	if !c.Valid() {
		return "unknown"
	}
	return commandDefs[c].name
}

// Column is the storage column holding this command's counter
func (c Command) Column() string {
	if !c.Valid() {
		return ""
	}
	return commandDefs[c].column
}

func (c Command) String() string {
	return c.Name()
}

// Counters holds one slot per tracked command
type Counters [numCommands]int64

// Record is the usage ledger row for one Telegram user
type Record struct {
	UserID   int64
	Counters Counters
}

// NewRecord returns an all-zero record for userID
func NewRecord(userID int64) *Record {
	return &Record{UserID: userID}
}

// Count returns the counter for cmd
func (r *Record) Count(cmd Command) int64 {
	if !cmd.Valid() {
		return 0
	}
	return r.Counters[cmd]
}

// Total sums every counter
func (r *Record) Total() int64 {
	var total int64
	for _, v := range r.Counters {
		total += v
	}
	return total
}
