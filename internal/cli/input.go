// Package cli handles cmd line input for recording selections and inspecting rankings while debugging.
package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/frecency/internal/logger"
	"github.com/bastiangx/frecency/internal/utils"
	"github.com/bastiangx/frecency/pkg/frecency"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	queryStyle = lipgloss.NewStyle().Italic(true)
	scoreStyle = lipgloss.NewStyle().Bold(true)
)

const usage = `commands:
  save <id> [| <query>]         record a selection
  sort <query> | <id>, <id> ... rank ids for a query
  score <query> | <id>          score a single id
  dump                          summarise the stored record
  reset                         remove the stored record
  help                          show this message`

var errUsage = errors.New("bad arguments, type help for usage")

// InputHandler reads commands from stdin and runs them against a
// Frecency instance. Results are built from ids stored under idField.
type InputHandler struct {
	frecency     *frecency.Frecency
	idField      string
	defaultQuery string
	out          *log.Logger
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler. An empty
// idField uses frecency.DefaultIDAttribute.
func NewInputHandler(f *frecency.Frecency, idField, defaultQuery string) *InputHandler {
	if idField == "" {
		idField = frecency.DefaultIDAttribute
	}
	return &InputHandler{
		frecency:     f,
		idField:      idField,
		defaultQuery: defaultQuery,
		out:          logger.NewWithConfig("", min(log.GetLevel(), log.InfoLevel), false, false, log.TextFormatter),
	}
}

// Start begins the interface loop on stdin.
func (h *InputHandler) Start() error {
	return h.Run(os.Stdin)
}

// Run reads one command per line from r until EOF.
func (h *InputHandler) Run(r io.Reader) error {
	h.out.Print("Frecency CLI [BETA]")
	h.out.Print("type a command and press Enter, help lists them (Ctrl+C to exit):")

	reader := bufio.NewReader(r)
	for {
		h.out.Print("> ")
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			h.handleInput(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handleInput runs a single command line.
func (h *InputHandler) handleInput(line string) {
	h.requestCount++
	cmd, args := parseCommand(line)

	var err error
	start := time.Now()
	switch cmd {
	case "save":
		err = h.save(args)
	case "sort":
		err = h.sort(args)
	case "score":
		err = h.score(args)
	case "dump":
		err = h.dump()
	case "reset":
		h.frecency.Reset()
		h.out.Print("record removed", "key", h.frecency.StorageKey())
	case "help":
		h.out.Print(usage)
	default:
		err = fmt.Errorf("unknown command %q, type help for usage", cmd)
	}
	log.Debugf("Took [ %v ] for '%s'", time.Since(start), line)

	if err != nil {
		h.out.Error(err)
	}
}

func (h *InputHandler) save(args string) error {
	idPart, queryPart, hasQuery := splitPipe(args)
	if idPart == "" {
		return errUsage
	}
	q := h.query(queryPart, hasQuery)
	h.frecency.Save(q, idPart, time.Time{})
	if !h.frecency.Enabled() {
		h.out.Warn("storage unavailable, selection not recorded")
		return nil
	}
	h.out.Printf("saved %s for %s", idStyle.Render(idPart), queryStyle.Render(q.String()))
	return nil
}

func (h *InputHandler) sort(args string) error {
	queryPart, idsPart, ok := splitPipe(args)
	if !ok {
		return errUsage
	}
	ids := parseIDs(idsPart)
	if len(ids) == 0 {
		return errUsage
	}

	items := make([]frecency.Item, len(ids))
	for i, id := range ids {
		items[i] = frecency.Item{h.idField: id}
	}
	scored := h.frecency.ScoredSort(h.query(queryPart, true), items)

	h.out.Printf("Ranked %d ids for '%s':", len(scored), queryPart)
	for i, s := range scored {
		id := idStyle.Render(fmt.Sprint(s.Item[h.idField]))
		h.out.Printf("%2d. %-40s (score: %s)", i+1, id, scoreStyle.Render(fmt.Sprintf("%.2f", s.Score)))
	}
	return nil
}

func (h *InputHandler) score(args string) error {
	queryPart, id, ok := splitPipe(args)
	if !ok || id == "" {
		return errUsage
	}
	score := h.frecency.ComputeScore(h.query(queryPart, true), frecency.Item{h.idField: id}, time.Time{})
	h.out.Printf("%s %s", idStyle.Render(id), scoreStyle.Render(fmt.Sprintf("%.2f", score)))
	return nil
}

func (h *InputHandler) dump() error {
	rec := h.frecency.Record()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	selections := 0
	for _, entries := range rec.Queries {
		selections += len(entries)
	}
	h.out.Print("record", "key", h.frecency.StorageKey(), "size", utils.FormatBytes(len(data)))
	h.out.Printf("ids: %s, queries: %s, query selections: %s",
		utils.FormatWithCommas(len(rec.RecentSelections)),
		utils.FormatWithCommas(len(rec.Queries)),
		utils.FormatWithCommas(selections))
	for i, id := range rec.RecentSelections {
		sel := rec.Selections[id]
		if sel == nil {
			continue
		}
		h.out.Printf("%2d. %-40s (selected: %s)", i+1, idStyle.Render(id), utils.FormatWithCommas(sel.TimesSelected))
	}
	return nil
}

// query picks the typed query, falling back to the configured default.
func (h *InputHandler) query(text string, given bool) frecency.Query {
	if given && text != "" {
		return frecency.ForQuery(text)
	}
	if h.defaultQuery != "" {
		return frecency.ForQuery(h.defaultQuery)
	}
	if given {
		return frecency.ForQuery(text)
	}
	return frecency.NoQuery
}

// parseCommand splits a line into its lowercased command word and the rest.
func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, args, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// splitPipe splits "a | b" into its trimmed halves. ok is false without a pipe.
func splitPipe(s string) (string, string, bool) {
	left, right, ok := strings.Cut(s, "|")
	return strings.TrimSpace(left), strings.TrimSpace(right), ok
}

// parseIDs splits a comma separated id list, dropping empty entries.
func parseIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
