package race

import (
	"fmt"
	"strings"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
)

var specialPhrases = map[board.Kind]string{
	board.PowerUp:   "a power-up",
	board.PowerDown: "a magnet",
	board.Disruptor: "a foiler",
}

// Narrate turns the event stream into log lines: one line per tick in which
// somebody acted, then a dump of every stage and the final ranking.
func Narrate(r *Result) []string {
	prefix := fmt.Sprintf("[Egg Hunt #%d] ", r.ID)
	var lines []string

	for _, group := range groupByTick(r.Events) {
		tick := group[0].Tick
		if tick == 0 {
			lines = append(lines, prefix+"The hunters begin!")
			continue
		}
		var parts []string
		for _, e := range group {
			switch e.Kind {
			case EventGrab:
				parts = append(parts, fmt.Sprintf("%s grabbed egg %d.", Hunters[e.Hunter].Name, e.Stage))
			case EventFinish:
				parts = append(parts, fmt.Sprintf("%s finished in place %d.", Hunters[e.Hunter].Name, e.Place))
			case EventSpecial:
				parts = append(parts, fmt.Sprintf("%s's egg %d was %s!", Hunters[e.Hunter].Name, e.Stage, specialPhrases[e.Special]))
			case EventPull:
				c, _ := board.CellAt(e.Cell)
				parts = append(parts, fmt.Sprintf("Everyone is pulled to row %d column %d.", c.Row+1, c.Col+1))
			case EventFoil:
				parts = append(parts, "Everyone is foiled.")
			}
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("%sTime %d: %s", prefix, tick, strings.Join(parts, " ")))
		}
	}

	for i := range r.Stages {
		lines = append(lines, fmt.Sprintf("%sStage %d:", prefix, i))
		for _, row := range strings.Split(r.Stages[i].Dump(), "\n") {
			lines = append(lines, prefix+row)
		}
	}
	lines = append(lines, prefix+"Final ranking: "+r.Ranking.String())
	return lines
}

// Log joins Narrate with newlines.
func (r *Result) Log() string {
	return strings.Join(Narrate(r), "\n")
}

func groupByTick(events []Event) [][]Event {
	var groups [][]Event
	for _, e := range events {
		if n := len(groups); n > 0 && groups[n-1][0].Tick == e.Tick {
			groups[n-1] = append(groups[n-1], e)
			continue
		}
		groups = append(groups, []Event{e})
	}
	return groups
}
