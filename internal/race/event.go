package race

import (
	"encoding/json"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/board"
)

// EventKind classifies simulator events.
type EventKind string

const (
	EventStart   EventKind = "start"
	EventGrab    EventKind = "grab"
	EventSpecial EventKind = "special"
	EventFinish  EventKind = "finish"
	EventPull    EventKind = "pull"
	EventFoil    EventKind = "foil"
)

// Event is one step of the simulation. Hunter is -1 for events that affect
// everybody.
type Event struct {
	Tick    int        `json:"tick"`
	Kind    EventKind  `json:"kind"`
	Hunter  int        `json:"hunter"`
	Stage   int        `json:"stage,omitempty"`
	Cell    int        `json:"cell,omitempty"`
	Special board.Kind `json:"-"`
	Place   int        `json:"place,omitempty"`
}

// MarshalJSON names the special instead of encoding its bits.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	out := struct {
		plain
		Special string `json:"special,omitempty"`
	}{plain: plain(e)}
	if e.Special != board.None {
		out.Special = board.KindName(e.Special)
	}
	return json.Marshal(out)
}
