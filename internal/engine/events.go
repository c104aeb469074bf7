package engine

import "sync"

// Event categories.
const (
	CatStage    = "stage"
	CatUprising = "uprising"
	CatDemand   = "demand"
	CatPromise  = "promise"
	CatAction   = "action"
	CatVassal   = "vassal"
	CatGovernor = "governor"
	CatTribute  = "tribute"
	CatWar      = "war"
	CatPolicy   = "policy"
)

const (
	maxEvents = 1000
	subBuffer = 64
)

// Event is a notable occurrence in the realm.
type Event struct {
	Seq         int64          `json:"seq"`
	Day         int            `json:"day"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// eventLog keeps recent events and fans new ones out to subscribers.
type eventLog struct {
	mu      sync.Mutex
	events  []Event
	seq     int64
	subs    map[int]chan Event
	nextSub int
}

func newEventLog() *eventLog {
	return &eventLog{subs: make(map[int]chan Event)}
}

func (l *eventLog) emit(e Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	e.Seq = l.seq
	l.events = append(l.events, e)
	if len(l.events) > maxEvents {
		l.events = append([]Event(nil), l.events[len(l.events)-maxEvents:]...)
	}
	for _, ch := range l.subs {
		// Slow subscribers drop events rather than stall the tick.
		select {
		case ch <- e:
		default:
		}
	}
	return e
}

func (l *eventLog) restore(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	l.events = append([]Event(nil), events...)
	for _, e := range events {
		if e.Seq > l.seq {
			l.seq = e.Seq
		}
	}
}

func (l *eventLog) subscribe() (int, <-chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSub++
	ch := make(chan Event, subBuffer)
	l.subs[l.nextSub] = ch
	return l.nextSub, ch
}

func (l *eventLog) unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.subs[id]; ok {
		close(ch)
		delete(l.subs, id)
	}
}

// recent returns up to limit of the newest events, oldest first, optionally
// filtered by category.
func (l *eventLog) recent(limit int, category string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for i := len(l.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if category == "" || l.events[i].Category == category {
			out = append(out, l.events[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// EmitEvent records an event and delivers it to subscribers.
func (s *Simulation) EmitEvent(e Event) Event {
	return s.events.emit(e)
}

// Subscribe registers a listener for new events. The channel is closed by
// Unsubscribe.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	return s.events.subscribe()
}

// Unsubscribe removes a listener.
func (s *Simulation) Unsubscribe(id int) {
	s.events.unsubscribe(id)
}

// Events returns recent events, oldest first.
func (s *Simulation) Events(limit int, category string) []Event {
	return s.events.recent(limit, category)
}
