package neat

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"
)

type link struct {
	In, Out int
}

// Tracker assigns innovation numbers for one run. A connection between the
// same two nodes always gets the same id, and splitting the same connection
// always yields the same hidden node id, whichever genome does it.
type Tracker struct {
	connections map[link]int
	splits      map[link]int
	nextNode    int
	nextConn    int
}

// NewTracker returns an empty tracker whose counters start at zero.
func NewTracker() *Tracker {
	return &Tracker{
		connections: make(map[link]int),
		splits:      make(map[link]int),
	}
}

// ConnectionID returns the innovation number of the in->out connection,
// allocating one on first use.
func (t *Tracker) ConnectionID(in, out int) int {
	key := link{in, out}
	id, ok := t.connections[key]
	if !ok {
		id = t.nextConn
		t.connections[key] = id
		t.nextConn++
	}
	return id
}

// SplitNodeID returns the id of the hidden node created when the in->out
// connection is split, allocating one on first use.
func (t *Tracker) SplitNodeID(in, out int) int {
	key := link{in, out}
	id, ok := t.splits[key]
	if !ok {
		id = t.NodeID()
		t.splits[key] = id
	}
	return id
}

// NodeID allocates a fresh node id. Input and output nodes are allocated
// this way before any genome exists.
func (t *Tracker) NodeID() int {
	id := t.nextNode
	t.nextNode++
	return id
}

func (t *Tracker) NextNodeID() int       { return t.nextNode }
func (t *Tracker) NextConnectionID() int { return t.nextConn }

// SyncNodeCounter moves the node counter past n if it is not already.
func (t *Tracker) SyncNodeCounter(n int) { t.nextNode = max(t.nextNode, n) }

// SyncConnectionCounter moves the connection counter past n if it is not
// already.
func (t *Tracker) SyncConnectionCounter(n int) { t.nextConn = max(t.nextConn, n) }

type trackerEntry struct {
	In, Out, ID int
}

type trackerState struct {
	Connections []trackerEntry
	Splits      []trackerEntry
	NextNode    int
	NextConn    int
}

func entries(m map[link]int) []trackerEntry {
	out := make([]trackerEntry, 0, len(m))
	for k, id := range m {
		out = append(out, trackerEntry{In: k.In, Out: k.Out, ID: id})
	}
	slices.SortFunc(out, func(a, b trackerEntry) int { return a.ID - b.ID })
	return out
}

func (t *Tracker) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	st := trackerState{
		Connections: entries(t.connections),
		Splits:      entries(t.splits),
		NextNode:    t.nextNode,
		NextConn:    t.nextConn,
	}
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, fmt.Errorf("encode innovation tracker: %w", err)
	}
	return buf.Bytes(), nil
}

func (t *Tracker) UnmarshalBinary(data []byte) error {
	var st trackerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode innovation tracker: %w", err)
	}
	t.connections = make(map[link]int, len(st.Connections))
	for _, e := range st.Connections {
		t.connections[link{e.In, e.Out}] = e.ID
	}
	t.splits = make(map[link]int, len(st.Splits))
	for _, e := range st.Splits {
		t.splits[link{e.In, e.Out}] = e.ID
	}
	t.nextNode, t.nextConn = st.NextNode, st.NextConn
	return nil
}

func (t *Tracker) StateKey() string               { return "innovation" }
func (t *Tracker) MarshalState() ([]byte, error)  { return t.MarshalBinary() }
func (t *Tracker) RestoreState(data []byte) error { return t.UnmarshalBinary(data) }
