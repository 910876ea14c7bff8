package tui

import "github.com/personakit/adoptctl/pkg/wizard"

// SnapshotMsg carries a full wizard state snapshot published on the UI
// topic.
type SnapshotMsg struct {
	Snapshot wizard.StateSnapshot
}

// OutputAppendMsg carries one freshly pushed generator line.
type OutputAppendMsg struct {
	Append wizard.OutputAppend
}

// ActionDoneMsg reports completion of an asynchronous wizard action started
// from a key press.
type ActionDoneMsg struct {
	Name string
	Err  error
}
