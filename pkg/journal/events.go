package journal

// EventType describes a change notification from the Manager.
type EventType int

const (
	// EventEntriesChanged fires after any change to the collection.
	EventEntriesChanged EventType = iota
	// EventSynced fires after a remote snapshot was applied.
	EventSynced
	// EventOpConfirmed fires when the remote accepted a mutation.
	EventOpConfirmed
	// EventOpFailed is the dismissible notice for a failed mutation; for
	// create and delete the local change was already rolled back.
	EventOpFailed
	// EventStreakChanged carries the new streak.
	EventStreakChanged
	// EventRecordSkipped reports a snapshot record that failed to decode.
	EventRecordSkipped
)

func (t EventType) String() string {
	switch t {
	case EventEntriesChanged:
		return "entries-changed"
	case EventSynced:
		return "synced"
	case EventOpConfirmed:
		return "op-confirmed"
	case EventOpFailed:
		return "op-failed"
	case EventStreakChanged:
		return "streak-changed"
	case EventRecordSkipped:
		return "record-skipped"
	default:
		return "unknown"
	}
}

// Event is emitted on the Manager's event channel.
type Event struct {
	Type    EventType
	EntryID string
	Op      *Op
	Streak  int
	Err     error
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		// Slow consumers miss notifications; Entries() always has the state.
	}
}
