package sim

// EventEngine receives callbacks at phase boundaries and on encounters. An
// implementation may mutate world or agent state between ticks; the resolver
// picks such changes up in the next phase snapshot without special-casing.
type EventEngine interface {
	RoundStart(generation int)
	TickStart(tick int)
	// Encounter fires when an agent attempts to move onto an occupied cell.
	Encounter(moverID, occupantID uint32, x, y int)
	TickEnd(tick int)
}

// NopEvents is the default event engine: it does nothing.
type NopEvents struct{}

func (NopEvents) RoundStart(int) {}

func (NopEvents) TickStart(int) {}

func (NopEvents) Encounter(uint32, uint32, int, int) {}

func (NopEvents) TickEnd(int) {}
