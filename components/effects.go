package components

// EffectType identifies a timed status effect.
type EffectType uint8

const (
	EffectWellFed EffectType = iota
	EffectExhausted
	EffectPoisoned
	EffectInjured
)

func (e EffectType) String() string {
	switch e {
	case EffectWellFed:
		return "well_fed"
	case EffectExhausted:
		return "exhausted"
	case EffectPoisoned:
		return "poisoned"
	case EffectInjured:
		return "injured"
	default:
		return "unknown"
	}
}

// Effect is an active timed effect. Duration counts remaining ticks and is
// decremented during cleanup; at zero the effect is removed.
type Effect struct {
	Type     EffectType
	Duration int
}

// Effects holds an agent's active effects. Re-triggering an effect refreshes
// its duration instead of stacking.
type Effects struct {
	Active []Effect
}

// Has reports whether an effect of the given type is active.
func (e *Effects) Has(t EffectType) bool {
	for _, a := range e.Active {
		if a.Type == t {
			return true
		}
	}
	return false
}

// Apply adds an effect or refreshes the duration of an existing one.
func (e *Effects) Apply(t EffectType, duration int) {
	for i := range e.Active {
		if e.Active[i].Type == t {
			if duration > e.Active[i].Duration {
				e.Active[i].Duration = duration
			}
			return
		}
	}
	e.Active = append(e.Active, Effect{Type: t, Duration: duration})
}

// Tick decrements every duration and drops expired effects, preserving order.
func (e *Effects) Tick() {
	kept := e.Active[:0]
	for _, a := range e.Active {
		a.Duration--
		if a.Duration > 0 {
			kept = append(kept, a)
		}
	}
	e.Active = kept
}
