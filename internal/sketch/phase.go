package sketch

// Phase is the input state machine's state.
type Phase uint8

const (
	// PhaseSeeding: no bicycle yet; the next idea plants it.
	PhaseSeeding Phase = iota
	// PhaseDeveloping: the bicycle exists and every idea moves it.
	PhaseDeveloping
)

// String returns the display name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseSeeding:
		return "seeding"
	case PhaseDeveloping:
		return "developing"
	}
	return "unknown"
}

// Prompt returns the placeholder shown in the idea input for this phase.
func (p Phase) Prompt() string {
	if p == PhaseSeeding {
		return "Plant the seed of an idea..."
	}
	return "Develop the idea..."
}
