package health

// State classifies a chart's condition at the last audit.
type State int

const (
	// Pending charts are registered but not yet audited.
	Pending State = iota

	// Loading charts are not currently visible, typically because data or
	// the engine is still on its way.
	Loading

	// Rendered charts show live drawable content, or a fallback that was
	// applied deliberately.
	Rendered

	// Empty charts are visible but contain no drawable primitives.
	Empty

	// Error charts had a render failure reported against them.
	Error

	// StaticFallback charts have been degraded permanently for this page
	// session.
	StaticFallback
)

var stateNames = map[State]string{
	Pending:        "Pending",
	Loading:        "Loading",
	Rendered:       "Rendered",
	Empty:          "Empty",
	Error:          "Error",
	StaticFallback: "StaticFallback",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}
