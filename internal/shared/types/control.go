package types

// RefocusPolicy controls how the session reacts when focus is lost
type RefocusPolicy string

const (
	RefocusAuto   RefocusPolicy = "auto"
	RefocusManual RefocusPolicy = "manual"
	RefocusOff    RefocusPolicy = "off"
)

// ControlConfig holds the named options of a control session. All scalars;
// persisted on the peer across reloads but always re-sent from the bridge's
// stored copy on reinit.
type ControlConfig struct {
	Refocus        RefocusPolicy `json:"refocus"`
	VisualFeedback bool          `json:"visual_feedback"`
	AudioFeedback  bool          `json:"audio_feedback"`
	Wrap           bool          `json:"wrap"`
	StepDelayMs    int           `json:"step_delay_ms"`
}

// DefaultControlConfig returns the options used when a start request
// omits them.
func DefaultControlConfig() ControlConfig {
	return ControlConfig{
		Refocus:        RefocusAuto,
		VisualFeedback: true,
		AudioFeedback:  false,
		Wrap:           true,
		StepDelayMs:    0,
	}
}

// TargetLocator is a reconstructable description of the element a control
// session was last interacting with. Never a live handle; rebuilt on the
// peer after a reload.
type TargetLocator struct {
	Selector string `json:"selector"`
	Role     string `json:"role,omitempty"`
	Label    string `json:"label,omitempty"`
	URL      string `json:"url,omitempty"`
}
