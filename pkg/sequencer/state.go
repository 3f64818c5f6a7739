package sequencer

import "time"

// State is a point-in-time copy of the engine for hosts and user interfaces.
type State struct {
	Running       bool           `json:"running"`
	CurrentStep   int            `json:"currentStep"`
	CurrentBar    int            `json:"currentBar"`
	SelectedTrack int            `json:"selectedTrack"`
	FillMode      bool           `json:"fillMode"`
	GlobalBPM     float64        `json:"globalBpm"`
	Tempo         float64        `json:"tempo"`
	StepInterval  time.Duration  `json:"stepIntervalNs"`
	PatternNumber int            `json:"patternNumber"`
	TriggerCounts [MaxTracks]int `json:"triggerCounts"`
	CanUndo       bool           `json:"canUndo"`
	CanRedo       bool           `json:"canRedo"`
	Pattern       Pattern        `json:"pattern"`
}

// Snapshot copies the engine state.
func (e *Engine) Snapshot() State {
	return State{
		Running:       e.running,
		CurrentStep:   e.currentStep,
		CurrentBar:    e.CurrentBar(),
		SelectedTrack: e.selectedTrack,
		FillMode:      e.fillMode,
		GlobalBPM:     e.globalBPM,
		Tempo:         e.Tempo(),
		StepInterval:  e.stepInterval,
		PatternNumber: e.patternNumber,
		TriggerCounts: e.triggerCounts,
		CanUndo:       e.CanUndo(),
		CanRedo:       e.CanRedo(),
		Pattern:       e.pattern,
	}
}
