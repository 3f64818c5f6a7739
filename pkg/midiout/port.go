package midiout

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
)

// ListPorts returns the names of the available output ports. A driver must
// be registered by the binary.
func ListPorts() []string {
	outs := midi.GetOutPorts()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names
}

// Open finds the first output port whose name contains name (case
// insensitive) and returns a send function for it. An empty name picks the
// first port.
func Open(name string) (SendFunc, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("no MIDI output ports available")
	}
	want := strings.ToLower(name)
	for _, out := range outs {
		if want != "" && !strings.Contains(strings.ToLower(out.String()), want) {
			continue
		}
		send, err := midi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("failed to open port %q: %w", out.String(), err)
		}
		return send, nil
	}
	return nil, fmt.Errorf("no MIDI output port matching %q", name)
}

// Close releases the registered driver.
func Close() {
	midi.CloseDriver()
}
