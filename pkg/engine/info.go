package engine

// Identification reported to hosts
const (
	EffectName    = "MeeblipVST"
	VendorString  = "Axel Werner electronics (AWe)"
	ProductString = "Meeblip VST 2.x"
	VendorVersion = 1000

	// MIDI channels per direction
	NumMidiInputChannels  = 16
	NumMidiOutputChannels = 16
)

var capabilities = map[string]bool{
	"receiveVstEvents":    true,
	"sendVstEvents":       true,
	"sendVstMidiEvent":    true,
	"receiveVstMidiEvent": true,
}

// CanDo reports whether the instance supports a host capability
func CanDo(capability string) bool {
	return capabilities[capability]
}
