package layout

// Reference panel: 16 toggles in two rows, then the knob rows.
var meeblip = Table{
	// name, kind, x, y, min, max, default, steps, cc
	{"OSCB_WAVE", ControlButton, 45, 244, 0, 1, 0, 1, 75},
	{"OSCB_ENABL", ControlButton, 105, 263, 0, 1, 0, 1, 74},
	{"OSCB_OCT", ControlButton, 165, 263, 0, 1, 0, 1, 73},
	{"ANTI_ALIAS", ControlButton, 225, 263, 0, 1, 0, 1, 72},
	{"LFO_WAVE", ControlButton, 286, 263, 0, 1, 0, 1, 67},
	{"LFO_RANDOM", ControlButton, 346, 263, 0, 1, 0, 1, 66},
	{"OSC_FM", ControlButton, 406, 263, 0, 1, 0, 1, 65},
	{"KNOB_SHIFT", ControlButton, 466, 244, 0, 1, 0, 1, 64},

	{"OSCA_WAVE", ControlButton, 45, 168, 0, 1, 0, 1, 79},
	{"PWM_SWEEP", ControlButton, 105, 187, 0, 1, 0, 1, 78},
	{"OSCA_NOISE", ControlButton, 165, 187, 0, 1, 0, 1, 77},
	{"SUSTAIN", ControlButton, 225, 187, 0, 1, 0, 1, 76},
	{"LFO_DEST", ControlButton, 286, 187, 0, 1, 0, 1, 71},
	{"LFO_ENABLE", ControlButton, 346, 187, 0, 1, 0, 1, 70},
	{"DISTORTION", ControlButton, 406, 187, 0, 1, 0, 1, 69},
	{"FILTER_MODE", ControlButton, 466, 168, 0, 1, 0, 1, 68},

	{"OSC_DETUNE", ControlBipolarKnob, 45, 93, -64, 63, 0, 127, 55},
	{"PULSE_KNOB", ControlKnob, 105, 112, 0, 127, 64, 127, 54},
	{"PORTAMENTO", ControlKnob, 165, 112, 0, 127, 0, 127, 53},
	{"VCFENVMOD", ControlBipolarKnob, 225, 112, -64, 63, 0, 127, 52},
	{"LFOLEVEL", ControlKnob, 286, 112, 0, 127, 0, 127, 51},
	{"LFOFREQ", ControlKnob, 346, 112, 0, 127, 0, 127, 50},
	{"CUTOFF", ControlKnob, 406, 112, 0, 127, 127, 127, 49},
	{"RESONANCE", ControlKnob, 466, 93, 0, 127, 0, 127, 48},

	// CC 56, 57, 62 and 63 are spare knobs on the panel
	{"DCF_ATTACK", ControlKnob, 165, 36, 0, 127, 0, 127, 61},
	{"DCF_DECAY", ControlKnob, 225, 36, 0, 127, 96, 127, 60},
	{"AMP_ATTACK", ControlKnob, 286, 36, 0, 127, 0, 127, 59},
	{"AMP_DECAY", ControlKnob, 346, 36, 0, 127, 96, 127, 58},
}

// Meeblip returns the reference layout of the Meeblip anode panel
func Meeblip() Table {
	return meeblip.Clone()
}
