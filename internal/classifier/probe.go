package classifier

// Probe is a predicted emotion quadrant: the first letter is valence, the
// second arousal, H for high and L for low.
type Probe string

const (
	ProbeHH Probe = "HH"
	ProbeHL Probe = "HL"
	ProbeLH Probe = "LH"
	ProbeLL Probe = "LL"
)

// Probes lists the quadrants in model output order.
var Probes = [4]Probe{ProbeHH, ProbeHL, ProbeLH, ProbeLL}

// Valence reports the probe's valence component, 1 for high.
func (p Probe) Valence() int {
	if p == ProbeHH || p == ProbeHL {
		return 1
	}
	return 0
}

// Arousal reports the probe's arousal component, 1 for high.
func (p Probe) Arousal() int {
	if p == ProbeHH || p == ProbeLH {
		return 1
	}
	return 0
}

// Index returns the probe's position in model output order, or -1 for an
// unknown probe label.
func (p Probe) Index() int {
	for i, candidate := range Probes {
		if candidate == p {
			return i
		}
	}
	return -1
}
