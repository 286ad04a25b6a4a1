package trigger

// Envelope summarizes a set of primitives: the earliest start, the latest
// end (start + time over threshold), the channel range, the summed ADC
// integral and the peak taken from the primitive with the largest ADC peak
// (first one wins on ties). DetID is taken from the last primitive.
//
// Rebuilding an Envelope from an activity's own Inputs reproduces its
// time and channel range and its ADC integral.
func Envelope(tps []Primitive) ActivitySummary {
	var s ActivitySummary
	if len(tps) == 0 {
		return s
	}
	first := tps[0]
	s.TimeStart = first.TimeStart
	s.TimeEnd = first.TimeEnd()
	s.ChannelStart = first.Channel
	s.ChannelEnd = first.Channel
	s.ChannelPeak = first.Channel
	s.TimePeak = first.TimePeak
	s.ADCPeak = first.ADCPeak
	for _, tp := range tps {
		if tp.TimeStart < s.TimeStart {
			s.TimeStart = tp.TimeStart
		}
		if end := tp.TimeEnd(); end > s.TimeEnd {
			s.TimeEnd = end
		}
		if tp.Channel < s.ChannelStart {
			s.ChannelStart = tp.Channel
		}
		if tp.Channel > s.ChannelEnd {
			s.ChannelEnd = tp.Channel
		}
		s.ADCIntegral += tp.ADCIntegral
		if tp.ADCPeak > s.ADCPeak {
			s.ADCPeak = tp.ADCPeak
			s.ChannelPeak = tp.Channel
			s.TimePeak = tp.TimePeak
		}
	}
	s.TimeActivity = s.TimePeak
	s.DetID = tps[len(tps)-1].DetID
	s.NPrimitives = len(tps)
	return s
}

// NewActivity builds a TPC activity from tps using Envelope and tags it with
// algo. The slice is copied so the activity owns its inputs.
func NewActivity(tps []Primitive, algo Algorithm) Activity {
	s := Envelope(tps)
	s.Type = ActivityTypeTPC
	s.Algorithm = algo
	inputs := make([]Primitive, len(tps))
	copy(inputs, tps)
	return Activity{ActivitySummary: s, Inputs: inputs}
}

// Summaries converts activities to their summary form.
func Summaries(tas []Activity) []ActivitySummary {
	out := make([]ActivitySummary, len(tas))
	for i := range tas {
		out[i] = tas[i].Summary()
	}
	return out
}

// CountPrimitives returns the total number of primitives across tas.
func CountPrimitives(tas []ActivitySummary) int {
	n := 0
	for i := range tas {
		n += tas[i].NPrimitives
	}
	return n
}
