package transcript

// Labels maps diarization speaker ids to human-readable role labels.
// Ids without a mapping pass through unchanged, so a three-speaker
// recording still yields distinguishable (if unnamed) participants.
type Labels map[string]string

// DefaultLabels reflects the call-center convention that the first
// diarized speaker is the agent answering the call and the second is the
// customer.
func DefaultLabels() Labels {
	return Labels{
		"SPEAKER_00": "Agent",
		"SPEAKER_01": "Customer",
	}
}

// Resolve returns the role label for a speaker id, or the id itself when
// no mapping exists.
func (l Labels) Resolve(speaker string) string {
	if label, ok := l[speaker]; ok {
		return label
	}
	return speaker
}
