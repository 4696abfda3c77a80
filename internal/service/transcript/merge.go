// Package transcript implements the merge engine that reconciles
// speech-to-text segments with diarization segments into a single
// speaker-attributed conversation.
//
// The two inputs are independently produced time series over the same
// recording: transcript segments carry text, speaker segments carry
// identity. Neither producer knows about the other, so their interval
// boundaries rarely line up. The merge engine resolves each transcript
// segment to the speaker with the greatest accumulated temporal overlap.
package transcript

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"call-transcription-service/internal/models"
)

// UnknownSpeaker is assigned to a transcript segment that no diarization
// segment overlaps at all.
const UnknownSpeaker = "UNKNOWN"

// ErrInvalidSegment reports a malformed input interval (negative start or
// end not after start). It is a precondition violation by the producer,
// distinct from the valid "no speaker found" outcome.
var ErrInvalidSegment = errors.New("transcript: invalid segment interval")

// Merge produces one ConversationTurn per transcript segment, in input
// order. Each turn carries the transcript segment's timestamps, its text
// with surrounding whitespace stripped, and the role label of the speaker
// whose diarization segments accumulate the greatest overlap with it.
//
// Speaker selection is deterministic: speaker segments are considered in
// (start, end, speaker) order, and a tie on accumulated overlap resolves
// to the speaker that first overlapped the transcript segment in that
// order. Zero overlapping diarization yields UnknownSpeaker.
//
// Complexity is O(N*M) over transcript and speaker segment counts, which
// is fine at call-recording scale (both are bounded by recording length
// over typical utterance duration).
func Merge(segments []models.TranscriptSegment, speakers []models.SpeakerSegment, labels Labels) ([]models.ConversationTurn, error) {
	for _, s := range segments {
		if err := validInterval(s.Start, s.End); err != nil {
			return nil, fmt.Errorf("transcript segment [%g,%g]: %w", s.Start, s.End, err)
		}
	}
	for _, d := range speakers {
		if err := validInterval(d.Start, d.End); err != nil {
			return nil, fmt.Errorf("speaker segment [%g,%g] %q: %w", d.Start, d.End, d.Speaker, err)
		}
	}

	// Fix the evaluation order of the diarization input up front so that
	// tie-breaks do not depend on producer ordering, which the diarization
	// adapter does not guarantee.
	ordered := make([]models.SpeakerSegment, len(speakers))
	copy(ordered, speakers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		if ordered[i].End != ordered[j].End {
			return ordered[i].End < ordered[j].End
		}
		return ordered[i].Speaker < ordered[j].Speaker
	})

	turns := make([]models.ConversationTurn, 0, len(segments))
	for _, seg := range segments {
		speaker := dominantSpeaker(seg, ordered)
		turns = append(turns, models.ConversationTurn{
			Start:   seg.Start,
			End:     seg.End,
			Speaker: labels.Resolve(speaker),
			Text:    strings.TrimSpace(seg.Text),
		})
	}
	return turns, nil
}

// dominantSpeaker accumulates overlap duration per speaker across every
// diarization segment that intersects seg and returns the speaker with
// the strictly greatest total. Ties resolve to the speaker seen first.
func dominantSpeaker(seg models.TranscriptSegment, speakers []models.SpeakerSegment) string {
	totals := make(map[string]float64)
	var order []string

	for _, d := range speakers {
		dur := overlap(seg.Start, seg.End, d.Start, d.End)
		if dur <= 0 {
			continue
		}
		if _, seen := totals[d.Speaker]; !seen {
			order = append(order, d.Speaker)
		}
		totals[d.Speaker] += dur
	}

	if len(order) == 0 {
		return UnknownSpeaker
	}

	best := order[0]
	for _, sp := range order[1:] {
		if totals[sp] > totals[best] {
			best = sp
		}
	}
	return best
}

// overlap returns the length of the intersection of [aStart,aEnd) and
// [bStart,bEnd), clamped at zero for disjoint intervals.
func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func validInterval(start, end float64) error {
	if start < 0 || end <= start {
		return ErrInvalidSegment
	}
	return nil
}
