package classifier

import "sort"

// digitRunLabels are labels an IFSC-boosted bank account suppresses when
// their spans overlap: a 9-18 digit run next to an IFSC code is an account
// number, not a phone, card, or Aadhaar number.
var digitRunLabels = map[string]bool{
	LabelPhone:      true,
	LabelCreditCard: true,
	LabelAadhaar:    true,
}

// Resolve reduces an overlapping, multi-label candidate set to a strictly
// non-overlapping, offset-ordered entity list. The outcome is a pure function
// of the candidate set: candidates are ordered by (start, confidence desc,
// length desc, label) and swept left to right, keeping each candidate that
// does not overlap an already-kept winner.
//
// Before the sweep, bank account candidates with an IFSC code in proximity
// suppress overlapping digit-run look-alikes, so that cue-confirmed accounts
// win even against higher base-confidence labels.
func Resolve(text string, candidates []Entity) []Entity {
	if len(candidates) == 0 {
		return []Entity{}
	}

	sorted := make([]Entity, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Length() != b.Length() {
			return a.Length() > b.Length()
		}
		return a.Label < b.Label
	})

	var anchors []Entity
	for _, c := range sorted {
		if c.Label == LabelBankAccount && !c.IsPlaceholder && IFSCNearby(text, c.Start, c.End) {
			anchors = append(anchors, c)
		}
	}
	if len(anchors) > 0 {
		kept := sorted[:0]
		for _, c := range sorted {
			if suppressedByAnchor(c, anchors) {
				continue
			}
			kept = append(kept, c)
		}
		sorted = kept
	}

	result := make([]Entity, 0, len(sorted))
	lastEnd := -1
	for _, c := range sorted {
		if c.Start >= lastEnd {
			result = append(result, c)
			lastEnd = c.End
		}
	}
	return result
}

// suppressedByAnchor reports whether c is a digit-run candidate overlapping
// an IFSC-anchored bank account span.
func suppressedByAnchor(c Entity, anchors []Entity) bool {
	if !digitRunLabels[c.Label] {
		return false
	}
	for _, a := range anchors {
		if c.Overlaps(a) {
			return true
		}
	}
	return false
}
