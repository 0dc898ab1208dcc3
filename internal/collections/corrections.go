package collections

import "github.com/kestrelmedia/archivist/pkg/structures"

// applyCorrections rewrites each candidate whose source tmdb_id appears
// in definition.corrections, and returns a reverse map (new id -> old
// id) so the health pass can still recognize an already-corrected item
// under its original id (§4.3 "Join to local ids").
func applyCorrections(candidates []structures.CandidateItem, corrections map[string]structures.Correction) ([]structures.CandidateItem, map[string]string) {
	reverse := make(map[string]string, len(corrections))
	if len(corrections) == 0 {
		return candidates, reverse
	}

	out := make([]structures.CandidateItem, len(candidates))
	for i, c := range candidates {
		correction, ok := corrections[c.TmdbID]
		if !ok {
			out[i] = c
			continue
		}
		original := c.TmdbID
		if correction.NewTmdbID != "" {
			c.TmdbID = correction.NewTmdbID
		}
		if correction.SeasonNumber != nil {
			c.SeasonNumber = correction.SeasonNumber
		}
		reverse[c.TmdbID] = original
		out[i] = c
	}
	return out, reverse
}
