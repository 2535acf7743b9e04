package depgraph

// Operation names the kind of plan being built, which changes provider
// selection policy (spec 4.2).
type Operation int

const (
	// OpStop selects every candidate provider, since all of them must be
	// stopped when dismantling a runlevel.
	OpStop Operation = iota
	// OpStrict restricts to runlevel/boot members only.
	OpStrict
	// OpStart is like OpStrict but also admits hotplugged candidates.
	OpStart
	// OpFuzzy is the "otherwise" branch: prefer started, then
	// starting/stopping/inactive, then stopped, tie-broken by
	// runlevel/hotplugged/boot/any.
	OpFuzzy
)

// Candidate is the subset of a provider service's status the selection
// policy needs: its primary state and its three membership flags.
type Candidate struct {
	Name       string
	State      string // "started", "starting", "stopping", "inactive", "stopped", ...
	InRunlevel bool
	InBoot     bool
	Hotplugged bool
}

// SelectProviders implements spec 4.2's provider selection cascade for an
// abstract target with the given candidates (the providedby set). A nil
// return with ok=true means "needs already satisfied, do not wait" (the
// fuzzy early-exit rule from spec 9 when ≥2 candidates are already
// started). A nil return with ok=false means no candidate qualifies.
func SelectProviders(op Operation, candidates []Candidate, runlevel string) (chosen []Candidate, ok bool) {
	switch op {
	case OpStop:
		if len(candidates) == 0 {
			return nil, false
		}
		return candidates, true

	case OpStrict, OpStart:
		var out []Candidate
		for _, c := range candidates {
			if c.InRunlevel || c.InBoot || (op == OpStart && c.Hotplugged) {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true

	default: // OpFuzzy
		return selectFuzzy(candidates)
	}
}

func selectFuzzy(candidates []Candidate) ([]Candidate, bool) {
	var started, pending, stopped []Candidate
	for _, c := range candidates {
		switch c.State {
		case "started":
			started = append(started, c)
		case "starting", "stopping", "inactive":
			pending = append(pending, c)
		default:
			stopped = append(stopped, c)
		}
	}

	// The first band with more than one candidate already started means
	// the need is satisfied ambiguously; per spec 9 the caller should not
	// wait on any single one of them.
	if len(started) > 1 {
		return nil, true
	}
	if len(started) == 1 {
		return started, true
	}
	if band := preferWithinBand(pending); band != nil {
		return []Candidate{*band}, true
	}
	if band := preferWithinBand(stopped); band != nil {
		return []Candidate{*band}, true
	}
	return nil, false
}

// preferWithinBand applies the in-runlevel > hotplugged > in-boot > any
// tie-break within one state band.
func preferWithinBand(band []Candidate) *Candidate {
	if len(band) == 0 {
		return nil
	}
	for _, c := range band {
		if c.InRunlevel {
			return &c
		}
	}
	for _, c := range band {
		if c.Hotplugged {
			return &c
		}
	}
	for _, c := range band {
		if c.InBoot {
			return &c
		}
	}
	return &band[0]
}
