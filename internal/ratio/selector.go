package ratio

// Logger receives diagnostic messages from selection decisions that would
// otherwise be silent. A nil logger disables reporting.
type Logger func(format string, args ...any)

// SelectSource picks the natively supported ratio that best contains the
// target ratio with minimal wasted area.
//
// A candidate "contains" the target when cropping can reduce it to the exact
// target without upscaling: portrait targets need a candidate at least as
// narrow (decimal <= target), landscape targets a candidate at least as wide
// (decimal >= target). Square targets use 1:1 directly. Among containing
// candidates the one with the smallest decimal distance wins.
//
// When no supported ratio contains the target (extreme ratios like 2:7 or
// 21:9), the orientation's most extreme supported ratio is used instead:
// 9:16 for portrait, 16:9 for landscape. That crop cannot fully cover the
// target, so the decision is reported through logf.
//
// Runs before any network call, once per request. O(len(supportedRatios)),
// no allocations.
func SelectSource(target Ratio, logf Logger) string {
	name := target.String()
	if IsSupported(name) {
		return name
	}

	if target.IsSquare() {
		return "1:1"
	}

	targetDecimal := target.Decimal()
	portrait := targetDecimal < 1.0

	best := ""
	minWaste := 0.0
	for _, candidate := range supportedRatios {
		contains := false
		if portrait {
			contains = candidate.decimal <= targetDecimal
		} else {
			contains = candidate.decimal >= targetDecimal
		}
		if !contains {
			continue
		}

		// Decimal distance approximates wasted area after the crop.
		waste := candidate.decimal - targetDecimal
		if waste < 0 {
			waste = -waste
		}
		if best == "" || waste < minWaste {
			best = candidate.name
			minWaste = waste
		}
	}

	if best == "" {
		fallback := "16:9"
		if portrait {
			fallback = "9:16"
		}
		if logf != nil {
			logf("no supported ratio contains target %s, falling back to %s", name, fallback)
		}
		return fallback
	}

	return best
}
