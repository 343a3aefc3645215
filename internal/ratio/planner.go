package ratio

import "fmt"

// GenerationPlan describes how to achieve a target aspect ratio with the
// natively supported set: either generate directly, or generate at a
// containing source ratio and crop afterwards.
type GenerationPlan struct {
	SourceRatio  string
	RequiresCrop bool
	TargetRatio  Ratio
	Strategy     string
}

// Plan resolves the generation strategy for a target ratio string.
// Pure function of the supported-ratio constant and the input.
func Plan(targetRatio string, logf Logger) (GenerationPlan, error) {
	target, err := Parse(targetRatio)
	if err != nil {
		return GenerationPlan{}, err
	}

	if IsSupported(targetRatio) {
		return GenerationPlan{
			SourceRatio:  targetRatio,
			RequiresCrop: false,
			TargetRatio:  target,
			Strategy:     fmt.Sprintf("Generate directly at %s (natively supported)", targetRatio),
		}, nil
	}

	source := SelectSource(target, logf)
	return GenerationPlan{
		SourceRatio:  source,
		RequiresCrop: true,
		TargetRatio:  target,
		Strategy:     fmt.Sprintf("Generate at %s, then crop to %s", source, targetRatio),
	}, nil
}
