// Package boundary scans a (size, ns/access) curve and emits boundaries
// where latency steps up by a sustained ratio, interpreted as the working
// set overflowing a cache level.
//
// The detector compares each sample against a running "plateau average"
// of consecutive latencies since the last detected boundary, rather than
// against the immediately preceding sample — this suppresses gradual
// drift that a previous-sample comparison would mistake for a step. A
// one-sample lookahead with a small slack then confirms the step before
// it is committed, so a single noisy point cannot trigger a false
// boundary.
//
// Labels (L1, L2, L3, L4, then L?) are assigned positionally in emission
// order and are purely cosmetic: nothing guarantees the first detected
// boundary is truly L1 — if the measured sizes start above L1's actual
// capacity, the first boundary emitted here is really L2 or later. This
// is a heuristic, documented rather than solved.
package boundary

import "github.com/jbrusegaard/cachechase/internal/chase/types"

const (
	stepRatio        = 1.25
	lookaheadSlack   = 0.95
	minPlateauPoints = 2
	maxBoundaries    = 8
)

var labels = []string{"L1", "L2", "L3", "L4"}

func labelFor(index int) string {
	if index < len(labels) {
		return labels[index]
	}
	return "L?"
}

// Detect runs the plateau/ratio/lookahead algorithm over samples, which
// must already be in ascending working-set-size order.
func Detect(samples []types.Sample) []types.Boundary {
	if len(samples) == 0 {
		return nil
	}

	var boundaries []types.Boundary
	plateauAvg := samples[0].NsPerAccess
	plateauCount := 1

	for i := 1; i < len(samples); i++ {
		if len(boundaries) >= maxBoundaries {
			break
		}

		ratio := samples[i].NsPerAccess / plateauAvg
		if ratio > stepRatio && plateauCount >= minPlateauPoints {
			confirmed := true
			if i+1 < len(samples) {
				nextRatio := samples[i+1].NsPerAccess / plateauAvg
				confirmed = nextRatio > stepRatio*lookaheadSlack
			}

			if confirmed {
				boundaries = append(boundaries, types.Boundary{
					ApproxSizeBytes: samples[i-1].WorkingSetBytes,
					Ratio:           ratio,
					Label:           labelFor(len(boundaries)),
				})
				plateauAvg = samples[i].NsPerAccess
				plateauCount = 1
				continue
			}
		}

		// Fold into the running mean since the last boundary.
		plateauAvg = (plateauAvg*float64(plateauCount) + samples[i].NsPerAccess) / float64(plateauCount+1)
		plateauCount++
	}

	return boundaries
}
