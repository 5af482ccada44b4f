package agents

import (
	"regexp"
	"strings"
)

const (
	// recognizedRouteConfidence is the routing score for a label the model produced verbatim.
	recognizedRouteConfidence = 1.0
	// fallbackRouteConfidence is the routing score when the default route was used.
	fallbackRouteConfidence = 0.5
	// retrievalDepth is how many top results feed the retrieval score.
	retrievalDepth = 3
)

// RoutingConfidence scores the supervisor's decision.
func RoutingConfidence(fallback bool) float64 {
	if fallback {
		return fallbackRouteConfidence
	}
	return recognizedRouteConfidence
}

// RetrievalConfidence is the mean of the top three similarity scores, with
// missing results counted as zero. Scores are assumed sorted descending and
// are clamped to [0,1]. Adding results or raising scores never lowers it.
func RetrievalConfidence(scores []float32) float64 {
	var sum float64
	for i := 0; i < len(scores) && i < retrievalDepth; i++ {
		sum += min(max(float64(scores[i]), 0), 1)
	}
	return sum / retrievalDepth
}

// ResponseConfidence is 1 for a non-empty response and 0 otherwise.
func ResponseConfidence(response string) float64 {
	if strings.TrimSpace(response) == "" {
		return 0
	}
	return 1
}

var notFoundPattern = regexp.MustCompile(`(?i)not found|no matching|no \w+( \w+)? (were |was )?found`)

// hasNotFoundSignal reports whether text already tells the user nothing matched.
func hasNotFoundSignal(text string) bool {
	return notFoundPattern.MatchString(text)
}

// finalizeResponse trims model output and, when there were no candidates,
// makes sure the text states that nothing was found.
func finalizeResponse(output string, empty bool, notFound string) string {
	output = strings.TrimSpace(output)
	if !empty {
		return output
	}
	switch {
	case output == "":
		return notFound
	case hasNotFoundSignal(output):
		return output
	default:
		return notFound + "\n\n" + output
	}
}

func scoresOf[T any](records []T, score func(T) float32) []float32 {
	out := make([]float32, len(records))
	for i, r := range records {
		out[i] = score(r)
	}
	return out
}
