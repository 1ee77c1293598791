package domain

// Chunk is one retrievable unit of grounding knowledge. Chunks are
// written by the offline ingestion job; this service only reads them.
type Chunk struct {
	Text       string
	Source     string
	Collection string
}

// RetrievalResult pairs a chunk with its relevance to the query.
type RetrievalResult struct {
	Chunk     Chunk
	Relevance float64
}

// RelevanceFunc maps a raw vector distance reported by the index to a
// relevance score, higher is better. The mapping depends on the index's
// declared metric, so it is injected rather than hardcoded.
type RelevanceFunc func(distance float64) float64

// CosineRelevance maps a cosine distance in [0,2] to 1-distance,
// yielding scores in [-1,1].
func CosineRelevance(distance float64) float64 { return 1 - distance }

// L2Relevance maps an unbounded L2 distance into (0,1].
func L2Relevance(distance float64) float64 { return 1 / (1 + distance) }

// RelevanceForMetric returns the mapping for an index metric name,
// defaulting to cosine.
func RelevanceForMetric(metric string) RelevanceFunc {
	if metric == "L2" || metric == "l2" {
		return L2Relevance
	}
	return CosineRelevance
}
