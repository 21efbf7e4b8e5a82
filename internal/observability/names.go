// Package observability provides OpenTelemetry metrics, tracing and log enrichment for popchoice.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount         = "popchoice_http_requests_total"
	MetricNameRequestDuration      = "popchoice_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge  = "popchoice_http_request_body_too_large_total"
	MetricNameRecommendations      = "popchoice_recommendations_total"
	MetricNamePipelineStepDuration = "popchoice_pipeline_step_duration_seconds"
	MetricNameMoviesSeeded         = "popchoice_movies_seeded_total"
	MetricNameCacheHits            = "popchoice_cache_hits_total"
	MetricNameCacheMisses          = "popchoice_cache_misses_total"
)

// Attribute keys.
const (
	AttrOutcome = "outcome"
	AttrStep    = "step"
	AttrStatus  = "status"
	AttrCache   = "cache"
)

// Pipeline steps.
const (
	StepEmbed     = "embed"
	StepSearch    = "search"
	StepRecommend = "recommend"
)

// Step statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recommendation outcomes.
const (
	OutcomeSuccess               = "success"
	OutcomeNoMatches             = "no_matches"
	OutcomeEmbeddingFailure      = "embedding_failure"
	OutcomeSearchFailure         = "search_failure"
	OutcomeRecommendationFailure = "recommendation_failure"
)

// CacheQueryEmbedding labels the preference-query embedding cache.
const CacheQueryEmbedding = "query_embedding"

var allowedSteps = map[string]bool{
	StepEmbed:     true,
	StepSearch:    true,
	StepRecommend: true,
}

var allowedStatuses = map[string]bool{
	StatusSuccess: true,
	StatusFailure: true,
}

var allowedOutcomes = map[string]bool{
	OutcomeSuccess:               true,
	OutcomeNoMatches:             true,
	OutcomeEmbeddingFailure:      true,
	OutcomeSearchFailure:         true,
	OutcomeRecommendationFailure: true,
}

var allowedCaches = map[string]bool{
	CacheQueryEmbedding: true,
}

func normalize(value string, allowed map[string]bool, fallback string) string {
	if allowed[value] {
		return value
	}

	return fallback
}

// NormalizeStep returns step if known, otherwise "unknown".
func NormalizeStep(step string) string {
	return normalize(step, allowedSteps, "unknown")
}

// NormalizeStatus returns status if known, otherwise "other".
func NormalizeStatus(status string) string {
	return normalize(status, allowedStatuses, "other")
}

// NormalizeOutcome returns outcome if known, otherwise "unknown".
func NormalizeOutcome(outcome string) string {
	return normalize(outcome, allowedOutcomes, "unknown")
}

// NormalizeCacheName returns name if known, otherwise "other".
func NormalizeCacheName(name string) string {
	return normalize(name, allowedCaches, "other")
}
