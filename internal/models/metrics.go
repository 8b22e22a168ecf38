package models

import "time"

// SystemMetrics is a lightweight aggregate snapshot for the status API;
// the full series live behind the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	AccessDecisionsTotal     uint64    `json:"access_decisions_total"`
	AccessDenialsTotal       uint64    `json:"access_denials_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
