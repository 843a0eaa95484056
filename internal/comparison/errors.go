package comparison

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/analysis"
	"github.com/spigell/hirelytics/internal/candidates"
	"github.com/spigell/hirelytics/internal/plan"
)

// MinCandidates is the smallest batch worth comparing.
const MinCandidates = 2

type InsufficientCandidatesError struct {
	Selected int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("at least %d candidates are required, %d selected", MinCandidates, e.Selected)
}

type CandidateLimitError struct {
	Plan     plan.Tier
	Selected int
	Limit    int
}

func (e *CandidateLimitError) Error() string {
	return fmt.Sprintf("plan %s allows %d candidates per comparison, %d selected", e.Plan, e.Limit, e.Selected)
}

// QuotaExceededError carries the snapshot that failed the quota check.
type QuotaExceededError struct {
	Snapshot plan.Snapshot
}

func (e *QuotaExceededError) Error() string {
	s := e.Snapshot
	if s.EffectiveWeek >= s.Limits.WeeklyComparisons {
		return fmt.Sprintf("weekly comparison limit reached (%d/%d on plan %s)", s.EffectiveWeek, s.Limits.WeeklyComparisons, s.Plan)
	}
	return fmt.Sprintf("daily comparison limit reached (%d/%d on plan %s)", s.EffectiveToday, s.Limits.DailyComparisons, s.Plan)
}

type AllExtractionsFailedError struct {
	Failures []*candidates.ExtractionError
}

func (e *AllExtractionsFailedError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.CandidateID)
	}
	return fmt.Sprintf("no candidate resume could be read (%s)", strings.Join(ids, ", "))
}

// ConfigError is an unusable provider configuration or missing credentials.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "invalid provider configuration: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// Error kinds reported to users.
const (
	KindInsufficientCandidates = "insufficient_candidates"
	KindCandidateLimit         = "candidate_limit"
	KindQuotaExceeded          = "quota_exceeded"
	KindAllExtractionsFailed   = "all_extractions_failed"
	KindExtraction             = "extraction_failed"
	KindInvalidProvider        = "invalid_provider"
	KindInvalidConfig          = "invalid_config"
	KindProviderHTTP           = "provider_http"
	KindProviderParse          = "provider_parse"
	KindProviderTransport      = "provider_transport"
	KindInvariantViolation     = "invariant_violation"
	KindNotFound               = "not_found"
	KindCanceled               = "canceled"
	KindInternal               = "internal"
)

// Kind maps err to a stable machine-readable kind. Nil maps to "".
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var (
		insufficient *InsufficientCandidatesError
		limit        *CandidateLimitError
		quota        *QuotaExceededError
		allFailed    *AllExtractionsFailedError
		extraction   *candidates.ExtractionError
		invalid      *ai.InvalidProviderError
		config       *ConfigError
		clientConfig *ai.ConfigError
		httpErr      *ai.HTTPError
		parseErr     *ai.ParseError
		transport    *ai.TransportError
		invariant    *analysis.InvariantViolationError
		notFound     *candidates.NotFoundError
	)

	switch {
	case errors.As(err, &insufficient):
		return KindInsufficientCandidates
	case errors.As(err, &limit):
		return KindCandidateLimit
	case errors.As(err, &quota):
		return KindQuotaExceeded
	case errors.As(err, &allFailed):
		return KindAllExtractionsFailed
	case errors.As(err, &extraction):
		return KindExtraction
	case errors.As(err, &invalid):
		return KindInvalidProvider
	case errors.As(err, &config), errors.As(err, &clientConfig):
		return KindInvalidConfig
	case errors.As(err, &httpErr):
		return KindProviderHTTP
	case errors.As(err, &parseErr):
		return KindProviderParse
	case errors.As(err, &transport):
		return KindProviderTransport
	case errors.As(err, &invariant):
		return KindInvariantViolation
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
