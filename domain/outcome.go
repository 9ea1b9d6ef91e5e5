package domain

// Block reasons recorded alongside failure statuses. Each names the
// observable cause, not a guess at publisher intent.
const (
	BlockPaywall      = "paywall"
	BlockBotDetection = "bot_detection"
	BlockRateLimited  = "rate_limited"
	BlockDeleted      = "deleted"
	BlockTransport    = "transport"
	BlockSoftPaywall  = "soft_paywall"
	BlockJSRequired   = "js_required_or_unknown"
	BlockNonProsePath = "non_prose_path"
	BlockNoProxy      = "no_active_proxy"
	BlockRobots       = "robots_disallowed"
)

// Outcome is the extraction verdict for one claimed URL. Article is non-nil
// only when Status is StatusSuccess; the store may still downgrade such an
// outcome to duplicate when the content hash is already known.
type Outcome struct {
	Status       Status
	BlockReason  string
	ErrorMessage string
	Article      *ArticleRecord

	// DateDivergent marks a successful extraction whose own publish date
	// sits more than seven days from the upstream-provided one.
	DateDivergent bool
}

// SuccessOutcome wraps an extracted article.
func SuccessOutcome(article *ArticleRecord) Outcome {
	return Outcome{Status: StatusSuccess, Article: article}
}

// FailureOutcome records a terminal failure with its observable cause and
// the underlying error detail, which may be empty.
func FailureOutcome(status Status, blockReason, errorMessage string) Outcome {
	return Outcome{Status: status, BlockReason: blockReason, ErrorMessage: errorMessage}
}
