package constants

// Project statuses (must match enum values stored in Projects.status).
const (
	ProjectDraft      = "draft"
	ProjectRegistered = "registered"
	ProjectVerified   = "verified"
	ProjectRejected   = "rejected"
)

// Verification statuses.
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Credit statuses. Leaving "available" is terminal.
const (
	CreditAvailable   = "available"
	CreditRetired     = "retired"
	CreditTransferred = "transferred"
)

// Corresponding-adjustment statuses.
const (
	AdjustmentPending  = "pending"
	AdjustmentApproved = "approved"
	AdjustmentVerified = "verified"
	AdjustmentRejected = "rejected"
)

// Article 6 adjustment types.
const (
	AdjustmentArticle62 = "Article 6.2"
	AdjustmentArticle64 = "Article 6.4"
)

// Audited entity types for the activity log and the notary.
const (
	EntityProject      = "project"
	EntityVerification = "verification"
	EntityCredit       = "credit"
	EntityAdjustment   = "adjustment"
)

var validProjectStatuses = []string{ProjectDraft, ProjectRegistered, ProjectVerified, ProjectRejected}

// IsValidProjectStatus returns true if status is one of the allowed enum values.
func IsValidProjectStatus(status string) bool {
	for _, s := range validProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidAdjustmentType returns true for the two Article 6 unit types.
func IsValidAdjustmentType(t string) bool {
	return t == AdjustmentArticle62 || t == AdjustmentArticle64
}

// adjustmentRank orders adjustment statuses along the forward path
// pending → approved → verified; rejected is terminal from pending.
var adjustmentRank = map[string]int{
	AdjustmentPending:  0,
	AdjustmentApproved: 1,
	AdjustmentVerified: 2,
	AdjustmentRejected: 1,
}

// IsForwardAdjustmentTransition reports whether from → to is a legal forward
// move. Backward transitions (e.g. verified → pending) and moves out of a
// terminal status are rejected.
func IsForwardAdjustmentTransition(from, to string) bool {
	fromRank, ok := adjustmentRank[from]
	if !ok {
		return false
	}
	toRank, ok := adjustmentRank[to]
	if !ok {
		return false
	}
	if from == AdjustmentRejected || from == AdjustmentVerified {
		return false
	}
	if from == AdjustmentApproved && to == AdjustmentRejected {
		return false
	}
	return toRank > fromRank
}
