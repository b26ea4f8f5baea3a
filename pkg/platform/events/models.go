// Package events is the outbound signal surface of the lifecycle engine. The
// core never calls a UI, mailer or network API; it records plain event data
// and the consuming layer decides whether that becomes a toast, an email or a
// badge count.
package events

import (
	"context"
	"time"

	id "certrail/pkg/domain"
)

// Category classifies events by their primary purpose, enabling different
// retention policies and routing.
type Category string

const (
	// CategoryCompliance covers events with regulatory significance: grants
	// and losses of safety habilitations, certificate issuance. These
	// require tamper-proof storage and long retention.
	CategoryCompliance Category = "compliance"

	// CategoryNotification covers events the UI layer turns into user-facing
	// signals: expiry warnings, newly available evaluations.
	CategoryNotification Category = "notification"

	// CategoryOperations covers routine lifecycle activity useful for
	// dashboards and debugging. Can be sampled.
	CategoryOperations Category = "operations"
)

// Event is emitted from domain logic to capture key lifecycle actions. Kept
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  Category
	Timestamp time.Time
	SubjectID id.SubjectID
	Action    string
	// EntityID is the row the action applies to (assignment, progress or
	// path-progress ID), stringified so one event shape serves all three.
	EntityID string
	Detail   string
	// ActorID tracks who performed the action when it was administrative
	// rather than the subject's own interaction.
	ActorID   string
	RequestID string
}

// Action identifies a lifecycle event type.
type Action string

const (
	// Assignment lifecycle
	ActionAssignmentRead         Action = "assignment_read"
	ActionAssignmentAcknowledged Action = "assignment_acknowledged"
	ActionAssignmentCompleted    Action = "training_assignment_completed"
	ActionAssignmentReset        Action = "assignment_reset"

	// Training progress
	ActionTrainingCompleted  Action = "training_completed"
	ActionCertificateIssued  Action = "certificate_issued"
	ActionTrainingReset      Action = "training_reset"
	ActionTrainingExpiring   Action = "training_expiring"

	// Certification pathway
	ActionPathAssigned         Action = "path_assigned"
	ActionEvaluationSubmitted  Action = "evaluation_submitted"
	ActionEvaluationCorrected  Action = "evaluation_corrected"
	ActionHabilitationGranted  Action = "habilitation_granted"
	ActionCertificationFailed  Action = "certification_failed"
)

// actionCategories maps each action to its category.
var actionCategories = map[Action]Category{
	ActionCertificateIssued:   CategoryCompliance,
	ActionHabilitationGranted: CategoryCompliance,
	ActionCertificationFailed: CategoryCompliance,
	ActionEvaluationCorrected: CategoryCompliance,

	ActionTrainingExpiring: CategoryNotification,

	ActionAssignmentRead:         CategoryOperations,
	ActionAssignmentAcknowledged: CategoryOperations,
	ActionAssignmentCompleted:    CategoryOperations,
	ActionAssignmentReset:        CategoryOperations,
	ActionTrainingCompleted:      CategoryOperations,
	ActionTrainingReset:          CategoryOperations,
	ActionPathAssigned:           CategoryOperations,
	ActionEvaluationSubmitted:    CategoryOperations,
}

// Category returns the category for this action. Unknown actions default to
// CategoryOperations.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists emitted events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Event, error)
}
