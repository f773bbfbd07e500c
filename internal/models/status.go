package models

// Status is the lifecycle status shared by plans, milestones and initiatives.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// EntityType identifies the kind of record an audit entry or cascade step refers to.
type EntityType string

const (
	EntityPlan       EntityType = "PLAN"
	EntityMilestone  EntityType = "MILESTONE"
	EntityInitiative EntityType = "INITIATIVE"
	EntityComment    EntityType = "COMMENT"
	EntityUser       EntityType = "USER"
)

// Label is the human form used in audit details, e.g. "Plan".
func (e EntityType) Label() string {
	switch e {
	case EntityPlan:
		return "Plan"
	case EntityMilestone:
		return "Milestone"
	case EntityInitiative:
		return "Initiative"
	case EntityComment:
		return "Comment"
	case EntityUser:
		return "User"
	}
	return string(e)
}

type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
)
