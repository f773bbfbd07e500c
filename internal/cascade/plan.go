// Package cascade plans and applies status changes that propagate from a plan
// or milestone down to every dependent milestone and initiative.
package cascade

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
)

// Step is one planned transition.
type Step struct {
	EntityType    models.EntityType `json:"entityType"`
	EntityID      uint64            `json:"entityId"`
	CurrentStatus models.Status     `json:"currentStatus"`
	PlannedStatus models.Status     `json:"plannedStatus"`
}

// Skipped is an entity the cascade reached but leaves untouched.
type Skipped struct {
	EntityType models.EntityType `json:"entityType"`
	EntityID   uint64            `json:"entityId"`
	Status     models.Status     `json:"status"`
	Reason     lifecycle.Reason  `json:"reason"`
}

type Summary struct {
	Plans       int `json:"plans"`
	Milestones  int `json:"milestones"`
	Initiatives int `json:"initiatives"`
	Total       int `json:"total"`
	Unaffected  int `json:"unaffected"`
}

// Plan is the full blast radius of a cascade, in traversal order.
// It carries no timestamps so identical state always yields identical output.
type Plan struct {
	RootType     models.EntityType `json:"rootType"`
	RootID       uint64            `json:"rootId"`
	TargetStatus models.Status     `json:"targetStatus"`
	Changes      []Step            `json:"changes"`
	Unaffected   []Skipped         `json:"unaffected"`
	Summary      Summary           `json:"summary"`
	Fingerprint  string            `json:"fingerprint"`
}

func newPlan(rootType models.EntityType, rootID uint64, target models.Status) *Plan {
	return &Plan{
		RootType:     rootType,
		RootID:       rootID,
		TargetStatus: target,
		Changes:      []Step{},
		Unaffected:   []Skipped{},
	}
}

func (p *Plan) addChange(entityType models.EntityType, id uint64, current models.Status) {
	p.Changes = append(p.Changes, Step{
		EntityType:    entityType,
		EntityID:      id,
		CurrentStatus: current,
		PlannedStatus: p.TargetStatus,
	})
	switch entityType {
	case models.EntityPlan:
		p.Summary.Plans++
	case models.EntityMilestone:
		p.Summary.Milestones++
	case models.EntityInitiative:
		p.Summary.Initiatives++
	}
	p.Summary.Total++
}

func (p *Plan) addUnaffected(entityType models.EntityType, id uint64, status models.Status, reason lifecycle.Reason) {
	p.Unaffected = append(p.Unaffected, Skipped{
		EntityType: entityType,
		EntityID:   id,
		Status:     status,
		Reason:     reason,
	})
	p.Summary.Unaffected++
}

// seal computes the fingerprint over everything the plan was derived from.
func (p *Plan) seal() {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:%s\n", p.RootType, p.RootID, p.TargetStatus)
	for _, s := range p.Changes {
		fmt.Fprintf(h, "C:%s:%d:%s\n", s.EntityType, s.EntityID, s.CurrentStatus)
	}
	for _, s := range p.Unaffected {
		fmt.Fprintf(h, "U:%s:%d:%s\n", s.EntityType, s.EntityID, s.Status)
	}
	p.Fingerprint = hex.EncodeToString(h.Sum(nil))
}

// Empty reports whether applying the plan would change nothing.
func (p *Plan) Empty() bool {
	return len(p.Changes) == 0
}
