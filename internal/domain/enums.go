package domain

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

type Priority string

const (
	PriorityNormal     Priority = "normal"
	PriorityUrgent     Priority = "urgent"
	PriorityVeryUrgent Priority = "very-urgent"
	PriorityMostUrgent Priority = "most-urgent"
	PriorityExtreme    Priority = "extreme"
)

// ValidPriorities is the canonical set of accepted priority strings, in
// ascending order of urgency.
var ValidPriorities = []Priority{
	PriorityNormal, PriorityUrgent, PriorityVeryUrgent, PriorityMostUrgent, PriorityExtreme,
}

type PurchaseType string

const (
	PurchaseBuy  PurchaseType = "buy"
	PurchaseHire PurchaseType = "hire"
	PurchaseRent PurchaseType = "rent"
)

var ValidPurchaseTypes = map[PurchaseType]bool{
	PurchaseBuy: true, PurchaseHire: true, PurchaseRent: true,
}

type ProcurementMethod string

const (
	MethodEBidding  ProcurementMethod = "e-bidding"
	MethodSpecific  ProcurementMethod = "specific"
	MethodSelection ProcurementMethod = "selection"
)

var ValidProcurementMethods = map[ProcurementMethod]bool{
	MethodEBidding: true, MethodSpecific: true, MethodSelection: true,
}

type NoteKind string

const (
	NoteTimeline NoteKind = "timeline"
	NotePostit   NoteKind = "postit"
)

// Rank returns the urgency rank of p (0 for normal). Unknown values rank -1.
func (p Priority) Rank() int {
	for i, v := range ValidPriorities {
		if v == p {
			return i
		}
	}
	return -1
}

func (p Priority) Valid() bool { return p.Rank() >= 0 }

func (t PurchaseType) Valid() bool { return ValidPurchaseTypes[t] }

func (m ProcurementMethod) Valid() bool { return ValidProcurementMethods[m] }
