package domain

type OrderStatus string

const (
	StatusIntake            OrderStatus = "intake"
	StatusDiagnosing        OrderStatus = "diagnosing"
	StatusAwaitingApproval  OrderStatus = "awaiting_approval"
	StatusWaitingParts      OrderStatus = "waiting_parts"
	StatusReparacionExterna OrderStatus = "reparacion_externa"
	StatusInProgress        OrderStatus = "in_progress"
	StatusReadyForPickup    OrderStatus = "ready_for_pickup"
	StatusCompleted         OrderStatus = "completed"
	StatusCancelled         OrderStatus = "cancelled"
)

type statusSpec struct {
	label    string
	progress int
}

// Display labels follow the shop's Spanish-facing convention.
var statusSpecs = map[OrderStatus]statusSpec{
	StatusIntake:            {"Recepción", 10},
	StatusDiagnosing:        {"Diagnóstico", 30},
	StatusAwaitingApproval:  {"Esperando para ordenar", 40},
	StatusWaitingParts:      {"Esperando pieza", 55},
	StatusReparacionExterna: {"Reparación externa", 65},
	StatusInProgress:        {"En reparación", 75},
	StatusReadyForPickup:    {"Listo para recoger", 90},
	StatusCompleted:         {"Completado", 100},
	StatusCancelled:         {"Cancelado", 0},
}

// statusGraph holds the forward edges of the repair lifecycle.
// Cancelled is reachable from every non-terminal state and re-entering
// the current state is always legal; both are handled in CanTransition
// rather than listed per state.
var statusGraph = map[OrderStatus][]OrderStatus{
	StatusIntake:            {StatusDiagnosing},
	StatusDiagnosing:        {StatusAwaitingApproval},
	StatusAwaitingApproval:  {StatusWaitingParts, StatusReparacionExterna, StatusInProgress},
	StatusWaitingParts:      {StatusInProgress, StatusReparacionExterna},
	StatusReparacionExterna: {StatusInProgress},
	StatusInProgress:        {StatusReadyForPickup},
	StatusReadyForPickup:    {StatusCompleted},
}

func (s OrderStatus) Known() bool {
	_, ok := statusSpecs[s]
	return ok
}

func (s OrderStatus) Label() string {
	return statusSpecs[s].label
}

func (s OrderStatus) Progress() int {
	return statusSpecs[s].progress
}

func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether the lifecycle graph allows moving from
// one known status to another. Both statuses must already be known.
func CanTransition(from OrderStatus, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == from {
		// Re-logging the current stage is allowed; the history is a
		// log, not a set.
		return true
	}
	if to == StatusCancelled {
		return true
	}
	for _, next := range statusGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderStatuses lists every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		StatusIntake,
		StatusDiagnosing,
		StatusAwaitingApproval,
		StatusWaitingParts,
		StatusReparacionExterna,
		StatusInProgress,
		StatusReadyForPickup,
		StatusCompleted,
		StatusCancelled,
	}
}
