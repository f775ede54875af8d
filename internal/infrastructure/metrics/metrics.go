package metrics

import (
	"expvar"
)

// Registry metrics.
var (
	flowsAdmitted = new(expvar.Int)
	flowsRejected = new(expvar.Int)
)

// Mutation engine metrics.
var (
	mutationsApplied  = new(expvar.Int)
	mutationsRejected = new(expvar.Int)
)

// Layout / trace store metrics.
var (
	layoutsComputed    = new(expvar.Int)
	executionsArchived = new(expvar.Int)
	persistRetries     = new(expvar.Int)
	persistDrops       = new(expvar.Int)
)

func init() {
	expvar.Publish("flowdeck_flows_admitted_total", flowsAdmitted)
	expvar.Publish("flowdeck_flows_rejected_total", flowsRejected)
	expvar.Publish("flowdeck_mutations_applied_total", mutationsApplied)
	expvar.Publish("flowdeck_mutations_rejected_total", mutationsRejected)
	expvar.Publish("flowdeck_layouts_computed_total", layoutsComputed)
	expvar.Publish("flowdeck_executions_archived_total", executionsArchived)
	expvar.Publish("flowdeck_persist_retries_total", persistRetries)
	expvar.Publish("flowdeck_persist_drops_total", persistDrops)
}

// Registry helpers
func IncFlowsAdmitted() { flowsAdmitted.Add(1) }
func IncFlowsRejected() { flowsRejected.Add(1) }

// Mutation helpers
func IncMutationsApplied()  { mutationsApplied.Add(1) }
func IncMutationsRejected() { mutationsRejected.Add(1) }

// Layout / store helpers
func IncLayoutsComputed()    { layoutsComputed.Add(1) }
func IncExecutionsArchived() { executionsArchived.Add(1) }
func IncPersistRetries()     { persistRetries.Add(1) }
func IncPersistDrops()       { persistDrops.Add(1) }
