// Package main provides a minimal HTTP server exposing debug endpoints.
package main

import (
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register /debug/pprof
	"os"
	"sort"
	"strings"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "FlowDeck server is running. See /healthz, /debug/vars, /debug/pprof/")
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "ok")
	})

	// Prometheus-compatible metrics endpoint (no external deps)
	mux.HandleFunc("/metrics", promMetricsHandler)

	// Workload endpoints to generate metrics load
	mux.HandleFunc("/workload/start", wm.start)
	mux.HandleFunc("/workload/stop", wm.stop)

	addr := ":8080"
	if v := os.Getenv("FLOWDECK_ADDR"); v != "" {
		addr = v
	}
	log.Printf("Starting FlowDeck server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// promMetricsHandler renders expvar-published metrics in Prometheus text
// exposition format. It supports the known FlowDeck counters and falls back
// to a minimal conversion for other numeric expvar vars.
func promMetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	type meta struct {
		typ, help string
	}
	metas := map[string]meta{
		"flowdeck_flows_admitted_total":      {typ: "counter", help: "Flow definitions admitted by the registry"},
		"flowdeck_flows_rejected_total":      {typ: "counter", help: "Flow definitions excluded by the registry"},
		"flowdeck_mutations_applied_total":   {typ: "counter", help: "Mutations applied with a valid result"},
		"flowdeck_mutations_rejected_total":  {typ: "counter", help: "Mutations rejected or yielding an invalid result"},
		"flowdeck_layouts_computed_total":    {typ: "counter", help: "Layout computations performed"},
		"flowdeck_executions_archived_total": {typ: "counter", help: "Terminal executions archived into history"},
		"flowdeck_persist_retries_total":     {typ: "counter", help: "History persistence retries after quota rejection"},
		"flowdeck_persist_drops_total":       {typ: "counter", help: "History writes dropped after retry failure"},
	}

	// Collect variable names deterministically
	varNames := make([]string, 0, 64)
	expvar.Do(func(kv expvar.KeyValue) {
		varNames = append(varNames, kv.Key)
	})
	sort.Strings(varNames)

	for _, name := range varNames {
		v := expvar.Get(name)
		m, known := metas[name]
		if !known {
			// Minimal rendering: publish as an untyped gauge if numeric
			if iv, ok := v.(*expvar.Int); ok {
				_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", name)
				_, _ = fmt.Fprintf(w, "%s %s\n", name, iv.String())
			}
			continue
		}
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, sanitizeHelp(m.help))
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, m.typ)
		_, _ = fmt.Fprintf(w, "%s %s\n", name, v.String())
	}
}

func sanitizeHelp(s string) string {
	// Replace newlines with spaces to satisfy Prometheus text format
	return strings.ReplaceAll(s, "\n", " ")
}
