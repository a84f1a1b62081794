package api

import (
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/tsawler/prose/v3"
)

// analyzeText summarizes the visible stream for the stats endpoint: word
// count plus named entities the model has produced so far, bucketed by
// label. Entity extraction is best effort.
func analyzeText(text string) map[string]any {
	out := map[string]any{
		"words": len(strings.Fields(text)),
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return out
	}
	entities := make(map[string]int)
	for _, ent := range doc.Entities() {
		entities[ent.Label]++
	}
	out["entities"] = entities
	return out
}

// processStats reports memory and CPU for this process.
func processStats() map[string]any {
	out := map[string]any{}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return out
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		out["rss_bytes"] = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		out["cpu_percent"] = cpu
	}
	return out
}
