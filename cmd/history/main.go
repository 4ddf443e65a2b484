package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"farmwatch/internal/model"
	"farmwatch/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", filepath.Join("data", "history.db"), "Database path")
	limit := flag.Int("n", 20, "Number of recent summaries to print")
	dangerOnly := flag.Bool("danger", false, "Only print summaries with a dangerous animal")
	since := flag.Duration("since", 0, "Only print summaries newer than this, e.g. 24h")
	pruneDays := flag.Int("prune-days", 0, "Delete summaries older than this many days")
	asJSON := flag.Bool("json", false, "Print records as JSON lines")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Database not found: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewSummaryRepository(db)

	if *pruneDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -*pruneDays).UnixMilli()
		removed, err := repo.DeleteBefore(cutoff)
		if err != nil {
			log.Fatalf("Failed to prune history: %v", err)
		}
		fmt.Printf("🧹 Removed %d summaries older than %d days\n", removed, *pruneDays)
	}

	stats, err := repo.GetStats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	printStats(stats)

	filter := &model.HistoryFilter{Limit: *limit, DangerOnly: *dangerOnly}
	if *since > 0 {
		filter.SinceMs = time.Now().Add(-*since).UnixMilli()
	}
	records, err := repo.GetRecent(filter)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	fmt.Printf("\n🕒 Recent summaries (%d):\n", len(records))
	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if *asJSON {
			enc.Encode(rec)
			continue
		}
		fmt.Printf("   %s  %s\n", time.UnixMilli(rec.TimestampMs).Format("2006-01-02 15:04:05"), formatRecord(rec))
	}
}

func printStats(stats *model.HistoryStats) {
	fmt.Printf("📊 History Statistics:\n")
	fmt.Printf("   Total summaries: %d\n", stats.TotalSummaries)
	if stats.TotalSummaries == 0 {
		return
	}
	fmt.Printf("   From %s to %s\n",
		time.UnixMilli(stats.FirstMs).Format(time.DateTime),
		time.UnixMilli(stats.LastMs).Format(time.DateTime))
	fmt.Printf("   Human sightings: %d\n", stats.HumanSightings)
	fmt.Printf("   Danger sightings: %d\n", stats.DangerSightings)
	for _, label := range sortedKeys(stats.DangerByLabel) {
		fmt.Printf("      - %s: %d\n", label, stats.DangerByLabel[label])
	}
	fmt.Printf("   Animals per frame (max / avg):\n")
	for _, kind := range sortedKeys(stats.MaxCounts) {
		fmt.Printf("      - %s: %d / %.2f\n", kind, stats.MaxCounts[kind], stats.AvgCounts[kind])
	}
}

func formatRecord(rec model.SummaryRecord) string {
	s := ""
	for _, kind := range sortedKeys(rec.Counts) {
		s += fmt.Sprintf("%s=%d ", kind, rec.Counts[kind])
	}
	danger := "none"
	if rec.DangerPresent {
		danger = rec.DangerLabel
	}
	return fmt.Sprintf("%swarning=%v danger=%s", s, rec.HumanPresent, danger)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
