// Command snackboard-report fetches the survey once and prints the full
// dashboard as text tables: overview, snack leaderboard, taste matches,
// and the distance matrix.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/snackclub/snackboard/internal/config"
	"github.com/snackclub/snackboard/internal/ratings"
	"github.com/snackclub/snackboard/internal/report"
	"github.com/snackclub/snackboard/internal/sheets"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	client := sheets.NewClient(
		cfg.Sheets.RatingsURL,
		cfg.Sheets.NamesURL,
		cfg.Sheets.Timeout,
		cfg.Sheets.MaxRetries,
		cfg.Sheets.RetryDelayBase,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rows, err := client.FetchRatings(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch ratings sheet: %v", err)
	}

	names, err := client.FetchSnackNames(ctx, cfg.Columns.NameID, cfg.Columns.NameLabel)
	if err != nil {
		fmt.Printf("Warning: could not load snack names sheet, showing IDs only: %v\n", err)
		names = nil
	}

	schema := ratings.Schema{
		PersonColumn: cfg.Columns.Person,
		SnackColumn:  cfg.Columns.Snack,
	}
	for _, cat := range cfg.Columns.Categories {
		schema.Categories = append(schema.Categories, ratings.Category{Name: cat.Name, Column: cat.Column})
	}

	cleaned := ratings.Clean(rows, schema)
	rep, err := report.Build(cleaned, names, time.Now())
	if err != nil {
		log.Fatalf("Failed to build report: %v", err)
	}

	printReport(rep)
}

func printReport(rep *report.Report) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SNACK RATING DASHBOARD")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("\nLoaded %d ratings from %d people across %d snacks (%d rows dropped)\n",
		rep.Overview.RatingCount, rep.Overview.PeopleCount, rep.Overview.SnackCount, rep.Overview.DroppedRows)

	printSnackTable(rep)
	printMatches(rep)
	printMatrix(rep)
}

func printSnackTable(rep *report.Report) {
	fmt.Println("\nSNACK AVERAGES")
	fmt.Println(strings.Repeat("-", 80))

	labelWidth := len("Snack")
	for _, snack := range rep.Snacks {
		if len(snack.Label) > labelWidth {
			labelWidth = len(snack.Label)
		}
	}

	fmt.Printf("%-*s", labelWidth+2, "Snack")
	for _, cat := range rep.Categories {
		fmt.Printf("%14s", cat)
	}
	fmt.Printf("%14s%10s\n", "Combined", "Ratings")

	for _, snack := range rep.Snacks {
		fmt.Printf("%-*s", labelWidth+2, snack.Label)
		for _, cat := range rep.Categories {
			fmt.Printf("%14.2f", snack.CategoryAverages[cat])
		}
		fmt.Printf("%14.2f%10d\n", snack.CombinedAverage, snack.RatingCount)
	}
}

func printMatches(rep *report.Report) {
	fmt.Println("\nTASTE MATCHES")
	fmt.Println(strings.Repeat("-", 80))

	if !rep.SimilarityAvailable {
		fmt.Println("Need at least 2 people to calculate taste similarity.")
		return
	}

	fmt.Printf("%-20s%-20s%12s%-20s%12s\n", "Person", "Most Similar", "Score", "  Least Similar", "Score")
	for _, m := range rep.Matches {
		fmt.Printf("%-20s%-20s%12.2f%-20s%12.2f\n",
			m.Person, m.MostSimilar, m.SimilarityScore, "  "+m.LeastSimilar, m.DissimilarityScore)
	}
}

func printMatrix(rep *report.Report) {
	if !rep.SimilarityAvailable {
		return
	}

	fmt.Println("\nDISTANCE MATRIX (lower = more similar taste)")
	fmt.Println(strings.Repeat("-", 80))

	fmt.Printf("%-16s", "")
	for _, person := range rep.Matrix.People {
		fmt.Printf("%12s", truncate(person, 11))
	}
	fmt.Println()

	for i, person := range rep.Matrix.People {
		fmt.Printf("%-16s", truncate(person, 15))
		for j := range rep.Matrix.People {
			cell := rep.Matrix.Cells[i][j]
			if cell == nil {
				fmt.Printf("%12s", "-")
				continue
			}
			fmt.Printf("%12.2f", *cell)
		}
		fmt.Println()
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
