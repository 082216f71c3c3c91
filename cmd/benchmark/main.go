// Benchmark tool for measuring radar scoring throughput.
//
// Usage:
//   go run cmd/benchmark/main.go -count 100000 -workers 8
//
// This tool:
//   1. Generates a synthetic company universe with uneven field coverage
//   2. Compiles a representative thesis (filters, rules, tiers)
//   3. Runs the batch scorer fully in memory
//   4. Reports throughput, tier distribution, and completeness statistics
//   5. Re-runs the batch and verifies results are identical
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/Munns729/open-radar-sub001/internal/batch"
	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/engine"
)

func main() {
	count := flag.Int("count", 50000, "Number of synthetic companies to score")
	chunkSize := flag.Int("chunk", 500, "Batch chunk size")
	workers := flag.Int("workers", 8, "Concurrent workers per chunk")
	seed := flag.Int64("seed", 42, "Random seed for universe generation")
	policy := flag.String("policy", "last", "Category policy: last, sum or max")
	verify := flag.Bool("verify", true, "Re-run the batch and compare results")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║             RADAR BENCHMARK - Batch Thesis Scoring            ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCompanies:   %d\n", *count)
	fmt.Printf("Chunk Size:  %d\n", *chunkSize)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Seed:        %d\n", *seed)
	fmt.Printf("Policy:      %s\n", *policy)
	fmt.Println()

	thesis := benchmarkThesis()

	eng, err := engine.New(thesis, engine.WithCategoryPolicy(domain.CategoryPolicy(*policy)))
	if err != nil {
		fmt.Printf("ERROR: failed to compile thesis: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Thesis compiled")

	fmt.Printf("\nGenerating %d synthetic companies...\n", *count)
	companies := generateUniverse(*count, *seed)
	fmt.Printf("✓ Universe ready\n")

	scorer := batch.NewScorer(eng, nil, nil, batch.Config{
		ChunkSize:  *chunkSize,
		MaxWorkers: *workers,
	})

	fmt.Printf("\nRunning batch...\n")
	start := time.Now()
	outcome, err := scorer.Run(context.Background(), companies)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("ERROR: batch failed: %v\n", err)
		os.Exit(1)
	}

	printResults(outcome, *count, duration)

	if *verify {
		fmt.Printf("\nVerifying determinism (second run)...\n")
		second, err := scorer.Run(context.Background(), companies)
		if err != nil {
			fmt.Printf("ERROR: second run failed: %v\n", err)
			os.Exit(1)
		}
		if diff := compareOutcomes(outcome, second); diff != "" {
			fmt.Printf("❌ Runs diverged: %s\n", diff)
			os.Exit(1)
		}
		fmt.Println("✓ Identical results across runs")
	}
}

// benchmarkThesis builds a thesis exercising every condition kind the engine
// supports, so the benchmark reflects realistic evaluation cost.
func benchmarkThesis() *domain.Thesis {
	num := func(f float64) *float64 { return &f }

	return &domain.Thesis{
		ID:       "bench-thesis",
		TenantID: "benchmark",
		Name:     "Benchmark Screening Thesis",
		Version:  1,
		Filters: []domain.Filter{
			{Field: "sector", Op: domain.OpIn, Values: []any{"industrial", "software", "healthcare"}, OnMissing: domain.MissingInclude},
			{Field: "revenue_m", Op: domain.OpGt, Values: []any{1.0}, OnMissing: domain.MissingInclude},
		},
		Rules: []domain.ScoringRule{
			{
				ID: "r-revenue", Name: "Revenue sweet spot", Points: 25, MoatType: "scale",
				Condition:             &domain.Condition{Kind: domain.CondFieldBetween, Field: "revenue_m", Min: num(10), Max: num(100)},
				JustificationTemplate: "Revenue of {revenue_m}M sits in the target band",
				RequiresFields:        []string{"revenue_m"},
			},
			{
				ID: "r-margin", Name: "Healthy margins", Points: 20, MoatType: "economics",
				Condition:      &domain.Condition{Kind: domain.CondFieldGreaterThan, Field: "ebitda_margin", Value: 0.15},
				RequiresFields: []string{"ebitda_margin"},
			},
			{
				ID: "r-cert", Name: "Regulatory certification", Points: 15, MoatType: "regulatory",
				Condition: &domain.Condition{Kind: domain.CondHasAnyCertificate, Values: []any{"ISO9001", "AS9100", "FDA"}},
			},
			{
				ID: "r-niche", Name: "Niche language", Points: 10, MoatType: "positioning",
				Condition: &domain.Condition{Kind: domain.CondFieldContains, Field: "description", Value: "mission-critical"},
			},
			{
				ID: "r-semantic", Name: "Moat narrative", Points: 15, MoatType: "positioning",
				Condition: &domain.Condition{Kind: domain.CondSemanticScoreAtLeast, Attribute: "switching_costs", Min: num(0.7)},
			},
			{
				ID: "r-combo", Name: "Small but profitable", Points: 15, MoatType: "economics",
				Condition: &domain.Condition{
					Kind: domain.CondAnd,
					Children: []*domain.Condition{
						{Kind: domain.CondFieldLessThan, Field: "employees", Value: 200.0},
						{Kind: domain.CondFieldGreaterThan, Field: "ebitda_margin", Value: 0.2},
					},
				},
			},
		},
		TierThresholds: []domain.TierThreshold{
			{MinScore: 70, Label: "1A"},
			{MinScore: 50, Label: "1B"},
			{MinScore: 30, Label: "2"},
			{MinScore: 0, Label: "3"},
		},
		CompletenessThreshold: 0.6,
	}
}

// generateUniverse creates companies with deliberately uneven field coverage
// so skip accounting and provisional flagging get exercised.
func generateUniverse(count int, seed int64) []*domain.Company {
	rng := rand.New(rand.NewSource(seed))
	sectors := []string{"industrial", "software", "healthcare", "retail", "energy"}
	certs := [][]string{nil, {"ISO9001"}, {"AS9100", "ISO9001"}, {"FDA"}}

	companies := make([]*domain.Company, count)
	for i := 0; i < count; i++ {
		fields := map[string]any{
			"sector": sectors[rng.Intn(len(sectors))],
		}
		if rng.Float64() < 0.8 {
			fields["revenue_m"] = rng.Float64() * 250
		}
		if rng.Float64() < 0.6 {
			fields["ebitda_margin"] = rng.Float64() * 0.4
		}
		if rng.Float64() < 0.7 {
			fields["employees"] = float64(rng.Intn(2000))
		}
		if rng.Float64() < 0.5 {
			fields["description"] = "provider of mission-critical components"
		}
		if c := certs[rng.Intn(len(certs))]; c != nil {
			fields[domain.FieldCertifications] = c
		}
		if rng.Float64() < 0.4 {
			fields[domain.FieldSemanticScores] = map[string]any{
				"switching_costs": rng.Float64(),
			}
		}

		companies[i] = &domain.Company{
			ID:       fmt.Sprintf("bench-co-%06d", i),
			TenantID: "benchmark",
			Name:     fmt.Sprintf("Benchmark Co %d", i),
			Fields:   fields,
		}
	}
	return companies
}

func printResults(outcome *domain.BatchOutcome, total int, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 BATCH STATISTICS\n")
	fmt.Printf("   Universe:     %d\n", total)
	fmt.Printf("   Scored:       %d\n", len(outcome.Results))
	fmt.Printf("   Excluded:     %d\n", outcome.Excluded)
	fmt.Printf("   Errors:       %d\n", len(outcome.Errors))

	tiers := make(map[string]int)
	provisional := 0
	var completenessSum float64
	for _, r := range outcome.Results {
		tiers[r.Tier]++
		if r.IsProvisional {
			provisional++
		}
		completenessSum += r.Completeness
	}

	fmt.Printf("\n🏷️  TIER DISTRIBUTION\n")
	for _, tier := range []string{"1A", "1B", "2", "3", domain.TierUnclassified} {
		if n, ok := tiers[tier]; ok {
			fmt.Printf("   %-12s %8d (%.2f%%)\n", tier, n, 100*float64(n)/float64(len(outcome.Results)))
		}
	}

	if len(outcome.Results) > 0 {
		fmt.Printf("\n🔍 DATA QUALITY\n")
		fmt.Printf("   Provisional:      %d (%.2f%%)\n", provisional, 100*float64(provisional)/float64(len(outcome.Results)))
		fmt.Printf("   Avg Completeness: %.4f\n", completenessSum/float64(len(outcome.Results)))
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if duration.Seconds() > 0 {
		fmt.Printf("   Throughput:       %.2f companies/sec\n", float64(total)/duration.Seconds())
	}
	fmt.Println()
}

// compareOutcomes reports the first semantic difference between two runs, or
// empty when they match.
func compareOutcomes(a, b *domain.BatchOutcome) string {
	if len(a.Results) != len(b.Results) {
		return fmt.Sprintf("result counts differ: %d vs %d", len(a.Results), len(b.Results))
	}
	if a.Excluded != b.Excluded {
		return fmt.Sprintf("excluded counts differ: %d vs %d", a.Excluded, b.Excluded)
	}
	for i := range a.Results {
		x, y := a.Results[i], b.Results[i]
		if x.CompanyID != y.CompanyID || x.Score != y.Score || x.Tier != y.Tier ||
			x.Completeness != y.Completeness || x.IsProvisional != y.IsProvisional {
			return fmt.Sprintf("company %s scored differently across runs", x.CompanyID)
		}
	}
	return ""
}
