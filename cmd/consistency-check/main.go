package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"bitbucket.org/mmagritech/farm_backend/workflow"
)

func main() {
	farmID := flag.String("farm-id", "", "Required: farm id")
	fix := flag.Bool("fix", false, "Attempt automatic fixes for the findings")
	confirm := flag.String("confirm", "", "Type FIX to proceed when fix=true")
	asJSON := flag.Bool("json", false, "Print the full report as JSON")
	flag.Parse()

	if strings.TrimSpace(*farmID) == "" {
		fmt.Fprintln(os.Stderr, "--farm-id is required")
		os.Exit(1)
	}
	if *fix && strings.TrimSpace(*confirm) != "FIX" {
		fmt.Fprintln(os.Stderr, "set --confirm=FIX to proceed with fixes")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	ctx := utils.SetFarmIdInContext(context.Background(), *farmID)
	ctx = utils.SetUserNameInContext(ctx, "System")

	pipeline := workflow.NewPipeline(db, logger)
	report, err := pipeline.RunFullConsistencyCheck(ctx, *farmID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "consistency check failed: %v\n", err)
		os.Exit(1)
	}
	score := workflow.QualityScore(report)

	if *asJSON {
		out, _ := json.MarshalIndent(map[string]interface{}{
			"report": report,
			"score":  score,
		}, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Printf("farm=%s status=%s checks=%d score=%d\n",
			*farmID, report.OverallStatus, len(report.Results), score.Score)
		for _, result := range report.Results {
			fmt.Printf("  %-30s %-8s findings=%d %s\n",
				result.CheckType, result.Status, len(result.FindingIds), result.Message)
		}
	}

	if !*fix {
		return
	}
	var findingIds []int
	for _, result := range report.Results {
		findingIds = append(findingIds, result.FindingIds...)
	}
	if len(findingIds) == 0 {
		fmt.Println("nothing to fix")
		return
	}
	outcomes, err := pipeline.FixInconsistencies(ctx, *farmID, findingIds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fix failed: %v\n", err)
		os.Exit(1)
	}
	for _, outcome := range outcomes {
		fmt.Printf("  finding=%d fixed=%t %s\n", outcome.FindingId, outcome.Fixed, outcome.Message)
	}
}
