package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Report file names written under the output directory.
const (
	SummaryFile  = "summary.txt"
	CSVFile      = "top_scorers.csv"
	JSONFile     = "top_scorers.json"
	FailuresFile = "failures.csv"
)

// Reporter writes batch prediction reports.
type Reporter struct {
	results    *Results
	outputPath string
	limit      int
}

// NewReporter creates a reporter that lists the top limit players.
func NewReporter(results *Results, outputPath string, limit int) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
		limit:      limit,
	}
}

// GenerateReport generates all report formats
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateTopScorersCSV(); err != nil {
		return err
	}
	if err := r.generateJSONReport(); err != nil {
		return err
	}
	return r.generateFailureLog()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	fmt.Fprintf(w, "TOP SCORERS PREDICTION\n")
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", r.results.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %s\n", r.results.EndTime.Sub(r.results.StartTime).Round(time.Millisecond))
	fmt.Fprintf(w, "Model Version: %s\n", r.results.ModelVersion)
	fmt.Fprintf(w, "Players: %d\n", r.results.Players)
	fmt.Fprintf(w, "Predicted: %d\n", len(r.results.Predictions))
	fmt.Fprintf(w, "Failed: %d\n\n", len(r.results.Failures))

	top := r.results.Top(r.limit)
	if len(top) == 0 {
		return
	}
	fmt.Fprintf(w, "TOP %d\n", len(top))
	fmt.Fprintf(w, "------\n")
	for i, p := range top {
		fmt.Fprintf(w, "%3d. %-30s %-25s %3d\n", i+1, p.Player, p.Team, p.PredictedGoals)
	}
}

func (r *Reporter) generateTopScorersCSV() error {
	csvPath := filepath.Join(r.outputPath, CSVFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create top scorers file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"Rank", "Player", "Team", "Basis Season", "Predicted Goals", "Raw Prediction"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, p := range r.results.Top(r.limit) {
		record := []string{
			strconv.Itoa(i + 1),
			p.Player,
			p.Team,
			p.BasisSeason,
			strconv.Itoa(p.PredictedGoals),
			fmt.Sprintf("%.3f", p.RawPrediction),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write top scorers: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Top scorers table generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, JSONFile)

	report := map[string]interface{}{
		"summary": map[string]interface{}{
			"start_time":    r.results.StartTime,
			"end_time":      r.results.EndTime,
			"model_version": r.results.ModelVersion,
			"players":       r.results.Players,
			"predicted":     len(r.results.Predictions),
			"failed":        len(r.results.Failures),
		},
		"top_scorers":  r.results.Top(r.limit),
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) generateFailureLog() error {
	if len(r.results.Failures) == 0 {
		return nil
	}

	failuresPath := filepath.Join(r.outputPath, FailuresFile)
	file, err := os.Create(failuresPath)
	if err != nil {
		return fmt.Errorf("failed to create failure log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Player", "Reason"}); err != nil {
		return err
	}
	for _, f := range r.results.Failures {
		if err := writer.Write([]string{f.Player, f.Reason}); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write failure log: %w", err)
	}

	log.Warn().Str("file", failuresPath).Int("failures", len(r.results.Failures)).Msg("Failure log generated")
	return nil
}

// PrintSummary prints a summary to console
func (r *Reporter) PrintSummary() {
	r.writeSummary(os.Stdout)
}
