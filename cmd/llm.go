package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/store"
	"github.com/abhisek/quizgen/internal/ui/theme"
)

const timeLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM calls",
	Long: `Every generate run records its LLM calls under one request ID: the
question-gen call and, when the model's JSON could not be parsed, a
json-repair call. These commands read that log back.`,
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generate runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		calls, _ := cmd.Flags().GetBool("calls")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStoreFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if calls {
			events, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{Limit: limit})
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			printCalls(out, events, purpose)
			return nil
		}

		runs, err := s.EventRepo().QueryGenerationRuns(ctx, questiongen.PurposeRepair, limit)
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}
		printRuns(out, runs)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <event-id | request-id>",
	Short: "Show the full request and response of a call, or of every call in a run",
	Long: `A numeric argument names a single call by its event ID. Anything else,
or a number that matches no event, is taken as a request ID prefix and shows
every call of that generate run in order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.EventRepo()
		out := cmd.OutOrStdout()

		if id, convErr := strconv.Atoi(args[0]); convErr == nil {
			e, err := repo.GetLLMEvent(ctx, id)
			if err == nil {
				printEvent(out, *e)
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("get event: %w", err)
			}
		}

		events, err := repo.LLMEventsForRequest(ctx, args[0])
		if err != nil {
			return fmt.Errorf("no event or run matches %q: %w", args[0], err)
		}
		fmt.Fprintf(out, "Run %s: %d call(s)\n\n", events[0].RequestID, len(events))
		for _, e := range events {
			printEvent(out, e)
			fmt.Fprintln(out)
		}
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show repair rate, token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.EventRepo()
		out := cmd.OutOrStdout()

		usage, err := repo.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(usage) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		runStats, err := repo.LLMRunStatsByPurpose(ctx, questiongen.PurposeRepair)
		if err != nil {
			return fmt.Errorf("query run stats: %w", err)
		}
		modelUsage, err := repo.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		printRunStats(out, runStats)
		printUsage(out, usage)
		printCost(out, modelUsage)
		return nil
	},
}

// openStoreFromFlags loads config and opens the store named by --db or the
// config file.
func openStoreFromFlags(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cmd, cfg)
}

// runOutcome labels a run by how its JSON was obtained.
func runOutcome(r store.GenerationRun) string {
	switch {
	case !r.Succeeded && r.Repaired():
		return "repair failed"
	case !r.Succeeded:
		return "failed"
	case r.Repaired():
		return "repaired"
	default:
		return "ok"
	}
}

func printRuns(w io.Writer, runs []store.GenerationRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No generate runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-8s  %-19s  %-24s  %-13s  %7s  %7s  %7s  %9s\n",
		"Run", "Started", "Model", "Outcome", "In", "Out", "Ms", "Cost")
	fmt.Fprintln(w, strings.Repeat("─", 106))

	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-19s  %-24s  %-13s  %7d  %7d  %7d  %9s\n",
			truncate(r.RequestID, 8),
			r.StartedAt.Local().Format(timeLayout),
			truncate(r.Model, 24),
			runOutcome(r),
			r.InputTokens,
			r.OutputTokens,
			r.LatencyMs,
			estimateCost(r.Model, r.InputTokens, r.OutputTokens),
		)
	}
}

func printCalls(w io.Writer, events []store.LLMRequestEventRecord, purpose string) {
	var shown int
	for _, e := range events {
		if purpose != "" && e.Purpose != purpose {
			continue
		}
		if shown == 0 {
			fmt.Fprintf(w, "%-5s  %-8s  %-12s  %-24s  %6s  %6s  %6s  %s\n",
				"ID", "Run", "Purpose", "Model", "In", "Out", "Ms", "OK")
			fmt.Fprintln(w, strings.Repeat("─", 86))
		}
		shown++

		ok := "✓"
		if !e.Success {
			ok = "✗"
		}
		fmt.Fprintf(w, "%-5d  %-8s  %-12s  %-24s  %6d  %6d  %6d  %s\n",
			e.ID, truncate(e.RequestID, 8), e.Purpose, truncate(e.Model, 24),
			e.InputTokens, e.OutputTokens, e.LatencyMs, ok)
	}
	if shown == 0 {
		fmt.Fprintln(w, "No LLM calls found.")
	}
}

func printEvent(w io.Writer, e store.LLMRequestEventRecord) {
	fmt.Fprintln(w, theme.Subtitle.Render(fmt.Sprintf("Call #%d  %s", e.ID, e.Purpose)))
	fmt.Fprintf(w, "Time:     %s\n", e.Timestamp.Local().Format(timeLayout))
	fmt.Fprintf(w, "Run:      %s\n", e.RequestID)
	fmt.Fprintf(w, "Model:    %s (%s)\n", e.Model, e.Provider)
	fmt.Fprintf(w, "Tokens:   %d in / %d out, %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
	if !e.Success {
		fmt.Fprintln(w, theme.Failure.Render("Error:    "+e.ErrorMessage))
	}

	for _, part := range []struct{ label, body string }{
		{"REQUEST", e.RequestBody},
		{"RESPONSE", e.ResponseBody},
	} {
		fmt.Fprintln(w, strings.Repeat("─", 60))
		fmt.Fprintln(w, part.label)
		if part.body == "" {
			fmt.Fprintln(w, "(not captured)")
		} else {
			fmt.Fprintln(w, part.body)
		}
	}
}

func printRunStats(w io.Writer, stats []store.LLMRunStats) {
	fmt.Fprintln(w, "Generate runs")
	fmt.Fprintln(w, strings.Repeat("─", 64))
	if len(stats) == 0 {
		fmt.Fprintln(w, "No runs with a request ID.")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "%-16s  %6s  %9s  %12s  %7s\n", "Purpose", "Runs", "Repaired", "Repair rate", "Failed")
	for _, st := range stats {
		fmt.Fprintf(w, "%-16s  %6d  %9d  %11.1f%%  %7d\n",
			st.Purpose, st.Runs, st.RepairedRuns, 100*st.RepairRate(), st.FailedRuns)
	}
	fmt.Fprintln(w)
}

func printUsage(w io.Writer, usage []store.LLMUsageStats) {
	fmt.Fprintln(w, "Calls by purpose")
	fmt.Fprintln(w, strings.Repeat("─", 64))
	fmt.Fprintf(w, "%-16s  %6s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Avg Ms")

	var calls, in, outTokens int
	for _, u := range usage {
		fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %8.0f\n",
			u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		outTokens += u.OutputTokens
	}
	fmt.Fprintf(w, "%-16s  %6d  %10d  %10d\n\n", "TOTAL", calls, in, outTokens)
}

func printCost(w io.Writer, usage []store.LLMModelUsage) {
	if len(usage) == 0 {
		return
	}
	fmt.Fprintln(w, "Estimated cost (USD)")
	fmt.Fprintln(w, strings.Repeat("─", 64))

	var total float64
	var unpriced []string
	for _, mu := range usage {
		cost := llm.LookupCost(mu.Model)
		if cost == nil {
			unpriced = append(unpriced, mu.Model)
			fmt.Fprintf(w, "%-32s  %6d calls  %9s\n", truncate(mu.Model, 32), mu.Calls, "?")
			continue
		}
		c := cost.Cost(mu.InputTokens, mu.OutputTokens)
		total += c
		fmt.Fprintf(w, "%-32s  %6d calls  %9s\n", truncate(mu.Model, 32), mu.Calls, formatCost(c))
	}

	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(w, "%-32s  %12s  %9s\n", label, "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nPricing unavailable for: %s\n", strings.Join(unpriced, ", "))
	}
}

// estimateCost prices one run, or "?" for a model without pricing.
func estimateCost(model string, in, out int) string {
	cost := llm.LookupCost(model)
	if cost == nil {
		return "?"
	}
	return formatCost(cost.Cost(in, out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of runs (or calls with --calls) to show")
	llmListCmd.Flags().Bool("calls", false, "List individual calls instead of runs")
	llmListCmd.Flags().StringP("purpose", "p", "", "With --calls, filter by purpose (question-gen or json-repair)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
