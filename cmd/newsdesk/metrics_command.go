package main

import (
	"context"
	"fmt"

	newsdesk "github.com/bushradio/newsdesk"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/spf13/cobra"
)

func newMetricsCommand(opts *moduleOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Seed a sample pipeline and print the monitor's reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			staff := demoStaff()
			module, err := opts.buildModule(staff)
			if err != nil {
				return err
			}
			defer module.Close()

			if err := seedPipeline(cmd.Context(), module, staff); err != nil {
				return err
			}
			return printReports(cmd, module)
		},
	}
}

// seedPipeline leaves stories parked at different stages so the reports have
// something to aggregate: one fresh draft, one waiting on review, one fully
// released group.
func seedPipeline(ctx context.Context, module *newsdesk.Module, staff newsroomStaff) error {
	// The released group first, so the open items seeded after it stay in
	// everyone's inboxes for the workload report.
	if err := runDemo(discardCommand(), module, staff); err != nil {
		return err
	}

	if _, err := module.Stories().Create(ctx, stories.CreateStoryRequest{
		Title:      "Ward Councillor Q&A",
		Language:   domain.LanguageEnglish,
		AuthorID:   staff.journalist,
		AuthorRole: domain.RoleJournalist,
	}); err != nil {
		return fmt.Errorf("seed draft: %w", err)
	}

	if _, err := module.Stories().Create(ctx, stories.CreateStoryRequest{
		Title:      "Matric Results Preview",
		Language:   domain.LanguageEnglish,
		AuthorID:   staff.intern,
		AuthorRole: domain.RoleIntern,
	}); err != nil {
		return fmt.Errorf("seed review item: %w", err)
	}
	if err := completeNext(ctx, module.Tasks(), staff.intern, domain.RoleIntern, domain.OutcomeSubmit); err != nil {
		return fmt.Errorf("advance review item: %w", err)
	}
	return nil
}

// discardCommand returns a cobra command whose output is swallowed, so the
// seeding run does not interleave with the report output.
func discardCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(discardWriter{})
	return cmd
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func printReports(cmd *cobra.Command, module *newsdesk.Module) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	report, err := module.Metrics().PipelineMetrics(ctx)
	if err != nil {
		return fmt.Errorf("pipeline metrics: %w", err)
	}
	fmt.Fprintln(out, "pipeline:")
	for _, stage := range report.Stages {
		fmt.Fprintf(out, "  %-26s count=%d overdue=%d oldest=%s mean=%s\n",
			stage.Stage, stage.Count, stage.Overdue, stage.OldestDwell, stage.MeanDwell)
	}
	if report.Malformed > 0 {
		fmt.Fprintf(out, "  malformed records excluded: %d\n", report.Malformed)
	}

	for _, tier := range []domain.Role{domain.RoleJournalist, domain.RoleSubEditor} {
		workload, err := module.Metrics().ReviewerWorkload(ctx, tier)
		if err != nil {
			return fmt.Errorf("reviewer workload: %w", err)
		}
		fmt.Fprintf(out, "%s workload:\n", tier)
		if len(workload) == 0 {
			fmt.Fprintln(out, "  (idle)")
		}
		for _, entry := range workload {
			fmt.Fprintf(out, "  %s open=%d oldest=%s\n", entry.UserID, entry.Count, entry.OldestAssigned)
		}
	}

	health, err := module.Metrics().WorkflowHealth(ctx)
	if err != nil {
		return fmt.Errorf("workflow health: %w", err)
	}
	fmt.Fprintf(out, "health: in-pipeline=%d published-today=%d week=%d month=%d bottleneck=%s\n",
		health.PipelineTotal, health.PublishedToday, health.PublishedThisWeek, health.ThroughputMonth, health.Bottleneck)
	return nil
}
