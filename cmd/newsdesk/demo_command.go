package main

import (
	"context"
	"fmt"

	newsdesk "github.com/bushradio/newsdesk"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/publish"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/tasks"
	"github.com/bushradio/newsdesk/internal/translations"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newDemoCommand(opts *moduleOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a story through the full editorial pipeline and print the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			staff := demoStaff()
			module, err := opts.buildModule(staff)
			if err != nil {
				return err
			}
			defer module.Close()

			return runDemo(cmd, module, staff)
		},
	}
}

func runDemo(cmd *cobra.Command, module *newsdesk.Module, staff newsroomStaff) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	story, err := module.Stories().Create(ctx, stories.CreateStoryRequest{
		Title:      "Community Clinic Extends Weekend Hours",
		Body:       "The Athlone clinic will open on Saturdays from next month.",
		Language:   domain.LanguageEnglish,
		AuthorID:   staff.intern,
		AuthorRole: domain.RoleIntern,
	})
	if err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	fmt.Fprintf(out, "created story %q (%s)\n", story.Title, story.Slug)

	if err := completeNext(ctx, module.Tasks(), staff.intern, domain.RoleIntern, domain.OutcomeSubmit); err != nil {
		return fmt.Errorf("submit draft: %w", err)
	}
	fmt.Fprintln(out, "intern submitted the draft for journalist review")

	if err := completeNext(ctx, module.Tasks(), staff.journalist, domain.RoleJournalist, domain.OutcomeApprove); err != nil {
		return fmt.Errorf("journalist review: %w", err)
	}
	fmt.Fprintln(out, "journalist approved the copy, queued for sub-editor approval")

	if err := completeNext(ctx, module.Tasks(), staff.subEditor, domain.RoleSubEditor, domain.OutcomeApprove); err != nil {
		return fmt.Errorf("sub-editor approval: %w", err)
	}
	fmt.Fprintln(out, "sub-editor approved the story")

	translators := []struct {
		language   domain.Language
		translator uuid.UUID
	}{
		{domain.LanguageXhosa, staff.xhosaTranslator},
		{domain.LanguageAfrikaans, staff.afrikaansTranslator},
	}
	for _, entry := range translators {
		if err := runTranslation(ctx, module.Translations(), story.ID, entry.language, entry.translator, staff.subEditor); err != nil {
			return fmt.Errorf("%s translation: %w", entry.language, err)
		}
		fmt.Fprintf(out, "%s translation approved\n", entry.language)
	}

	result, err := module.Publisher().PublishGroup(ctx, publish.Request{
		OriginalID: story.ID,
		ActorID:    staff.subEditor,
		ActorRole:  domain.RoleSubEditor,
	})
	if err != nil {
		return fmt.Errorf("publish group: %w", err)
	}
	fmt.Fprintf(out, "published %d items together at %s\n\n", len(result.MemberIDs), result.PublishedAt.Format("15:04:05"))

	events, err := module.Audit().List(ctx)
	if err != nil {
		return fmt.Errorf("list audit trail: %w", err)
	}
	fmt.Fprintln(out, "audit trail:")
	for _, event := range events {
		if event.FromStage != "" || event.ToStage != "" {
			fmt.Fprintf(out, "  %-22s %s -> %s\n", event.Action, event.FromStage, event.ToStage)
			continue
		}
		fmt.Fprintf(out, "  %-22s %s %s\n", event.Action, event.EntityType, event.EntityID)
	}
	return nil
}

func completeNext(ctx context.Context, svc newsdesk.TaskService, assignee uuid.UUID, role domain.Role, outcome domain.ReviewOutcome) error {
	inbox, err := svc.Inbox(ctx, assignee)
	if err != nil {
		return err
	}
	if len(inbox) == 0 {
		return fmt.Errorf("no open task for %s", assignee)
	}
	_, err = svc.Complete(ctx, tasks.CompleteRequest{
		TaskID:    inbox[0].ID,
		ActorID:   assignee,
		ActorRole: role,
		Outcome:   outcome,
	})
	return err
}

func runTranslation(ctx context.Context, svc newsdesk.TranslationService, originalID uuid.UUID, language domain.Language, translator, reviewer uuid.UUID) error {
	assignment, err := svc.Assign(ctx, translations.AssignRequest{
		OriginalID:   originalID,
		Language:     language,
		TranslatorID: translator,
		ActorID:      reviewer,
		ActorRole:    domain.RoleSubEditor,
	})
	if err != nil {
		return err
	}
	if _, err := svc.StartWork(ctx, translations.StartWorkRequest{
		AssignmentID: assignment.ID,
		ActorID:      translator,
		ActorRole:    domain.RoleJournalist,
		Title:        "Localized headline",
		Body:         "Localized body copy.",
	}); err != nil {
		return err
	}
	if _, err := svc.SubmitForReview(ctx, translations.SubmitRequest{
		AssignmentID: assignment.ID,
		ReviewerID:   reviewer,
		ActorID:      translator,
	}); err != nil {
		return err
	}
	_, err = svc.Review(ctx, translations.ReviewRequest{
		AssignmentID: assignment.ID,
		ActorID:      reviewer,
		ActorRole:    domain.RoleSubEditor,
		Outcome:      domain.OutcomeApprove,
	})
	return err
}
