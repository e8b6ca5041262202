package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/eisenhower/internal/client"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/task"
)

func runPrioritize(ctx context.Context, b backend) error {
	res, err := b.Prioritize(ctx, *prioritizeForce, *prioritizeDryRun)
	if err != nil {
		return err
	}

	bold.Printf("run %s: %s\n", res.RunID, res.Outcome)
	if len(res.Swept) > 0 {
		yellow.Printf("swept to plan: %s\n", strings.Join(res.Swept, ", "))
	}
	if res.Outcome != prioritization.OutcomeCompleted {
		return nil
	}
	if res.Fallback != prioritization.FailureNone {
		yellow.Printf("model answer unusable (%s), rule-based fallback applied\n", res.Fallback)
	}
	if res.Assignment != nil {
		for _, q := range task.Quadrants {
			fmt.Printf("  %-9s %d\n", q, len(res.Assignment.List(q)))
		}
	}
	if *prioritizeDiff && res.Diff != "" {
		printDiff(res.Diff)
	}
	if *prioritizeDryRun {
		cyan.Println("dry run, nothing written")
		return nil
	}
	fmt.Printf("written: %d\n", res.Written)
	if len(res.Failed) > 0 {
		red.Printf("failed: %s\n", strings.Join(res.Failed, ", "))
	}
	return nil
}

func printDiff(diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			bold.Println(line)
		case strings.HasPrefix(line, "+"):
			green.Println(line)
		case strings.HasPrefix(line, "-"):
			red.Println(line)
		case strings.HasPrefix(line, "@@"):
			cyan.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func runSchedule(ctx context.Context, b backend, loc *time.Location) error {
	res, err := b.Schedule(ctx)
	if err != nil {
		return err
	}
	bold.Printf("run %s: %s\n", res.RunID, res.Outcome)
	if res.SkipReason != "" {
		yellow.Printf("skipped: %s\n", res.SkipReason)
		return nil
	}
	for _, slot := range res.Scheduled {
		green.Printf("  %s  %s - %s\n", slot.ID, slot.Start.In(loc).Format(time.DateTime), slot.End.In(loc).Format(time.Kitchen))
	}
	if len(res.Unscheduled) > 0 {
		yellow.Printf("left unscheduled: %s\n", strings.Join(res.Unscheduled, ", "))
	}
	if len(res.Failed) > 0 {
		red.Printf("failed: %s\n", strings.Join(res.Failed, ", "))
	}
	return nil
}

func runEligible(ctx context.Context, b backend) error {
	eligible, excluded, err := b.ListEligible(ctx)
	if err != nil {
		return err
	}
	bold.Printf("eligible (%d)\n", len(eligible))
	for _, t := range eligible {
		fmt.Printf("  %s  %s\n", t.ID, t.Title)
	}
	bold.Printf("excluded (%d)\n", len(excluded))
	for _, e := range excluded {
		fmt.Printf("  %s  %s\n", e.ID, e.Status)
	}
	return nil
}

func runFingerprint(ctx context.Context, b backend) error {
	current, stored, err := b.Fingerprint(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("current: %s\n", current)
	fmt.Printf("stored:  %s\n", stored)
	if current == stored {
		green.Println("unchanged")
	} else {
		yellow.Println("changed")
	}
	return nil
}

func runAdd(ctx context.Context, c *client.Client) error {
	req := &task.CreateTaskRequest{
		Title:       *addTitle,
		Description: *addDesc,
		Category:    *addCategory,
		Type:        task.TypeDeadline,
	}
	if *addEvent {
		req.Type = task.TypeEvent
	}
	if *addDate != "" {
		d, err := parseDate(*addDate)
		if err != nil {
			return err
		}
		req.TaskDate = &d
	}
	t, err := c.CreateTask(ctx, req)
	if err != nil {
		return err
	}
	green.Printf("created %s\n", t.ID)
	return nil
}

func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

func runList(ctx context.Context, c *client.Client) error {
	tasks, err := c.ListTasks(ctx, *listAll)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		line := fmt.Sprintf("%s  %-8s %s", t.ID, priorityLabel(t.Priority), t.Title)
		switch {
		case t.IsDone:
			color.New(color.Faint).Println(line)
		case t.Priority == task.PriorityDo:
			red.Println(line)
		case t.Priority == task.PriorityPlan:
			yellow.Println(line)
		default:
			fmt.Println(line)
		}
	}
	return nil
}

func priorityLabel(p task.Priority) string {
	if p == task.PriorityNone {
		return "-"
	}
	return string(p)
}

func runDone(ctx context.Context, c *client.Client) error {
	t, err := c.CompleteTask(ctx, *doneID)
	if err != nil {
		return err
	}
	green.Printf("done %s\n", t.ID)
	return nil
}
