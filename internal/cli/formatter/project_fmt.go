package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/workflow"
)

const barWidth = 16

// FormatProjectList renders projects as a table in the order given.
func FormatProjectList(projects []domain.Project, now time.Time) string {
	if len(projects) == 0 {
		return Dim("No projects yet. Create one with: procflow project create --name ...") + "\n"
	}

	headers := []string{"ID", "NAME", "PRIORITY", "STEP", "PROGRESS", "BUDGET", "DEADLINE"}
	rows := make([][]string, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		step := "--"
		if len(p.Steps) > 0 {
			step = fmt.Sprintf("%d/%d %s", p.CurrentStepIndex+1, len(p.Steps), Truncate(p.Steps[p.CurrentStepIndex].Title, 24))
		}
		name := Truncate(p.Name, 32)
		if p.IsOverdue(now) {
			name = StyleRed.Render(name + " !")
		}
		rows = append(rows, []string{
			TruncID(p.ID),
			name,
			PriorityBadge(p.Priority),
			step,
			RenderProgress(workflow.ProgressPercent(p), 10),
			Money(p.Budget),
			DeadlineStyled(p.Deadline, now),
		})
	}
	return RenderTable(headers, rows)
}

// FormatProjectDetail renders one project with every step, its checklist
// and its notes.
func FormatProjectDetail(p *domain.Project, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s  %s\n", Bold(p.Name), StatusPill(p.Status), PriorityBadge(p.Priority))
	fmt.Fprintf(&b, "%s %s\n", Dim("id:"), p.ID)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n", p.Description)
	}
	fmt.Fprintf(&b, "%s %s  %s %s\n", Dim("type:"), p.PurchaseType, Dim("method:"), p.ProcurementMethod)
	fmt.Fprintf(&b, "%s %s", Dim("budget:"), Money(p.Budget))
	if p.ContractAmount != nil {
		fmt.Fprintf(&b, "  %s %s  %s %s", Dim("contract:"), Money(*p.ContractAmount),
			Dim("savings:"), StyleGreen.Render(Money(p.Budget-*p.ContractAmount)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", Dim("deadline:"), DeadlineStyled(p.Deadline, now))
	fmt.Fprintf(&b, "%s %s\n\n", Dim("progress:"), RenderProgress(workflow.ProgressPercent(p), barWidth))

	for i := range p.Steps {
		writeStep(&b, p, i)
	}
	return b.String()
}

func writeStep(b *strings.Builder, p *domain.Project, idx int) {
	s := &p.Steps[idx]

	mark := StyleDim.Render("○")
	switch {
	case s.Completed:
		mark = StyleGreen.Render("✔")
	case idx == p.CurrentStepIndex:
		mark = StyleYellow.Render("▶")
	}
	title := s.Title
	if idx == p.CurrentStepIndex && !s.Completed {
		title = Bold(title)
	}
	fmt.Fprintf(b, "%s %2d. %s", mark, idx+1, title)
	if s.Completed && s.CompletedAt != nil {
		fmt.Fprintf(b, "  %s", Dim(s.CompletedAt.Format(DateLayout)))
	}
	if s.DocumentNumber != nil {
		fmt.Fprintf(b, "  %s", StyleBlue.Render("#"+*s.DocumentNumber))
	}
	if done, total := workflow.ChecklistProgress(s); total > 0 {
		fmt.Fprintf(b, "  %s", Dim(fmt.Sprintf("[%d/%d]", done, total)))
	}
	b.WriteString("\n")

	for j, item := range s.Checklist {
		box := "[ ]"
		if item.Checked {
			box = StyleGreen.Render("[x]")
		}
		fmt.Fprintf(b, "      %s %d. %s", box, j+1, item.Text)
		if item.CompletedAt != nil {
			fmt.Fprintf(b, " %s", Dim(item.CompletedAt.Format(DateLayout)))
		}
		if item.Deadline != nil {
			fmt.Fprintf(b, " %s", StyleYellow.Render("due "+item.Deadline.Format(DateLayout)))
		}
		b.WriteString("\n")
		for _, n := range item.Notes {
			fmt.Fprintf(b, "           %s %s\n", Dim("·"), n.Text)
		}
	}
	for _, n := range s.Postits {
		fmt.Fprintf(b, "      %s %s %s\n", StylePurple.Render("✎"), n.Text, Dim(shortRef(n.ID)))
	}
	if len(s.Timeline) > 0 {
		fmt.Fprintf(b, "      %s\n", Dim(fmt.Sprintf("%d timeline note(s)", len(s.Timeline))))
	}
}

// FormatTimeline renders notes in the order given, one per line.
func FormatTimeline(notes []domain.Note) string {
	if len(notes) == 0 {
		return Dim("No timeline notes.") + "\n"
	}
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "%s  %s  %s\n", StyleBlue.Render(n.Timestamp.Format("2006-01-02 15:04")), n.Text, Dim(shortRef(n.ID)))
	}
	return b.String()
}

// FormatTemplate renders the step template and whether it is a workspace
// override.
func FormatTemplate(tmpl domain.StepTemplate, custom bool) string {
	var b strings.Builder
	source := "default template"
	if custom {
		source = "workspace template"
	}
	b.WriteString(Header(source) + "\n")
	for i, e := range tmpl {
		fmt.Fprintf(&b, "%2d. %s %s\n", i+1, e.Title, Dim("("+e.ID+")"))
		for _, text := range e.DefaultChecklist {
			fmt.Fprintf(&b, "      - %s\n", text)
		}
	}
	return b.String()
}

// FormatSummary renders the workspace dashboard.
func FormatSummary(s workflow.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d   %s %d   %s %d",
		Dim("projects"), s.Total, Dim("active"), s.Active, Dim("completed"), s.Completed)
	if s.Overdue > 0 {
		fmt.Fprintf(&b, "   %s", StyleRed.Render(fmt.Sprintf("overdue %d", s.Overdue)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		Dim("budget"), Money(s.TotalBudget),
		Dim("contract"), Money(s.TotalContract),
		Dim("savings"), StyleGreen.Render(Money(s.Savings)))
	fmt.Fprintf(&b, "%s %s\n", Dim("average progress"), RenderProgress(s.AveragePercent, barWidth))

	var prio []string
	for _, p := range domain.ValidPriorities {
		if n := s.ByPriority[p]; n > 0 {
			prio = append(prio, PriorityStyle(p).Render(fmt.Sprintf("%s %d", p, n)))
		}
	}
	if len(prio) > 0 {
		fmt.Fprintf(&b, "%s %s\n", Dim("by priority"), strings.Join(prio, "  "))
	}
	return RenderBox("summary", strings.TrimRight(b.String(), "\n"))
}

func shortRef(id string) string {
	if id == "" {
		return ""
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return "(" + id + ")"
}
