package ui

import (
	"evacuation-dashboard/internal/domain"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// InlineLimit is how many shelters and routes a plan card shows before
// pointing at the detail view.
const InlineLimit = 3

// Renderer turns plans into terminal text. It holds no dashboard state.
type Renderer struct {
	styles Styles
	num    *message.Printer
	loc    *time.Location
	bar    progress.Model
}

type RendererOption func(*Renderer)

// WithLocation sets the zone timestamps are shown in (default: local).
func WithLocation(loc *time.Location) RendererOption {
	return func(r *Renderer) { r.loc = loc }
}

// WithLanguage sets the locale used for thousands separators (default: English).
func WithLanguage(tag language.Tag) RendererOption {
	return func(r *Renderer) { r.num = message.NewPrinter(tag) }
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		styles: DefaultStyles(),
		num:    message.NewPrinter(language.English),
		loc:    time.Local,
		bar: progress.New(
			progress.WithSolidFill(string(Blue)),
			progress.WithoutPercentage(),
			progress.WithWidth(24),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Styles() Styles { return r.styles }

// Number formats n with locale thousands separators ("50,000").
func (r *Renderer) Number(n int) string {
	return r.num.Sprintf("%d", n)
}

func (r *Renderer) badge(status string) string {
	return r.styles.Badge.Foreground(badgeColor(status)).Render(strings.ToUpper(status))
}

func (r *Renderer) timestamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.In(r.loc).Format("2 Jan 2006, 15:04:05 MST")
}

func (r *Renderer) occupancy(s domain.Shelter) string {
	return r.bar.ViewAs(s.OccupancyRate())
}

// Header is the page title block.
func (r *Renderer) Header() string {
	return r.styles.Title.Render("Evacuation Plans") + "\n" +
		r.styles.Subtitle.Render("Manage evacuation routes and shelter facilities")
}

// Summary renders the four aggregate cards shown above the list.
func (r *Renderer) Summary(s domain.Summary) string {
	stat := func(label string, value string) string {
		return r.styles.Stat.Render(r.styles.Label.Render(label) + "\n" + r.styles.Value.Render(value))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Total Plans", r.Number(s.Plans)),
		stat("Active Plans", r.Number(s.Active)),
		stat("Total Shelters", r.Number(s.Shelters)),
		stat("Total Capacity", r.Number(s.Capacity)),
	)
}

// FilterBar shows the search term (or the live search input) and the status filter.
func (r *Renderer) FilterBar(search string, f domain.StatusFilter) string {
	if search == "" {
		search = r.styles.Muted.Render("Search evacuation plans...")
	}
	return r.styles.Card.Render(
		r.styles.Label.Render("Search: ") + search + "    " +
			r.styles.Label.Render("Status: ") + f.Label(),
	)
}

func (r *Renderer) shelterLine(s domain.Shelter) string {
	return fmt.Sprintf("%s %s\n  %s  %d/%d %s",
		s.Name, r.badge(string(s.Status)),
		s.Location, s.CurrentOccupancy, s.Capacity, r.occupancy(s))
}

func (r *Renderer) routeLine(rt domain.Route) string {
	return fmt.Sprintf("%s %s\n  %s → %s  %s  %s",
		rt.Name, r.badge(string(rt.Status)),
		rt.From, rt.To, rt.Distance, rt.EstimatedTime)
}

// PlanCard renders one plan of the list with at most InlineLimit shelters
// and routes.
func (r *Renderer) PlanCard(p domain.EvacuationPlan, selected bool) string {
	var sb strings.Builder

	sb.WriteString(r.styles.Title.Render(p.Name) + " " + r.badge(string(p.Status)) + "\n")
	sb.WriteString(r.styles.Label.Render("Coverage Area: ") + p.Area + "\n")
	sb.WriteString(fmt.Sprintf("%s %s   %s %d   %s %d\n",
		r.styles.Label.Render("Total Capacity:"), r.Number(p.Capacity),
		r.styles.Label.Render("Shelters:"), len(p.Shelters),
		r.styles.Label.Render("Routes:"), len(p.Routes)))

	sb.WriteString("\n" + r.styles.Value.Render(fmt.Sprintf("Shelters (%d)", len(p.Shelters))) + "\n")
	for i, s := range p.Shelters {
		if i == InlineLimit {
			break
		}
		sb.WriteString(r.shelterLine(s) + "\n")
	}
	if len(p.Shelters) > InlineLimit {
		sb.WriteString(r.styles.Link.Render(fmt.Sprintf("View all %d shelters", len(p.Shelters))) + "\n")
	}

	sb.WriteString("\n" + r.styles.Value.Render(fmt.Sprintf("Evacuation Routes (%d)", len(p.Routes))) + "\n")
	for i, rt := range p.Routes {
		if i == InlineLimit {
			break
		}
		sb.WriteString(r.routeLine(rt) + "\n")
	}
	if len(p.Routes) > InlineLimit {
		sb.WriteString(r.styles.Link.Render(fmt.Sprintf("View all %d routes", len(p.Routes))) + "\n")
	}

	sb.WriteString("\n" + r.styles.Muted.Render("Last Updated: "+r.timestamp(p.LastUpdated)))

	style := r.styles.Card
	if selected {
		style = r.styles.Selected
	}
	return style.Render(sb.String())
}

// PlanDetail renders every shelter and route of a plan. highlight is the
// index of the shelter under the cursor, or -1.
func (r *Renderer) PlanDetail(p domain.EvacuationPlan, highlight int) string {
	var sb strings.Builder

	sb.WriteString(r.styles.Title.Render(p.Name) + "\n\n")
	sb.WriteString(r.styles.Label.Render("Coverage Area: ") + p.Area + "\n")
	sb.WriteString(r.styles.Label.Render("Status: ") + r.badge(string(p.Status)) + "\n")
	sb.WriteString(r.styles.Label.Render("Total Capacity: ") + r.Number(p.Capacity) + "\n")

	sb.WriteString("\n" + r.styles.Value.Render("Shelters") + "\n")
	if len(p.Shelters) == 0 {
		sb.WriteString(r.styles.Muted.Render("No shelters assigned") + "\n")
	}
	for i, s := range p.Shelters {
		marker := "  "
		if i == highlight {
			marker = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %s\n", marker, s.Name, r.badge(string(s.Status))))
		sb.WriteString(fmt.Sprintf("    %s\n", s.Location))
		sb.WriteString(fmt.Sprintf("    Capacity: %d/%d  Contact: %s\n", s.CurrentOccupancy, s.Capacity, s.Contact))
		sb.WriteString("    " + r.occupancy(s) + "\n")
		sb.WriteString("    Facilities: " + strings.Join(s.Facilities, ", ") + "\n")
	}

	sb.WriteString("\n" + r.styles.Value.Render("Evacuation Routes") + "\n")
	if len(p.Routes) == 0 {
		sb.WriteString(r.styles.Muted.Render("No routes defined") + "\n")
	}
	for _, rt := range p.Routes {
		sb.WriteString(fmt.Sprintf("  %s %s\n", rt.Name, r.badge(string(rt.Status))))
		sb.WriteString(fmt.Sprintf("    From: %s\n    To: %s\n", rt.From, rt.To))
		sb.WriteString(fmt.Sprintf("    Distance: %s  Time: %s\n", rt.Distance, rt.EstimatedTime))
	}

	sb.WriteString("\n" + r.styles.Muted.Render("Last Updated: "+r.timestamp(p.LastUpdated)))
	return r.styles.Card.Render(sb.String())
}

func (r *Renderer) ShelterDetail(s domain.Shelter) string {
	var sb strings.Builder

	sb.WriteString(r.styles.Title.Render(s.Name) + "\n\n")
	sb.WriteString(r.styles.Label.Render("Status: ") + r.badge(string(s.Status)) + "\n")
	sb.WriteString(r.styles.Label.Render("Location: ") + s.Location + "\n")
	sb.WriteString(r.styles.Label.Render("Capacity: ") + r.Number(s.Capacity) + "\n")
	sb.WriteString(r.styles.Label.Render("Current Occupancy: ") + r.Number(s.CurrentOccupancy) + "\n")
	sb.WriteString(r.styles.Label.Render("Occupancy Rate: ") + r.occupancy(s) +
		fmt.Sprintf(" %.0f%%", s.OccupancyRate()*100) + "\n")
	sb.WriteString(r.styles.Label.Render("Contact: ") + s.Contact + "\n")

	facilities := make([]string, 0, len(s.Facilities))
	for _, f := range s.Facilities {
		facilities = append(facilities, r.styles.Badge.Render("["+f+"]"))
	}
	sb.WriteString(r.styles.Label.Render("Available Facilities: ") + strings.Join(facilities, " "))

	return r.styles.Card.Render(sb.String())
}

func (r *Renderer) Empty() string {
	return r.styles.Card.Render(
		r.styles.Title.Render("No evacuation plans found") + "\n" +
			r.styles.Muted.Render("Try adjusting your search criteria or create a new plan."))
}

// Page renders the non-interactive list view: header, summary, filter bar
// and every matching plan card.
func (r *Renderer) Page(summary domain.Summary, search string, f domain.StatusFilter, plans []domain.EvacuationPlan) string {
	parts := []string{r.Header(), r.Summary(summary), r.FilterBar(search, f)}
	if len(plans) == 0 {
		parts = append(parts, r.Empty())
	}
	for _, p := range plans {
		parts = append(parts, r.PlanCard(p, false))
	}
	return strings.Join(parts, "\n\n")
}
