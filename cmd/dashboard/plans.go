package main

import (
	"bufio"
	"context"
	"encoding/json"
	"evacuation-dashboard/internal/controller"
	"evacuation-dashboard/internal/domain"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) plansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plans",
		Aliases: []string{"plan"},
		Short:   "List and manage evacuation plans",
	}
	cmd.AddCommand(
		a.plansListCmd(),
		a.plansShowCmd(),
		a.plansCreateCmd(),
		a.plansStatusCmd("activate", "Mark a plan active", (*controller.Controller).Activate),
		a.plansStatusCmd("deactivate", "Mark a plan inactive", (*controller.Controller).Deactivate),
		a.plansStatusCmd("toggle", "Activate an inactive plan, deactivate anything else", (*controller.Controller).Toggle),
		a.plansDeleteCmd(),
		a.plansWatchCmd(),
	)
	return cmd
}

// loaded returns a controller holding the current backend list.
func (a *app) loaded(ctx context.Context) (*controller.Controller, error) {
	ctrl, err := a.newController(a.stderrNotifier())
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func (a *app) plansListCmd() *cobra.Command {
	var (
		search string
		status string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the plan summary and every plan matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := domain.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			ctrl, err := a.loaded(cmd.Context())
			if err != nil {
				return err
			}
			ctrl.SetSearch(search)
			ctrl.SetFilter(filter)

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(ctrl.Filtered())
			}
			fmt.Fprintln(a.out, a.renderer.Page(ctrl.Summary(), search, filter, ctrl.Filtered()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on name or area")
	cmd.Flags().StringVar(&status, "status", "all", "all, active, inactive or under-review")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the matching plans as JSON")
	return cmd
}

func findPlan(ctrl *controller.Controller, id string) (domain.EvacuationPlan, error) {
	if !ctrl.Select(id) {
		return domain.EvacuationPlan{}, fmt.Errorf("%w: %q", domain.ErrPlanNotFound, id)
	}
	p, _ := ctrl.Selected()
	return p, nil
}

func (a *app) plansShowCmd() *cobra.Command {
	var shelterID string
	cmd := &cobra.Command{
		Use:   "show PLAN_ID",
		Short: "Show every shelter and route of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.loaded(cmd.Context())
			if err != nil {
				return err
			}
			p, err := findPlan(ctrl, args[0])
			if err != nil {
				return err
			}

			if shelterID == "" {
				fmt.Fprintln(a.out, a.renderer.PlanDetail(p, -1))
				return nil
			}
			for _, s := range p.Shelters {
				if s.ID == shelterID {
					fmt.Fprintln(a.out, a.renderer.ShelterDetail(s))
					return nil
				}
			}
			return fmt.Errorf("plan %q has no shelter %q", p.ID, shelterID)
		},
	}
	cmd.Flags().StringVar(&shelterID, "shelter", "", "show one shelter of the plan in detail")
	return cmd
}

func (a *app) plansCreateCmd() *cobra.Command {
	var draft domain.PlanDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an inactive plan with no shelters or routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.loaded(cmd.Context())
			if err != nil {
				return err
			}
			before := make(map[string]bool)
			for _, p := range ctrl.Plans() {
				before[p.ID] = true
			}

			ctrl.SetDraft(draft)
			if err := ctrl.Create(cmd.Context()); err != nil {
				return err
			}

			for _, p := range ctrl.Plans() {
				if !before[p.ID] {
					fmt.Fprintf(a.out, "Created plan %s (%s)\n", p.ID, p.Name)
					return nil
				}
			}
			fmt.Fprintln(a.out, "Created plan")
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "plan name (required)")
	cmd.Flags().StringVar(&draft.Area, "area", "", "coverage area (required)")
	cmd.Flags().IntVar(&draft.Capacity, "capacity", 0, "total capacity")
	return cmd
}

// timeNow is swapped in tests.
var timeNow = time.Now

type statusOp func(c *controller.Controller, ctx context.Context, id string) error

func (a *app) plansStatusCmd(use, short string, op statusOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PLAN_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.loaded(cmd.Context())
			if err != nil {
				return err
			}
			if err := op(ctrl, cmd.Context(), args[0]); err != nil {
				return err
			}
			p, err := findPlan(ctrl, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Plan %s is now %s\n", p.ID, p.Status)
			return nil
		},
	}
}

func (a *app) plansDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete PLAN_ID",
		Short: "Delete a plan after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.loaded(cmd.Context())
			if err != nil {
				return err
			}

			confirmed := false
			confirm := func(p domain.EvacuationPlan) bool {
				if !yes {
					fmt.Fprintf(a.out, "Are you sure you want to delete %q? [y/N]: ", p.Name)
					line, _ := bufio.NewReader(a.in).ReadString('\n')
					switch strings.ToLower(strings.TrimSpace(line)) {
					case "y", "yes":
					default:
						return false
					}
				}
				confirmed = true
				return true
			}

			if err := ctrl.Delete(cmd.Context(), args[0], confirm); err != nil {
				return err
			}
			if !confirmed {
				fmt.Fprintln(a.out, "Delete cancelled")
				return nil
			}
			fmt.Fprintf(a.out, "Deleted plan %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (a *app) plansWatchCmd() *cobra.Command {
	var (
		schedule string
		status   string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the plan list on a schedule and print the summary",
		Long: `Polls the plans API with a full reload on every tick of a cron schedule
("@every 30s", "*/5 * * * *") and prints the summary. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := domain.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			ctrl, err := a.newController(a.stderrNotifier())
			if err != nil {
				return err
			}
			ctrl.SetFilter(filter)
			return a.watch(cmd.Context(), ctrl, schedule)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "@every 30s", "cron schedule for reloads")
	cmd.Flags().StringVar(&status, "status", "all", "only count plans with this status in the listing")
	return cmd
}

// watch reloads once immediately, then on every schedule tick until ctx ends.
// A failed reload is reported and the previous list is printed again.
func (a *app) watch(ctx context.Context, ctrl *controller.Controller, schedule string) error {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	ticks := make(chan struct{}, 1)
	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		select {
		case ticks <- struct{}{}:
		default:
			a.log.Debug("watch tick skipped, previous reload still running")
		}
	}))
	c.Start()
	defer c.Stop()

	reload := func() {
		_ = ctrl.Load(ctx)
		s := ctrl.Summary()
		fmt.Fprintf(a.out, "%s  plans=%d active=%d shelters=%d capacity=%s  matching=%d\n",
			timeNow().Format("15:04:05"), s.Plans, s.Active, s.Shelters, a.renderer.Number(s.Capacity), len(ctrl.Filtered()))
		a.log.Debug("watch reload", zap.Int("plans", s.Plans))
	}

	reload()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			reload()
		}
	}
}
