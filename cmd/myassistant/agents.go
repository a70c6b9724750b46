package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/health"
)

var errNoAgent = errors.New("unknown agent (want personal, health, financial or learning)")

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage an agent's goals",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals with progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			agent, err := agentFlag(cmd)
			if err != nil {
				return err
			}
			goals, err := listGoals(a, agent)
			if err != nil {
				return err
			}
			if len(goals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No goals yet.")
				return nil
			}
			for _, g := range goals {
				printGoal(cmd.OutOrStdout(), g)
			}
			return nil
		})
	},
}

var goalsAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a goal",
	Long: `Add a goal. Health goals can track a metric automatically.

Examples:
  myassistant goals add "Ship the release" --agent personal
  myassistant goals add "Drink more water" --agent health --track water --target 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		track, _ := cmd.Flags().GetString("track")
		target, _ := cmd.Flags().GetFloat64("target")
		return withApp(func(a *app) error {
			agent, err := agentFlag(cmd)
			if err != nil {
				return err
			}
			g, err := addGoal(a, agent, strings.Join(args, " "), description, track, target)
			if err != nil {
				return err
			}
			printSuccess("Added goal %d", g.ID)
			return nil
		})
	},
}

var goalsToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Mark a goal complete, or reopen it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			agent, id, err := agentAndID(cmd, args[0])
			if err != nil {
				return err
			}
			found, err := a.store.ToggleGoal(agent, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no %s goal with id %d", agent, id)
			}
			printSuccess("Toggled goal %d", id)
			return nil
		})
	},
}

var goalsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			agent, id, err := agentAndID(cmd, args[0])
			if err != nil {
				return err
			}
			found, err := a.store.DeleteGoal(agent, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no %s goal with id %d", agent, id)
			}
			printSuccess("Deleted goal %d", id)
			return nil
		})
	},
}

var goalsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a goal's title, description, progress or target",
	Long: `Change a goal. Only the flags given are applied.

Examples:
  myassistant goals edit 2 --progress 90
  myassistant goals edit 1 --agent health --target 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var e goalEdit
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			e.title = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			e.description = &v
		}
		if flags.Changed("progress") {
			v, _ := flags.GetInt("progress")
			e.progress = &v
		}
		if flags.Changed("target") {
			v, _ := flags.GetFloat64("target")
			e.target = &v
		}
		return withApp(func(a *app) error {
			agent, id, err := agentAndID(cmd, args[0])
			if err != nil {
				return err
			}
			g, err := editGoal(a, agent, id, e)
			if err != nil {
				return err
			}
			printSuccess("Updated goal %d", id)
			printGoal(cmd.OutOrStdout(), g)
			return nil
		})
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Manage an agent's reminders",
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			agent, err := agentFlag(cmd)
			if err != nil {
				return err
			}
			reminders, err := a.store.Reminders(agent)
			if err != nil {
				return err
			}
			printReminders(cmd.OutOrStdout(), reminders)
			return nil
		})
	},
}

var remindersAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a reminder",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		when, _ := cmd.Flags().GetString("time")
		urgent, _ := cmd.Flags().GetBool("urgent")
		return withApp(func(a *app) error {
			agent, err := agentFlag(cmd)
			if err != nil {
				return err
			}
			r, err := a.store.AddReminder(agent, domain.Reminder{
				Text:   strings.Join(args, " "),
				Time:   when,
				Urgent: urgent,
			})
			if err != nil {
				return err
			}
			printSuccess("Added reminder %d", r.ID)
			return nil
		})
	},
}

var remindersDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Dismiss a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			agent, id, err := agentAndID(cmd, args[0])
			if err != nil {
				return err
			}
			found, err := a.store.DismissReminder(agent, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no %s reminder with id %d", agent, id)
			}
			printSuccess("Dismissed reminder %d", id)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{goalsCmd, remindersCmd} {
		c.PersistentFlags().StringP("agent", "a", string(domain.AgentPersonal), "personal, health, financial or learning")
	}
	goalsAddCmd.Flags().String("description", "", "goal description")
	goalsAddCmd.Flags().String("track", "", "health metric to track automatically (water, sleep, exercise)")
	goalsAddCmd.Flags().Float64("target", 0, "daily target for a tracked goal")
	goalsEditCmd.Flags().String("title", "", "new title")
	goalsEditCmd.Flags().String("description", "", "new description")
	goalsEditCmd.Flags().Int("progress", 0, "progress percentage (0-100)")
	goalsEditCmd.Flags().Float64("target", 0, "daily target for a tracked goal")
	goalsCmd.AddCommand(goalsListCmd, goalsAddCmd, goalsEditCmd, goalsToggleCmd, goalsDeleteCmd)

	remindersAddCmd.Flags().String("time", "Today", "when, as shown in the list")
	remindersAddCmd.Flags().Bool("urgent", false, "flag as urgent")
	remindersCmd.AddCommand(remindersListCmd, remindersAddCmd, remindersDismissCmd)
}

func agentFlag(cmd *cobra.Command) (domain.Agent, error) {
	name, _ := cmd.Flags().GetString("agent")
	agent, ok := domain.ParseAgent(strings.ToLower(name))
	if !ok {
		return "", errNoAgent
	}
	return agent, nil
}

func agentAndID(cmd *cobra.Command, raw string) (domain.Agent, int64, error) {
	agent, err := agentFlag(cmd)
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid id %q", raw)
	}
	return agent, id, nil
}

// listGoals returns agent's goals; health goals carry today's progress.
func listGoals(a *app, agent domain.Agent) ([]domain.Goal, error) {
	if agent == domain.AgentHealth {
		ds := a.store.Health()
		totals := health.Totals(ds.DailyLogs, health.LocalDateKey(a.now()))
		return health.ApplyGoalProgress(ds.Goals, totals, ds.Targets), nil
	}
	return a.store.Goals(agent)
}

func addGoal(a *app, agent domain.Agent, title, description, track string, target float64) (domain.Goal, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Goal{}, errors.New("title is required")
	}
	g := domain.Goal{Title: title, Description: description}
	if track != "" {
		et, ok := domain.ParseEntryType(track)
		if !ok || et.IsText() {
			return domain.Goal{}, fmt.Errorf("cannot track %q", track)
		}
		if agent != domain.AgentHealth {
			return domain.Goal{}, errors.New("only health goals can be tracked automatically")
		}
		g.AutoTracked = true
		g.TrackingType = et
		if target > 0 {
			g.Target = domain.NumericTarget(target)
		}
	}
	return a.store.AddGoal(agent, g)
}

// goalEdit holds the fields a user asked to change; nil means unchanged.
type goalEdit struct {
	title       *string
	description *string
	progress    *int
	target      *float64
}

func editGoal(a *app, agent domain.Agent, id int64, e goalEdit) (domain.Goal, error) {
	goals, err := a.store.Goals(agent)
	if err != nil {
		return domain.Goal{}, err
	}
	idx := slices.IndexFunc(goals, func(g domain.Goal) bool { return g.ID == id })
	if idx < 0 {
		return domain.Goal{}, fmt.Errorf("no %s goal with id %d", agent, id)
	}
	g := goals[idx]

	if e.title != nil {
		if strings.TrimSpace(*e.title) == "" {
			return domain.Goal{}, errors.New("title cannot be empty")
		}
		g.Title = *e.title
	}
	if e.description != nil {
		g.Description = *e.description
	}
	if e.progress != nil {
		if *e.progress < 0 || *e.progress > 100 {
			return domain.Goal{}, fmt.Errorf("progress must be between 0 and 100, got %d", *e.progress)
		}
		g.Progress = *e.progress
		g.Completed = g.Progress >= 100
	}
	if e.target != nil {
		if !g.AutoTracked {
			return domain.Goal{}, errors.New("only tracked health goals have a target")
		}
		if *e.target <= 0 {
			return domain.Goal{}, errors.New("target must be positive")
		}
		g.Target = domain.NumericTarget(*e.target)
	}

	found, err := a.store.UpdateGoal(agent, g)
	if err != nil {
		return domain.Goal{}, err
	}
	if !found {
		return domain.Goal{}, fmt.Errorf("no %s goal with id %d", agent, id)
	}
	return g, nil
}

func printGoal(w io.Writer, g domain.Goal) {
	box := "[ ]"
	if g.Completed {
		box = colorize(colorGreen, "[x]")
	}
	fmt.Fprintf(w, "%s %s %s", box, g.Title, colorize(colorFaint, fmt.Sprintf("(%d%%)", g.Progress)))
	if g.AutoTracked {
		fmt.Fprint(w, colorize(colorCyan, " auto"))
	}
	fmt.Fprintf(w, "  %s\n", colorize(colorFaint, strconv.FormatInt(g.ID, 10)))
	if g.Description != "" {
		fmt.Fprintf(w, "    %s\n", g.Description)
	}
}

func printReminders(w io.Writer, reminders []domain.Reminder) {
	if len(reminders) == 0 {
		fmt.Fprintln(w, "No reminders.")
		return
	}
	for _, r := range reminders {
		text := r.Text
		if r.Urgent {
			text = colorize(colorRed, "! "+text)
		}
		fmt.Fprintf(w, "%-12s %s  %s\n", r.Time, text, colorize(colorFaint, strconv.FormatInt(r.ID, 10)))
	}
}
