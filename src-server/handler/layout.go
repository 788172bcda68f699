package handler

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"planner/src-server/model"
	"planner/src-server/timeline"
)

// printTimeline writes one section per column. The swatch is last so escape
// codes don't shift the tabwriter cells; plain writers get no colors at all.
func printTimeline(w io.Writer, tl timeline.Timeline) error {
	renderer := lipgloss.NewRenderer(w)
	header := renderer.NewStyle().Bold(true)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, column := range tl.Columns {
		fmt.Fprintln(tw, header.Render(fmt.Sprintf("[%d] %s %s", i, column.Date, column.Weekday)))
		for _, block := range tl.Blocks {
			if block.Column != i {
				continue
			}
			swatch := renderer.NewStyle().Background(lipgloss.Color(block.Color)).Render("  ")
			fmt.Fprintf(tw, "\t%s\t%s\ttop=%.1f\theight=%.1f\t%s %s\n",
				block.Label, block.Event.Title, block.Top, block.Height, swatch, block.Color)
		}
	}
	return tw.Flush()
}

func newLayoutCmd(appState AppStateFunc) *cobra.Command {
	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the timeline layout of a day or a week",
	}

	var follow bool
	dayCmd := &cobra.Command{
		Use:   "day [date]",
		Short: "Lay out one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()
			date, day, err := resolveDay(as, strings.Join(args, " "))
			if err != nil {
				return err
			}
			events, err := as.Events.LoadForDate(cmd.Context(), date)
			if err != nil {
				return err
			}
			if err := printTimeline(cmd.OutOrStdout(), as.Grid.Layout(events, timeline.Day(day), nil)); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			// the now line only exists on today's timeline
			loc := as.Config.GetLocation()
			if time.Now().In(loc).Format(time.DateOnly) != date {
				return nil
			}
			clock := func() time.Time { return time.Now().In(loc) }
			for offset := range as.Grid.Ticker(cmd.Context(), as.Config.GetNowTick(), clock) {
				fmt.Fprintf(cmd.OutOrStdout(), "now %s top=%.1f\n", clock().Format("15:04"), offset)
			}
			return nil
		},
	}
	dayCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing the current-time offset")

	var weekStart string
	weekCmd := &cobra.Command{
		Use:   "week [date]",
		Short: "Lay out the week containing date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()
			_, anchor, err := resolveDay(as, strings.Join(args, " "))
			if err != nil {
				return err
			}
			start := as.Config.GetWeekStart()
			if weekStart != "" {
				d, ok := model.ParseWeekday(weekStart)
				if !ok || (d != time.Sunday && d != time.Monday) {
					return fmt.Errorf("week: --week-start must be sunday or monday")
				}
				start = d
			}
			columns := timeline.Week(anchor, start)
			byDate, err := as.Events.LoadRange(cmd.Context(),
				columns[0].Format(time.DateOnly),
				columns[len(columns)-1].Format(time.DateOnly),
			)
			if err != nil {
				return err
			}
			events := make([]model.EventItem, 0)
			for _, column := range columns {
				events = append(events, byDate[column.Format(time.DateOnly)]...)
			}
			return printTimeline(cmd.OutOrStdout(), as.Grid.Layout(events, columns, nil))
		},
	}
	weekCmd.Flags().StringVar(&weekStart, "week-start", "", "sunday or monday, defaults to WEEK_START")

	layoutCmd.AddCommand(dayCmd, weekCmd)
	return layoutCmd
}
