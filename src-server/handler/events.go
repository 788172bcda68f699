package handler

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"planner/src-server/model"
	"planner/src-server/utils"
)

// atClock places "HH:MM" on day. "24:00" is the following midnight.
func atClock(day time.Time, clock string) (time.Time, error) {
	if clock == "24:00" {
		return day.AddDate(0, 0, 1), nil
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("atClock: %q is not HH:MM", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// resolveDay turns a date argument, possibly natural language, into the
// store's date key and midnight of that day.
func resolveDay(as *utils.AppState, text string) (string, time.Time, error) {
	loc := as.Config.GetLocation()
	date, err := utils.ResolveDate(as.When, text, time.Now(), loc)
	if err != nil {
		return "", time.Time{}, err
	}
	day, err := as.Events.ParseDate(date)
	if err != nil {
		return "", time.Time{}, err
	}
	return date, day, nil
}

func printEvents(w io.Writer, events []model.EventItem, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range events {
		e = e.In(loc)
		repeat := ""
		if e.RepeatOption != nil {
			repeat = string(e.RepeatOption.Type)
		}
		fmt.Fprintf(tw, "%s ~ %s\t%s\t%s\t%s\n",
			e.StartDate.Format("15:04"), e.EndDate.Format("15:04"), e.Title, repeat, e.ID)
	}
	return tw.Flush()
}

func newEventsCmd(appState AppStateFunc) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Manage the events stored on this device",
	}

	// events list
	listCmd := &cobra.Command{
		Use:   "list [date]",
		Short: "List the events of a day (YYYY-MM-DD or e.g. \"next friday\")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()
			date, _, err := resolveDay(as, strings.Join(args, " "))
			if err != nil {
				return err
			}
			events, err := as.Events.LoadForDate(cmd.Context(), date)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no events on %s\n", date)
				return nil
			}
			return printEvents(cmd.OutOrStdout(), events, as.Config.GetLocation())
		},
	}

	// events add
	var (
		addDate       string
		addStart      string
		addEnd        string
		addLocation   string
		addMemo       string
		addCategory   string
		addColor      string
		addIcon       string
		addRepeat     string
		addRepeatDays []string
		addRepeatDate []int
	)
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an event",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()
			_, day, err := resolveDay(as, addDate)
			if err != nil {
				return err
			}
			start, err := atClock(day, addStart)
			if err != nil {
				return err
			}
			end, err := atClock(day, addEnd)
			if err != nil {
				return err
			}
			event := &model.EventItem{
				Title:     strings.Join(args, " "),
				StartDate: start,
				EndDate:   end,
				Location:  addLocation,
				Memo:      addMemo,
			}
			if addCategory != "" || addColor != "" || addIcon != "" {
				event.Category = &model.EventCategory{Name: addCategory, Color: addColor, Icon: addIcon}
			}
			if addRepeat != "" {
				event.RepeatOption = &model.RepeatOption{
					Type:  model.RepeatType(addRepeat),
					Days:  addRepeatDays,
					Dates: addRepeatDate,
				}
			}
			if err := as.Events.Save(cmd.Context(), event); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), event.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&addDate, "date", "", "day of the event, defaults to today")
	addCmd.Flags().StringVar(&addStart, "start", "09:00", "start time (HH:MM)")
	addCmd.Flags().StringVar(&addEnd, "end", "10:00", "end time (HH:MM, 24:00 for midnight)")
	addCmd.Flags().StringVar(&addLocation, "location", "", "where it happens")
	addCmd.Flags().StringVar(&addMemo, "memo", "", "free-form note")
	addCmd.Flags().StringVar(&addCategory, "category", "", "category name")
	addCmd.Flags().StringVar(&addColor, "color", "", "category color (#RRGGBB)")
	addCmd.Flags().StringVar(&addIcon, "icon", "", "category icon")
	addCmd.Flags().StringVar(&addRepeat, "repeat", "", "daily, weekly or monthly")
	addCmd.Flags().StringSliceVar(&addRepeatDays, "repeat-days", nil, "weekdays of a weekly repeat")
	addCmd.Flags().IntSliceVar(&addRepeatDate, "repeat-dates", nil, "days of the month of a monthly repeat")

	// events delete
	deleteCmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete events by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()
			for _, id := range args {
				if err := as.Events.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}

	// events memo
	memoCmd := &cobra.Command{
		Use:   "memo <id> [memo]",
		Short: "Replace the memo of an event, an empty memo clears it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()
			event, err := as.Events.UpdateMemo(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %q\n", event.ID, event.Memo)
			return nil
		},
	}

	eventsCmd.AddCommand(listCmd, addCmd, deleteCmd, memoCmd)
	return eventsCmd
}
