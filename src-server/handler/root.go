package handler

import (
	"sync"

	"github.com/spf13/cobra"

	"planner/src-server/utils"
)

// AppStateFunc builds the app state the first time a command needs it.
type AppStateFunc func() *utils.AppState

// Once wraps utils.NewAppState so every subcommand shares one database.
func Once() AppStateFunc {
	var (
		once sync.Once
		as   *utils.AppState
	)
	return func() *utils.AppState {
		once.Do(func() { as = utils.NewAppState() })
		return as
	}
}

// NewRootCmd assembles the planner CLI.
func NewRootCmd(appState AppStateFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "planner",
		Short:         "Daily planner: events, timelines and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newServeCmd(appState),
		newEventsCmd(appState),
		newLayoutCmd(appState),
		newTokenCmd(appState),
	)
	return rootCmd
}
