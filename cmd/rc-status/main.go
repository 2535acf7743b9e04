// Command rc-status renders the live runlevel/service status dashboard
// built in internal/tui, polling pkg/svcstate through
// tui.CollectRunlevel. Grounded on the teacher's cmd/dev.go, which
// likewise boots a Bubble Tea program (the quick-menu/toast dashboard)
// as a thin main() around an internal/tui model.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"openrc-go/internal/appenv"
	"openrc-go/internal/rclog"
	"openrc-go/internal/tui"
	"openrc-go/pkg/depgraph"
)

var (
	systemRoot string
	runlevel   string
	watchDeps  bool
)

func main() {
	root := &cobra.Command{
		Use:   "rc-status",
		Short: "Show a live dashboard of service status for a runlevel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	root.PersistentFlags().StringVar(&systemRoot, "root", "/", "system root (for testing under an alternate tree)")
	root.Flags().StringVar(&runlevel, "runlevel", "default", "runlevel to display")
	root.Flags().BoolVar(&watchDeps, "watch-deps", false, "warn in the debug log when an init-script root changes under a live dashboard")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rc-status:", err)
		os.Exit(1)
	}
}

func showStatus() error {
	stateDir := appenv.DefaultStateDir(systemRoot)
	env, err := appenv.Load(stateDir, systemRoot, "/etc/openrc-go")
	if err != nil {
		return err
	}

	if watchDeps {
		watcher, werr := depgraph.NewWatcher(
			[]string{env.Layout.SystemInitDir, env.Layout.AdminOverrideDir},
			func() { rclog.Debug("rc-status: init-script tree changed, deptree cache may be stale") },
		)
		if werr != nil {
			rclog.Ewarn("rc-status: could not watch init-script roots: %v", werr)
		} else {
			stop := make(chan struct{})
			defer close(stop)
			go watcher.Run(stop)
		}
	}

	collect := tui.CollectRunlevel(env.Layout, env.RunlevelsRoot, runlevel)
	model := tui.New(collect, 2*time.Second)

	_, err = tea.NewProgram(model).Run()
	return err
}
