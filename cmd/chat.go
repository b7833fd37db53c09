package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/theapemachine/hivemind/pkg/logging"
	"github.com/theapemachine/hivemind/pkg/ui"
)

var (
	chatCmd = &cobra.Command{
		Use:   "chat [files...]",
		Short: "Chat with your documents in the terminal",
		Long:  longChat,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(cfg.Log.File); err != nil {
				return err
			}

			defer logging.Close()

			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg)

			if err != nil {
				return err
			}

			defer st.Close()

			if err = st.preload(ctx, args); err != nil {
				log.Warn("some documents were not indexed", "error", err)
			}

			if _, err = tea.NewProgram(
				ui.New(ctx, st.engine, st.worker),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
				tea.WithContext(ctx),
			).Run(); err != nil {
				log.Error("error while running program", "error", err)
				return err
			}

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var longChat = `
Open an interactive chat. Files given on the command line are indexed before
the chat starts; more can be added with /ingest while chatting. Logs go to
log.file so they do not disturb the screen.

Examples:
  hivemind chat papers/*.txt
`
