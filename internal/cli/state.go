package cli

import (
	"encoding/json"
	"fmt"
	"os"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/cli/ui"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state <handle>",
	Short: "Check the delivery state of a sent message",
	Long: `Check the delivery state recorded for a message handle. The handle is
printed by "plussms send" for messages submitted with delivery tracking.

States: new, processed, arrived, retry, error. Only "arrived" is final.`,
	Args: cobra.ExactArgs(1),
	RunE: runState,
}

func init() {
	serviceFlags(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc := newService(cmd, cfg)

	resp, err := svc.CheckSMSState(cmd.Context(), args[0], nil)
	if err != nil {
		return err
	}

	state := resp.State()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"handle":  args[0],
			"state":   state,
			"arrived": state == plusserver.StateArrived,
		})
	}

	fmt.Println(stateLine(state))
	return nil
}

// stateLine renders a delivery state with its status symbol.
func stateLine(state string) string {
	color := colorEnabled()
	switch state {
	case plusserver.StateArrived:
		return green(ui.SymbolCheck+" arrived", color)
	case plusserver.StateError:
		return red(ui.SymbolCross+" error", color)
	case plusserver.StateRetry:
		return yellow(ui.SymbolWarning+" retry", color)
	case "":
		return dim("no state reported", color)
	default:
		return cyan(ui.SymbolDot+" "+state, color)
	}
}
