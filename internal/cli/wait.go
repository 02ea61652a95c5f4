package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/cli/ui"
	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait <handle>",
	Short: "Wait until a message arrives",
	Long: `Poll the platform until the message reaches the terminal "arrived"
state or the wait budget runs out. Exits non-zero when the message has
not arrived in time.`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	serviceFlags(waitCmd)
	waitCmd.Flags().Duration("max-wait", 2*time.Minute, "Give up after this long (0 waits indefinitely)")
	waitCmd.Flags().Duration("interval", 0, "Pause between state checks (overrides config)")
}

func runWait(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Service.WaitInterval = int(interval.Milliseconds())
	}
	svc := newService(cmd, cfg)

	maxWait, _ := cmd.Flags().GetDuration("max-wait")
	start := time.Now()
	state, err := waitForArrival(cmd, svc, args[0], maxWait)
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(map[string]any{
			"handle":  args[0],
			"state":   state,
			"arrived": state == plusserver.StateArrived,
			"waited":  time.Since(start).Round(time.Millisecond).String(),
		}); err != nil {
			return err
		}
	} else {
		fmt.Println(stateLine(state))
	}

	if state != plusserver.StateArrived {
		if state == "" {
			state = "unknown"
		}
		return fmt.Errorf("message has not arrived (last state: %s)", state)
	}
	return nil
}

// waitForArrival polls the platform until the message arrives or the
// budget runs out, showing progress on stderr. It returns the last
// observed state, which may be "" when no check succeeded.
func waitForArrival(cmd *cobra.Command, svc *plusserver.Service, handleID string, budget time.Duration) (string, error) {
	sp := ui.NewStepSpinner(os.Stderr, !colorEnabled())
	sp.Start("Waiting for delivery...")

	// One immediate check so the spinner can show where the message
	// currently stands.
	resp, err := svc.CheckSMSState(cmd.Context(), handleID, nil)
	if err != nil {
		sp.Fail()
		return "", err
	}
	state := resp.State()
	if state != "" && state != plusserver.StateArrived {
		sp.Update(fmt.Sprintf("Waiting for delivery... (state: %s)", state))
	}

	if state != plusserver.StateArrived {
		resp, err = svc.WaitUntilArrived(cmd.Context(), handleID, &plusserver.CallOptions{Timeout: budget})
		if err != nil {
			sp.Fail()
			return "", err
		}
		if resp != nil {
			state = resp.State()
		}
	}

	if state == plusserver.StateArrived {
		sp.Done()
	} else {
		sp.Fail()
	}
	return state, nil
}
