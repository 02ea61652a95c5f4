package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/cli/ui"
	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/phone"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <destination> <text>...",
	Short: "Submit a message for delivery",
	Long: `Submit a message to the platform. The destination must be a phone
number in international format (with the + country prefix); the remaining
arguments are joined into the message text.

Examples:
  plussms send +4917512345678 "Server is back up"
  plussms send +4917512345678 Disk /var almost full --orig alerts
  plussms send +4917512345678 "Hi" --wait --max-wait 1m`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSend,
}

func init() {
	serviceFlags(sendCmd)
	sendCmd.Flags().String("orig", "", "Sender ID (overrides config)")
	sendCmd.Flags().String("encoding", "", "Text encoding: iso, gsm, utf-8 or ucs2")
	sendCmd.Flags().Int("max-parts", 0, "Number of parts a text over 160 characters may be split into")
	sendCmd.Flags().Bool("debug", false, "Simulate the submission; nothing is delivered")
	sendCmd.Flags().Bool("no-report", false, "Do not request delivery tracking (no handle is returned)")
	sendCmd.Flags().Bool("raw-dest", false, "Pass the destination through without validation")
	sendCmd.Flags().Bool("wait", false, "Wait until the message arrives before exiting")
	sendCmd.Flags().Duration("max-wait", 2*time.Minute, "With --wait, give up after this long (0 waits indefinitely)")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	encoding, _ := cmd.Flags().GetString("encoding")
	switch encoding {
	case "", "iso", "gsm", "utf-8", "ucs2":
	default:
		return fmt.Errorf("unknown encoding %q (expected iso, gsm, utf-8 or ucs2)", encoding)
	}

	wait, _ := cmd.Flags().GetBool("wait")
	noReport, _ := cmd.Flags().GetBool("no-report")
	debug, _ := cmd.Flags().GetBool("debug")
	if wait && (noReport || debug) {
		return fmt.Errorf("--wait needs a delivery report; drop --no-report and --debug")
	}

	dest := args[0]
	country := ""
	if rawDest, _ := cmd.Flags().GetBool("raw-dest"); !rawDest {
		normalized, err := phone.Normalize(dest)
		if err != nil {
			return fmt.Errorf("destination %q: %w (use --raw-dest to skip validation)", dest, err)
		}
		dest = normalized
		country = phone.Country(dest)
	}

	msg := plusserver.NewSMS(dest, strings.Join(args[1:], " "))
	msg.Orig, _ = cmd.Flags().GetString("orig")
	msg.Encoding = encoding
	msg.MaxParts, _ = cmd.Flags().GetInt("max-parts")
	msg.Debug = debug
	if noReport {
		msg.RegisteredDelivery = false
	}

	svc := newService(cmd, cfg)
	result, err := msg.Send(cmd.Context(), svc, nil)
	if err != nil {
		return err
	}

	state := ""
	if wait && result.HandleID != "" {
		maxWait, _ := cmd.Flags().GetDuration("max-wait")
		state, err = waitForArrival(cmd, svc, result.HandleID, maxWait)
		if err != nil {
			return err
		}
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		out := map[string]any{"destination": dest}
		if country != "" {
			out["country"] = country
		}
		if result.HandleID != "" {
			out["handle"] = result.HandleID
		} else {
			out["ok"] = result.OK
		}
		if state != "" {
			out["state"] = state
		}
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			return err
		}
	} else {
		color := colorEnabled()
		fmt.Printf("%s %s\n", green(ui.SymbolCheck, color), bold("Message accepted", color))
		if country != "" {
			fmt.Printf("  Destination: %s %s\n", dest, dim("("+country+")", color))
		} else {
			fmt.Printf("  Destination: %s\n", dest)
		}
		if result.HandleID != "" {
			fmt.Printf("  Handle: %s\n", cyan(result.HandleID, color))
		}
		if state != "" {
			fmt.Printf("  State: %s\n", state)
		} else if result.HandleID != "" {
			fmt.Printf("\n%s\n", dim("Check delivery with: plussms state "+result.HandleID, color))
		}
	}

	if wait && state != plusserver.StateArrived {
		if state == "" {
			state = "unknown"
		}
		return fmt.Errorf("message has not arrived (last state: %s)", state)
	}
	return nil
}
