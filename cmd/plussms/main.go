package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/cli"
	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/cli/ui"
)

// Set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError(err.Error(), suggestions(err)...))
		os.Exit(1)
	}
}

// suggestions maps well-known client errors to next steps.
func suggestions(err error) []string {
	var confErr *plusserver.ConfigurationError
	if errors.As(err, &confErr) {
		return []string{
			"plussms config set service.username <user>",
			"plussms config set service.password <secret>",
			"or export PLUSSMS_USERNAME and PLUSSMS_PASSWORD",
		}
	}

	if plusserver.IsTimeout(err) {
		return []string{"raise the limit with --timeout <seconds>"}
	}

	var reqErr *plusserver.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.StatusCode == http.StatusUnauthorized || reqErr.StatusCode == http.StatusForbidden {
			return []string{"check service.username and service.password"}
		}
	}
	return nil
}
