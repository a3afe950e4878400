package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the worker's startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	name := config.Worker.Name
	if name == "" {
		name = "(unnamed)"
	}

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(72)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("WORKDISPATCH")
	b.PrintCenteredText("work-dispatch worker")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Worker", name, 15)
	b.PrintKeyValue("Coordinator", config.Coordinator.URL, 15)
	b.PrintKeyValue("Capabilities", fmt.Sprintf("%v", config.Worker.Capabilities), 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("worker_name", name).
		Str("coordinator_url", config.Coordinator.URL).
		Strs("capabilities", config.Worker.Capabilities).
		Msg("Worker started")
}

// PrintShutdownBanner displays the shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorYellow).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("Worker shutting down")
}
