package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hewenyu/voice-whisper/internal/audio"
	"github.com/hewenyu/voice-whisper/internal/logging"
)

// maxApps bounds one enumeration pass.
const maxApps = 100

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List applications currently playing audio",
	RunE:  runApps,
}

func init() {
	appsCmd.Flags().String("log-level", "warn", "log level: debug, info, warn, error")
}

func runApps(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	log := logging.NewWithLevel(level)

	endpoint, err := audio.NewLoopbackEndpoint(log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open audio endpoint")
		return err
	}

	engine := audio.NewEngine(endpoint, log)
	defer engine.Close()

	apps, err := engine.Applications(maxApps)
	if err != nil {
		log.Error().Err(err).Msg("Failed to enumerate audio sessions")
		return err
	}

	fmt.Println()
	fmt.Println("Available applications for audio capture:")
	fmt.Println("----------------------------------------")
	if len(apps) == 0 {
		fmt.Println("(none - no process is rendering audio right now)")
	}
	for _, app := range apps {
		fmt.Printf("PID: %d - %s\n", app.PID, app.ExePath)
	}
	fmt.Println("----------------------------------------")
	fmt.Println("Use stream --pid <PID> to capture a specific application")
	fmt.Println()

	return nil
}
