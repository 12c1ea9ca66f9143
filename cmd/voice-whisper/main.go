package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hewenyu/voice-whisper/internal/audio"
	"github.com/hewenyu/voice-whisper/internal/config"
	"github.com/hewenyu/voice-whisper/internal/permissions"
	"github.com/rs/zerolog"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "voice-whisper",
	Short: "Live system-audio capture and transcription",
	Long: `voice-whisper captures the audio your machine is playing (or a single
application's audio session) and transcribes it live with Whisper.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("voice-whisper %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newEndpoint picks the capture source: the render endpoint's loopback mix,
// or the default microphone.
func newEndpoint(source string, logger zerolog.Logger) (audio.Endpoint, error) {
	switch source {
	case config.SourceMic:
		if err := permissions.EnsureMicrophone(); err != nil {
			return nil, err
		}
		return audio.NewMicEndpoint(logger)
	default:
		return audio.NewLoopbackEndpoint(logger)
	}
}

// loadConfig reads the config file and applies any flags the user set on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Capture.Source, _ = flags.GetString("source")
	}
	if flags.Changed("pid") {
		cfg.Capture.PID, _ = flags.GetUint32("pid")
	}
	if flags.Changed("step") {
		cfg.Capture.StepMS, _ = flags.GetInt("step")
	}
	if flags.Changed("length") {
		cfg.Capture.LengthMS, _ = flags.GetInt("length")
	}
	if flags.Changed("keep") {
		cfg.Capture.KeepMS, _ = flags.GetInt("keep")
	}
	if flags.Changed("vad-thold") {
		v, _ := flags.GetFloat32("vad-thold")
		cfg.Capture.VADThreshold = v
	}
	if flags.Changed("model") {
		cfg.Whisper.Model, _ = flags.GetString("model")
	}
	if flags.Changed("language") {
		cfg.Whisper.Language, _ = flags.GetString("language")
	}
	if flags.Changed("threads") {
		cfg.Whisper.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("translate") {
		cfg.Whisper.Translate, _ = flags.GetBool("translate")
	}
	if flags.Changed("save-audio") {
		cfg.SaveAudio, _ = flags.GetBool("save-audio")
	}
	if flags.Changed("file") {
		cfg.OutputFile, _ = flags.GetString("file")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return cfg, nil
}
