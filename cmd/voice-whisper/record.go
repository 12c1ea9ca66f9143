package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hewenyu/voice-whisper/internal/audio"
	"github.com/hewenyu/voice-whisper/internal/logging"
	"github.com/hewenyu/voice-whisper/internal/recorder"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture live audio to a WAV file without transcribing",
	RunE:  runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.String("source", "loopback", "capture source: loopback or mic")
	f.Uint32("pid", 0, "capture only this process's audio session")
	f.String("output", "", "output WAV path (default: timestamped filename)")
	f.Duration("duration", 0, "stop after this long (0 = until Ctrl+C)")
	f.String("log-level", "info", "log level: debug, info, warn, error")
}

func runRecord(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	pid, _ := cmd.Flags().GetUint32("pid")
	output, _ := cmd.Flags().GetString("output")
	duration, _ := cmd.Flags().GetDuration("duration")
	level, _ := cmd.Flags().GetString("log-level")

	log := logging.NewWithLevel(level)

	if output == "" {
		output = recorder.DefaultFilename()
	}

	endpoint, err := newEndpoint(source, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open capture source")
		return err
	}

	engine := audio.NewEngine(endpoint, log)
	defer engine.Close()

	if err := engine.Initialize(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize audio capture")
		return err
	}

	rec, err := recorder.New(output, audio.TargetSampleRate)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create recording file")
		return err
	}
	defer rec.Close()

	if err := engine.SetCallback(func(samples []float32) {
		if err := rec.Write(samples); err != nil {
			log.Warn().Err(err).Msg("Failed to write recording")
		}
	}); err != nil {
		log.Error().Err(err).Msg("Failed to attach capture callback")
		return err
	}

	if pid > 0 {
		err = engine.StartProcess(pid)
	} else {
		err = engine.Start()
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to start capture")
		return err
	}
	defer engine.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, duration)
		defer timeoutCancel()
	}

	fmt.Printf("Recording to %s (Ctrl+C to stop)\n", output)
	<-ctx.Done()

	// Let the last packets drain before the header is finalized.
	time.Sleep(100 * time.Millisecond)

	log.Info().Str("file", output).Msg("Recording finished")
	return nil
}
