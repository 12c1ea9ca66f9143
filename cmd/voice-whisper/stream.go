package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hewenyu/voice-whisper/internal/app"
	"github.com/hewenyu/voice-whisper/internal/audio"
	"github.com/hewenyu/voice-whisper/internal/logging"
	"github.com/hewenyu/voice-whisper/internal/recorder"
	"github.com/hewenyu/voice-whisper/internal/transcribe"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Capture live audio and transcribe it continuously",
	RunE:  runStream,
}

func init() {
	f := streamCmd.Flags()
	f.String("source", "loopback", "capture source: loopback or mic")
	f.Uint32("pid", 0, "capture only this process's audio session")
	f.Int("step", 3000, "audio step size in milliseconds (<=0 enables VAD mode)")
	f.Int("length", 10000, "audio window length in milliseconds")
	f.Int("keep", 200, "audio carried between windows in milliseconds")
	f.Float32("vad-thold", 0.6, "voice activity detection threshold")
	f.String("model", "base.en", "whisper model name")
	f.String("language", "auto", "spoken language, or auto")
	f.Int("threads", 0, "recognition threads (0 = auto)")
	f.Bool("translate", false, "translate from source language to english")
	f.Bool("save-audio", false, "also save the captured audio to a WAV file")
	f.String("file", "", "append the transcript to this file")
	f.String("log-level", "info", "log level: debug, info, warn, error")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	endpoint, err := newEndpoint(cfg.Capture.Source, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open capture source")
		return err
	}

	engine := audio.NewEngine(endpoint, log)
	defer engine.Close()

	var rec *recorder.Recorder
	if cfg.SaveAudio {
		rec, err = recorder.New(recorder.DefaultFilename(), audio.TargetSampleRate)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create recording file")
			return err
		}
		defer rec.Close()
	}

	tr, err := transcribe.New(cfg.Whisper)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize whisper")
		return err
	}
	defer tr.Close()

	var transcript *os.File
	if cfg.OutputFile != "" {
		transcript, err = os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Error().Err(err).Str("file", cfg.OutputFile).Msg("Failed to open transcript file")
			return err
		}
		defer transcript.Close()
	}

	pipeline := app.New(app.Config{
		Capture:     engine,
		Transcriber: tr,
		Recorder:    optionalRecorder(rec),
		Config:      cfg,
		Logger:      log,
		Sink: func(s transcribe.Segment) {
			line := fmt.Sprintf("[%s --> %s]  %s", formatTimestamp(s.Start), formatTimestamp(s.End), s.Text)
			fmt.Println(line)
			if transcript != nil {
				fmt.Fprintln(transcript, line)
			}
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Println("[Start speaking or playing audio, Ctrl+C to stop]")
	return pipeline.Run(ctx)
}

// optionalRecorder keeps a nil *recorder.Recorder from becoming a non-nil
// interface value.
func optionalRecorder(rec *recorder.Recorder) app.SampleWriter {
	if rec == nil {
		return nil
	}
	return rec
}

// formatTimestamp renders a stream offset as hh:mm:ss.mmm.
func formatTimestamp(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
