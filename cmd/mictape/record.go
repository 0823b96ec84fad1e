package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/petems/mictape/internal/audio"
	"github.com/petems/mictape/internal/effects"
	"github.com/petems/mictape/internal/metrics"
	"github.com/petems/mictape/internal/session"
)

var (
	recordOutput    string
	recordDevice    string
	recordEffect    string
	recordType      string
	recordTimeslice int
	metricsAddr     string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone until interrupted",
	Long: `Record captures microphone audio with the configured effect applied
live. Press Ctrl+C once to stop and save; a second Ctrl+C before the
save completes cancels and discards the take.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := audio.NewPortAudio(log)
		if err != nil {
			return fmt.Errorf("failed to initialize audio: %w", err)
		}
		defer engine.Close()

		reg := prometheus.NewRegistry()
		met := metrics.New(reg)
		addr := metricsAddr
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		if addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
				if err := http.ListenAndServe(addr, mux); err != nil {
					log.Error().Err(err).Msg("Metrics endpoint failed")
				}
			}()
		}

		effect, err := resolveEffect(recordEffect)
		if err != nil {
			return err
		}

		constraints := audio.Constraints{}
		device := recordDevice
		if device == "" {
			device = cfg.Capture.Device
		}
		if device != "" {
			constraints["device"] = device
		}
		if cfg.Capture.SampleRate > 0 {
			constraints["sample_rate"] = cfg.Capture.SampleRate
		}

		timeslice := time.Duration(recordTimeslice) * time.Millisecond
		if recordTimeslice <= 0 {
			timeslice = time.Duration(cfg.Capture.TimesliceMS) * time.Millisecond
		}
		preferred := recordType
		if preferred == "" {
			preferred = cfg.Capture.PreferredType
		}

		sess := session.New(session.Config{
			Engine:        engine,
			Constraints:   constraints,
			Timeslice:     timeslice,
			PreferredType: preferred,
			BitrateHint:   cfg.Capture.BitrateHint,
			MeterCadence:  time.Duration(cfg.Meter.CadenceMS) * time.Millisecond,
			InitialEffect: effect,
			OnNotSupported: func() {
				fmt.Fprintln(os.Stderr, "audio capture is not supported on this system")
			},
			Observer: session.Observer{
				OnStateChange: func(st session.State) {
					log.Info().Stringer("state", st).Msg("Session state changed")
				},
			},
			Logger:  log,
			Metrics: met,
		})
		defer sess.Close()

		sess.Start(cmd.Context())
		if !sess.IsRecording() {
			if sess.PermissionDenied() {
				return fmt.Errorf("microphone access denied")
			}
			if err := sess.LastErr(); err != nil {
				return err
			}
			return fmt.Errorf("recording did not start")
		}

		fmt.Printf("Recording (%s, effect: %s). Press Ctrl+C to stop.\n",
			sess.ContentType(), effect.Type)

		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		sess.Stop()

		done := make(chan struct{})
		go func() {
			select {
			case <-sigChan:
				sess.Cancel()
				fmt.Fprintln(os.Stderr, "cancelled, take discarded")
				os.Exit(1)
			case <-done:
			}
		}()

		a, _, ok := sess.Save()
		close(done)
		if !ok {
			return fmt.Errorf("nothing was recorded")
		}

		path := recordOutput
		if path == "" {
			path = fmt.Sprintf("capture-%s%s", time.Now().Format("20060102-150405"), extensionFor(a.ContentType))
		}
		if err := os.WriteFile(path, a.Data, 0644); err != nil {
			return fmt.Errorf("failed to write recording: %w", err)
		}
		fmt.Printf("Saved %d bytes (%s, %ds) to %s\n", len(a.Data), a.ContentType, sess.Duration(), path)
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output file (default capture-<timestamp>)")
	recordCmd.Flags().StringVar(&recordDevice, "device", "", "input device name (default from config)")
	recordCmd.Flags().StringVarP(&recordEffect, "effect", "e", "", "effect to apply: none, reverb, echo, distortion, lowpass, highpass, telephone, or a preset name")
	recordCmd.Flags().StringVar(&recordType, "type", "", "preferred content type (e.g. audio/wav)")
	recordCmd.Flags().IntVar(&recordTimeslice, "timeslice", 0, "chunk emission interval in ms (default from config)")
	recordCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint (overrides config)")
}

// resolveEffect looks the name up first among configured presets, then
// among the built-in effect types.
func resolveEffect(name string) (effects.Spec, error) {
	if name == "" {
		name = cfg.Effects.Initial
	}
	if name == "" {
		return effects.Defaults(effects.None), nil
	}
	if cfg.Effects.PresetsPath != "" {
		presets, err := effects.LoadPresets(cfg.Effects.PresetsPath)
		if err != nil {
			return effects.Spec{}, fmt.Errorf("failed to load presets: %w", err)
		}
		if spec, ok := presets[name]; ok {
			return spec, nil
		}
	}
	typ, err := effects.ParseType(name)
	if err != nil {
		return effects.Spec{}, fmt.Errorf("unknown effect %q", name)
	}
	return effects.Defaults(typ), nil
}

func extensionFor(contentType string) string {
	base := contentType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	switch base {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/aac":
		return ".m4a"
	case "audio/3gpp":
		return ".3gp"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/pcm", "audio/l16":
		return ".wav"
	}
	return ".bin"
}
