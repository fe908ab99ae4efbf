// Package tts renders reply text as speech using the platform engine.
package tts

import (
	"os/exec"
	"runtime"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
)

// SystemSpeaker implements domain.Speaker with the native engine: `say`
// on macOS, SAPI via PowerShell on Windows, espeak elsewhere. Speak is
// fire-and-forget; playback runs on its own goroutine. A single-flight
// guard drops a remark that arrives while another is still playing, so
// back-to-back notifications don't stack audio.
type SystemSpeaker struct {
	rate    int // words per minute where the engine supports it
	logger  *zap.Logger
	playing atomic.Bool
}

// NewSystemSpeaker creates the platform speaker.
func NewSystemSpeaker(rate int, logger *zap.Logger) *SystemSpeaker {
	if rate <= 0 {
		rate = 180
	}
	return &SystemSpeaker{rate: rate, logger: logger}
}

// Speak renders text as speech without blocking the caller.
func (s *SystemSpeaker) Speak(text string) {
	if text == "" {
		return
	}
	if !s.playing.CompareAndSwap(false, true) {
		s.logger.Debug("speech in progress, dropping remark")
		return
	}

	go func() {
		defer s.playing.Store(false)
		if err := s.play(text); err != nil {
			s.logger.Warn("speech playback failed", zap.Error(err))
		}
	}()
}

func (s *SystemSpeaker) play(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("say", "-r", strconv.Itoa(s.rate), text).Run()
	case "windows":
		script := "Add-Type -AssemblyName System.Speech; " +
			"$v = New-Object System.Speech.Synthesis.SpeechSynthesizer; " +
			"$v.Speak([Console]::In.ReadToEnd())"
		cmd := exec.Command("powershell", "-NoProfile", "-Command", script)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			return err
		}
		_, _ = stdin.Write([]byte(text))
		_ = stdin.Close()
		return cmd.Wait()
	default:
		if _, err := exec.LookPath("espeak"); err != nil {
			s.logger.Debug("no speech engine available", zap.String("text", text))
			return nil
		}
		return exec.Command("espeak", "-s", strconv.Itoa(s.rate), text).Run()
	}
}

// NullSpeaker discards speech. Used when speech output is disabled.
type NullSpeaker struct{}

func (NullSpeaker) Speak(string) {}

var (
	_ domain.Speaker = (*SystemSpeaker)(nil)
	_ domain.Speaker = NullSpeaker{}
)
