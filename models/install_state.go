package models

import (
	"errors"
	"strings"
)

// Platform is the coarse device class used to pick install instructions.
type Platform string

const (
	PlatformIOS   Platform = "ios"
	PlatformOther Platform = "other"
)

// DetectPlatform classifies a browser User-Agent. iOS browsers have no
// native install prompt, so they always get manual instructions.
func DetectPlatform(userAgent string) Platform {
	for _, marker := range []string{"iPad", "iPhone", "iPod"} {
		if strings.Contains(userAgent, marker) {
			return PlatformIOS
		}
	}
	return PlatformOther
}

// InstallPhase is the installability state of the app on a device.
type InstallPhase string

const (
	// InstallNoNativeSupport means no native install prompt has been
	// offered; manual instructions apply.
	InstallNoNativeSupport InstallPhase = "no-native-support"
	// InstallAvailable means a deferred native prompt has been captured
	// and can be invoked.
	InstallAvailable InstallPhase = "available"
	// InstallConsumed means the captured prompt was invoked; it cannot be
	// invoked again this session.
	InstallConsumed InstallPhase = "consumed"
	// InstallDismissed means the user rejected the install suggestion.
	// The flag is durable on the client side.
	InstallDismissed InstallPhase = "dismissed"
	// InstallInstalled means the app runs standalone or was just installed.
	InstallInstalled InstallPhase = "installed"
)

// InstallOutcome is the user's answer to a native install prompt.
type InstallOutcome string

const (
	OutcomeAccepted  InstallOutcome = "accepted"
	OutcomeDismissed InstallOutcome = "dismissed"
)

// InstallTrigger is a captured deferred install prompt.
type InstallTrigger interface {
	Prompt() (InstallOutcome, error)
}

// ErrNoTrigger is returned when Invoke is called without a captured prompt.
var ErrNoTrigger = errors.New("no install trigger available")

// InstallState tracks whether and how the app can be installed on the
// current device. A tagged phase replaces the untyped capture of the
// platform event object.
type InstallState struct {
	phase    InstallPhase
	platform Platform
	trigger  InstallTrigger
}

// NewInstallState derives the initial state from what the client reports:
// its platform, whether it already runs standalone, and whether the user
// previously dismissed the install suggestion.
func NewInstallState(platform Platform, standalone bool, dismissed bool) *InstallState {
	s := &InstallState{platform: platform}
	switch {
	case standalone:
		s.phase = InstallInstalled
	case dismissed:
		s.phase = InstallDismissed
	default:
		s.phase = InstallNoNativeSupport
	}
	return s
}

func (s *InstallState) Phase() InstallPhase { return s.phase }

func (s *InstallState) Platform() Platform { return s.platform }

// PromptAvailable captures a deferred native install trigger. Ignored once
// installed; a dismissal is overridden since the platform re-offered.
func (s *InstallState) PromptAvailable(t InstallTrigger) {
	if s.phase == InstallInstalled {
		return
	}
	s.trigger = t
	s.phase = InstallAvailable
}

// AppInstalled flips to the installed state permanently for this session.
func (s *InstallState) AppInstalled() {
	s.phase = InstallInstalled
	s.trigger = nil
}

// Dismiss records that the user declined the install suggestion.
func (s *InstallState) Dismiss() {
	if s.phase == InstallInstalled {
		return
	}
	s.phase = InstallDismissed
	s.trigger = nil
}

// Invoke fires the captured trigger and interprets its outcome. The
// trigger is cleared regardless of outcome: a deferred prompt can only be
// used once.
func (s *InstallState) Invoke() (InstallOutcome, error) {
	if s.phase != InstallAvailable || s.trigger == nil {
		return "", ErrNoTrigger
	}
	trigger := s.trigger
	s.trigger = nil
	s.phase = InstallConsumed

	outcome, err := trigger.Prompt()
	if err != nil {
		return "", err
	}
	switch outcome {
	case OutcomeAccepted:
		s.phase = InstallInstalled
	case OutcomeDismissed:
		s.phase = InstallDismissed
	}
	return outcome, nil
}

// ManualInstructions returns the per-platform steps shown when no native
// prompt is available.
func (s *InstallState) ManualInstructions() []string {
	if s.platform == PlatformIOS {
		return []string{
			"Tap the share button at the bottom",
			"Scroll down and tap \"Add to Home Screen\"",
			"Tap \"Add\" to install",
		}
	}
	return []string{
		"Look for the install icon in your browser's address bar",
		"Or click the menu button and select \"Install app\"",
	}
}
