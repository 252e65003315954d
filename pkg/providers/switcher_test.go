package providers

import (
	"errors"
	"testing"

	"github.com/tambourinehq/tambourine/pkg/errorsx"
)

type recordingSwitcher struct {
	activated []string
	fail      error
}

func (s *recordingSwitcher) Activate(id string) error {
	if s.fail != nil {
		return s.fail
	}
	s.activated = append(s.activated, id)
	return nil
}

func parseSTT(value string) (string, error) {
	id, err := ParseSTTProviderID(value)
	return string(id), err
}

func newSTTController(sw Switcher, available ...string) *Controller {
	return NewController(KindSTT, "deepgram", available, parseSTT, sw)
}

func TestSwitchUnknownProvider(t *testing.T) {
	sw := &recordingSwitcher{}
	ctl := newSTTController(sw, "deepgram", "assemblyai")
	ctl.OnStart()

	_, err := ctl.Switch("not-a-provider")
	if !errorsx.HasReason(err, errorsx.ReasonUnknownProvider) {
		t.Fatalf("expected unknown_provider, got %v", err)
	}
	if len(sw.activated) != 0 {
		t.Fatalf("switcher must not be notified on failure")
	}
}

func TestSwitchUnavailableProvider(t *testing.T) {
	ctl := newSTTController(&recordingSwitcher{}, "deepgram")
	ctl.OnStart()

	// cartesia is a valid id but has no credentials in this session.
	_, err := ctl.Switch("cartesia")
	if !errorsx.HasReason(err, errorsx.ReasonProviderUnavailable) {
		t.Fatalf("expected provider_unavailable, got %v", err)
	}
}

func TestSwitchBeforeStart(t *testing.T) {
	ctl := newSTTController(&recordingSwitcher{}, "deepgram", "assemblyai")

	_, err := ctl.Switch("assemblyai")
	if !errorsx.HasReason(err, errorsx.ReasonPipelineNotReady) {
		t.Fatalf("expected pipeline_not_ready, got %v", err)
	}
}

func TestSwitchSuccessUpdatesActive(t *testing.T) {
	sw := &recordingSwitcher{}
	ctl := newSTTController(sw, "deepgram", "assemblyai")
	ctl.OnStart()

	id, err := ctl.Switch("assemblyai")
	if err != nil {
		t.Fatalf("switch error: %v", err)
	}
	if id != "assemblyai" || ctl.Active() != "assemblyai" {
		t.Fatalf("active not updated: %s", ctl.Active())
	}
	if len(sw.activated) != 1 || sw.activated[0] != "assemblyai" {
		t.Fatalf("switcher not notified: %v", sw.activated)
	}
}

func TestSwitchToActiveIsIdempotentNoOp(t *testing.T) {
	sw := &recordingSwitcher{}
	ctl := newSTTController(sw, "deepgram", "assemblyai")
	ctl.OnStart()

	id, err := ctl.Switch("deepgram")
	if err != nil {
		t.Fatalf("re-switch error: %v", err)
	}
	if id != "deepgram" {
		t.Fatalf("expected echoed id, got %s", id)
	}
	if len(sw.activated) != 0 {
		t.Fatalf("idempotent re-switch must not re-notify the switcher")
	}
}

func TestSwitchActivateFailureKeepsActive(t *testing.T) {
	sw := &recordingSwitcher{fail: errors.New("handoff failed")}
	ctl := newSTTController(sw, "deepgram", "assemblyai")
	ctl.OnStart()

	_, err := ctl.Switch("assemblyai")
	if err == nil {
		t.Fatalf("expected activate failure to surface")
	}
	if ctl.Active() != "deepgram" {
		t.Fatalf("active must be unchanged after failed handoff, got %s", ctl.Active())
	}
}

func TestSwitchNormalizesCase(t *testing.T) {
	sw := &recordingSwitcher{}
	ctl := newSTTController(sw, "deepgram", "assemblyai")
	ctl.OnStart()

	id, err := ctl.Switch("  AssemblyAI ")
	if err != nil {
		t.Fatalf("switch error: %v", err)
	}
	if id != "assemblyai" {
		t.Fatalf("expected normalized id, got %s", id)
	}
}
