package models

import (
	"testing"
)

func TestSwitchTypeValid(t *testing.T) {
	for _, st := range []SwitchType{SwitchOffline, SwitchPrevious, SwitchLow, SwitchNormal} {
		if !st.Valid() {
			t.Errorf("Expected %q to be valid", st)
		}
	}

	if SwitchType("degraded").Valid() {
		t.Error("Unknown switch type should not be valid")
	}
	if SwitchType("").Valid() {
		t.Error("Empty switch type should not be valid")
	}
}

func TestEventForDecision(t *testing.T) {
	tests := []struct {
		decision SwitchType
		event    string
		ok       bool
	}{
		{SwitchOffline, WebhookEventStreamOffline, true},
		{SwitchLow, WebhookEventStreamLow, true},
		{SwitchNormal, WebhookEventStreamNormal, true},
		{SwitchPrevious, "", false},
	}

	for _, tt := range tests {
		event, ok := EventForDecision(tt.decision)
		if ok != tt.ok {
			t.Errorf("EventForDecision(%q): expected ok=%v, got %v", tt.decision, tt.ok, ok)
		}
		if event != tt.event {
			t.Errorf("EventForDecision(%q): expected %q, got %q", tt.decision, tt.event, event)
		}
	}
}

func TestWebhookEventsSubscribed(t *testing.T) {
	events := WebhookEvents{StreamOffline: true, StreamNormal: true}

	if !events.Subscribed(WebhookEventStreamOffline) {
		t.Error("Expected subscription to stream.offline")
	}
	if events.Subscribed(WebhookEventStreamLow) {
		t.Error("Did not expect subscription to stream.low")
	}
	if !events.Subscribed(WebhookEventStreamNormal) {
		t.Error("Expected subscription to stream.normal")
	}
	if events.Subscribed("stream.unknown") {
		t.Error("Unknown event should never be subscribed")
	}
}

func TestWebhookEventsScan(t *testing.T) {
	value, err := WebhookEvents{StreamLow: true}.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned WebhookEvents
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if !scanned.StreamLow || scanned.StreamOffline {
		t.Errorf("Scanned events mismatch: %+v", scanned)
	}
}
