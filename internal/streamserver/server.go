package streamserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/streamop/switchwatch/internal/logging"
	"github.com/streamop/switchwatch/pkg/models"
)

var (
	// ErrUnknownServerKind is returned when a persisted configuration names
	// a backend kind this build does not support.
	ErrUnknownServerKind = errors.New("unknown stream server kind")

	// ErrSourceInfoUnsupported marks the SourceInfo command for backends
	// that have no stream-info query yet. Callers must treat it as a
	// capability gap, not a transient failure.
	ErrSourceInfoUnsupported = errors.New("source info not supported")
)

// StreamServer is the backend contract: fetch server-reported statistics for
// one configured stream and classify or report them. Implementations are
// stateless between calls; concurrent use is safe because nothing but
// immutable configuration is shared.
type StreamServer interface {
	// Kind returns the discriminant under which this backend's
	// configuration is persisted.
	Kind() string

	// Switch probes the stats endpoint and classifies the stream against
	// the given triggers. Every failure mode of the probe collapses to
	// SwitchOffline; raw errors never escape.
	Switch(ctx context.Context, triggers *models.Triggers) models.SwitchType

	// Probe fetches the stats once and returns the classification together
	// with the bitrate (kbps) of the record that was classified. Pollers
	// use this instead of Switch+Bitrate so decision and bitrate always
	// come from the same sample. A failed fetch yields SwitchOffline and
	// zero.
	Probe(ctx context.Context, triggers *models.Triggers) (models.SwitchType, int64)

	// Bitrate reports the current video bitrate in kbps as a decimal
	// string. ok is false when no data is available.
	Bitrate(ctx context.Context) (message string, ok bool)

	// SourceInfo returns a human-readable description of the published
	// source. Backends without the capability return
	// ErrSourceInfoUnsupported.
	SourceInfo(ctx context.Context) (string, error)
}

// New decodes a backend configuration for the given kind and returns the
// matching concrete backend. The kind/config pair is how heterogeneous
// backend configurations live in one persisted collection.
func New(kind string, config json.RawMessage, log *logging.Logger) (StreamServer, error) {
	switch kind {
	case models.ServerKindNginxRTMP:
		var cfg NginxConfig
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s config: %w", kind, err)
		}
		return NewNginx(cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownServerKind, kind)
	}
}

// FromModel instantiates the backend described by a persisted stream server
// record.
func FromModel(s *models.StreamServer, log *logging.Logger) (StreamServer, error) {
	return New(s.Kind, s.Config, log)
}

// Classify converts a fetched video bitrate (kbps) into a switch decision.
// The branches form a priority chain and their order is load-bearing:
//
//  1. a configured offline cutoff only fires on a nonzero bitrate at or
//     below it, marking a degraded, near-dead stream;
//  2. a literal zero means the stream just started and the server has not
//     accumulated statistics yet, so the current scene is held;
//  3. the low cutoff fires on anything at or below it;
//  4. everything else is normal.
//
// Pure function; callers needing hysteresis layer it on top.
func Classify(kbps int64, triggers *models.Triggers) models.SwitchType {
	if triggers == nil {
		triggers = &models.Triggers{}
	}

	if triggers.Offline != nil && kbps > 0 && kbps <= *triggers.Offline {
		return models.SwitchOffline
	}

	if kbps == 0 {
		return models.SwitchPrevious
	}

	if triggers.Low != nil && kbps <= *triggers.Low {
		return models.SwitchLow
	}

	return models.SwitchNormal
}
