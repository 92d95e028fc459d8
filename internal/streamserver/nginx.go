package streamserver

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/streamop/switchwatch/internal/logging"
	"github.com/streamop/switchwatch/pkg/models"
)

// NginxStatsRefreshInterval is how often nginx-rtmp regenerates its stats
// page. Polling faster than this reads the same sample twice.
const NginxStatsRefreshInterval = 10 * time.Second

const nginxRequestTimeout = 10 * time.Second

// NginxConfig identifies one stream on an nginx-rtmp stats endpoint.
// Immutable for the lifetime of the backend instance.
type NginxConfig struct {
	// StatsURL is the URL of the nginx-rtmp XML stats page
	StatsURL string `json:"statsUrl"`

	// Application is the rtmp application block the stream publishes to
	Application string `json:"application"`

	// Key is the stream key isolating one publish among many
	Key string `json:"key"`
}

// Nginx probes an nginx-rtmp stats endpoint.
type Nginx struct {
	cfg    NginxConfig
	client *http.Client
	log    *logging.Logger
}

// NewNginx creates an nginx-rtmp backend. The HTTP client carries an
// explicit timeout so a hanging stats endpoint cannot stall a probe cycle
// indefinitely.
func NewNginx(cfg NginxConfig, log *logging.Logger) (*Nginx, error) {
	if cfg.StatsURL == "" {
		return nil, errors.New("stats url is required")
	}
	if _, err := url.ParseRequestURI(cfg.StatsURL); err != nil {
		return nil, errors.New("stats url is invalid")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &Nginx{
		cfg: cfg,
		// TODO: enable connection reuse across probes once the poller
		// owns client lifecycle
		client: &http.Client{Timeout: nginxRequestTimeout},
		log:    log,
	}, nil
}

// Kind returns the persisted discriminant for this backend.
func (n *Nginx) Kind() string {
	return models.ServerKindNginxRTMP
}

// Config returns the backend configuration.
func (n *Nginx) Config() NginxConfig {
	return n.cfg
}

// nginx-rtmp stats document: server/application[]/live/stream[].
// The root element name is not pinned so both the plain stats XML and
// stylesheet-wrapped variants decode.
type nginxRTMPStats struct {
	Server nginxRTMPServer `xml:"server"`
}

type nginxRTMPServer struct {
	Applications []nginxRTMPApp `xml:"application"`
}

type nginxRTMPApp struct {
	Name string        `xml:"name"`
	Live nginxRTMPLive `xml:"live"`
}

type nginxRTMPLive struct {
	Streams []NginxStream `xml:"stream"`
}

// NginxStream is the per-stream measurement extracted from the stats page.
// BWVideo is in bits per second, the server's native unit.
type NginxStream struct {
	Name    string      `xml:"name"`
	BWVideo int64       `xml:"bw_video"`
	Meta    *StreamMeta `xml:"meta"`
}

// StreamMeta carries the media metadata nginx-rtmp reports for a publish.
type StreamMeta struct {
	Video VideoMeta `xml:"video"`
	Audio AudioMeta `xml:"audio"`
}

// VideoMeta describes the published video track.
type VideoMeta struct {
	Width     int      `xml:"width"`
	Height    int      `xml:"height"`
	FrameRate int      `xml:"frame_rate"`
	Codec     string   `xml:"codec"`
	Profile   string   `xml:"profile"`
	Compat    *int64   `xml:"compat"`
	Level     *float64 `xml:"level"`
}

// AudioMeta describes the published audio track.
type AudioMeta struct {
	Codec      string `xml:"codec"`
	Profile    string `xml:"profile"`
	Channels   *int   `xml:"channels"`
	SampleRate *int   `xml:"sample_rate"`
}

// getStats fetches and parses the stats page and extracts the record for
// the configured application/key pair. Any failure (transport, non-2xx
// status, malformed document, no matching record) yields nil; errors are
// logged here and never escalated. A bw_video of zero means the stream just
// started and statistics have not accumulated yet, not that it is offline.
func (n *Nginx) getStats(ctx context.Context) *NginxStream {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.StatsURL, nil)
	if err != nil {
		n.log.WithError(err).Errorf("Failed to build stats request (%s)", n.cfg.StatsURL)
		return nil
	}

	res, err := n.client.Do(req)
	if err != nil {
		n.log.WithError(err).Errorf("Stats page (%s) is unreachable", n.cfg.StatsURL)
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		n.log.Errorf("Error accessing stats page (%s): status %d", n.cfg.StatsURL, res.StatusCode)
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		n.log.WithError(err).Errorf("Failed to read stats page (%s)", n.cfg.StatsURL)
		return nil
	}

	var parsed nginxRTMPStats
	if err := xml.Unmarshal(body, &parsed); err != nil {
		n.log.Trace(string(body))
		n.log.WithError(err).Errorf("Error parsing stats (%s)", n.cfg.StatsURL)
		return nil
	}

	// Last match wins when the server misreports the same key twice.
	var selected *NginxStream
	for _, app := range parsed.Server.Applications {
		if app.Name != n.cfg.Application {
			continue
		}
		for i := range app.Live.Streams {
			if app.Live.Streams[i].Name == n.cfg.Key {
				selected = &app.Live.Streams[i]
			}
		}
	}

	if selected != nil {
		n.log.Tracef("extracted stream record: %+v", *selected)
	}
	return selected
}

// Switch probes the stats endpoint and classifies the configured stream.
func (n *Nginx) Switch(ctx context.Context, triggers *models.Triggers) models.SwitchType {
	decision, _ := n.Probe(ctx, triggers)
	return decision
}

// Probe fetches the stats page once and returns both the classification and
// the bitrate of the record it classified, so a poller never mixes values
// from two fetches.
func (n *Nginx) Probe(ctx context.Context, triggers *models.Triggers) (models.SwitchType, int64) {
	stats := n.getStats(ctx)
	if stats == nil {
		return models.SwitchOffline, 0
	}

	kbps := stats.BWVideo / 1024
	return Classify(kbps, triggers), kbps
}

// Bitrate reports the current video bitrate in kbps.
func (n *Nginx) Bitrate(ctx context.Context) (string, bool) {
	stats := n.getStats(ctx)
	if stats == nil {
		return "", false
	}

	return strconv.FormatInt(stats.BWVideo/1024, 10), true
}

// SourceInfo is not supported by the nginx-rtmp backend.
func (n *Nginx) SourceInfo(ctx context.Context) (string, error) {
	return "", ErrSourceInfoUnsupported
}
