// Package ingest runs the MQTT listener that turns broker messages into
// telemetry rows. It is the only writer of samples and wash records and
// has no read path beyond a best-effort location cache.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/patrickmn/go-cache"

	"solar-monitor-backend/config"
	"solar-monitor-backend/internal/model"
	"solar-monitor-backend/internal/store"
)

// payload is the message body published on solar/+/data/# topics.
type payload struct {
	DeviceID string   `json:"device_id"`
	Voltage  float64  `json:"voltage"`
	Current  float64  `json:"current"`
	Power    float64  `json:"power"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

type cachedLocation struct {
	lat float64
	lon float64
}

// Service consumes the solar telemetry topics of one broker connection.
// Message handling is strictly sequential, so the location cache has a
// single writer.
type Service struct {
	cfg       *config.Config
	store     store.Store
	locations *cache.Cache
}

// NewService creates the ingest service.
func NewService(cfg *config.Config, s store.Store) *Service {
	return &Service{
		cfg:   cfg,
		store: s,
		// Process-lifetime cache; entries never need eviction but a
		// generous TTL bounds staleness after location pings.
		locations: cache.New(24*time.Hour, time.Hour),
	}
}

// Run connects to the broker and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.MQTT.BrokerURL).
		SetClientID(s.cfg.MQTT.ClientID).
		SetUsername(s.cfg.MQTT.Username).
		SetPassword(s.cfg.MQTT.Password).
		SetOrderMatters(true).
		SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker %s", s.cfg.MQTT.BrokerURL)
		token := client.Subscribe(s.cfg.MQTT.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			if err := s.processMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
				log.Printf("Error processing message on %s: %v", msg.Topic(), err)
			}
		})
		if token.Wait() && token.Error() != nil {
			log.Printf("Subscribe failed: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	<-ctx.Done()
	log.Println("Ingest service shutting down.")
	client.Disconnect(250)
	return nil
}

// processMessage routes one broker message by topic suffix. Malformed
// messages are dropped with an error; the loop itself never dies.
func (s *Service) processMessage(ctx context.Context, topic string, body []byte) error {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	if p.DeviceID == "" {
		return fmt.Errorf("payload missing device_id")
	}
	deviceCode := store.NormalizeDeviceCode(p.DeviceID)

	switch {
	case strings.Contains(topic, "hourly"):
		lat, lon := s.resolveLocation(ctx, deviceCode, p.Lat, p.Lon)
		sample := model.SolarSample{
			DeviceCode: deviceCode,
			Voltage:    p.Voltage,
			Current:    p.Current,
			Power:      p.Power,
			// Hourly cadence: the reported power doubles as the Wh
			// yield for the hour.
			Energy:    p.Power,
			Lat:       lat,
			Lon:       lon,
			Timestamp: time.Now(),
		}
		if err := s.store.InsertSample(ctx, &sample); err != nil {
			return err
		}
		log.Printf("Saved hourly data for %s", deviceCode)
		return nil

	case strings.Contains(topic, "before_wash"):
		return s.saveWash(ctx, deviceCode, model.WashBefore, p)

	case strings.Contains(topic, "after_wash"):
		return s.saveWash(ctx, deviceCode, model.WashAfter, p)

	default:
		return fmt.Errorf("unrecognized topic %q", topic)
	}
}

func (s *Service) saveWash(ctx context.Context, deviceCode, washType string, p payload) error {
	rec := model.WashRecord{
		DeviceCode: deviceCode,
		WashType:   washType,
		Voltage:    p.Voltage,
		Current:    p.Current,
		Power:      p.Power,
		Timestamp:  time.Now(),
	}
	if err := s.store.InsertWashRecord(ctx, &rec); err != nil {
		return err
	}
	log.Printf("Saved %s wash data for %s", washType, deviceCode)
	return nil
}

// resolveLocation stamps a sample with the freshest known coordinate:
// the payload's own, the cached last-seen, or the stored device
// location. Lookups are best-effort and tolerate an empty cache.
func (s *Service) resolveLocation(ctx context.Context, deviceCode string, lat, lon *float64) (*float64, *float64) {
	if lat != nil && lon != nil {
		s.locations.Set(deviceCode, cachedLocation{lat: *lat, lon: *lon}, cache.DefaultExpiration)
		return lat, lon
	}

	if v, found := s.locations.Get(deviceCode); found {
		loc := v.(cachedLocation)
		return &loc.lat, &loc.lon
	}

	stored, err := s.store.Location(ctx, deviceCode)
	if err != nil {
		log.Printf("Location fallback failed for %s: %v", deviceCode, err)
		return nil, nil
	}
	if stored == nil || (stored.Lat == 0 && stored.Lon == 0) {
		return nil, nil
	}
	s.locations.Set(deviceCode, cachedLocation{lat: stored.Lat, lon: stored.Lon}, cache.DefaultExpiration)
	return &stored.Lat, &stored.Lon
}
