package plan

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ResultSummary is the compact form of a Result sent over MQTT
type ResultSummary struct {
	DocumentID  string        `json:"documentId"`
	Method      string        `json:"method"`
	Fingerprint string        `json:"fingerprint"`
	TotalArea   float64       `json:"totalArea"`
	Rooms       int           `json:"rooms"`
	Walls       int           `json:"walls"`
	Doors       int           `json:"doors"`
	Windows     int           `json:"windows"`
	Fixtures    int           `json:"fixtures"`
	TemplateID  string        `json:"templateId,omitempty"`
	Quality     QualityReport `json:"quality"`
	Timestamp   int64         `json:"timestamp"`
}

// Summarize builds the MQTT summary of r
func Summarize(r *Result) ResultSummary {
	s := ResultSummary{
		DocumentID:  r.DocumentID,
		Method:      r.Method,
		Fingerprint: r.Fingerprint,
		Quality:     r.Quality,
		Timestamp:   time.Now().Unix(),
	}
	if r.FloorPlan != nil {
		s.TotalArea = r.FloorPlan.TotalArea
		s.Rooms = len(r.FloorPlan.Rooms)
		s.Walls = len(r.FloorPlan.Walls)
		s.Doors = len(r.FloorPlan.Doors)
		s.Windows = len(r.FloorPlan.Windows)
		s.Fixtures = len(r.FloorPlan.Fixtures)
	}
	if r.Template != nil && r.Template.TemplateID != nil {
		s.TemplateID = *r.Template.TemplateID
	}
	return s
}

// Publisher sends pipeline results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	latest        map[string]ResultSummary
	mu            sync.RWMutex
}

// NewPublisher creates a result publisher. MQTT_PUBLISH_PREFIX overrides
// the default "planfuse" topic prefix. A nil client disables publishing.
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = "planfuse"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true,
		latest:        make(map[string]ResultSummary),
	}
}

// NewPublisherFromConfig is NewPublisher with the configured prefix used
// when MQTT_PUBLISH_PREFIX is unset.
func NewPublisherFromConfig(client mqtt.Client, config MQTTConfig) *Publisher {
	p := NewPublisher(client)
	if os.Getenv("MQTT_PUBLISH_PREFIX") == "" && config.PublishPrefix != "" {
		p.publishPrefix = config.PublishPrefix
	}
	return p
}

// Prefix returns the topic prefix in use
func (p *Publisher) Prefix() string {
	return p.publishPrefix
}

// PublishResult publishes the summary to {prefix}/{documentId}/summary and
// the full plan to {prefix}/{documentId}/plan. A project, when present,
// goes to {prefix}/{documentId}/project.
func (p *Publisher) PublishResult(r *Result) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	if r == nil {
		return fmt.Errorf("nil result")
	}

	summary := Summarize(r)
	p.mu.Lock()
	p.latest[r.DocumentID] = summary
	p.mu.Unlock()

	if err := p.publishJSON(r.DocumentID+"/summary", summary); err != nil {
		return err
	}
	if err := p.publishJSON(r.DocumentID+"/plan", r.FloorPlan); err != nil {
		return err
	}
	if r.Project != nil {
		if err := p.publishJSON(r.DocumentID+"/project", r.Project); err != nil {
			return err
		}
	}

	log.Printf("Published result for %s: method=%s overall=%.2f", r.DocumentID, r.Method, r.Quality.Overall)
	return nil
}

// publishJSON marshals v and publishes it under the prefix
func (p *Publisher) publishJSON(suffix string, v any) error {
	topic := fmt.Sprintf("%s/%s", p.publishPrefix, suffix)

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// Latest returns the last summary published for a document
func (p *Publisher) Latest(documentID string) (ResultSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.latest[documentID]
	return s, ok
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
