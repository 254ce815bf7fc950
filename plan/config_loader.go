package plan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the unified pipeline configuration
type Config struct {
	Pipeline  PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Fusion    FusionOptions  `yaml:"fusion" json:"fusion"`
	Repair    RepairOptions  `yaml:"repair" json:"repair"`
	Quality   QualityOptions `yaml:"quality" json:"quality"`
	Templates TemplateConfig `yaml:"templates" json:"templates"`
	Vision    VisionConfig   `yaml:"vision" json:"vision"`
	Vector    VectorConfig   `yaml:"vector" json:"vector"`
	MQTT      MQTTConfig     `yaml:"mqtt" json:"mqtt"`
}

// PipelineConfig decides when the template fallback is consulted
type PipelineConfig struct {
	MatchScoreThreshold    float64 `yaml:"matchScoreThreshold" json:"matchScoreThreshold"`       // overall score below which templates are tried
	RoomDetectionThreshold float64 `yaml:"roomDetectionThreshold" json:"roomDetectionThreshold"` // roomDetection below which templates are tried
}

// TemplateConfig locates the template library
type TemplateConfig struct {
	Dir       string         `yaml:"dir" json:"dir"`
	Threshold float64        `yaml:"threshold" json:"threshold"`
	Catalogue []TemplateInfo `yaml:"catalogue,omitempty" json:"catalogue,omitempty"` // empty uses the built-in catalogue
}

// VisionConfig holds vision service settings
type VisionConfig struct {
	URL     string        `yaml:"url" json:"url"`
	APIKey  string        `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// VectorConfig holds vector extractor settings
type VectorConfig struct {
	Script       string        `yaml:"script" json:"script"`
	Interpreters []string      `yaml:"interpreters,omitempty" json:"interpreters,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Page         int           `yaml:"page,omitempty" json:"page,omitempty"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// DefaultConfig returns a configuration with every default filled in
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Pipeline.MatchScoreThreshold <= 0 {
		c.Pipeline.MatchScoreThreshold = 0.5
	}
	if c.Pipeline.RoomDetectionThreshold <= 0 {
		c.Pipeline.RoomDetectionThreshold = 0.5
	}
	c.Fusion = c.Fusion.withDefaults()
	c.Fusion.NewID = nil
	c.Quality = c.Quality.withDefaults()
	c.Repair = c.Repair.withDefaults()
	if c.Templates.Dir == "" {
		c.Templates.Dir = "templates"
	}
	if c.Templates.Threshold <= 0 {
		c.Templates.Threshold = DefaultMatchThreshold
	}
	if c.Vision.Timeout <= 0 {
		c.Vision.Timeout = DefaultVisionTimeout
	}
	if len(c.Vector.Interpreters) == 0 {
		c.Vector.Interpreters = []string{"python3", "python"}
	}
	if c.Vector.Timeout <= 0 {
		c.Vector.Timeout = DefaultVectorTimeout
	}
	if c.Vector.Page <= 0 {
		c.Vector.Page = 1
	}
	if c.MQTT.PublishPrefix == "" {
		c.MQTT.PublishPrefix = "planfuse"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "planfuse"
	}
}

// LoadConfig loads the pipeline configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks value ranges once defaults are applied
func (c *Config) Validate() error {
	if c.Pipeline.MatchScoreThreshold > 1 {
		return fmt.Errorf("pipeline.matchScoreThreshold must be in (0, 1], got %v", c.Pipeline.MatchScoreThreshold)
	}
	if c.Pipeline.RoomDetectionThreshold > 1 {
		return fmt.Errorf("pipeline.roomDetectionThreshold must be in (0, 1], got %v", c.Pipeline.RoomDetectionThreshold)
	}
	if c.Templates.Threshold > 1 {
		return fmt.Errorf("templates.threshold must be in (0, 1], got %v", c.Templates.Threshold)
	}
	for i, ti := range c.Templates.Catalogue {
		if ti.ID == "" {
			return fmt.Errorf("templates.catalogue[%d].id is required", i)
		}
		if ti.AreaRange[0] > ti.AreaRange[1] {
			return fmt.Errorf("templates.catalogue[%d].areaRange is inverted for %s", i, ti.ID)
		}
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// NewLibraryFromConfig builds the template library described by c
func NewLibraryFromConfig(c TemplateConfig) *Library {
	var catalogue []TemplateInfo
	if len(c.Catalogue) > 0 {
		catalogue = c.Catalogue
	}
	return NewDirLibrary(c.Dir, catalogue)
}
