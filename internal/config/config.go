package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration tree for every memoryd subcommand.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Model      ModelConfig      `yaml:"model"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Video      VideoConfig      `yaml:"video"`
	Identity   IdentityConfig   `yaml:"identity"`
	Scan       ScanConfig       `yaml:"scan"`
	Behavior   BehaviorConfig   `yaml:"behavior"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Queue       QueueConfig       `yaml:"queue"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
}

type StoreConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d StoreConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// ModelConfig addresses the Vertex AI Gemini backend used by the LLM gateway.
type ModelConfig struct {
	ProjectID   string        `yaml:"project_id"`
	Location    string        `yaml:"location"`
	ModelName   string        `yaml:"model_name"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	RetryMax    int           `yaml:"retry_max"`
	RetryBase   time.Duration `yaml:"retry_base"`
	RetryCap    time.Duration `yaml:"retry_cap"`
}

type SnapshotConfig struct {
	Dir     string `yaml:"dir"`
	URLBase string `yaml:"url_base"`
}

type VideoConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// QueueConfig addresses the optional NATS JetStream work-queue backend Phase
// B's clip scanner can use instead of a local goroutine pool, for
// distributing scanning across multiple worker processes. Empty NATSURL
// disables distributed mode.
type QueueConfig struct {
	NATSURL string `yaml:"nats_url"`
}

// ObjectStoreConfig addresses the optional MinIO archive for source clip
// bytes scanned by distributed workers. Empty Bucket disables archiving.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// IdentityConfig holds the Phase C arbiter's cosine-similarity thresholds.
type IdentityConfig struct {
	FaceThreshold      float64       `yaml:"face_threshold"`
	BodyThreshold      float64       `yaml:"body_threshold"`
	SoftThreshold      float64       `yaml:"soft_threshold"`
	BodyCacheFreshness time.Duration `yaml:"body_cache_freshness"`
}

// ScanConfig holds Phase B clip-scanner tunables.
type ScanConfig struct {
	TargetFPS           int     `yaml:"target_fps"`
	MinConfidence       float64 `yaml:"min_confidence"`
	MinBBoxPx           int     `yaml:"min_bbox_px"`
	TrackIoUThreshold   float64 `yaml:"track_iou_threshold"`
	RevalidateInterval  int     `yaml:"revalidate_interval"`
	TrackMaxAge         int     `yaml:"track_max_age"`
	WorkerCount         int     `yaml:"worker_count"`
	ModelsDir           string  `yaml:"models_dir"`
}

// BehaviorConfig carries the configurable "strong cue" phrase sets that
// spec.md's Open Questions flag as deployment-specific rather than fixed.
type BehaviorConfig struct {
	DeliveryCues []string `yaml:"delivery_cues"`
	ToolCues     []string `yaml:"tool_cues"`
	CleaningCues []string `yaml:"cleaning_cues"`
	// StrongDeliveryCues gates the one override a resident role can take:
	// family only flips to delivery/visitor when one of these stronger,
	// more specific phrases matches, not the looser DeliveryCues set.
	StrongDeliveryCues []string `yaml:"strong_delivery_cues"`
}

// RetrieveConfig carries the Phase I question parser's deployment-specific
// vocabulary, generalizing the original query parser's hardcoded keyword
// dictionaries into configurable alias maps.
type RetrieveConfig struct {
	PersonAliases map[string][]string `yaml:"person_aliases"`
	ActionAliases map[string][]string `yaml:"action_aliases"`
	SummaryCues   []string            `yaml:"summary_cues"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from a YAML file and applies environment variable
// overrides, then fills in defaults for anything still unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Store.Port == 0 {
		cfg.Store.Port = 5432
	}
	if cfg.Store.MaxConns == 0 {
		cfg.Store.MaxConns = 20
	}
	if cfg.Model.Location == "" {
		cfg.Model.Location = "us-central1"
	}
	if cfg.Model.ModelName == "" {
		cfg.Model.ModelName = "gemini-2.5-flash-lite"
	}
	if cfg.Model.CallTimeout == 0 {
		cfg.Model.CallTimeout = 20 * time.Second
	}
	if cfg.Model.RetryMax == 0 {
		cfg.Model.RetryMax = 3
	}
	if cfg.Model.RetryBase == 0 {
		cfg.Model.RetryBase = 2 * time.Second
	}
	if cfg.Model.RetryCap == 0 {
		cfg.Model.RetryCap = 10 * time.Second
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = "./snapshots"
	}
	if cfg.Snapshot.URLBase == "" {
		cfg.Snapshot.URLBase = "/snapshots/"
	}
	if cfg.Video.BaseDir == "" {
		cfg.Video.BaseDir = "./clips"
	}
	if cfg.Identity.FaceThreshold == 0 {
		cfg.Identity.FaceThreshold = 0.65
	}
	if cfg.Identity.BodyThreshold == 0 {
		cfg.Identity.BodyThreshold = 0.60
	}
	if cfg.Identity.SoftThreshold == 0 {
		cfg.Identity.SoftThreshold = 0.55
	}
	if cfg.Identity.BodyCacheFreshness == 0 {
		cfg.Identity.BodyCacheFreshness = 48 * time.Hour
	}
	if cfg.Scan.TargetFPS == 0 {
		cfg.Scan.TargetFPS = 5
	}
	if cfg.Scan.MinConfidence == 0 {
		cfg.Scan.MinConfidence = 0.5
	}
	if cfg.Scan.MinBBoxPx == 0 {
		cfg.Scan.MinBBoxPx = 50
	}
	if cfg.Scan.TrackIoUThreshold == 0 {
		cfg.Scan.TrackIoUThreshold = 0.7
	}
	if cfg.Scan.RevalidateInterval == 0 {
		cfg.Scan.RevalidateInterval = 5
	}
	if cfg.Scan.TrackMaxAge == 0 {
		cfg.Scan.TrackMaxAge = 3
	}
	if cfg.Scan.WorkerCount == 0 {
		cfg.Scan.WorkerCount = 6
	}
	if cfg.Scan.ModelsDir == "" {
		cfg.Scan.ModelsDir = "./models"
	}
	if len(cfg.Behavior.DeliveryCues) == 0 {
		cfg.Behavior.DeliveryCues = []string{"package", "parcel", "delivery", "courier"}
	}
	if len(cfg.Behavior.ToolCues) == 0 {
		cfg.Behavior.ToolCues = []string{"toolbox", "ladder", "repair", "maintenance"}
	}
	if len(cfg.Behavior.CleaningCues) == 0 {
		cfg.Behavior.CleaningCues = []string{"mop", "vacuum", "cleaning cart"}
	}
	if len(cfg.Behavior.StrongDeliveryCues) == 0 {
		cfg.Behavior.StrongDeliveryCues = []string{"holding a package", "carried a parcel", "signed for a delivery", "left a package at the door"}
	}
	if len(cfg.Retrieve.SummaryCues) == 0 {
		cfg.Retrieve.SummaryCues = []string{"today", "summary", "overall", "how was"}
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEM_STORE_HOST"); v != "" {
		cfg.Store.Host = v
	}
	if v := os.Getenv("MEM_STORE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Store.Port = port
		}
	}
	if v := os.Getenv("MEM_STORE_DB"); v != "" {
		cfg.Store.Name = v
	}
	if v := os.Getenv("MEM_STORE_USER"); v != "" {
		cfg.Store.User = v
	}
	if v := os.Getenv("MEM_STORE_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if v := os.Getenv("MEM_MODEL_PROJECT"); v != "" {
		cfg.Model.ProjectID = v
	}
	if v := os.Getenv("MEM_MODEL_LOCATION"); v != "" {
		cfg.Model.Location = v
	}
	if v := os.Getenv("MEM_SNAPSHOT_DIR"); v != "" {
		cfg.Snapshot.Dir = v
	}
	if v := os.Getenv("MEM_VIDEO_DIR"); v != "" {
		cfg.Video.BaseDir = v
	}
	if v := os.Getenv("MEM_FACE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Identity.FaceThreshold = f
		}
	}
	if v := os.Getenv("MEM_BODY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Identity.BodyThreshold = f
		}
	}
	if v := os.Getenv("MEM_SOFT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Identity.SoftThreshold = f
		}
	}
	if v := os.Getenv("MEM_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("MEM_NATS_URL"); v != "" {
		cfg.Queue.NATSURL = v
	}
	if v := os.Getenv("MEM_OBJECTSTORE_BUCKET"); v != "" {
		cfg.ObjectStore.Bucket = v
	}
}
