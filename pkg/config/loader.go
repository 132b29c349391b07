package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/smartquery/qrouter/pkg/models"
)

// qrouterYAMLConfig represents the complete qrouter.yaml file structure.
// Optional scalars are pointers so that an explicit false/0 can override a
// non-zero default, and durations are strings parsed with time.ParseDuration.
type qrouterYAMLConfig struct {
	Router        *routerYAMLConfig         `yaml:"router"`
	Pipeline      *pipelineYAMLConfig       `yaml:"pipeline"`
	Collaborators *collaboratorsYAMLConfig  `yaml:"collaborators"`
	Retention     *retentionYAMLConfig      `yaml:"retention"`
	Workers       map[string][]WorkerConfig `yaml:"workers"`
}

type routerYAMLConfig struct {
	CacheTTL            string   `yaml:"cache_ttl"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	UseSemanticCache    *bool    `yaml:"use_semantic_cache"`
	Epsilon             *float64 `yaml:"epsilon"`
	MinExplorations     *int     `yaml:"min_explorations"`
	BatchMaxConcurrency *int     `yaml:"batch_max_concurrency"`
}

type pipelineYAMLConfig struct {
	MinRetrievalQuality        *float64         `yaml:"min_retrieval_quality"`
	MinGroundingScore          *float64         `yaml:"min_grounding_score"`
	MaxUngroundedClaims        *int             `yaml:"max_ungrounded_claims"`
	EnableFallbackOnLowQuality *bool            `yaml:"enable_fallback_on_low_quality"`
	MaxRetrievalRetries        *int             `yaml:"max_retrieval_retries"`
	StageTimeout               string           `yaml:"stage_timeout"`
	Stages                     map[string]*bool `yaml:"stages"`
	ForbiddenPatterns          []string         `yaml:"forbidden_patterns"`
}

type retentionYAMLConfig struct {
	CleanupInterval   string `yaml:"cleanup_interval"`
	DecisionRetention string `yaml:"decision_retention"`
}

type collaboratorsYAMLConfig struct {
	EmbedderURL      string `yaml:"embedder_url"`
	RetrieverURL     string `yaml:"retriever_url"`
	GeneratorURL     string `yaml:"generator_url"`
	ClassifierLLMURL string `yaml:"classifier_llm_url"`
	RequestTimeout   string `yaml:"request_timeout"`
	EmbeddingDim     *int   `yaml:"embedding_dim"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load qrouter.yaml from configDir (missing file means all defaults)
//  2. Merge qrouter.local.yaml on top when present (operator overrides)
//  3. Resolve typed configs from YAML over built-in defaults
//  4. Validate all configuration
//  5. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"workers", stats.Workers,
		"collaborators", stats.Collaborators,
		"stages_enabled", stats.StagesEnabled)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	raw, err := loadYAMLConfig(configDir)
	if err != nil {
		return nil, err
	}

	routerCfg, err := resolveRouterConfig(raw.Router)
	if err != nil {
		return nil, err
	}
	pipelineCfg, err := resolvePipelineConfig(raw.Pipeline)
	if err != nil {
		return nil, err
	}
	collabCfg, err := resolveCollaboratorsConfig(raw.Collaborators)
	if err != nil {
		return nil, err
	}
	retentionCfg, err := resolveRetentionConfig(raw.Retention)
	if err != nil {
		return nil, err
	}

	return &Config{
		configDir:     configDir,
		Router:        routerCfg,
		Pipeline:      pipelineCfg,
		Collaborators: collabCfg,
		Retention:     retentionCfg,
		Workers:       resolveWorkerRegistry(raw.Workers),
	}, nil
}

// loadYAMLConfig reads qrouter.yaml and merges qrouter.local.yaml over it.
// A missing base file is not an error; the service runs on defaults.
func loadYAMLConfig(configDir string) (*qrouterYAMLConfig, error) {
	base := &qrouterYAMLConfig{}
	if err := readYAML(filepath.Join(configDir, "qrouter.yaml"), base, true); err != nil {
		return nil, err
	}

	local := &qrouterYAMLConfig{}
	localPath := filepath.Join(configDir, "qrouter.local.yaml")
	if _, err := os.Stat(localPath); err == nil {
		if err := readYAML(localPath, local, false); err != nil {
			return nil, err
		}
		// Local values override base; nil pointers preserve base values.
		if err := mergo.Merge(base, local, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge local config: %w", err)
		}
	}

	return base, nil
}

func readYAML(path string, target *qrouterYAMLConfig, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if optional {
				slog.Warn("Config file not found, using built-in defaults", "path", path)
				return nil
			}
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func resolveRouterConfig(y *routerYAMLConfig) (*RouterConfig, error) {
	cfg := DefaultRouterConfig()
	if y == nil {
		return cfg, nil
	}
	if y.CacheTTL != "" {
		d, err := time.ParseDuration(y.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid router.cache_ttl %q: %w", y.CacheTTL, err)
		}
		cfg.CacheTTL = d
	}
	if y.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *y.SimilarityThreshold
	}
	if y.UseSemanticCache != nil {
		cfg.UseSemanticCache = *y.UseSemanticCache
	}
	if y.Epsilon != nil {
		cfg.Epsilon = *y.Epsilon
	}
	if y.MinExplorations != nil {
		cfg.MinExplorations = *y.MinExplorations
	}
	if y.BatchMaxConcurrency != nil {
		cfg.BatchMaxConcurrency = *y.BatchMaxConcurrency
	}
	return cfg, nil
}

func resolvePipelineConfig(y *pipelineYAMLConfig) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if y == nil {
		return cfg, nil
	}
	if y.MinRetrievalQuality != nil {
		cfg.MinRetrievalQuality = *y.MinRetrievalQuality
	}
	if y.MinGroundingScore != nil {
		cfg.MinGroundingScore = *y.MinGroundingScore
	}
	if y.MaxUngroundedClaims != nil {
		cfg.MaxUngroundedClaims = *y.MaxUngroundedClaims
	}
	if y.EnableFallbackOnLowQuality != nil {
		cfg.EnableFallbackOnLowQuality = *y.EnableFallbackOnLowQuality
	}
	if y.MaxRetrievalRetries != nil {
		cfg.MaxRetrievalRetries = *y.MaxRetrievalRetries
	}
	if y.StageTimeout != "" {
		d, err := time.ParseDuration(y.StageTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid pipeline.stage_timeout %q: %w", y.StageTimeout, err)
		}
		cfg.StageTimeout = d
	}
	if len(y.ForbiddenPatterns) > 0 {
		cfg.ForbiddenPatterns = y.ForbiddenPatterns
	}
	applyStageFlags(&cfg.Stages, y.Stages)
	return cfg, nil
}

// applyStageFlags overlays explicit per-stage flags onto the defaults.
// Unknown stage names are ignored with a warning.
func applyStageFlags(flags *StageFlags, overrides map[string]*bool) {
	for name, enabled := range overrides {
		if enabled == nil {
			continue
		}
		switch models.StageName(name) {
		case models.StageIntentAnalysis:
			flags.IntentAnalysis = *enabled
		case models.StageRetrievalParams:
			flags.RetrievalParams = *enabled
		case models.StageRetrieval:
			flags.Retrieval = *enabled
		case models.StageRetrievalEvaluation:
			flags.RetrievalEvaluation = *enabled
		case models.StageAgentSelection:
			flags.AgentSelection = *enabled
		case models.StageResponseGeneration:
			flags.ResponseGeneration = *enabled
		case models.StageGroundingEvaluation:
			flags.GroundingEvaluation = *enabled
		case models.StageOutputValidation:
			flags.OutputValidation = *enabled
		case models.StageMetricsRecording:
			flags.MetricsRecording = *enabled
		default:
			slog.Warn("Unknown pipeline stage in config, ignoring", "stage", name)
		}
	}
}

func resolveCollaboratorsConfig(y *collaboratorsYAMLConfig) (*CollaboratorsConfig, error) {
	cfg := DefaultCollaboratorsConfig()
	if y == nil {
		return cfg, nil
	}
	cfg.EmbedderURL = y.EmbedderURL
	cfg.RetrieverURL = y.RetrieverURL
	cfg.GeneratorURL = y.GeneratorURL
	cfg.ClassifierLLMURL = y.ClassifierLLMURL
	if y.RequestTimeout != "" {
		d, err := time.ParseDuration(y.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid collaborators.request_timeout %q: %w", y.RequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if y.EmbeddingDim != nil {
		cfg.EmbeddingDim = *y.EmbeddingDim
	}
	return cfg, nil
}

func resolveRetentionConfig(y *retentionYAMLConfig) (*RetentionConfig, error) {
	cfg := DefaultRetentionConfig()
	if y == nil {
		return cfg, nil
	}
	if y.CleanupInterval != "" {
		d, err := time.ParseDuration(y.CleanupInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid retention.cleanup_interval %q: %w", y.CleanupInterval, err)
		}
		cfg.CleanupInterval = d
	}
	if y.DecisionRetention != "" {
		d, err := time.ParseDuration(y.DecisionRetention)
		if err != nil {
			return nil, fmt.Errorf("invalid retention.decision_retention %q: %w", y.DecisionRetention, err)
		}
		cfg.DecisionRetention = d
	}
	return cfg, nil
}

func resolveWorkerRegistry(raw map[string][]WorkerConfig) *WorkerRegistry {
	if len(raw) == 0 {
		return DefaultWorkerRegistry()
	}
	pools := make(map[models.Backend][]WorkerConfig, len(raw))
	for name, pool := range raw {
		backend := models.Backend(name)
		if !backend.IsValid() {
			slog.Warn("Unknown backend in workers config, ignoring", "backend", name)
			continue
		}
		pools[backend] = pool
	}
	if len(pools) == 0 {
		return DefaultWorkerRegistry()
	}
	return NewWorkerRegistry(pools)
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}
