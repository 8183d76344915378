package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/vmtest/internal/models"
)

// Indicator names reported in a verdict.
const (
	IndicatorSchedulingCV  = "scheduling_thread_cv"
	IndicatorPMI           = "physical_machine_index"
	IndicatorCacheMiss     = "cache_miss_ratio"
	IndicatorMemoryEntropy = "memory_address_entropy"
)

// Weights is the confidence contributed by each triggered rule.
type Weights struct {
	Scheduling   float64 `yaml:"scheduling"`
	PMIStrong    float64 `yaml:"pmiStrong"`
	PMIAmbiguous float64 `yaml:"pmiAmbiguous"`
	Cache        float64 `yaml:"cache"`
	Entropy      float64 `yaml:"entropy"`
}

// Thresholds is the classifier rule pack.
type Thresholds struct {
	SchedulingCV      float64 `yaml:"schedulingCV"`
	PMIStrongBelow    float64 `yaml:"pmiStrongBelow"`
	PMIAmbiguousBelow float64 `yaml:"pmiAmbiguousBelow"`
	CacheMissAbove    float64 `yaml:"cacheMissAbove"`
	EntropyBelow      float64 `yaml:"entropyBelow"`
	// EntropyFloor marks entropies too low to be a real measurement.
	EntropyFloor   float64 `yaml:"entropyFloor"`
	VirtualAbove   float64 `yaml:"virtualAbove"`
	AmbiguousAbove float64 `yaml:"ambiguousAbove"`
	Weights        Weights `yaml:"weights"`
}

// DefaultThresholds returns the stock rule pack.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SchedulingCV:      0.15,
		PMIStrongBelow:    -1.0,
		PMIAmbiguousBelow: 1.0,
		CacheMissAbove:    0.5,
		EntropyBelow:      2.0,
		EntropyFloor:      0.1,
		VirtualAbove:      0.6,
		AmbiguousAbove:    0.3,
		Weights: Weights{
			Scheduling:   0.30,
			PMIStrong:    0.30,
			PMIAmbiguous: 0.15,
			Cache:        0.20,
			Entropy:      0.20,
		},
	}
}

// Validate rejects rule packs that would make the score non-monotonic or the
// bands overlap.
func (t Thresholds) Validate() error {
	w := t.Weights
	for name, v := range map[string]float64{
		"scheduling": w.Scheduling, "pmiStrong": w.PMIStrong, "pmiAmbiguous": w.PMIAmbiguous,
		"cache": w.Cache, "entropy": w.Entropy,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %g", name, v)
		}
	}
	if t.PMIStrongBelow > t.PMIAmbiguousBelow {
		return fmt.Errorf("pmiStrongBelow %g above pmiAmbiguousBelow %g", t.PMIStrongBelow, t.PMIAmbiguousBelow)
	}
	if t.EntropyFloor >= t.EntropyBelow {
		return fmt.Errorf("entropyFloor %g must be below entropyBelow %g", t.EntropyFloor, t.EntropyBelow)
	}
	if t.AmbiguousAbove > t.VirtualAbove {
		return fmt.Errorf("ambiguousAbove %g above virtualAbove %g", t.AmbiguousAbove, t.VirtualAbove)
	}
	return nil
}

// LoadThresholds overlays the YAML rule pack at path onto base. An empty path
// or a missing file leaves base untouched.
func LoadThresholds(path string, base Thresholds) (Thresholds, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return base, fmt.Errorf("read thresholds: %w", err)
	}
	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := out.Validate(); err != nil {
		return base, fmt.Errorf("thresholds %s: %w", path, err)
	}
	return out, nil
}

// Classifier scores a fingerprint against the rule pack.
type Classifier struct {
	thresholds Thresholds
	logger     *slog.Logger
}

// NewClassifier constructs a Classifier after validating thresholds.
func NewClassifier(thresholds Thresholds, logger *slog.Logger) (*Classifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{thresholds: thresholds, logger: logger}, nil
}

// Thresholds returns the active rule pack.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify evaluates every rule and folds the triggered weights into a
// confidence in [0,1] and a category.
func (c *Classifier) Classify(thread models.FeatureRecord, idx models.CompositeIndices) models.Verdict {
	th := c.thresholds
	indicators := []models.Indicator{
		c.schedulingIndicator(thread.CoefficientOfVariation),
		c.pmiIndicator(idx.PhysicalMachineIndex),
		c.cacheIndicator(idx.CacheMissRatio),
		c.entropyIndicator(idx.MemoryAddressEntropy),
	}

	score := 0.0
	for _, ind := range indicators {
		if ind.Triggered {
			score += ind.Weight
		}
	}
	confidence := clamp(score, 0, 1)

	verdict := models.Verdict{
		Confidence: confidence,
		Category:   categorize(confidence, th),
		Indicators: indicators,
	}
	c.logger.Debug("classified fingerprint",
		slog.Float64("confidence", confidence),
		slog.String("category", verdict.Category.String()),
		slog.Int("triggered", verdict.Triggered()),
	)
	return verdict
}

func (c *Classifier) schedulingIndicator(cv float64) models.Indicator {
	th := c.thresholds
	return models.Indicator{
		Name:      IndicatorSchedulingCV,
		Value:     cv,
		Threshold: th.SchedulingCV,
		Weight:    th.Weights.Scheduling,
		Triggered: cv > th.SchedulingCV,
	}
}

func (c *Classifier) pmiIndicator(pmi float64) models.Indicator {
	th := c.thresholds
	ind := models.Indicator{
		Name:      IndicatorPMI,
		Value:     pmi,
		Threshold: th.PMIStrongBelow,
		Weight:    th.Weights.PMIStrong,
	}
	switch {
	case pmi < th.PMIStrongBelow:
		ind.Triggered = true
		ind.Detail = "strong"
	case pmi < th.PMIAmbiguousBelow:
		ind.Triggered = true
		ind.Threshold = th.PMIAmbiguousBelow
		ind.Weight = th.Weights.PMIAmbiguous
		ind.Detail = "ambiguous"
	}
	return ind
}

func (c *Classifier) cacheIndicator(miss float64) models.Indicator {
	th := c.thresholds
	return models.Indicator{
		Name:      IndicatorCacheMiss,
		Value:     miss,
		Threshold: th.CacheMissAbove,
		Weight:    th.Weights.Cache,
		Triggered: miss > th.CacheMissAbove,
	}
}

func (c *Classifier) entropyIndicator(entropy float64) models.Indicator {
	th := c.thresholds
	ind := models.Indicator{
		Name:      IndicatorMemoryEntropy,
		Value:     entropy,
		Threshold: th.EntropyBelow,
		Weight:    th.Weights.Entropy,
	}
	if entropy <= th.EntropyFloor {
		ind.Detail = "below sanity floor"
		return ind
	}
	ind.Triggered = entropy < th.EntropyBelow
	return ind
}

func categorize(confidence float64, th Thresholds) models.Category {
	switch {
	case confidence > th.VirtualAbove:
		return models.CategoryVirtual
	case confidence > th.AmbiguousAbove:
		return models.CategoryAmbiguous
	default:
		return models.CategoryPhysical
	}
}
