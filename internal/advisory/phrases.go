package advisory

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bucket names a set of interchangeable notes.
type Bucket string

const (
	HighVolatility       Bucket = "high_volatility"
	NearSupport          Bucket = "near_support"
	NearResistance       Bucket = "near_resistance"
	SupportOversold      Bucket = "support_oversold"
	ResistanceOverbought Bucket = "resistance_overbought"
	BullishHighRisk      Bucket = "bullish_high_risk"
	Momentum             Bucket = "momentum"
	Recovery             Bucket = "recovery"
	Oversold             Bucket = "oversold"
	Downtrend            Bucket = "downtrend"
	NeutralMarket        Bucket = "neutral"
)

// Buckets lists every bucket a phrasebook must fill.
var Buckets = []Bucket{
	HighVolatility, NearSupport, NearResistance, SupportOversold, ResistanceOverbought,
	BullishHighRisk, Momentum, Recovery, Oversold, Downtrend, NeutralMarket,
}

var ErrMissingBucket = errors.New("phrasebook bucket missing or empty")

//go:embed phrases.yaml
var defaultPhrases []byte

// Phrasebook maps buckets to notes. It is read-only after loading.
type Phrasebook map[Bucket][]string

// DefaultPhrasebook returns the built-in notes.
func DefaultPhrasebook() Phrasebook {
	pb, err := ParsePhrasebook(defaultPhrases)
	if err != nil {
		panic(fmt.Sprintf("embedded phrasebook: %v", err))
	}
	return pb
}

// LoadPhrasebook reads a YAML phrasebook. An empty path returns the default.
func LoadPhrasebook(path string) (Phrasebook, error) {
	if path == "" {
		return DefaultPhrasebook(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrasebook: %w", err)
	}
	return ParsePhrasebook(b)
}

func ParsePhrasebook(b []byte) (Phrasebook, error) {
	var pb Phrasebook
	if err := yaml.Unmarshal(b, &pb); err != nil {
		return nil, fmt.Errorf("parse phrasebook: %w", err)
	}
	for _, bucket := range Buckets {
		if len(pb[bucket]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingBucket, bucket)
		}
	}
	return pb, nil
}
