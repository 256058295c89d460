package nova

import (
	"fmt"
	"math/rand/v2"
)

// MaxSeed is the largest seed value the Nova Canvas model accepts.
const MaxSeed = 858993459

// MaxImages is the largest number of images a single request may produce.
const MaxImages = 5

// SupportedDimensions lists the width/height values offered by the UI.
var SupportedDimensions = []int{512, 768, 1024, 1280, 1536}

// GenerationConfig holds the shared image-output parameters attached to every
// task type except background removal.
type GenerationConfig struct {
	NumberOfImages int     // 1..MaxImages
	Quality        string  // "standard" or "premium"
	Width          int     // from SupportedDimensions
	Height         int     // from SupportedDimensions
	CfgScale       float64 // 1.0..10.0, prompt adherence
	Seed           int32   // 0..MaxSeed, ignored when RandomSeed is set
	RandomSeed     bool    // draw a fresh seed at assembly time
}

// resolveSeed returns the concrete seed for this config. When RandomSeed is
// set a value is drawn here, so the assembled payload always carries a
// concrete integer.
func (c GenerationConfig) resolveSeed() int32 {
	if c.RandomSeed {
		return rand.Int32N(MaxSeed + 1)
	}
	return c.Seed
}

// Options describes one generation request. Which fields are consulted
// depends on the GenerationMode passed to Assemble; the UI layer is
// responsible for collecting and range-checking values, the assembler only
// enforces the mode-required fields.
type Options struct {
	// Prompt is the main text prompt (background description for
	// ModeBackgroundReplace).
	Prompt string
	// NegativePrompt lists things to avoid. Optional.
	NegativePrompt string

	// ConditionImage is the raw conditioning image for ModeImageGuided.
	ConditionImage []byte
	// ControlMode is ControlModeCannyEdge or ControlModeSegmentation.
	// Optional; only sent alongside a conditioning image.
	ControlMode string
	// ControlStrength is how strongly the conditioning image steers the
	// layout, 0.1..1.0. Optional.
	ControlStrength float64

	// ReferenceImages are 1-3 raw images of the same subject for
	// ModeSubjectVariation.
	ReferenceImages [][]byte
	// SimilarityStrength is how closely variations follow the reference
	// subject, 0.2..1.0.
	SimilarityStrength float64

	// Colors are up to 5 hex color strings for ModeColorGuided. Passed
	// through as provided; the model validates the format.
	Colors []string
	// ColorReferenceImage optionally steers the palette with an image.
	ColorReferenceImage []byte

	// SourceImage is the raw image whose background is edited for
	// ModeBackgroundReplace and ModeBackgroundRemove.
	SourceImage []byte
	// MaskPrompt describes the object(s) to keep from the source image.
	MaskPrompt string
	// OutpaintingMode is OutpaintingDefault or OutpaintingPrecise.
	OutpaintingMode string

	// Config holds the shared generation parameters. Not consulted for
	// ModeBackgroundRemove, which carries no generation-config block.
	Config GenerationConfig
}

// ValidationError reports a mode-required Options field that is missing at
// assembly time. It is returned before any network call is attempted.
type ValidationError struct {
	Mode  GenerationMode
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mode %s requires %s", e.Mode, e.Field)
}

// validate enforces the mode-required fields. All other input validation is
// the caller's responsibility.
func (o *Options) validate(mode GenerationMode) error {
	switch mode {
	case ModeImageGuided:
		if len(o.ConditionImage) == 0 {
			return &ValidationError{Mode: mode, Field: "a conditioning image"}
		}
	case ModeSubjectVariation:
		if len(o.ReferenceImages) == 0 {
			return &ValidationError{Mode: mode, Field: "at least one reference image"}
		}
	case ModeBackgroundReplace:
		if len(o.SourceImage) == 0 {
			return &ValidationError{Mode: mode, Field: "a source image"}
		}
		if o.Prompt == "" {
			return &ValidationError{Mode: mode, Field: "a background description"}
		}
		if o.MaskPrompt == "" {
			return &ValidationError{Mode: mode, Field: "a mask prompt"}
		}
	case ModeBackgroundRemove:
		if len(o.SourceImage) == 0 {
			return &ValidationError{Mode: mode, Field: "a source image"}
		}
	}
	return nil
}
