// Package nova builds Nova Canvas inference payloads, invokes the model
// through Amazon Bedrock, and decodes the returned images.
package nova

import "fmt"

// GenerationMode selects which generation flow a request targets. Each mode
// determines the required Options fields and the task-specific params block
// of the assembled payload.
type GenerationMode string

const (
	// ModeTextToImage generates images from a text prompt.
	ModeTextToImage GenerationMode = "text-to-image"
	// ModeColorGuided generates images steered by a color palette.
	ModeColorGuided GenerationMode = "color-guided"
	// ModeImageGuided generates images steered by a conditioning image
	// (edge or segmentation guide).
	ModeImageGuided GenerationMode = "image-guided"
	// ModeSubjectVariation generates variations that keep a reference
	// subject's likeness.
	ModeSubjectVariation GenerationMode = "subject-variation"
	// ModeBackgroundReplace replaces the background around a masked subject.
	ModeBackgroundReplace GenerationMode = "background-replace"
	// ModeBackgroundRemove removes the background, leaving the subject on
	// transparency.
	ModeBackgroundRemove GenerationMode = "background-remove"
)

// Wire task types understood by the Nova Canvas model.
const (
	taskTextImage         = "TEXT_IMAGE"
	taskColorGuided       = "COLOR_GUIDED_GENERATION"
	taskImageVariation    = "IMAGE_VARIATION"
	taskOutpainting       = "OUTPAINTING"
	taskBackgroundRemoval = "BACKGROUND_REMOVAL"
)

// TaskType returns the wire task type for the mode. ModeImageGuided shares
// TEXT_IMAGE with ModeTextToImage; the conditioning image distinguishes them.
func (m GenerationMode) TaskType() (string, error) {
	switch m {
	case ModeTextToImage, ModeImageGuided:
		return taskTextImage, nil
	case ModeColorGuided:
		return taskColorGuided, nil
	case ModeSubjectVariation:
		return taskImageVariation, nil
	case ModeBackgroundReplace:
		return taskOutpainting, nil
	case ModeBackgroundRemove:
		return taskBackgroundRemoval, nil
	default:
		return "", fmt.Errorf("unknown generation mode: %q", string(m))
	}
}

// Valid reports whether m is one of the defined generation modes.
func (m GenerationMode) Valid() bool {
	_, err := m.TaskType()
	return err == nil
}

// Control modes for image-guided generation.
const (
	ControlModeCannyEdge    = "CANNY_EDGE"
	ControlModeSegmentation = "SEGMENTATION"
)

// Outpainting modes for background replacement. Default softens the mask
// edge; Precise keeps it sharp.
const (
	OutpaintingDefault = "DEFAULT"
	OutpaintingPrecise = "PRECISE"
)
