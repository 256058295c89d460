package nova

// payload.go defines the nested JSON body Nova Canvas expects and the
// assembler that maps a GenerationMode + Options onto it. Exactly one
// task-specific params block is ever populated, matching the taskType tag.

// InferenceParams is the request body for a Nova Canvas InvokeModel call.
type InferenceParams struct {
	TaskType                    string                   `json:"taskType"`
	TextToImageParams           *TextToImageParams       `json:"textToImageParams,omitempty"`
	ColorGuidedGenerationParams *ColorGuidedParams       `json:"colorGuidedGenerationParams,omitempty"`
	ImageVariationParams        *ImageVariationParams    `json:"imageVariationParams,omitempty"`
	OutPaintingParams           *OutPaintingParams       `json:"outPaintingParams,omitempty"`
	BackgroundRemovalParams     *BackgroundRemovalParams `json:"backgroundRemovalParams,omitempty"`
	ImageGenerationConfig       *ImageGenerationConfig   `json:"imageGenerationConfig,omitempty"`
}

// TextToImageParams covers both plain text-to-image and image-guided
// generation; the conditioning fields are only set for the latter.
type TextToImageParams struct {
	Text            string  `json:"text"`
	NegativeText    string  `json:"negativeText,omitempty"`
	ConditionImage  string  `json:"conditionImage,omitempty"`
	ControlMode     string  `json:"controlMode,omitempty"`
	ControlStrength float64 `json:"controlStrength,omitempty"`
}

// ColorGuidedParams steers generation toward a palette of hex colors,
// optionally reinforced by a reference image.
type ColorGuidedParams struct {
	Text           string   `json:"text"`
	Colors         []string `json:"colors"`
	ReferenceImage string   `json:"referenceImage,omitempty"`
}

// ImageVariationParams produces subject-consistent variations of 1-3
// reference images.
type ImageVariationParams struct {
	Images             []string `json:"images"`
	Text               string   `json:"text"`
	NegativeText       string   `json:"negativeText,omitempty"`
	SimilarityStrength float64  `json:"similarityStrength,omitempty"`
}

// OutPaintingParams regenerates everything outside the masked subject.
type OutPaintingParams struct {
	Image           string `json:"image"`
	Text            string `json:"text"`
	MaskPrompt      string `json:"maskPrompt"`
	OutPaintingMode string `json:"outPaintingMode,omitempty"`
}

// BackgroundRemovalParams carries only the source image; the model needs no
// other parameters to cut out the subject.
type BackgroundRemovalParams struct {
	Image string `json:"image"`
}

// ImageGenerationConfig is the shared output block. Width and height are
// omitted for outpainting, where the output size follows the source image.
type ImageGenerationConfig struct {
	NumberOfImages int     `json:"numberOfImages"`
	Quality        string  `json:"quality"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	CfgScale       float64 `json:"cfgScale"`
	Seed           int32   `json:"seed"`
}

// Assemble maps a mode and its options onto the wire payload. It returns a
// ValidationError when a mode-required field is missing, and is otherwise
// deterministic once the seed is resolved. Optional fields that were not
// supplied are left out of the payload entirely.
func Assemble(mode GenerationMode, opts Options) (*InferenceParams, error) {
	taskType, err := mode.TaskType()
	if err != nil {
		return nil, err
	}
	if err := opts.validate(mode); err != nil {
		return nil, err
	}

	params := &InferenceParams{TaskType: taskType}

	switch mode {
	case ModeTextToImage:
		params.TextToImageParams = &TextToImageParams{
			Text:         opts.Prompt,
			NegativeText: opts.NegativePrompt,
		}

	case ModeImageGuided:
		params.TextToImageParams = &TextToImageParams{
			Text:            opts.Prompt,
			NegativeText:    opts.NegativePrompt,
			ConditionImage:  EncodeImage(opts.ConditionImage),
			ControlMode:     opts.ControlMode,
			ControlStrength: opts.ControlStrength,
		}

	case ModeColorGuided:
		p := &ColorGuidedParams{
			Text:   opts.Prompt,
			Colors: opts.Colors,
		}
		if len(opts.ColorReferenceImage) > 0 {
			p.ReferenceImage = EncodeImage(opts.ColorReferenceImage)
		}
		params.ColorGuidedGenerationParams = p

	case ModeSubjectVariation:
		images := make([]string, 0, len(opts.ReferenceImages))
		for _, img := range opts.ReferenceImages {
			images = append(images, EncodeImage(img))
		}
		params.ImageVariationParams = &ImageVariationParams{
			Images:             images,
			Text:               opts.Prompt,
			NegativeText:       opts.NegativePrompt,
			SimilarityStrength: opts.SimilarityStrength,
		}

	case ModeBackgroundReplace:
		params.OutPaintingParams = &OutPaintingParams{
			Image:           EncodeImage(opts.SourceImage),
			Text:            opts.Prompt,
			MaskPrompt:      opts.MaskPrompt,
			OutPaintingMode: opts.OutpaintingMode,
		}

	case ModeBackgroundRemove:
		params.BackgroundRemovalParams = &BackgroundRemovalParams{
			Image: EncodeImage(opts.SourceImage),
		}
		// No generation-config block for background removal.
		return params, nil
	}

	cfg := &ImageGenerationConfig{
		NumberOfImages: opts.Config.NumberOfImages,
		Quality:        opts.Config.Quality,
		Width:          opts.Config.Width,
		Height:         opts.Config.Height,
		CfgScale:       opts.Config.CfgScale,
		Seed:           opts.Config.resolveSeed(),
	}
	if mode == ModeBackgroundReplace {
		// Output dimensions follow the source image.
		cfg.Width = 0
		cfg.Height = 0
	}
	params.ImageGenerationConfig = cfg

	return params, nil
}
