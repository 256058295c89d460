package nova

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func testConfig() GenerationConfig {
	return GenerationConfig{
		NumberOfImages: 1,
		Quality:        "standard",
		Width:          1024,
		Height:         768,
		CfgScale:       7.0,
		Seed:           42,
	}
}

// taskBlocks returns which task-specific blocks are populated on the payload.
func taskBlocks(p *InferenceParams) []string {
	var blocks []string
	if p.TextToImageParams != nil {
		blocks = append(blocks, "textToImageParams")
	}
	if p.ColorGuidedGenerationParams != nil {
		blocks = append(blocks, "colorGuidedGenerationParams")
	}
	if p.ImageVariationParams != nil {
		blocks = append(blocks, "imageVariationParams")
	}
	if p.OutPaintingParams != nil {
		blocks = append(blocks, "outPaintingParams")
	}
	if p.BackgroundRemovalParams != nil {
		blocks = append(blocks, "backgroundRemovalParams")
	}
	return blocks
}

func TestAssembleTaskBlocks(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G'}

	tests := []struct {
		name       string
		mode       GenerationMode
		opts       Options
		wantTask   string
		wantBlock  string
		wantConfig bool
	}{
		{
			name:       "text to image",
			mode:       ModeTextToImage,
			opts:       Options{Prompt: "a lake at sunset", Config: testConfig()},
			wantTask:   "TEXT_IMAGE",
			wantBlock:  "textToImageParams",
			wantConfig: true,
		},
		{
			name: "color guided",
			mode: ModeColorGuided,
			opts: Options{
				Prompt: "dreamy landscape",
				Colors: []string{"#81FC81", "#386739"},
				Config: testConfig(),
			},
			wantTask:   "COLOR_GUIDED_GENERATION",
			wantBlock:  "colorGuidedGenerationParams",
			wantConfig: true,
		},
		{
			name: "image guided",
			mode: ModeImageGuided,
			opts: Options{
				Prompt:         "3d animated film style",
				ConditionImage: img,
				ControlMode:    ControlModeSegmentation,
				Config:         testConfig(),
			},
			wantTask:   "TEXT_IMAGE",
			wantBlock:  "textToImageParams",
			wantConfig: true,
		},
		{
			name: "subject variation",
			mode: ModeSubjectVariation,
			opts: Options{
				Prompt:             "subject in a classroom",
				ReferenceImages:    [][]byte{img},
				SimilarityStrength: 0.9,
				Config:             testConfig(),
			},
			wantTask:   "IMAGE_VARIATION",
			wantBlock:  "imageVariationParams",
			wantConfig: true,
		},
		{
			name: "background replace",
			mode: ModeBackgroundReplace,
			opts: Options{
				Prompt:          "a stylish kitchen",
				SourceImage:     img,
				MaskPrompt:      "person",
				OutpaintingMode: OutpaintingPrecise,
				Config:          testConfig(),
			},
			wantTask:   "OUTPAINTING",
			wantBlock:  "outPaintingParams",
			wantConfig: true,
		},
		{
			name:       "background remove",
			mode:       ModeBackgroundRemove,
			opts:       Options{SourceImage: img, Config: testConfig()},
			wantTask:   "BACKGROUND_REMOVAL",
			wantBlock:  "backgroundRemovalParams",
			wantConfig: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Assemble(tt.mode, tt.opts)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if params.TaskType != tt.wantTask {
				t.Errorf("TaskType = %q, want %q", params.TaskType, tt.wantTask)
			}

			blocks := taskBlocks(params)
			if len(blocks) != 1 {
				t.Fatalf("payload has %d task blocks %v, want exactly 1", len(blocks), blocks)
			}
			if blocks[0] != tt.wantBlock {
				t.Errorf("task block = %q, want %q", blocks[0], tt.wantBlock)
			}

			hasConfig := params.ImageGenerationConfig != nil
			if hasConfig != tt.wantConfig {
				t.Errorf("generation config present = %v, want %v", hasConfig, tt.wantConfig)
			}
		})
	}
}

func TestAssembleValidation(t *testing.T) {
	tests := []struct {
		name string
		mode GenerationMode
		opts Options
	}{
		{
			name: "image guided without conditioning image",
			mode: ModeImageGuided,
			opts: Options{Prompt: "a person", Config: testConfig()},
		},
		{
			name: "subject variation without reference images",
			mode: ModeSubjectVariation,
			opts: Options{Prompt: "a person", Config: testConfig()},
		},
		{
			name: "background replace without source image",
			mode: ModeBackgroundReplace,
			opts: Options{Prompt: "a kitchen", MaskPrompt: "person", Config: testConfig()},
		},
		{
			name: "background replace without description",
			mode: ModeBackgroundReplace,
			opts: Options{SourceImage: []byte{1}, MaskPrompt: "person", Config: testConfig()},
		},
		{
			name: "background replace without mask prompt",
			mode: ModeBackgroundReplace,
			opts: Options{SourceImage: []byte{1}, Prompt: "a kitchen", Config: testConfig()},
		},
		{
			name: "background remove without source image",
			mode: ModeBackgroundRemove,
			opts: Options{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Assemble(tt.mode, tt.opts)
			if params != nil {
				t.Error("Assemble() returned a payload alongside an error")
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Assemble() error = %v, want *ValidationError", err)
			}
			if vErr.Mode != tt.mode {
				t.Errorf("ValidationError.Mode = %v, want %v", vErr.Mode, tt.mode)
			}
		})
	}
}

func TestAssembleUnknownMode(t *testing.T) {
	if _, err := Assemble(GenerationMode("sketch"), Options{}); err == nil {
		t.Error("Assemble() with unknown mode succeeded, want error")
	}
}

func TestAssembleOptionalFieldsOmitted(t *testing.T) {
	params, err := Assemble(ModeTextToImage, Options{
		Prompt: "a red bicycle",
		Config: testConfig(),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, key := range []string{"negativeText", "conditionImage", "controlMode", "controlStrength"} {
		if strings.Contains(string(raw), key) {
			t.Errorf("payload contains %q, want it omitted: %s", key, raw)
		}
	}

	// Color-guided without a reference image must omit the key entirely.
	params, err = Assemble(ModeColorGuided, Options{
		Prompt: "landscape",
		Colors: []string{"#FFFFFF"},
		Config: testConfig(),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	raw, err = json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "referenceImage") {
		t.Errorf("payload contains referenceImage, want it omitted: %s", raw)
	}
}

func TestAssembleOutpaintingOmitsDimensions(t *testing.T) {
	params, err := Assemble(ModeBackgroundReplace, Options{
		Prompt:      "a sparse stylish kitchen",
		SourceImage: []byte{1, 2, 3},
		MaskPrompt:  "person",
		Config:      testConfig(),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), `"width"`) || strings.Contains(string(raw), `"height"`) {
		t.Errorf("outpainting payload carries dimensions, want them omitted: %s", raw)
	}
}

func TestAssembleFixedSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 12345

	for i := 0; i < 3; i++ {
		params, err := Assemble(ModeTextToImage, Options{Prompt: "a cat", Config: cfg})
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		if params.ImageGenerationConfig.Seed != 12345 {
			t.Fatalf("seed = %d, want 12345", params.ImageGenerationConfig.Seed)
		}
	}
}

func TestAssembleRandomSeed(t *testing.T) {
	cfg := testConfig()
	cfg.RandomSeed = true

	seen := make(map[int32]bool)
	for i := 0; i < 8; i++ {
		params, err := Assemble(ModeTextToImage, Options{Prompt: "a cat", Config: cfg})
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		seed := params.ImageGenerationConfig.Seed
		if seed < 0 || seed > MaxSeed {
			t.Fatalf("seed = %d, out of range [0, %d]", seed, MaxSeed)
		}
		seen[seed] = true
	}
	if len(seen) < 2 {
		t.Errorf("8 random assemblies produced %d distinct seeds, want at least 2", len(seen))
	}
}

func TestAssembleTextToImageExample(t *testing.T) {
	params, err := Assemble(ModeTextToImage, Options{
		Prompt: "a red bicycle",
		Config: GenerationConfig{
			NumberOfImages: 2,
			Quality:        "standard",
			Width:          1024,
			Height:         768,
			CfgScale:       7.0,
			Seed:           42,
		},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if params.TaskType != "TEXT_IMAGE" {
		t.Errorf("TaskType = %q, want TEXT_IMAGE", params.TaskType)
	}
	if params.TextToImageParams.Text != "a red bicycle" {
		t.Errorf("Text = %q, want %q", params.TextToImageParams.Text, "a red bicycle")
	}

	cfg := params.ImageGenerationConfig
	if cfg.NumberOfImages != 2 || cfg.Width != 1024 || cfg.Height != 768 || cfg.Seed != 42 {
		t.Errorf("config = %+v, want numberOfImages=2 width=1024 height=768 seed=42", cfg)
	}
	if cfg.Quality != "standard" {
		t.Errorf("Quality = %q, want standard", cfg.Quality)
	}
}
