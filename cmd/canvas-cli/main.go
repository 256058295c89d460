package main

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dcarter/nova-canvas-studio/internal/filehandler"
	"github.com/dcarter/nova-canvas-studio/internal/logging"
	"github.com/dcarter/nova-canvas-studio/internal/nova"
	"github.com/dcarter/nova-canvas-studio/internal/param"
)

// CLI flags
var (
	modeFlag       string
	promptFlag     string
	negativeFlag   string
	sourceFlag     string
	refFlags       []string
	conditionFlag  string
	colorFlags     []string
	maskPromptFlag string
	outpaintFlag   string
	controlMode    string
	controlStr     float64
	similarityFlag float64

	countFlag   int
	qualityFlag string
	widthFlag   int
	heightFlag  int
	cfgFlag     float64
	seedFlag    int32
	outputFlag  string

	modelFlag      string
	modelParamFlag string
	timeoutFlag    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "canvas-cli",
	Short: "One-shot Amazon Nova Canvas image generation",
	Long: `Canvas CLI performs a single Nova Canvas generation from the command
line and writes the resulting images under a timestamped output directory.

AWS credentials and region come from the standard SDK configuration chain.

Examples:
  canvas-cli --prompt "a red bicycle leaning on a wall"
  canvas-cli --mode color-guided --prompt "dreamy landscape" --color "#81FC81" --color "#386739"
  canvas-cli --mode image-guided --prompt "3d film style" --condition-image guide.png
  canvas-cli --mode subject-variation --prompt "the subject at the beach" --ref-image cat1.jpg --ref-image cat2.jpg
  canvas-cli --mode background-replace --prompt "a stylish kitchen" --source-image me.jpg --mask-prompt person
  canvas-cli --mode background-remove --source-image product.png`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&modeFlag, "mode", string(nova.ModeTextToImage), "Generation mode: text-to-image, color-guided, image-guided, subject-variation, background-replace, background-remove")
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Text prompt (background description for background-replace)")
	rootCmd.Flags().StringVar(&negativeFlag, "negative", "", "Negative prompt")
	rootCmd.Flags().StringVar(&sourceFlag, "source-image", "", "Source image for background replace/remove")
	rootCmd.Flags().StringArrayVar(&refFlags, "ref-image", nil, "Reference image for subject-variation (repeat up to 3 times)")
	rootCmd.Flags().StringVar(&conditionFlag, "condition-image", "", "Conditioning image for image-guided generation")
	rootCmd.Flags().StringArrayVar(&colorFlags, "color", nil, "Hex color for color-guided generation (repeat up to 5 times)")
	rootCmd.Flags().StringVar(&maskPromptFlag, "mask-prompt", "", "Object(s) to keep for background-replace")
	rootCmd.Flags().StringVar(&outpaintFlag, "outpainting-mode", nova.OutpaintingPrecise, "DEFAULT or PRECISE")
	rootCmd.Flags().StringVar(&controlMode, "control-mode", nova.ControlModeSegmentation, "CANNY_EDGE or SEGMENTATION")
	rootCmd.Flags().Float64Var(&controlStr, "control-strength", 0.3, "Conditioning strength, 0.1-1.0")
	rootCmd.Flags().Float64Var(&similarityFlag, "similarity", 0.9, "Similarity strength for subject-variation, 0.2-1.0")

	rootCmd.Flags().IntVarP(&countFlag, "count", "n", 1, "Number of images, 1-5")
	rootCmd.Flags().StringVar(&qualityFlag, "quality", "standard", "standard or premium")
	rootCmd.Flags().IntVar(&widthFlag, "width", 1024, "Output width")
	rootCmd.Flags().IntVar(&heightFlag, "height", 768, "Output height")
	rootCmd.Flags().Float64Var(&cfgFlag, "cfg-scale", 7.0, "Prompt adherence, 1.0-10.0")
	rootCmd.Flags().Int32Var(&seedFlag, "seed", -1, "Seed 0-858993459; -1 draws a random seed")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "output", "Base directory for output")

	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", nova.DefaultModelID, "Bedrock model ID to invoke")
	rootCmd.Flags().StringVar(&modelParamFlag, "model-param", logging.EnvOrDefault("CANVAS_MODEL_PARAM", ""), "SSM parameter path holding the model ID (overrides --model)")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", nova.DefaultTimeout, "Per-generation timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadImage reads a flag-supplied image, exiting fatally when it cannot be
// used as a generation input.
func loadImage(flagName, path string) []byte {
	data, _, err := filehandler.LoadImageFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("flag", flagName).Msg("Failed to load input image")
	}
	return data
}

func buildOptions() nova.Options {
	opts := nova.Options{
		Prompt:             promptFlag,
		NegativePrompt:     negativeFlag,
		ControlMode:        controlMode,
		ControlStrength:    controlStr,
		SimilarityStrength: similarityFlag,
		Colors:             colorFlags,
		MaskPrompt:         maskPromptFlag,
		OutpaintingMode:    outpaintFlag,
		Config: nova.GenerationConfig{
			NumberOfImages: countFlag,
			Quality:        qualityFlag,
			Width:          widthFlag,
			Height:         heightFlag,
			CfgScale:       cfgFlag,
			Seed:           seedFlag,
			RandomSeed:     seedFlag < 0,
		},
	}

	if conditionFlag != "" {
		opts.ConditionImage = loadImage("--condition-image", conditionFlag)
	}
	if sourceFlag != "" {
		opts.SourceImage = loadImage("--source-image", sourceFlag)
	}
	for _, ref := range refFlags {
		opts.ReferenceImages = append(opts.ReferenceImages, loadImage("--ref-image", ref))
	}
	return opts
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	mode := nova.GenerationMode(modeFlag)
	if !mode.Valid() {
		log.Fatal().Str("mode", modeFlag).Msg("Unknown generation mode")
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS configuration")
	}

	modelID := modelFlag
	if modelParamFlag != "" {
		fetcher := param.NewParameterStoreFetcher(ssm.NewFromConfig(cfg))
		modelID = param.ResolveModelID(ctx, fetcher, modelParamFlag, modelFlag)
	}

	params, err := nova.Assemble(mode, buildOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid options for this mode")
	}

	generator := nova.NewGenerator(bedrockruntime.NewFromConfig(cfg), modelID).WithTimeout(timeoutFlag)

	result, err := generator.Generate(ctx, params)
	if err != nil {
		log.Fatal().Err(err).Msg("Generation failed")
	}
	if result.Failed() {
		log.Fatal().Str("error", result.ErrorMessage).Msg("Generation failed")
	}

	decoded, err := nova.DecodeImages(result)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to decode generated images")
	}

	dir := filehandler.SessionDir(outputFlag, time.Now())
	paths, err := filehandler.SaveImages(decoded, dir, "image")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save images")
	}

	fmt.Printf("\nGenerated %d image(s):\n", len(paths))
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}
}
