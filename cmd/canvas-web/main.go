package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dcarter/nova-canvas-studio/internal/logging"
	"github.com/dcarter/nova-canvas-studio/internal/nova"
	"github.com/dcarter/nova-canvas-studio/internal/param"
	"github.com/dcarter/nova-canvas-studio/internal/s3util"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

// CLI flags
var (
	portFlag          int
	modelFlag         string
	modelParamFlag    string
	outputFlag        string
	archiveBucketFlag string
	timeoutFlag       time.Duration
)

// Shared clients, initialized once at startup.
var (
	generator     *nova.Generator
	s3Client      *s3.Client
	presigner     s3util.GetPresigner
	archiveBucket string
	outputBase    string
)

var rootCmd = &cobra.Command{
	Use:   "canvas-web",
	Short: "Web studio for Amazon Nova Canvas image generation",
	Long: `Canvas Web starts a local web server with a visual interface for
generating and editing images with Amazon Bedrock's Nova Canvas model:
text-to-image, color-guided and image-guided generation, subject-consistent
variation, and background replacement or removal. Generated images are saved
under a per-session output directory and can be browsed and downloaded from
the browser.

AWS credentials and region come from the standard SDK configuration chain.

Examples:
  canvas-web
  canvas-web --port 9090
  canvas-web --model amazon.nova-canvas-v1:0 --output ./renders
  canvas-web --model-param /canvas/model-id --archive-bucket my-render-archive`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", nova.DefaultModelID, "Bedrock model ID to invoke")
	rootCmd.Flags().StringVar(&modelParamFlag, "model-param", logging.EnvOrDefault("CANVAS_MODEL_PARAM", ""), "SSM parameter path holding the model ID (overrides --model)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "output", "Base directory for session output")
	rootCmd.Flags().StringVar(&archiveBucketFlag, "archive-bucket", logging.EnvOrDefault("CANVAS_ARCHIVE_BUCKET", ""), "S3 bucket to archive generated images to (optional)")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", nova.DefaultTimeout, "Per-generation timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	start := time.Now()

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

	generator = nova.NewGenerator(bedrockruntime.NewFromConfig(cfg), modelID).WithTimeout(timeoutFlag)
	outputBase = outputFlag
	archiveBucket = archiveBucketFlag
	if archiveBucket != "" {
		s3Client = s3.NewFromConfig(cfg)
		presigner = s3.NewPresignClient(s3Client)
	}

	startup := logging.NewStartupLogger("canvas-web").
		Config("modelId", modelID).
		Config("outputBase", outputBase).
		Config("port", fmt.Sprintf("%d", portFlag)).
		Feature("archive", archiveBucket != "").
		InitDuration(time.Since(start))
	if archiveBucket != "" {
		startup.S3Bucket("archive", archiveBucket)
	}
	if modelParamFlag != "" {
		startup.SSMParam("modelId", modelParamFlag)
	}
	startup.Log()

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/session", handleSession)
	mux.HandleFunc("/api/generate", handleGenerate)
	mux.HandleFunc("/api/images", handleListImages)
	mux.HandleFunc("/api/images/file", handleImageFile)
	mux.HandleFunc("/api/images/thumbnail", handleThumbnail)
	mux.HandleFunc("/api/images/zip", handleImagesZip)
	mux.HandleFunc("/api/archive", handleArchive)
	mux.HandleFunc("/api/pick", handlePick)
	mux.HandleFunc("/api/inspect", handleInspect)

	// Frontend static files (SPA fallback)
	frontendSub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access embedded frontend")
	}
	fileServer := http.FileServer(http.FS(frontendSub))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data:; style-src 'self' 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		path := r.URL.Path
		if path != "/" {
			f, err := frontendSub.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})

	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Msg("Starting web server")
	fmt.Printf("\n  Canvas Studio: http://localhost:%d\n\n", portFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins; this server is a local studio.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
