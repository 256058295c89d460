package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/dcarter/nova-canvas-studio/internal/filehandler"
	"github.com/dcarter/nova-canvas-studio/internal/nova"
	"github.com/dcarter/nova-canvas-studio/internal/s3util"
)

// generateRequest is the JSON body the frontend submits per Generate click.
// Input images arrive base64-encoded.
type generateRequest struct {
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`

	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt"`

	ConditionImage  string  `json:"conditionImage"`
	ControlMode     string  `json:"controlMode"`
	ControlStrength float64 `json:"controlStrength"`

	ReferenceImages    []string `json:"referenceImages"`
	SimilarityStrength float64  `json:"similarityStrength"`

	Colors              []string `json:"colors"`
	ColorReferenceImage string   `json:"colorReferenceImage"`

	SourceImage     string `json:"sourceImage"`
	MaskPrompt      string `json:"maskPrompt"`
	OutpaintingMode string `json:"outpaintingMode"`

	NumberOfImages int     `json:"numberOfImages"`
	Quality        string  `json:"quality"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CfgScale       float64 `json:"cfgScale"`
	Seed           int32   `json:"seed"`
	RandomSeed     bool    `json:"randomSeed"`
}

type imageEntry struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// decodeInput decodes one base64 input image, tolerating an empty string.
func decodeInput(field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64", field)
	}
	return data, nil
}

// toOptions maps the request body onto a nova.Options, decoding input images.
func (req *generateRequest) toOptions() (nova.Options, error) {
	opts := nova.Options{
		Prompt:             req.Prompt,
		NegativePrompt:     req.NegativePrompt,
		ControlMode:        req.ControlMode,
		ControlStrength:    req.ControlStrength,
		SimilarityStrength: req.SimilarityStrength,
		Colors:             req.Colors,
		MaskPrompt:         req.MaskPrompt,
		OutpaintingMode:    req.OutpaintingMode,
		Config: nova.GenerationConfig{
			NumberOfImages: req.NumberOfImages,
			Quality:        req.Quality,
			Width:          req.Width,
			Height:         req.Height,
			CfgScale:       req.CfgScale,
			Seed:           req.Seed,
			RandomSeed:     req.RandomSeed,
		},
	}

	var err error
	if opts.ConditionImage, err = decodeInput("conditionImage", req.ConditionImage); err != nil {
		return opts, err
	}
	if opts.ColorReferenceImage, err = decodeInput("colorReferenceImage", req.ColorReferenceImage); err != nil {
		return opts, err
	}
	if opts.SourceImage, err = decodeInput("sourceImage", req.SourceImage); err != nil {
		return opts, err
	}
	for i, ref := range req.ReferenceImages {
		data, err := decodeInput(fmt.Sprintf("referenceImages[%d]", i), ref)
		if err != nil {
			return opts, err
		}
		if len(data) > 0 {
			opts.ReferenceImages = append(opts.ReferenceImages, data)
		}
	}
	return opts, nil
}

// imageEntries builds gallery entries for saved files, preserving order.
func imageEntries(sessionID string, paths []string) []imageEntry {
	entries := make([]imageEntry, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		q := url.Values{"sessionId": {sessionID}, "name": {name}}.Encode()
		entries = append(entries, imageEntry{
			Name:         name,
			URL:          "/api/images/file?" + q,
			ThumbnailURL: "/api/images/thumbnail?" + q,
		})
	}
	return entries
}

// POST /api/generate
// One UI "Generate" click maps to exactly one model invocation. Validation
// failures are reported before any network call; generation failures come
// back as a failure flag for the frontend to render.
func handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := sessionFromRequest(w, req.SessionID)
	if !ok {
		return
	}

	mode := nova.GenerationMode(req.Mode)
	if !mode.Valid() {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode: %q", req.Mode))
		return
	}

	opts, err := req.toOptions()
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	params, err := nova.Assemble(mode, opts)
	if err != nil {
		var vErr *nova.ValidationError
		if errors.As(err, &vErr) {
			httpError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := generator.Generate(r.Context(), params)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Failed() {
		log.Warn().
			Str("session_id", sess.ID).
			Str("request_id", result.RequestID).
			Str("error", result.ErrorMessage).
			Msg("Generation failed")
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"failed": true,
			"error":  "generation failed, see logs",
		})
		return
	}

	decoded, err := nova.DecodeImages(result)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", result.RequestID).
			Msg("Failed to decode generated images")
		httpError(w, http.StatusBadGateway, "could not decode generated images")
		return
	}

	paths, err := filehandler.SaveImages(decoded, sess.OutputDir, "image")
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess.setLastFiles(paths)

	if archiveBucket != "" && s3Client != nil {
		exts := make([]string, len(decoded))
		for i, data := range decoded {
			exts[i] = filehandler.SniffImageExt(data)
		}
		// Best-effort; archive failures never fail the generation. The
		// request context is gone once the handler returns, so use a
		// fresh one for the upload. Uploaded keys feed /api/archive.
		go func() {
			keys := s3util.ArchiveImages(context.Background(), s3Client, archiveBucket, sess.ID, "image", decoded, exts)
			sess.addArchivedKeys(keys)
		}()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"failed":    false,
		"requestId": result.RequestID,
		"count":     len(paths),
		"images":    imageEntries(sess.ID, paths),
	})
}
