package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scrubd-io/scrubd/internal/audit"
	"github.com/scrubd-io/scrubd/internal/extract"
	"github.com/scrubd-io/scrubd/internal/mask"
	"github.com/scrubd-io/scrubd/internal/pipeline"
)

// maxJSONBody caps JSON request bodies; file uploads are gated separately
// by the extractor.
const maxJSONBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		components := map[string]string{
			"scanner": "ok",
		}
		if s.engine.NLPAvailable() {
			components["nlp"] = "ok"
		} else {
			components["nlp"] = "absent"
		}
		if s.auditStore == nil {
			components["audit"] = "disabled"
		} else {
			components["audit"] = "ok"
		}
		resp["components"] = components
	}
	writeJSON(w, http.StatusOK, resp)
}

type detectRequest struct {
	Text          string   `json:"text"`
	Mode          string   `json:"mode"`
	MinConfidence *float64 `json:"minConfidence,omitempty"`
}

type maskRequest struct {
	Text                string   `json:"text"`
	Mode                string   `json:"mode"`
	MinConfidence       *float64 `json:"minConfidence,omitempty"`
	Masking             string   `json:"masking"`
	IncludePlaceholders bool     `json:"includePlaceholders"`
	MaskTypes           []string `json:"maskTypes,omitempty"`
}

// requestText resolves the text to scan from either a multipart file upload
// (field "file") or a JSON body. Returns the text, whether extraction was
// partial, and the decoded JSON request when there was one.
func (s *Server) requestText(r *http.Request, into interface{}) (text string, partial bool, err error) {
	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxJSONBody); err != nil {
			return "", false, errBadRequest
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", false, errBadRequest
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", false, errBadRequest
		}
		fillFromForm(r, into)
		text, err = s.extractor.ExtractBytes(r.Context(), header.Filename, content)
		var pe *extract.PartialError
		if errors.As(err, &pe) {
			return pe.Text, true, nil
		}
		if err != nil {
			return "", false, err
		}
		return text, false, nil
	}

	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(into); err != nil {
		return "", false, errBadRequest
	}
	switch req := into.(type) {
	case *detectRequest:
		text = req.Text
	case *maskRequest:
		text = req.Text
	}
	if text == "" {
		return "", false, errBadRequest
	}
	return text, false, nil
}

// fillFromForm copies request options sent as multipart form fields alongside
// a file upload.
func fillFromForm(r *http.Request, into interface{}) {
	var minConf *float64
	if v := r.FormValue("minConfidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			minConf = &f
		}
	}
	switch req := into.(type) {
	case *detectRequest:
		req.Mode = r.FormValue("mode")
		req.MinConfidence = minConf
	case *maskRequest:
		req.Mode = r.FormValue("mode")
		req.MinConfidence = minConf
		req.Masking = r.FormValue("masking")
		req.IncludePlaceholders = r.FormValue("includePlaceholders") == "true"
		if v := r.FormValue("maskTypes"); v != "" {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					req.MaskTypes = append(req.MaskTypes, part)
				}
			}
		}
	}
}

var errBadRequest = errors.New("bad request")

// writeDetectionError maps pipeline and extraction failures to API errors
// without echoing any request content.
func writeDetectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, "invalid_input", "text or file is required")
	case errors.Is(err, pipeline.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, "invalid_input", "mode must be regex or hybrid")
	case errors.Is(err, extract.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "unsupported_format", "file format is not supported")
	case errors.Is(err, extract.ErrSizeExceeded):
		writeError(w, http.StatusRequestEntityTooLarge, "size_exceeded", "file exceeds the size limit")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	text, partial, err := s.requestText(r, &req)
	if err != nil {
		writeDetectionError(w, err)
		return
	}

	minConf := 0.0
	if req.MinConfidence != nil {
		minConf = *req.MinConfidence
	}

	d, err := s.engine.Detect(r.Context(), pipeline.DetectRequest{
		Text:          text,
		Mode:          req.Mode,
		MinConfidence: minConf,
	})
	if err != nil {
		writeDetectionError(w, err)
		return
	}

	s.record(r, "api", d, text)

	resp := map[string]interface{}{
		"text":           text,
		"entities":       d.Entities,
		"risk":           d.Risk,
		"filtered_count": d.FilteredCount,
		"mode":           d.Mode,
		"nlp":            d.NLPUsed,
		"nlp_degraded":   d.NLPDegraded,
	}
	if partial {
		resp["partial"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	text, partial, err := s.requestText(r, &req)
	if err != nil {
		writeDetectionError(w, err)
		return
	}

	minConf := 0.0
	if req.MinConfidence != nil {
		minConf = *req.MinConfidence
	}
	masking := req.Masking
	if masking == "" {
		masking = mask.ModePartial
	}

	res, err := s.engine.Mask(r.Context(), pipeline.MaskRequest{
		Text:          text,
		Mode:          req.Mode,
		MinConfidence: minConf,
		Masking: mask.Config{
			Mode:                masking,
			IncludePlaceholders: req.IncludePlaceholders,
			MaskTypes:           req.MaskTypes,
		},
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidMode) {
			writeDetectionError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_input", "masking must be partial, full, or synthetic")
		return
	}

	s.record(r, "api", res.Detection, text)

	resp := map[string]interface{}{
		"masked":         res.Masked,
		"filtered_count": res.Detection.FilteredCount,
		"masking":        masking,
		"maskTypes":      req.MaskTypes,
		"nlp":            res.Detection.NLPUsed,
		"nlp_degraded":   res.Detection.NLPDegraded,
	}
	if partial {
		resp["partial"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	type patternSummary struct {
		Name        string `json:"name"`
		Label       string `json:"label"`
		Sensitivity int    `json:"sensitivity"`
		Validator   string `json:"validator,omitempty"`
	}
	compiled := s.engine.Scanner().Recognizers()
	out := make([]patternSummary, 0, len(compiled))
	seen := make(map[string]bool)
	for _, p := range compiled {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, patternSummary{
			Name:        p.Name,
			Label:       p.Label,
			Sensitivity: p.Sensitivity,
			Validator:   p.Validator,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recognizers": out})
}

// record appends a signed audit summary, best-effort. Only counts and the
// input hash are persisted.
func (s *Server) record(r *http.Request, source string, d *pipeline.Detection, text string) {
	if s.auditStore == nil {
		return
	}
	rec := audit.NewRecord(source, d.Mode, text)
	rec.PlaceholderCount = d.Risk.PlaceholderCount
	rec.FilteredCount = d.FilteredCount
	rec.RiskScore = d.Risk.Score
	rec.RiskBucket = d.Risk.Bucket
	for label, n := range d.Risk.Counts {
		rec.Counts[label] = n
	}
	if err := s.auditStore.Append(r.Context(), rec); err != nil {
		log.Warn().Err(err).Msg("audit append failed")
	}
}
