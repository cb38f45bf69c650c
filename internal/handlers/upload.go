// upload.go holds the upload and extraction steps shared by the stored and
// stateless analysis endpoints.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/result-analyser-api/internal/metrics"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	noDataMessage = "No result data found. Please check the document format."
)

// upload is a validated PDF upload.
type upload struct {
	filename string
	data     []byte
}

// readUpload reads the multipart "file" field. It writes the error response
// itself and returns false when the upload is unusable.
func (h *Handler) readUpload(c *gin.Context) (*upload, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorJSON(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("File exceeds the %d MB upload limit", h.MaxUploadBytes>>20))
			return nil, false
		}
		errorJSON(c, http.StatusBadRequest, "invalid_request",
			"No PDF file provided. Upload a file with the field name 'file'.")
		return nil, false
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		errorJSON(c, http.StatusBadRequest, "invalid_file_type",
			fmt.Sprintf("Unsupported file format '%s'. Only .pdf files are accepted.", ext))
		return nil, false
	}

	// Go Pattern: io.ReadAll reads the entire reader into a byte slice.
	// The pdf library needs random access, so the upload is held in memory.
	data, err := io.ReadAll(file)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "read_error", "Failed to read uploaded file")
		return nil, false
	}

	return &upload{filename: filepath.Base(header.Filename), data: data}, true
}

// extract reads the document and scans it for grade records.
func (h *Handler) extract(data []byte) (*results.Extraction, error) {
	doc, err := h.ReadDocument(data)
	if err != nil {
		return nil, err
	}
	if doc.EmptyPages > 0 {
		log.Printf("⚠️  %d of %d pages had no extractable text", doc.EmptyPages, doc.PageCount)
	}
	return results.Extract(doc.Pages, h.Rules)
}

// respondExtractError maps an extraction failure to a status code and records it.
func (h *Handler) respondExtractError(c *gin.Context, source, filename string, err error) {
	switch {
	case errors.Is(err, results.ErrSourceUnreadable):
		h.Metrics.RecordAnalysis(source, metrics.OutcomeUnreadable)
		log.Printf("⚠️  Unreadable document %q: %v", filename, err)
		errorJSON(c, http.StatusBadRequest, "unreadable_document",
			"The uploaded file could not be read as a PDF")
	case errors.Is(err, results.ErrNoData):
		h.Metrics.RecordAnalysis(source, metrics.OutcomeNoData)
		log.Printf("⚠️  No result data in %q: %v", filename, err)
		errorJSON(c, http.StatusUnprocessableEntity, "no_data", noDataMessage)
	default:
		h.Metrics.RecordAnalysis(source, metrics.OutcomeError)
		log.Printf("❌ Analysis of %q failed: %v", filename, err)
		errorJSON(c, http.StatusInternalServerError, "analysis_failed", "Failed to analyse the document")
	}
}

// logExtraction writes one summary line per analysed document.
func logExtraction(filename string, ext *results.Extraction) {
	if len(ext.Warnings) == 0 {
		log.Printf("✅ %s: %d records from %d pages", filename, len(ext.Records), ext.PageCount)
		return
	}
	counts := map[results.WarningKind]int{}
	for _, w := range ext.Warnings {
		counts[w.Kind]++
	}
	log.Printf("✅ %s: %d records from %d pages (%d malformed, %d duplicate)",
		filename, len(ext.Records), ext.PageCount,
		counts[results.WarningMalformedRecord], counts[results.WarningDuplicateRecord])
}

// downloadName derives the workbook name offered for a stored analysis.
func downloadName(original string) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	base = sanitizeFilename(base)
	if base == "" {
		return latestDownloadName
	}
	return base + "_analysis.xlsx"
}

// sanitizeFilename removes characters that aren't safe for filenames.
// Go Pattern: Keep it simple. Replace unsafe characters with hyphens
// and trim the result; this is only for the Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
