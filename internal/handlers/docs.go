// docs.go serves the OpenAPI document and a Swagger UI page for it.
//
// The OpenAPI 3.0 document is written by hand as YAML and embedded in the
// binary. The UI page takes its title and version from the document's info
// block, so the two never disagree.
package handlers

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// openAPISpec is the OpenAPI 3.0 YAML document embedded at compile time.
//
//go:embed openapi.yaml
var openAPISpec []byte

// openAPISpecPath is where the router mounts ServeOpenAPISpec.
const openAPISpecPath = "/api/docs/openapi.yaml"

// openAPIETag only changes when the binary ships a different document.
var openAPIETag = fmt.Sprintf(`"%x"`, sha256.Sum256(openAPISpec))

// swaggerPage is rendered once at startup.
// Go Pattern: html/template escapes the values it inserts, so the title
// from the YAML can't break out of the <title> element.
var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}} {{.Version}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>
    body { margin: 0; background: #fafafa; }
    .swagger-ui .topbar { display: none; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: {{.SpecURL}},
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      deepLinking: true,
      persistAuthorization: true,
      tryItOutEnabled: true,
      defaultModelsExpandDepth: 1,
    });
  </script>
</body>
</html>`))

// swaggerHTML is the rendered UI page, built from the document's info block.
var swaggerHTML = renderSwaggerPage(openAPISpec)

// docInfo is the part of the OpenAPI document the UI page needs.
type docInfo struct {
	Info struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"info"`
}

func renderSwaggerPage(spec []byte) []byte {
	var doc docInfo
	if err := yaml.Unmarshal(spec, &doc); err != nil || doc.Info.Title == "" {
		doc.Info.Title = "Result Analyser API"
	}

	var buf bytes.Buffer
	err := swaggerPage.Execute(&buf, struct {
		Title, Version, SpecURL string
	}{doc.Info.Title, doc.Info.Version, openAPISpecPath})
	if err != nil {
		panic(fmt.Sprintf("render swagger page: %v", err))
	}
	return buf.Bytes()
}

// ServeOpenAPISpec returns the raw OpenAPI YAML document. Clients that send
// back the ETag get a 304.
// GET /api/docs/openapi.yaml
func (h *Handler) ServeOpenAPISpec(c *gin.Context) {
	c.Header("ETag", openAPIETag)
	c.Header("Cache-Control", "no-cache")
	if c.GetHeader("If-None-Match") == openAPIETag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/yaml", openAPISpec)
}

// ServeSwaggerUI returns the Swagger UI page. Authorization is persisted in
// the browser so a pasted bearer token survives reloads.
// GET /api/docs
func (h *Handler) ServeSwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", swaggerHTML)
}
