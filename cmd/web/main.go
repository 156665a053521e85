package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"blend-lens/pkg/config"
	"blend-lens/pkg/parser"
	"blend-lens/pkg/printer"
	"blend-lens/pkg/types"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxUpload caps the request body of /api/decode
const maxUpload = 256 << 20

func main() {
	// Get port from environment or default to 3000
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	cfg, err := config.Resolve("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts, err := cfg.PrinterOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logCfg := zap.NewProductionConfig()
	if err := logCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	parser.SetLogger(logger)
	printer.SetLogger(logger)

	gin.SetMode(gin.ReleaseMode)
	r := newRouter(opts)

	// Print URL and start server
	fmt.Printf("http://127.0.0.1:%s\n", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newRouter(opts printer.Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Enable CORS for browser clients
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	// Health check endpoint
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Decode endpoint: raw .blend bytes in, XML (or a JSON tree) out
	r.POST("/api/decode", handleDecode(opts))

	// Serve a UI build (if exists)
	if _, err := os.Stat("web/build"); err == nil {
		r.Static("/static", "web/build/static")
		r.StaticFile("/", "web/build/index.html")
		r.NoRoute(func(c *gin.Context) {
			c.File("web/build/index.html")
		})
	} else {
		// Fallback: simple upload page
		r.GET("/", func(c *gin.Context) {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fallbackHTML))
		})
	}

	return r
}

func handleDecode(base printer.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Read request body
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpload+1))
		if err != nil {
			fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
			return
		}
		if len(body) > maxUpload {
			fail(c, http.StatusRequestEntityTooLarge, "TOO_LARGE", fmt.Sprintf("body exceeds %d bytes", maxUpload))
			return
		}

		// Per-request options
		opts := base
		for _, q := range []struct {
			key string
			dst *bool
		}{
			{"types", &opts.TypeCatalog},
			{"data", &opts.Data},
			{"raw_pointers", &opts.RawPointers},
			{"digest", &opts.BlockDigest},
		} {
			if err := queryBool(c, q.key, q.dst); err != nil {
				fail(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
				return
			}
		}

		if c.Query("format") == "json" {
			sink := printer.NewTreeSink()
			if err := convert(body, sink, opts); err != nil {
				fail(c, http.StatusBadRequest, parser.Code(err), err.Error())
				return
			}
			c.JSON(http.StatusOK, sink.Root)
			return
		}

		var buf bytes.Buffer
		if err := convert(body, printer.NewXMLSink(&buf), opts); err != nil {
			fail(c, http.StatusBadRequest, parser.Code(err), err.Error())
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", buf.Bytes())
	}
}

func convert(body []byte, sink printer.Sink, opts printer.Options) error {
	if err := printer.Convert(bytes.NewReader(body), sink, opts); err != nil {
		return err
	}
	return sink.Close()
}

func queryBool(c *gin.Context, key string, dst *bool) error {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return errors.New("query parameter " + key + " must be a boolean")
	}
	*dst = v
	return nil
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"ok":    false,
		"error": &types.ErrorInfo{Code: code, Message: message},
	})
}

const fallbackHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Blend Lens - .blend Structure Viewer</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 960px; margin: 50px auto; padding: 20px; }
        h1 { color: #e87d0d; }
        button { background: #e87d0d; color: white; padding: 10px 20px; border: none; cursor: pointer; }
        pre { background: #f5f5f5; padding: 15px; overflow-x: auto; max-height: 600px; }
    </style>
</head>
<body>
    <h1>Blend Lens</h1>
    <p>Pick an uncompressed .blend file:</p>
    <input type="file" id="input" accept=".blend">
    <label><input type="checkbox" id="types" checked> types</label>
    <label><input type="checkbox" id="raw"> raw pointers</label>
    <br><br>
    <button onclick="decode()">Decode</button>
    <h2>Result:</h2>
    <pre id="output">Results will appear here...</pre>

    <script>
        async function decode() {
            const file = document.getElementById('input').files[0];
            const output = document.getElementById('output');
            if (!file) {
                output.textContent = 'Error: no file selected';
                return;
            }
            const query = new URLSearchParams({
                types: document.getElementById('types').checked,
                raw_pointers: document.getElementById('raw').checked,
            });
            try {
                const response = await fetch('/api/decode?' + query, {
                    method: 'POST',
                    headers: {'Content-Type': 'application/octet-stream'},
                    body: file
                });
                output.textContent = await response.text();
            } catch (err) {
                output.textContent = 'Error: ' + err.message;
            }
        }
    </script>
</body>
</html>`
