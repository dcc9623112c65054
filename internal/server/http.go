package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
	"github.com/Beijizb/obsidian-image-beiji/internal/paste"
	"github.com/Beijizb/obsidian-image-beiji/internal/plugin"
)

// HTTPServer exposes the plugin over HTTP for hosts that cannot speak stdio.
type HTTPServer struct {
	plugin *plugin.Plugin
	engine *gin.Engine
	log    *logrus.Entry
}

// HTTPPasteResponse is the body of POST /v1/paste.
type HTTPPasteResponse struct {
	DefaultPrevented bool                `json:"defaultPrevented"`
	Replacement      string              `json:"replacement,omitempty"`
	Notices          []ShowMessageParams `json:"notices"`
}

// apiError is the body of every failed request.
type apiError struct {
	Error string `json:"error"`
}

// NewHTTP builds the router. A nil gatherer disables /metrics.
func NewHTTP(p *plugin.Plugin, gatherer prometheus.Gatherer) *HTTPServer {
	h := &HTTPServer{
		plugin: p,
		engine: gin.New(),
		log:    logging.For("http"),
	}
	h.engine.Use(gin.Recovery(), h.requestLogger())

	h.engine.GET("/healthz", h.health)
	if gatherer != nil {
		h.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := h.engine.Group("/v1")
	v1.POST("/paste", h.paste)
	v1.GET("/settings", h.settings)
	v1.PUT("/settings/:key", h.updateSetting)
	v1.POST("/settings/reload", h.reload)
	return h
}

// Handler returns the router.
func (h *HTTPServer) Handler() http.Handler {
	return h.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (h *HTTPServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (h *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}

func (h *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"active":     h.plugin.Active(),
		"configured": h.plugin.Config().Validate() == nil,
	})
}

// recordingEditor keeps the last replacement for the response body.
type recordingEditor struct {
	text string
}

func (e *recordingEditor) ReplaceSelection(text string) {
	e.text = text
}

func (h *HTTPServer) paste(c *gin.Context) {
	var params PasteParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid request: " + err.Error()})
		return
	}

	editor := &recordingEditor{}
	resp := HTTPPasteResponse{Notices: []ShowMessageParams{}}
	notifier := paste.NotifierFunc(func(n paste.Notice) {
		resp.Notices = append(resp.Notices, showMessage(n))
	})

	resp.DefaultPrevented = h.plugin.HandlePaste(c.Request.Context(), params.Event(editor), notifier)
	resp.Replacement = editor.text
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPServer) settings(c *gin.Context) {
	c.JSON(http.StatusOK, SettingsResult{Fields: h.plugin.Settings()})
}

func (h *HTTPServer) updateSetting(c *gin.Context) {
	var body struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid request: " + err.Error()})
		return
	}

	if err := h.plugin.UpdateSetting(c.Param("key"), body.Value); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, apiError{Error: cfgErr.Error()})
			return
		}
		h.log.WithError(err).Error("failed to save settings")
		c.JSON(http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SettingsResult{Fields: h.plugin.Settings()})
}

func (h *HTTPServer) reload(c *gin.Context) {
	if err := h.plugin.Reload(); err != nil {
		h.log.WithError(err).Error("failed to reload settings")
		c.JSON(http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SettingsResult{Fields: h.plugin.Settings()})
}
