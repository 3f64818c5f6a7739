// Package api provides the REST control surface for the ondas sequencer
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ohmyondas/ondas/pkg/converter"
	"github.com/ohmyondas/ondas/pkg/player"
	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// @title Ondas API
// @version 1.0
// @description Control surface for the ondas step sequencer
// @host localhost:8080
// @BasePath /api/v1

// Server exposes one player over HTTP.
type Server struct {
	player *player.Player
	conv   *converter.Converter
}

// NewServer creates a server. A nil converter gets the defaults.
func NewServer(p *player.Player, conv *converter.Converter) *Server {
	if conv == nil {
		conv = converter.New(nil, sequencer.DefaultTempo, 1)
	}
	return &Server{player: p, conv: conv}
}

// StartServer starts the API server on the specified port
func StartServer(port int, p *player.Player, conv *converter.Converter) error {
	return NewServer(p, conv).Router().Run(fmt.Sprintf(":%d", port))
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/state", s.getState)
		v1.GET("/conditions", listConditions)
		v1.GET("/params", listParams)

		transport := v1.Group("/transport")
		transport.POST("/start", s.transport(func(p *player.Player) { p.Start() }))
		transport.POST("/stop", s.transport(func(p *player.Player) { p.Stop() }))
		transport.POST("/pause", s.transport(func(p *player.Player) { p.Pause() }))
		transport.POST("/reset", s.transport(func(p *player.Player) {
			p.Do(func(e *sequencer.Engine) { e.Reset() })
		}))

		v1.PUT("/tempo", s.setTempo)
		v1.PUT("/bpm-override", s.setBPMOverride)
		v1.PUT("/swing", s.setSwing)
		v1.POST("/swing/adjust", s.adjustSwing)
		v1.PUT("/fill", s.setFill)
		v1.PUT("/length", s.setLength)
		v1.PUT("/position", s.setPosition)

		tracks := v1.Group("/tracks/:track")
		tracks.POST("/mute", s.trackEdit((*sequencer.Engine).MuteTrack))
		tracks.POST("/unmute", s.trackEdit((*sequencer.Engine).UnmuteTrack))
		tracks.POST("/solo", s.trackEdit((*sequencer.Engine).SoloTrack))
		tracks.POST("/unsolo", s.trackEdit((*sequencer.Engine).UnsoloTrack))
		tracks.POST("/select", s.trackEdit((*sequencer.Engine).SelectTrack))
		tracks.POST("/clear", s.trackEdit((*sequencer.Engine).ClearTrack))
		tracks.POST("/copy", s.trackEdit((*sequencer.Engine).CopyTrack))
		tracks.POST("/paste", s.trackEdit((*sequencer.Engine).PasteTrack))
		tracks.PUT("/mix", s.setMix)
		tracks.POST("/euclid", s.applyEuclid)
		tracks.POST("/randomize", s.randomize)
		tracks.PUT("/steps/:step", s.setStep)
		tracks.PUT("/steps/:step/locks/:param", s.setLock)
		tracks.DELETE("/steps/:step/locks/:param", s.clearLock)
		tracks.DELETE("/steps/:step/locks", s.clearLocks)

		v1.POST("/patterns/:slot/load", s.loadPattern)
		v1.POST("/patterns/:slot/save", s.savePattern)
		v1.POST("/patterns/copy", s.copyPattern)
		v1.POST("/patterns/clear", s.clearPattern)
		v1.GET("/patterns/current/midi", s.exportMIDI)

		v1.POST("/undo", s.history((*sequencer.Engine).Undo, "nothing to undo"))
		v1.POST("/redo", s.history((*sequencer.Engine).Redo, "nothing to redo"))

		v1.POST("/convert/json2midi", s.handleJSONToMIDI)
		v1.POST("/convert/midi2json", s.handleMIDIToJSON)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "ondas",
	})
}

// getState godoc
// @Summary Sequencer state
// @Description Transport, tempo and the full current pattern
// @Tags state
// @Produce json
// @Success 200 {object} sequencer.State
// @Router /api/v1/state [get]
func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.player.Snapshot())
}

// listConditions godoc
// @Summary List trig conditions
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/conditions [get]
func listConditions(c *gin.Context) {
	names := make([]string, 0, sequencer.NumConditions)
	for cond := sequencer.TrigCondition(0); cond < sequencer.NumConditions; cond++ {
		names = append(names, cond.String())
	}
	c.JSON(http.StatusOK, gin.H{"conditions": names})
}

// listParams godoc
// @Summary List lockable parameters
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/params [get]
func listParams(c *gin.Context) {
	names := make([]string, 0, sequencer.NumParams)
	for p := sequencer.ParamType(0); p < sequencer.NumParams; p++ {
		names = append(names, p.String())
	}
	c.JSON(http.StatusOK, gin.H{"params": names})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"json", "midi"},
		"conversions": converter.GetSupportedConversions(),
	})
}

func (s *Server) transport(fn func(p *player.Player)) gin.HandlerFunc {
	return func(c *gin.Context) {
		fn(s.player)
		c.JSON(http.StatusOK, s.player.Snapshot())
	}
}

// edit runs fn under the player lock and answers with the new state, or 400
// when the engine rejected the edit.
func (s *Server) edit(c *gin.Context, fn func(e *sequencer.Engine) bool, rejected string) {
	var ok bool
	s.player.Do(func(e *sequencer.Engine) { ok = fn(e) })
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": rejected})
		return
	}
	c.JSON(http.StatusOK, s.player.Snapshot())
}

func (s *Server) trackEdit(fn func(e *sequencer.Engine, track int) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		track, ok := intParam(c, "track")
		if !ok {
			return
		}
		s.edit(c, func(e *sequencer.Engine) bool { return fn(e, track) }, "track edit rejected")
	}
}

func (s *Server) history(fn func(e *sequencer.Engine) bool, empty string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.edit(c, fn, empty)
	}
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s %q", name, c.Param(name))})
		return 0, false
	}
	return v, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// storeError maps persistence failures onto HTTP statuses.
func storeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sequencer.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sequencer.ErrSlotRange), errors.Is(err, sequencer.ErrInvalidPattern):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleJSONToMIDI(c *gin.Context) {
	s.handleConversion(c, s.conv.JSONToMIDI, ".mid", "audio/midi")
}

func (s *Server) handleMIDIToJSON(c *gin.Context) {
	s.handleConversion(c, s.conv.MIDIToJSON, ".json", "application/json")
}

// handleConversion godoc
// @Summary Convert an uploaded pattern file
// @Description Upload pattern JSON or a MIDI file and receive the other format
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "file to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/json2midi [post]
// @Router /api/v1/convert/midi2json [post]
func (s *Server) handleConversion(c *gin.Context, convert func([]byte) ([]byte, error), outputExt, contentType string) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	result, err := convert(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	outputName := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	if outputName == "" || outputName == "." {
		outputName = "converted"
	}
	outputName += outputExt

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, contentType, result)
}
