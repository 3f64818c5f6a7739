package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ohmyondas/ondas/pkg/converter"
	"github.com/ohmyondas/ondas/pkg/sequencer"
)

type tempoRequest struct {
	BPM float64 `json:"bpm"`
}

type swingRequest struct {
	Swing int `json:"swing"`
}

type deltaRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

type fillRequest struct {
	On bool `json:"on"`
}

type lengthRequest struct {
	Length *int `json:"length" binding:"required"`
}

type positionRequest struct {
	Step int `json:"step"`
}

type mixRequest struct {
	Volume     *float32 `json:"volume"`
	Pan        *float32 `json:"pan"`
	SourceSlot *uint8   `json:"source_slot"`
}

// stepRequest edits any subset of a step's fields.
type stepRequest struct {
	Active    *bool   `json:"active"`
	Condition *string `json:"condition"`
	Velocity  *int    `json:"velocity"`
	Pitch     *int    `json:"pitch"`
	Slice     *uint8  `json:"slice"`
}

type lockRequest struct {
	Value *float32 `json:"value" binding:"required"`
}

type euclidRequest struct {
	Hits     int `json:"hits"`
	Steps    int `json:"steps" binding:"required"`
	Rotation int `json:"rotation"`
}

type randomizeRequest struct {
	Density float64 `json:"density"`
}

type copyRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

// setTempo godoc
// @Summary Set the global tempo
// @Description Values outside 40..300 BPM are clamped
// @Tags tempo
// @Accept json
// @Produce json
// @Param body body tempoRequest true "tempo"
// @Success 200 {object} sequencer.State
// @Router /api/v1/tempo [put]
func (s *Server) setTempo(c *gin.Context) {
	var req tempoRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool { e.SetTempo(req.BPM); return true }, "")
}

// setBPMOverride godoc
// @Summary Set or clear the pattern tempo
// @Description 0 follows the global tempo
// @Tags tempo
// @Accept json
// @Produce json
// @Param body body tempoRequest true "tempo"
// @Success 200 {object} sequencer.State
// @Router /api/v1/bpm-override [put]
func (s *Server) setBPMOverride(c *gin.Context) {
	var req tempoRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool { e.SetBPMOverride(req.BPM); return true }, "")
}

// setSwing godoc
// @Summary Set swing (0..100, clamped)
// @Tags tempo
// @Accept json
// @Produce json
// @Param body body swingRequest true "swing"
// @Success 200 {object} sequencer.State
// @Router /api/v1/swing [put]
func (s *Server) setSwing(c *gin.Context) {
	var req swingRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool { e.SetSwing(req.Swing); return true }, "")
}

func (s *Server) adjustSwing(c *gin.Context) {
	var req deltaRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool { e.AdjustSwing(*req.Delta); return true }, "")
}

func (s *Server) setFill(c *gin.Context) {
	var req fillRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool { e.SetFillMode(req.On); return true }, "")
}

func (s *Server) setLength(c *gin.Context) {
	var req lengthRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool { e.SetLength(*req.Length); return true }, "")
}

func (s *Server) setPosition(c *gin.Context) {
	var req positionRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool { return e.SetPosition(req.Step) }, "invalid position")
}

func (s *Server) setMix(c *gin.Context) {
	track, ok := intParam(c, "track")
	if !ok {
		return
	}
	var req mixRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool {
		ok := true
		if req.Volume != nil {
			ok = e.SetTrackVolume(track, *req.Volume) && ok
		}
		if req.Pan != nil {
			ok = e.SetTrackPan(track, *req.Pan) && ok
		}
		if req.SourceSlot != nil {
			ok = e.SetSourceSlot(track, *req.SourceSlot) && ok
		}
		return ok
	}, "invalid track")
}

// setStep godoc
// @Summary Edit a step
// @Description Any subset of active, condition, velocity, pitch and slice
// @Tags steps
// @Accept json
// @Produce json
// @Param track path int true "track index"
// @Param step path int true "step index"
// @Param body body stepRequest true "fields to change"
// @Success 200 {object} sequencer.State
// @Failure 400 {object} map[string]string
// @Router /api/v1/tracks/{track}/steps/{step} [put]
func (s *Server) setStep(c *gin.Context) {
	track, ok := intParam(c, "track")
	if !ok {
		return
	}
	step, ok := intParam(c, "step")
	if !ok {
		return
	}
	var req stepRequest
	if !bind(c, &req) {
		return
	}
	cond := sequencer.TrigAlways
	if req.Condition != nil {
		var err error
		if cond, err = sequencer.ParseCondition(*req.Condition); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	s.edit(c, func(e *sequencer.Engine) bool {
		// Validate the address once so a bad index never half-applies.
		if !e.SetStep(track, step, e.GetStep(track, step)) {
			return false
		}
		if req.Active != nil {
			e.SetStep(track, step, *req.Active)
		}
		if req.Condition != nil {
			e.SetTrigCondition(track, step, cond)
		}
		if req.Velocity != nil {
			e.SetVelocity(track, step, *req.Velocity)
		}
		if req.Pitch != nil {
			e.SetPitchOffset(track, step, *req.Pitch)
		}
		if req.Slice != nil {
			e.SetSampleSlice(track, step, *req.Slice)
		}
		return true
	}, fmt.Sprintf("invalid step %d on track %d", step, track))
}

func lockParam(c *gin.Context) (sequencer.ParamType, bool) {
	p, err := sequencer.ParseParam(c.Param("param"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return p, true
}

// setLock godoc
// @Summary Set a parameter lock
// @Tags locks
// @Accept json
// @Produce json
// @Param track path int true "track index"
// @Param step path int true "step index"
// @Param param path string true "parameter name"
// @Param body body lockRequest true "value"
// @Success 200 {object} sequencer.State
// @Router /api/v1/tracks/{track}/steps/{step}/locks/{param} [put]
func (s *Server) setLock(c *gin.Context) {
	track, ok := intParam(c, "track")
	if !ok {
		return
	}
	step, ok := intParam(c, "step")
	if !ok {
		return
	}
	param, ok := lockParam(c)
	if !ok {
		return
	}
	var req lockRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool {
		return e.SetParamLock(track, step, param, *req.Value)
	}, "invalid step")
}

func (s *Server) clearLock(c *gin.Context) {
	track, ok := intParam(c, "track")
	if !ok {
		return
	}
	step, ok := intParam(c, "step")
	if !ok {
		return
	}
	param, ok := lockParam(c)
	if !ok {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool {
		return e.ClearParamLock(track, step, param)
	}, "invalid step")
}

func (s *Server) clearLocks(c *gin.Context) {
	track, ok := intParam(c, "track")
	if !ok {
		return
	}
	step, ok := intParam(c, "step")
	if !ok {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool {
		return e.ClearAllParamLocks(track, step)
	}, "invalid step")
}

// applyEuclid godoc
// @Summary Fill a track with a Euclidean rhythm
// @Tags tracks
// @Accept json
// @Produce json
// @Param track path int true "track index"
// @Param body body euclidRequest true "rhythm"
// @Success 200 {object} sequencer.State
// @Router /api/v1/tracks/{track}/euclid [post]
func (s *Server) applyEuclid(c *gin.Context) {
	track, ok := intParam(c, "track")
	if !ok {
		return
	}
	var req euclidRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool {
		return e.ApplyEuclidean(track, req.Hits, req.Steps, req.Rotation)
	}, "invalid euclidean rhythm")
}

func (s *Server) randomize(c *gin.Context) {
	track, ok := intParam(c, "track")
	if !ok {
		return
	}
	var req randomizeRequest
	if !bind(c, &req) {
		return
	}
	s.edit(c, func(e *sequencer.Engine) bool {
		return e.RandomizeTrack(track, req.Density)
	}, "invalid track")
}

// loadPattern godoc
// @Summary Load a pattern slot
// @Tags patterns
// @Produce json
// @Param slot path int true "slot number"
// @Success 200 {object} sequencer.State
// @Failure 404 {object} map[string]string
// @Router /api/v1/patterns/{slot}/load [post]
func (s *Server) loadPattern(c *gin.Context) {
	s.persist(c, (*sequencer.Engine).LoadPattern)
}

// savePattern godoc
// @Summary Save the current pattern to a slot
// @Tags patterns
// @Produce json
// @Param slot path int true "slot number"
// @Success 200 {object} sequencer.State
// @Router /api/v1/patterns/{slot}/save [post]
func (s *Server) savePattern(c *gin.Context) {
	s.persist(c, (*sequencer.Engine).SavePattern)
}

func (s *Server) persist(c *gin.Context, fn func(e *sequencer.Engine, slot int) error) {
	slot, ok := intParam(c, "slot")
	if !ok {
		return
	}
	var err error
	s.player.Do(func(e *sequencer.Engine) { err = fn(e, slot) })
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.player.Snapshot())
}

func (s *Server) copyPattern(c *gin.Context) {
	var req copyRequest
	if !bind(c, &req) {
		return
	}
	var err error
	s.player.Do(func(e *sequencer.Engine) { err = e.CopyPattern(*req.From, *req.To) })
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": *req.From, "to": *req.To})
}

func (s *Server) clearPattern(c *gin.Context) {
	s.edit(c, func(e *sequencer.Engine) bool { e.ClearPattern(); return true }, "")
}

// exportMIDI godoc
// @Summary Render the current pattern as a MIDI file
// @Tags patterns
// @Produce audio/midi
// @Param loops query int false "number of passes (default 1, at most 64)"
// @Success 200 {file} binary
// @Router /api/v1/patterns/current/midi [get]
func (s *Server) exportMIDI(c *gin.Context) {
	loops, err := strconv.Atoi(c.DefaultQuery("loops", "1"))
	if err != nil || loops < 1 || loops > converter.MaxExportLoops {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("loops must be between 1 and %d", converter.MaxExportLoops)})
		return
	}
	state := s.player.Snapshot()
	data, err := s.conv.MIDI().GenerateMIDI(state.Pattern, state.GlobalBPM, loops)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=pattern%02d.mid", state.PatternNumber))
	c.Data(http.StatusOK, "audio/midi", data)
}
