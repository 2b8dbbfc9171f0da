package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/layout"
	"github.com/james-see/meeblipcc/pkg/replay"
)

// maxUploadBytes bounds replay uploads
const maxUploadBytes = 8 << 20

// Parameter is the JSON view of one host parameter
type Parameter struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	CC      *uint8  `json:"cc,omitempty"`
}

type setParameterRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

type setProgramRequest struct {
	Name string `json:"name"`
}

func describe(e *engine.Engine, index int) (Parameter, error) {
	id, err := e.Resolve(index)
	if err != nil {
		return Parameter{}, err
	}

	p := Parameter{
		Index:   index,
		Name:    e.ParameterName(id),
		Value:   e.Parameter(id),
		Display: e.ParameterDisplay(id),
	}
	if !id.IsChannel() {
		cc := e.Layout().ParameterToCC(id.Index())
		p.CC = &cc
	}
	return p, nil
}

// getLayout godoc
// @Summary Parameter layout table
// @Tags parameters
// @Produce json
// @Router /layout [get]
func (s *Server) getLayout(c *gin.Context) {
	var table layout.Table
	if err := s.call(c, func(e *engine.Engine) error {
		table = e.Layout()
		return nil
	}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parameters": table})
}

// listParameters godoc
// @Summary All parameters of the active program
// @Tags parameters
// @Produce json
// @Router /parameters [get]
func (s *Server) listParameters(c *gin.Context) {
	var params []Parameter
	err := s.call(c, func(e *engine.Engine) error {
		params = make([]Parameter, 0, e.NumParameters())
		for i := 0; i < e.NumParameters(); i++ {
			p, err := describe(e, i)
			if err != nil {
				return err
			}
			params = append(params, p)
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parameters": params})
}

// getParameter godoc
// @Summary One parameter by flat host index
// @Tags parameters
// @Produce json
// @Param index path int true "Parameter index"
// @Failure 404 {object} map[string]string
// @Router /parameters/{index} [get]
func (s *Server) getParameter(c *gin.Context) {
	index, ok := parseIndex(c, "index")
	if !ok {
		return
	}

	var p Parameter
	if err := s.call(c, func(e *engine.Engine) (err error) {
		p, err = describe(e, index)
		return err
	}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// setParameter godoc
// @Summary Write a parameter as host automation
// @Description Quantized parameters echo a CC when echo is enabled
// @Tags parameters
// @Accept json
// @Produce json
// @Param index path int true "Parameter index"
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /parameters/{index} [put]
func (s *Server) setParameter(c *gin.Context) {
	index, ok := parseIndex(c, "index")
	if !ok {
		return
	}

	var req setParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"value\": 0..1}"})
		return
	}
	if *req.Value < 0 || *req.Value > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("value %v outside [0, 1]", *req.Value)})
		return
	}

	var p Parameter
	err := s.call(c, func(e *engine.Engine) error {
		if err := e.SetParameterAt(index, *req.Value); err != nil {
			return err
		}
		var err error
		p, err = describe(e, index)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// getProgram godoc
// @Summary Active program
// @Tags programs
// @Produce json
// @Router /program [get]
func (s *Server) getProgram(c *gin.Context) {
	var (
		number int
		name   string
	)
	if err := s.call(c, func(e *engine.Engine) error {
		number, name = e.Program(), e.ProgramName()
		return nil
	}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": number, "name": name})
}

// setProgram godoc
// @Summary Select a program, optionally renaming it
// @Tags programs
// @Accept json
// @Produce json
// @Param number path int true "Program number"
// @Failure 404 {object} map[string]string
// @Router /program/{number} [put]
func (s *Server) setProgram(c *gin.Context) {
	number, ok := parseIndex(c, "number")
	if !ok {
		return
	}

	var req setProgramRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"name\": \"...\"}"})
			return
		}
	}

	var name string
	err := s.call(c, func(e *engine.Engine) error {
		if err := e.SetProgram(number); err != nil {
			return err
		}
		if req.Name != "" {
			e.SetProgramName(req.Name)
		}
		name = e.ProgramName()
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": number, "name": name})
}

// listPrograms godoc
// @Summary Names of every program slot
// @Tags programs
// @Produce json
// @Router /programs [get]
func (s *Server) listPrograms(c *gin.Context) {
	var names []string
	if err := s.call(c, func(e *engine.Engine) error {
		names = make([]string, e.NumPrograms())
		for i := range names {
			names[i], _ = e.ProgramNameIndexed(i)
		}
		return nil
	}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": names})
}

// handleReplay godoc
// @Summary Replay a MIDI file through a fresh engine
// @Description Upload a MIDI file and receive the engine egress as a MIDI file
// @Tags replay
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "MIDI file to replay"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /replay [post]
func (s *Server) handleReplay(c *gin.Context) {
	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	in, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to parse MIDI: %v", err)})
		return
	}

	player, err := replay.New(s.replay, replay.Options{Logger: s.logger})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out, err := player.Play(c.Request.Context(), in)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to write MIDI: %v", err)})
		return
	}

	stats := player.Engine().Stats()
	s.logger.Info("replayed upload",
		zap.String("file", header.Filename),
		zap.Uint64("eventsIn", stats.EventsIn),
		zap.Uint64("eventsOut", stats.EventsOut))

	// Generate output filename
	outputName := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	if outputName == "" {
		outputName = "replayed"
	}
	outputName += "-out.mid"

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, "audio/midi", buf.Bytes())
}
