// Package mcptools exposes a running engine as Model Context Protocol tools
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/host"
	"github.com/james-see/meeblipcc/pkg/quantize"
)

const callTimeout = 2 * time.Second

// Tools binds MCP handlers to a runner
type Tools struct {
	runner *host.Runner
	logger *zap.Logger
}

type parameterView struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Step    *int    `json:"step,omitempty"`
	Min     *int    `json:"min,omitempty"`
	Max     *int    `json:"max,omitempty"`
	CC      *uint8  `json:"cc,omitempty"`
}

func New(runner *host.Runner, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{runner: runner, logger: logger.Named("mcp")}
}

// Server builds an MCP server with every tool registered
func (t *Tools) Server(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Meeblip CC",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("meeblip_list-parameters",
		mcp.WithDescription("Lists every parameter of the active program with its value, knob step and CC number."),
	), t.listParameters)

	s.AddTool(mcp.NewTool("meeblip_get-parameter",
		mcp.WithDescription("Reads one parameter by index."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Parameter index (0-29; 28 and 29 are the MIDI in/out channels).")),
	), t.getParameter)

	s.AddTool(mcp.NewTool("meeblip_set-parameter",
		mcp.WithDescription("Writes a normalized parameter value as host automation. Knob changes are echoed as MIDI CC."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Parameter index (0-29).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Normalized value between 0 and 1.")),
	), t.setParameter)

	s.AddTool(mcp.NewTool("meeblip_set-knob",
		mcp.WithDescription("Sets a parameter by name to a knob step, e.g. CUTOFF to 100 or OSC_DETUNE to -10."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Parameter name as listed by meeblip_list-parameters.")),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("Knob step within the parameter's min/max range.")),
	), t.setKnob)

	s.AddTool(mcp.NewTool("meeblip_set-program",
		mcp.WithDescription("Selects the active program and optionally renames it."),
		mcp.WithNumber("program", mcp.Required(), mcp.Description("Program number (0-127).")),
		mcp.WithString("name", mcp.Description("New program name.")),
	), t.setProgram)

	return s
}

// ServeStdio serves the tools over stdin/stdout until the client hangs up
func (t *Tools) ServeStdio(version string) error {
	t.logger.Info("serving MCP over stdio")
	return server.ServeStdio(t.Server(version))
}

func (t *Tools) call(ctx context.Context, fn func(*engine.Engine) error) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return t.runner.Call(ctx, fn)
}

func view(e *engine.Engine, index int) (parameterView, error) {
	id, err := e.Resolve(index)
	if err != nil {
		return parameterView{}, err
	}

	v := parameterView{
		Index:   index,
		Name:    e.ParameterName(id),
		Value:   e.Parameter(id),
		Display: e.ParameterDisplay(id),
	}
	if !id.IsChannel() {
		d := e.Layout()[id.Index()]
		step := e.Step(id.Index())
		v.Step, v.Min, v.Max, v.CC = &step, &d.MinValue, &d.MaxValue, &d.CC
	}
	return v, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	asJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(asJSON)), nil
}

func (t *Tools) listParameters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.logger.Debug("list parameters")

	var params []parameterView
	err := t.call(ctx, func(e *engine.Engine) error {
		for i := 0; i < e.NumParameters(); i++ {
			v, err := view(e, i)
			if err != nil {
				return err
			}
			params = append(params, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}
	return jsonResult(params)
}

func (t *Tools) getParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := request.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var v parameterView
	err = t.call(ctx, func(e *engine.Engine) (err error) {
		v, err = view(e, index)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func (t *Tools) setParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := request.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireFloat("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if value < 0 || value > 1 {
		return mcp.NewToolResultError(fmt.Sprintf("value %v outside [0, 1]", value)), nil
	}

	t.logger.Debug("set parameter", zap.Int("index", index), zap.Float64("value", value))

	var v parameterView
	err = t.call(ctx, func(e *engine.Engine) error {
		if err := e.SetParameterAt(index, value); err != nil {
			return err
		}
		var err error
		v, err = view(e, index)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func (t *Tools) setKnob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	step, err := request.RequireInt("step")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var v parameterView
	err = t.call(ctx, func(e *engine.Engine) error {
		table := e.Layout()
		for i, d := range table {
			if !strings.EqualFold(d.Name, name) {
				continue
			}
			if step < d.MinValue || step > d.MaxValue {
				return fmt.Errorf("step %d outside [%d, %d] for %s", step, d.MinValue, d.MaxValue, d.Name)
			}
			e.SetParameter(engine.Quantized(i), quantize.StepToValue(step, d), engine.OriginAutomation)
			var err error
			v, err = view(e, i)
			return err
		}
		return fmt.Errorf("no parameter named %q", name)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func (t *Tools) setProgram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	program, err := request.RequireInt("program")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := request.GetString("name", "")

	var current string
	err = t.call(ctx, func(e *engine.Engine) error {
		if err := e.SetProgram(program); err != nil {
			return err
		}
		if name != "" {
			e.SetProgramName(name)
		}
		current = e.ProgramName()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Program %d (%s) selected.", program, current)), nil
}
