package viewer

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-splat/common"
)

// CommandKind identifies the operation a Command requests.
type CommandKind int

const (
	CommandLoad CommandKind = iota
	CommandRender
	CommandResize
	CommandSetDisplayMode
	CommandSuperResolution
	CommandExport
	CommandOrbit
	CommandPan
	CommandZoom
)

func (k CommandKind) String() string {
	switch k {
	case CommandLoad:
		return "load"
	case CommandRender:
		return "render"
	case CommandResize:
		return "resize"
	case CommandSetDisplayMode:
		return "set-display-mode"
	case CommandSuperResolution:
		return "super-resolution"
	case CommandExport:
		return "export"
	case CommandOrbit:
		return "orbit"
	case CommandPan:
		return "pan"
	case CommandZoom:
		return "zoom"
	default:
		return fmt.Sprintf("command(%d)", int(k))
	}
}

// ExportFormat selects the encoder used by CommandExport.
type ExportFormat int

const (
	ExportFormatPLY ExportFormat = iota
	ExportFormatPCD
)

// Command is a request issued by the host event layer. Only the fields relevant to Kind are read.
type Command struct {
	Kind CommandKind

	// CommandLoad
	Data []byte

	// CommandResize
	Width, Height uint32

	// CommandSetDisplayMode
	Mode DisplayMode

	// CommandSuperResolution
	Factor int

	// CommandExport
	Format ExportFormat
	Output io.Writer

	// CommandOrbit and CommandPan in pixels, CommandZoom in wheel units (DY).
	DX, DY float32
}

func (v *viewerImpl) Dispatch(cmd Command) error {
	switch cmd.Kind {
	case CommandLoad:
		return v.LoadData(cmd.Data)
	case CommandRender:
		return v.Render()
	case CommandResize:
		return v.Resize(cmd.Width, cmd.Height)
	case CommandSetDisplayMode:
		return v.SetDisplayMode(cmd.Mode)
	case CommandSuperResolution:
		return v.ComputeSuperResolution(cmd.Factor)
	case CommandExport:
		return v.export(cmd)
	case CommandOrbit, CommandPan, CommandZoom:
		return v.navigate(cmd)
	default:
		return fmt.Errorf("unknown command %v", cmd.Kind)
	}
}

func (v *viewerImpl) export(cmd Command) error {
	if cmd.Output == nil {
		return fmt.Errorf("%v: no output", cmd.Kind)
	}
	var (
		data []byte
		err  error
	)
	switch cmd.Format {
	case ExportFormatPLY:
		data, err = v.ExportPLY()
	case ExportFormatPCD:
		data, err = v.ExportPCD()
	default:
		return fmt.Errorf("unknown export format %d", cmd.Format)
	}
	if err != nil {
		return err
	}
	_, err = cmd.Output.Write(data)
	return err
}

func (v *viewerImpl) navigate(cmd Command) error {
	if v.state == StateDisposed {
		return common.ErrDisposed
	}
	ctrl := v.camera.Controller()
	switch cmd.Kind {
	case CommandOrbit:
		ctrl.Rotate(cmd.DX, cmd.DY)
	case CommandPan:
		ctrl.Pan(cmd.DX, cmd.DY)
	case CommandZoom:
		ctrl.Zoom(cmd.DY)
	}
	return nil
}
