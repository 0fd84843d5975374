package errorx

import (
	"fmt"
	"runtime"
	"strings"
)

const stackTraceDepth = 32

// Callers is the stack captured when a CliniaError is created.
type Callers []uintptr

type Frame struct {
	File     string
	Line     int
	Function string
}

// String formats the frame as "\tat package.Function (file:line)".
func (f Frame) String() string {
	return fmt.Sprintf("\tat %s (%s:%d)", f.Function[strings.LastIndex(f.Function, "/")+1:], f.File, f.Line)
}

func (c Callers) Frames() []Frame {
	if len(c) == 0 {
		return nil
	}

	frames := make([]Frame, 0, len(c))
	it := runtime.CallersFrames(c)
	for {
		frame, more := it.Next()
		frames = append(frames, Frame{File: frame.File, Line: frame.Line, Function: frame.Function})
		if !more {
			return frames
		}
	}
}

// String prints one frame per line, innermost first.
func (c Callers) String() string {
	var b strings.Builder
	for _, frame := range c.Frames() {
		b.WriteString(frame.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// callers skips itself and runtime.Callers, then skip more frames.
func callers(skip int) Callers {
	pc := make([]uintptr, stackTraceDepth)
	return pc[:runtime.Callers(skip+2, pc)]
}
