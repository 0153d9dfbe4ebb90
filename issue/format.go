package issue

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
)

// Format selects the location-prefix style of rendered diagnostics.
type Format string

const (
	// FormatANTLR is the default style: severity(code): file:row:col: message
	FormatANTLR = Format("antlr")
	// FormatGNU renders file:row:col: severity: message
	FormatGNU = Format("gnu")
	// FormatVS2005 renders file(row,col) : severity code: message
	FormatVS2005 = Format("vs2005")
)

func (f Format) Valid() bool {
	switch f {
	case FormatANTLR, FormatGNU, FormatVS2005:
		return true
	}
	return false
}

// Render formats a single issue in the given style.
func Render(iss *Issue, f Format) string {
	switch f {
	case FormatGNU:
		return formatGNU(iss)
	case FormatVS2005:
		return formatVS2005(iss)
	default:
		return formatANTLR(iss)
	}
}

func formatANTLR(iss *Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v(%v): ", iss.Severity, int(iss.Code))
	if iss.FileName != "" {
		fmt.Fprintf(&b, "%v:", iss.FileName)
	}
	if iss.Pos.Row > 0 {
		fmt.Fprintf(&b, "%v:%v:", iss.Pos.Row, iss.Pos.Col)
	}
	fmt.Fprintf(&b, " %v", iss.Message())
	return b.String()
}

func formatGNU(iss *Issue) string {
	var b strings.Builder
	if iss.FileName != "" {
		fmt.Fprintf(&b, "%v:", iss.FileName)
	}
	if iss.Pos.Row > 0 {
		fmt.Fprintf(&b, "%v:%v:", iss.Pos.Row, iss.Pos.Col)
	}
	fmt.Fprintf(&b, " %v: %v", iss.Severity, iss.Message())
	return b.String()
}

func formatVS2005(iss *Issue) string {
	var b strings.Builder
	if iss.FileName != "" {
		fmt.Fprintf(&b, "%v", iss.FileName)
	}
	if iss.Pos.Row > 0 {
		fmt.Fprintf(&b, "(%v,%v)", iss.Pos.Row, iss.Pos.Col)
	}
	fmt.Fprintf(&b, " : %v %v: %v", iss.Severity, int(iss.Code), iss.Message())
	return b.String()
}

// Printer writes rendered diagnostics to a stream. When the stream is a
// terminal, severities are colored. When a file system is attached, the
// offending source line is echoed under the diagnostic.
type Printer struct {
	w      io.Writer
	format Format
	fs     afero.Fs
	color  bool
}

type fdWriter interface {
	Fd() uintptr
}

func NewPrinter(w io.Writer, format Format) *Printer {
	useColor := false
	if f, ok := w.(fdWriter); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{
		w:      w,
		format: format,
		color:  useColor,
	}
}

// EchoSourceLines attaches a file system used to read back the source line
// an issue points at.
func (p *Printer) EchoSourceLines(fs afero.Fs) {
	p.fs = fs
}

func (p *Printer) Report(iss *Issue) {
	msg := Render(iss, p.format)
	if p.color {
		switch iss.Severity {
		case SeverityWarning, SeverityWarningOneOff:
			msg = color.YellowString("%v", msg)
		case SeverityError, SeverityErrorOneOff, SeverityFatal:
			msg = color.RedString("%v", msg)
		}
	}
	fmt.Fprintln(p.w, msg)

	if p.fs == nil {
		return
	}
	line := readLine(p.fs, iss.FileName, iss.Pos.Row)
	if line != "" {
		fmt.Fprintf(p.w, "    %v\n", line)
	}
}

func readLine(fs afero.Fs, filePath string, row int) string {
	if filePath == "" || row <= 0 {
		return ""
	}

	f, err := fs.Open(filePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	i := 1
	s := bufio.NewScanner(f)
	for s.Scan() {
		if i == row {
			return s.Text()
		}
		i++
	}

	return ""
}
