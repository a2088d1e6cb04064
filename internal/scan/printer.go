// internal/scan/printer.go
package scan

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"go-steely/internal/decorate"
	"go-steely/internal/design"
	"go-steely/internal/pprint"
)

const boxWidth = 60

// Observer receives the transcript of one scanned call.
type Observer interface {
	Header(fn decorate.Info)
	Params(params []Binding)
	Event(ev Event)
	Return(v any)
	Failure(f Failure)
	Footer(elapsed time.Duration)
}

// SnapshotObserver is implemented by observers that can print a full
// snapshot of the visible bindings on request.
type SnapshotObserver interface {
	LocalsSnapshot(title string, bindings []Binding)
}

// Failure describes how a scanned call went wrong.
type Failure struct {
	// Category is the error's type, or "panic(<type>)" for panics.
	Category string
	Message  string
	Err      error
	Panic    any
	Panicked bool
}

// ErrorFailure describes a returned error.
func ErrorFailure(err error) Failure {
	return Failure{Category: typeName(err), Message: err.Error(), Err: err}
}

// PanicFailure describes a recovered panic value.
func PanicFailure(r any) Failure {
	return Failure{
		Category: "panic(" + typeName(r) + ")",
		Message:  fmt.Sprint(r),
		Panic:    r,
		Panicked: true,
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return strings.TrimPrefix(reflect.TypeOf(v).String(), "*")
}

// Printer renders the transcript as a bordered, colored box. Each method
// performs a single write.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	pal *design.Palette
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, opts ...design.Option) *Printer {
	return &Printer{w: w, pal: design.NewPalette(w, opts...)}
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, s)
}

func (p *Printer) rule(left, right string) string {
	return p.pal.Frame.Render(left+strings.Repeat(design.Box.Top, boxWidth-2)+right) + "\n"
}

func (p *Printer) bar() string {
	return p.pal.Frame.Render(design.Box.Left)
}

func (p *Printer) separator() string {
	return p.rule(design.Box.MiddleLeft, design.Box.MiddleRight)
}

func (p *Printer) Header(fn decorate.Info) {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(p.rule(design.Box.TopLeft, design.Box.TopRight))
	fmt.Fprintf(&b, "%s %s %s %s %s %s\n",
		p.bar(), design.Scan, p.pal.Title.Render("SCAN"), p.pal.Dim.Render(design.Box.Left),
		p.pal.Name.Render(fn.Name), p.pal.Dim.Render("@ "+fn.Package))
	b.WriteString(p.separator())
	p.write(b.String())
}

func (p *Printer) Params(params []Binding) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.bar(), p.pal.Dim.Render("Parameters:"))
	if len(params) == 0 {
		fmt.Fprintf(&b, "%s   %s\n", p.bar(), p.pal.Dim.Render("(no parameters)"))
	}
	for _, prm := range params {
		b.WriteString(p.variable("   ", 0, design.Var, prm.Name, prm.Value))
	}
	b.WriteString(p.separator())
	p.write(b.String())
}

// variable formats "<prefix>L<n> ◈ name : type = value".
func (p *Printer) variable(prefix string, line int, symbol, name string, v any) string {
	lineInfo := ""
	if line > 0 {
		lineInfo = p.pal.Dim.Render(fmt.Sprintf("L%d", line)) + " "
	}
	return fmt.Sprintf("%s%s%s%s %s %s %s %s %s\n",
		p.bar(), prefix, lineInfo,
		p.pal.Marker.Render(symbol),
		p.pal.Name.Render(name),
		p.pal.Dim.Render(":"),
		p.pal.TypeLabel.Render(pprint.DisplayType(v)),
		p.pal.Dim.Render("="),
		p.pal.Type(pprint.Classify(v)).Render(pprint.DisplayText(v, pprint.DefaultMaxLen)))
}

func (p *Printer) Event(ev Event) {
	if ev.Kind == New {
		p.write(p.variable(" ", ev.Line, design.Var, ev.Name, ev.Value))
		return
	}
	p.write(fmt.Sprintf("%s %s %s %s %s %s %s %s\n",
		p.bar(),
		p.pal.Dim.Render(fmt.Sprintf("L%d", ev.Line)),
		p.pal.Changed.Render(design.ArrowRight),
		p.pal.Name.Render(ev.Name),
		p.pal.Dim.Render(":"),
		p.pal.TypeLabel.Render(pprint.DisplayType(ev.Value)),
		p.pal.Dim.Render(pprint.DisplayText(ev.Old, pprint.ChangeMaxLen)+" "+design.ArrowRight),
		p.pal.Type(pprint.Classify(ev.Value)).Render(pprint.DisplayText(ev.Value, pprint.DefaultMaxLen))))
}

func (p *Printer) Return(v any) {
	p.write(p.separator() + fmt.Sprintf("%s %s %s %s %s %s %s\n",
		p.bar(), design.Return, p.pal.Returned.Render("return"),
		p.pal.Dim.Render(":"),
		p.pal.TypeLabel.Render(pprint.DisplayType(v)),
		p.pal.Dim.Render("="),
		p.pal.Type(pprint.Classify(v)).Render(pprint.DisplayText(v, pprint.DefaultMaxLen))))
}

func (p *Printer) Failure(f Failure) {
	p.write(p.separator() + fmt.Sprintf("%s %s %s %s %s %s %s\n",
		p.bar(), design.Cross, p.pal.Failure.Render("Exception"),
		p.pal.Dim.Render(":"),
		p.pal.TypeLabel.Render(f.Category),
		p.pal.Dim.Render("-"),
		p.pal.FailText.Render(f.Message)))
}

func (p *Printer) Footer(elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	p.write(p.separator() +
		fmt.Sprintf("%s %s %s %s\n", p.bar(), design.Check, p.pal.Dim.Render("Completed in"),
			p.pal.Elapsed.Render(fmt.Sprintf("%.3fms", ms))) +
		p.rule(design.Box.BottomLeft, design.Box.BottomRight) + "\n")
}

// LocalsSnapshot prints every binding under title, skipping names that
// start with an underscore.
func (p *Printer) LocalsSnapshot(title string, bindings []Binding) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.bar(), p.pal.Dim.Render(title+":"))
	n := 0
	for _, bd := range bindings {
		if strings.HasPrefix(bd.Name, "_") {
			continue
		}
		b.WriteString(p.variable("   ", 0, design.ArrowRight, bd.Name, bd.Value))
		n++
	}
	if n == 0 {
		fmt.Fprintf(&b, "%s   %s\n", p.bar(), p.pal.Dim.Render("(none)"))
	}
	p.write(b.String())
}

// BindArgs maps positional values onto names, dropping extras, then overlays
// keyword bindings in place or appends them.
func BindArgs(names []string, positional []any, keyword []Binding) []Binding {
	out := make([]Binding, 0, len(names)+len(keyword))
	for i, v := range positional {
		if i >= len(names) {
			break
		}
		out = append(out, Binding{Name: names[i], Value: v})
	}
outer:
	for _, kw := range keyword {
		for i := range out {
			if out[i].Name == kw.Name {
				out[i].Value = kw.Value
				continue outer
			}
		}
		out = append(out, kw)
	}
	return out
}
