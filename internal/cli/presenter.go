package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/combo/internal/config"
	"github.com/roach88/combo/internal/engine"
	"github.com/roach88/combo/internal/move"
	"github.com/roach88/combo/internal/store"
)

// textPresenter prints one line per history entry, colored by action.
type textPresenter struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	colors   map[string]string
	styles   map[string]lipgloss.Style
	faint    lipgloss.Style
}

func newTextPresenter(w io.Writer, colors map[string]string) *textPresenter {
	r := lipgloss.NewRenderer(w)
	return &textPresenter{
		w:        w,
		renderer: r,
		colors:   colors,
		styles:   make(map[string]lipgloss.Style),
		faint:    r.NewStyle().Faint(true),
	}
}

// style returns the cached style for a symbol. Recognitions take the color
// of their move name and are bold.
func (p *textPresenter) style(e move.Entry) lipgloss.Style {
	key := e.Symbol
	derived := false
	if name, _, ok := move.ParseDerivedSymbol(e.Symbol); ok && e.Derived {
		key, derived = name, true
	}
	if s, ok := p.styles[key]; ok {
		return s
	}

	color, ok := p.colors[key]
	if !ok {
		color = config.DefaultColor
	}
	s := p.renderer.NewStyle().Foreground(lipgloss.Color(color)).Bold(derived)
	p.styles[key] = s
	return s
}

func (p *textPresenter) Present(frame move.Frame) error {
	for _, e := range frame.Entries {
		if _, err := fmt.Fprintf(p.w, "%s %s %s\n",
			p.faint.Render(fmt.Sprintf("#%-4d", e.Seq)),
			p.style(e).Render(e.Symbol),
			p.faint.Render(fmt.Sprintf("+%dms", e.DelayMs)),
		); err != nil {
			return err
		}
	}
	if frame.Clear {
		if _, err := fmt.Fprintln(p.w, p.faint.Render("-- cleared --")); err != nil {
			return err
		}
	}
	if !frame.Running {
		if _, err := fmt.Fprintln(p.w, p.faint.Render("-- stopped --")); err != nil {
			return err
		}
	}
	return nil
}

// jsonPresenter writes each frame as one JSON line.
type jsonPresenter struct {
	enc *json.Encoder
}

func newJSONPresenter(w io.Writer) *jsonPresenter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &jsonPresenter{enc: enc}
}

func (p *jsonPresenter) Present(frame move.Frame) error {
	if frame.Entries == nil {
		frame.Entries = []move.Entry{}
	}
	return p.enc.Encode(frame)
}

// storePresenter records frames to the session history.
type storePresenter struct {
	ctx       context.Context
	st        *store.Store
	sessionID string
}

func (p *storePresenter) Present(frame move.Frame) error {
	return p.st.WriteFrame(p.ctx, p.sessionID, frame)
}

// multiPresenter fans a frame out to every presenter. All presenters see
// the frame even if an earlier one fails.
type multiPresenter []engine.Presenter

func (m multiPresenter) Present(frame move.Frame) error {
	var errs []error
	for _, p := range m {
		if err := p.Present(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
