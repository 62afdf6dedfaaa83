package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loomkit/loom/pkg/compose"
	"github.com/loomkit/loom/pkg/corpus"
	"github.com/loomkit/loom/pkg/observability"
)

var (
	tuiDoneStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	tuiActiveStyle = lipgloss.NewStyle().Foreground(colorCyan)
	tuiFailStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Messages
// =============================================================================

type layerStartMsg struct {
	layer int
	count int
}

type docDoneMsg struct {
	slug      string
	fromCache bool
	err       error
}

type runDoneMsg struct {
	result *compose.Result
	err    error
}

// =============================================================================
// renderModel - Live render progress
// =============================================================================

// renderModel is the bubbletea model showing per-layer render progress.
type renderModel struct {
	totalDocs   int
	totalLayers int

	layer      int
	layerCount int
	completed  int
	cached     int
	failed     int
	recent     []string

	result *compose.Result
	err    error
	done   bool
}

func newRenderModel(plan *compose.Plan) renderModel {
	return renderModel{
		totalDocs:   plan.DirtyCount(),
		totalLayers: len(plan.Layers),
	}
}

func (m renderModel) Init() tea.Cmd {
	return nil
}

func (m renderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case layerStartMsg:
		m.layer = msg.layer
		m.layerCount = msg.count
	case docDoneMsg:
		m.completed++
		if msg.fromCache {
			m.cached++
		}
		line := msg.slug
		switch {
		case msg.err != nil:
			m.failed++
			line = tuiFailStyle.Render(iconError + " " + line)
		case msg.fromCache:
			line = tuiDoneStyle.Render(iconSuccess+" "+line) + StyleDim.Render(" (cached)")
		default:
			line = tuiDoneStyle.Render(iconSuccess + " " + line)
		}
		m.recent = append(m.recent, line)
		if len(m.recent) > 8 {
			m.recent = m.recent[len(m.recent)-8:]
		}
	case runDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m renderModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("Rendering corpus"))
	b.WriteString("\n\n")
	b.WriteString(tuiActiveStyle.Render(fmt.Sprintf("layer %d/%d", m.layer+1, m.totalLayers)))
	b.WriteString(StyleDim.Render(fmt.Sprintf(" (%d docs)", m.layerCount)))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d/%d documents", m.completed, m.totalDocs)))
	if m.failed > 0 {
		b.WriteString("  " + tuiFailStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	b.WriteString("\n\n")
	for _, line := range m.recent {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n" + StyleDim.Render("ctrl+c to abort") + "\n")
	return b.String()
}

// =============================================================================
// Hook bridge
// =============================================================================

// tuiHooks forwards engine events into a running bubbletea program.
type tuiHooks struct {
	observability.NoopEngineHooks
	program *tea.Program
}

func (h *tuiHooks) OnLayerStart(_ context.Context, layer, count int) {
	h.program.Send(layerStartMsg{layer: layer, count: count})
}

func (h *tuiHooks) OnDocumentComplete(_ context.Context, slug string, fromCache bool, _ time.Duration, err error) {
	h.program.Send(docDoneMsg{slug: slug, fromCache: fromCache, err: err})
}

// executeWithTUI runs Execute under a live progress display.
// Engine hooks are registered for the duration of the run and restored
// afterwards.
func executeWithTUI(ctx context.Context, engine *compose.Engine, crp *corpus.Corpus, plan *compose.Plan, opts compose.ExecuteOptions) (*compose.Result, error) {
	program := tea.NewProgram(newRenderModel(plan), tea.WithContext(ctx))

	observability.SetEngineHooks(&tuiHooks{program: program})
	defer observability.Reset()

	go func() {
		result, err := engine.Execute(ctx, crp, plan, opts)
		program.Send(runDoneMsg{result: result, err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(renderModel)
	if !ok || m.result == nil {
		return nil, fmt.Errorf("render aborted")
	}
	return m.result, m.err
}
