package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/wrenware/vigil/internal/watch"
)

const (
	tableTitle            = "Watches"
	eventsTitle           = "Events"
	filterPageName        = "filter"
	defaultEventRetention = 500
)

// Option configures UI behaviour.
type Option func(*UI)

// WithMaxEvents sets the maximum number of events retained for each target.
func WithMaxEvents(n int) Option {
	return func(u *UI) {
		if n > 0 {
			u.maxEvents = n
		}
	}
}

// UI coordinates the interactive watch dashboard backed by tview.
type UI struct {
	app      *tview.Application
	pages    *tview.Pages
	table    *tview.Table
	eventLog *tview.TextView
	events   chan watch.Event

	targets map[string]*targetState

	visible       []string
	selected      string
	eventsJSON    bool
	filter        string
	filterExpr    *regexp.Regexp
	eventsFocused bool
	maxEvents     int

	mu sync.RWMutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	wg        sync.WaitGroup
	stopOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

type targetState struct {
	target    string
	kind      string
	status    watch.Status
	detail    string
	firstSeen time.Time
	since     time.Time

	events []watch.Event
}

// New constructs a UI configured with the supplied options.
func New(opts ...Option) *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 1).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	eventLog := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	eventLog.SetBorder(true).SetTitle(eventsTitle)
	eventLog.SetChangedFunc(func() {
		app.Draw()
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 3, true).
		AddItem(eventLog, 0, 2, false)

	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:       app,
		pages:     pages,
		table:     table,
		eventLog:  eventLog,
		events:    make(chan watch.Event, 256),
		targets:   make(map[string]*targetState),
		maxEvents: defaultEventRetention,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ui)
	}

	table.SetSelectedFunc(func(row, column int) {
		ui.mu.Lock()
		defer ui.mu.Unlock()
		ui.syncSelection(row)
		ui.renderEventsLocked()
	})

	table.SetSelectionChangedFunc(func(row, column int) {
		ui.mu.Lock()
		defer ui.mu.Unlock()
		ui.syncSelection(row)
		ui.renderEventsLocked()
	})

	eventLog.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter || (event.Key() == tcell.KeyRune && event.Rune() == '\n') {
			ui.toggleFocus()
			return nil
		}
		return event
	})

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.refreshTableLocked()
	ui.mu.Unlock()

	return ui
}

// EventSink exposes the channel where watch transitions should be delivered.
func (u *UI) EventSink() chan<- watch.Event {
	return u.events
}

// CloseEvents releases the event channel, allowing internal goroutines to exit cleanly.
func (u *UI) CloseEvents() {
	u.closeOnce.Do(func() {
		close(u.events)
	})
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the tview application and processes incoming events until Stop is invoked
// or the provided context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.consumeEvents(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	u.cancelMu.Lock()
	cancel = u.cancel
	u.cancel = nil
	u.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.wg.Wait()
	u.Stop()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

func (u *UI) consumeEvents(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	draining := false
	ctxDone := ctx.Done()

	for {
		var tick <-chan time.Time
		if !draining {
			tick = ticker.C
		}

		select {
		case <-ctxDone:
			if !draining {
				draining = true
				ticker.Stop()
			}
			ctxDone = nil
		case evt, ok := <-u.events:
			if !ok {
				return
			}
			if draining {
				continue
			}
			u.applyEvent(evt)
		case <-tick:
			if !draining {
				u.refreshAge()
			}
		}
	}
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	// Overlays such as the filter prompt own the keyboard while visible.
	switch u.app.GetFocus() {
	case u.table, u.eventLog:
	default:
		return event
	}

	switch event.Key() {
	case tcell.KeyEnter:
		u.toggleFocus()
		return nil
	case tcell.KeyUp, tcell.KeyDown:
		return event
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			go u.Stop()
			return nil
		case '/':
			u.showFilterPrompt()
			return nil
		case 'j', 'J':
			u.toggleJSON()
			return nil
		}
	}
	return event
}

func (u *UI) toggleFocus() {
	if u.eventsFocused {
		u.app.SetFocus(u.table)
	} else {
		u.app.SetFocus(u.eventLog)
	}
	u.eventsFocused = !u.eventsFocused
}

func (u *UI) toggleJSON() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.eventsJSON = !u.eventsJSON
	u.renderEventsLocked()
}

func (u *UI) showFilterPrompt() {
	u.mu.RLock()
	current := u.filter
	u.mu.RUnlock()

	input := tview.NewInputField().
		SetLabel("Regex filter: ").
		SetText(current).
		SetFieldWidth(40)

	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Apply", func() {
			u.applyFilter(input.GetText())
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		}).
		AddButton("Cancel", func() {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	form.SetBorder(true).SetTitle("Filter Targets")

	grid := tview.NewGrid().
		SetColumns(0, 60, 0).
		SetRows(0, 7, 0).
		AddItem(form, 1, 1, 1, 1, 0, 0, true)

	u.pages.AddPage(filterPageName, grid, true, true)
	u.app.SetFocus(input)
}

func (u *UI) applyFilter(expr string) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		u.mu.Lock()
		u.filter = ""
		u.filterExpr = nil
		u.mu.Unlock()
		u.queueRefresh(true)
		return
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		u.showErrorModal(fmt.Sprintf("Invalid filter: %v", err))
		return
	}

	u.mu.Lock()
	u.filter = expr
	u.filterExpr = re
	u.mu.Unlock()
	u.queueRefresh(true)
}

func (u *UI) showErrorModal(message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	// Ensure previous filter prompt is removed to avoid stacking pages.
	u.pages.RemovePage(filterPageName)
	u.pages.AddPage(filterPageName, modal, true, true)
}

func (u *UI) applyEvent(evt watch.Event) {
	u.mu.Lock()
	updateEvents := u.applyEventLocked(evt)
	u.mu.Unlock()

	u.queueRefresh(updateEvents)
}

func (u *UI) applyEventLocked(evt watch.Event) bool {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	state := u.targets[evt.Target]
	if state == nil {
		state = &targetState{
			target:    evt.Target,
			kind:      kindOf(evt.Target),
			firstSeen: evt.At,
		}
		u.targets[evt.Target] = state
	}
	if state.firstSeen.IsZero() {
		state.firstSeen = evt.At
	}
	if evt.Status != state.status {
		state.status = evt.Status
		state.since = evt.At
	}
	state.detail = evt.Detail

	state.events = append(state.events, evt)
	if len(state.events) > u.maxEvents {
		trim := len(state.events) - u.maxEvents
		state.events = append([]watch.Event(nil), state.events[trim:]...)
	}

	return state.target == u.selected || u.selected == ""
}

func (u *UI) refreshAge() {
	u.queueRefresh(false)
}

func (u *UI) queueRefresh(updateEvents bool) {
	u.app.QueueUpdateDraw(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.refreshTableLocked()
		if updateEvents {
			u.renderEventsLocked()
		}
	})
}

func (u *UI) refreshTableLocked() {
	u.table.Clear()

	headers := []string{"TARGET", "KIND", "STATE", "SINCE", "DETAIL"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	names := make([]string, 0, len(u.targets))
	for name := range u.targets {
		if u.filterExpr != nil && !u.filterExpr.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	u.visible = names

	if u.filter != "" {
		u.table.SetTitle(fmt.Sprintf("%s /%s/", tableTitle, u.filter))
	} else {
		u.table.SetTitle(tableTitle)
	}

	for row, name := range names {
		state := u.targets[name]
		since := "-"
		if !state.since.IsZero() {
			since = time.Since(state.since).Truncate(time.Second).String()
		}
		detail := state.detail
		if len(detail) > 80 {
			detail = detail[:77] + "..."
		}

		values := []string{
			name,
			state.kind,
			formatStatus(state.status),
			since,
			detail,
		}
		for col, value := range values {
			cell := tview.NewTableCell(value)
			if col == 0 {
				cell = cell.SetReference(name)
			}
			if col == 2 {
				cell = cell.SetTextColor(statusColor(state.status))
			}
			u.table.SetCell(row+1, col, cell)
		}
	}

	u.ensureSelectionLocked()
}

func (u *UI) renderEventsLocked() {
	u.eventLog.Clear()
	var state *targetState
	if u.selected != "" {
		state = u.targets[u.selected]
	}
	if state == nil {
		u.eventLog.SetTitle(eventsTitle)
		return
	}

	u.eventLog.SetTitle(fmt.Sprintf("%s (%s)", eventsTitle, state.target))

	for _, evt := range state.events {
		if u.eventsJSON {
			data, err := json.Marshal(evt)
			if err != nil {
				fmt.Fprintf(u.eventLog, "{\"error\":\"%v\"}\n", err)
				continue
			}
			fmt.Fprintf(u.eventLog, "%s\n", data)
			continue
		}
		line := fmt.Sprintf("%s %-7s %s", evt.At.Format("15:04:05"), evt.Status, evt.Detail)
		fmt.Fprintln(u.eventLog, strings.TrimRight(line, " "))
	}
	u.eventLog.ScrollToEnd()
}

func (u *UI) ensureSelectionLocked() {
	if len(u.visible) == 0 {
		u.selected = ""
		u.table.Select(0, 0)
		return
	}

	idx := 0
	if u.selected != "" {
		for i, name := range u.visible {
			if name == u.selected {
				idx = i
				break
			}
		}
	} else {
		u.selected = u.visible[0]
	}

	if idx >= len(u.visible) {
		idx = len(u.visible) - 1
	}
	if u.selected == "" && len(u.visible) > 0 {
		u.selected = u.visible[idx]
	}
	u.table.Select(idx+1, 0)
}

func (u *UI) syncSelection(row int) {
	if row <= 0 || row-1 >= len(u.visible) {
		return
	}
	u.selected = u.visible[row-1]
}

func kindOf(target string) string {
	if kind, _, ok := strings.Cut(target, ":"); ok && kind != "" {
		return kind
	}
	return "target"
}

func formatStatus(s watch.Status) string {
	if s == "" {
		return "-"
	}
	text := string(s)
	if len(text) <= 1 {
		return strings.ToUpper(text)
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

func statusColor(s watch.Status) tcell.Color {
	switch s {
	case watch.StatusAlive:
		return tcell.ColorGreen
	case watch.StatusDead:
		return tcell.ColorRed
	default:
		return tcell.ColorDefault
	}
}
