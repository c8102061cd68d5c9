package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit           key.Binding
	toggleHelp     key.Binding
	nextBreakpoint key.Binding
	prevBreakpoint key.Binding
	nextDashboard  key.Binding
	prevDashboard  key.Binding
	selectLeft     key.Binding
	selectRight    key.Binding
	selectUp       key.Binding
	selectDown     key.Binding
	moveLeft       key.Binding
	moveRight      key.Binding
	moveUp         key.Binding
	moveDown       key.Binding
	grow           key.Binding
	shrink         key.Binding
	relayout       key.Binding
	toggleDetails  key.Binding
	copyLayout     key.Binding
	reload         key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextBreakpoint: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next breakpoint")),
		prevBreakpoint: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous breakpoint")),
		nextDashboard:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next dashboard")),
		prevDashboard:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous dashboard")),
		selectLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "select left")),
		selectRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "select right")),
		selectUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "select up")),
		selectDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "select down")),
		moveLeft:       key.NewBinding(key.WithKeys("H", "shift+h", "shift+left"), key.WithHelp("H", "move left")),
		moveRight:      key.NewBinding(key.WithKeys("L", "shift+l", "shift+right"), key.WithHelp("L", "move right")),
		moveUp:         key.NewBinding(key.WithKeys("K", "shift+k", "shift+up"), key.WithHelp("K", "move up")),
		moveDown:       key.NewBinding(key.WithKeys("J", "shift+j", "shift+down"), key.WithHelp("J", "move down")),
		grow:           key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "grow")),
		shrink:         key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "shrink")),
		relayout:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "relayout")),
		toggleDetails:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "details")),
		copyLayout:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy layout json")),
		reload:         key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
	}
}

// applyConfig overrides configurable bindings; blank values keep defaults.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.relayout, cfg.Relayout, "r", "relayout")
	configureBinding(&k.copyLayout, cfg.CopyLayout, "y", "copy layout json")
	configureBinding(&k.toggleDetails, cfg.ToggleDetails, "i", "details")
}

// configureBinding replaces one binding's keys and help text.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns one configured key into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.nextBreakpoint, k.moveRight, k.grow, k.shrink, k.relayout, k.toggleDetails, k.copyLayout, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextBreakpoint, k.prevBreakpoint, k.nextDashboard, k.prevDashboard, k.reload, k.toggleHelp, k.quit},
		{k.selectLeft, k.selectRight, k.selectUp, k.selectDown},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.grow, k.shrink},
		{k.relayout, k.toggleDetails, k.copyLayout},
	}
}
