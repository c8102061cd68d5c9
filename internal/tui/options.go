package tui

type KeyConfig struct {
	Relayout      string
	CopyLayout    string
	ToggleDetails string
}

type Option func(*Model)

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

func WithOwner(ownerID string) Option {
	return func(m *Model) {
		m.ownerID = ownerID
	}
}

func WithBreakpoint(name string) Option {
	return func(m *Model) {
		m.pendingBreakpoint = name
	}
}

func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyToClipboard = write
		}
	}
}

func WithMarkdownStyle(style string) Option {
	return func(m *Model) {
		m.markdown.style = style
	}
}
