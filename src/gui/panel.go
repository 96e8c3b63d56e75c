package gui

import (
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"ai-shot/src/session"
	"ai-shot/src/settings"
)

const responseHeight = 260

var panelBackground = color.NRGBA{R: 0x20, G: 0x20, B: 0x24, A: 0xf0}

// panel is the floating prompt/response box.
type panel struct {
	o   *Overlay
	box *fyne.Container

	promptRow *fyne.Container
	prompt    *promptEntry

	settingsBox  *fyne.Container
	provider     *widget.Select
	model        *widget.SelectEntry
	thinking     *widget.Check
	search       *widget.Check
	apiKey       *widget.Entry
	systemPrompt *widget.Entry

	responseBox *fyne.Container
	response    *widget.RichText
	thoughts    *widget.Label
	thoughtsAcc *widget.Accordion
	status      *widget.Label
	copyBtn     *widget.Button

	mode      panelMode
	shownText string
	notice    string
	// syncing suppresses change callbacks while widgets are filled from the
	// session.
	syncing bool
}

func newPanel(o *Overlay) *panel {
	p := &panel{o: o}

	p.prompt = newPromptEntry(o.close)
	p.prompt.SetPlaceHolder(session.DefaultPrompt)
	p.prompt.OnSubmitted = func(string) { o.submit() }
	p.prompt.OnChanged = func(s string) {
		if !p.syncing {
			o.sess.SetPrompt(s)
		}
	}
	ask := widget.NewButtonWithIcon("Ask", theme.MailSendIcon(), o.submit)
	ask.Importance = widget.HighImportance
	toggle := widget.NewButtonWithIcon("", theme.SettingsIcon(), p.toggleSettings)
	p.promptRow = container.NewBorder(nil, nil, nil, container.NewHBox(toggle, ask), p.prompt)

	p.buildSettings()

	p.response = widget.NewRichText()
	p.response.Wrapping = fyne.TextWrapWord
	scroll := container.NewVScroll(p.response)
	scroll.SetMinSize(fyne.NewSize(0, responseHeight))

	p.thoughts = widget.NewLabel("")
	p.thoughts.Wrapping = fyne.TextWrapWord
	p.thoughts.TextStyle = fyne.TextStyle{Italic: true}
	thoughtScroll := container.NewVScroll(p.thoughts)
	thoughtScroll.SetMinSize(fyne.NewSize(0, 120))
	p.thoughtsAcc = widget.NewAccordion(widget.NewAccordionItem("Thinking", thoughtScroll))

	p.status = widget.NewLabel("")
	p.status.Wrapping = fyne.TextWrapWord

	p.copyBtn = widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), o.copyAnswer)
	back := widget.NewButtonWithIcon("Back", theme.NavigateBackIcon(), o.back)
	closeBtn := widget.NewButtonWithIcon("Close", theme.CancelIcon(), o.close)
	buttons := container.NewHBox(p.copyBtn, back, closeBtn)

	p.responseBox = container.NewVBox(p.thoughtsAcc, scroll, p.status, buttons)

	bg := canvas.NewRectangle(panelBackground)
	bg.CornerRadius = 6
	content := container.NewVBox(p.promptRow, p.settingsBox, p.responseBox)
	p.box = container.NewStack(bg, container.NewPadded(content))
	p.box.Hide()
	return p
}

func (p *panel) buildSettings() {
	edit := func(fn func(*settings.Settings)) {
		if !p.syncing {
			p.o.sess.UpdateSettings(fn)
		}
	}

	p.provider = widget.NewSelect([]string{settings.ProviderGemini, settings.ProviderOpenRouter}, func(v string) {
		edit(func(s *settings.Settings) { s.Provider = v })
	})
	p.model = widget.NewSelectEntry(settings.AvailableModels)
	p.model.OnChanged = func(v string) {
		edit(func(s *settings.Settings) { s.Model = strings.TrimSpace(v) })
	}
	p.thinking = widget.NewCheck("Thinking", func(b bool) {
		edit(func(s *settings.Settings) { s.ThinkingEnabled = b })
	})
	p.search = widget.NewCheck("Google Search", func(b bool) {
		edit(func(s *settings.Settings) { s.SearchEnabled = b })
	})
	p.apiKey = widget.NewPasswordEntry()
	p.apiKey.SetPlaceHolder("API key (leave empty to use the environment)")
	p.apiKey.OnChanged = func(v string) {
		edit(func(s *settings.Settings) { s.APIKey = strings.TrimSpace(v) })
	}
	p.systemPrompt = widget.NewMultiLineEntry()
	p.systemPrompt.SetMinRowsVisible(3)
	p.systemPrompt.SetPlaceHolder("System prompt")
	p.systemPrompt.OnChanged = func(v string) {
		edit(func(s *settings.Settings) { s.SystemPrompt = v })
	}

	form := widget.NewForm(
		widget.NewFormItem("Provider", p.provider),
		widget.NewFormItem("Model", p.model),
		widget.NewFormItem("", container.NewHBox(p.thinking, p.search)),
		widget.NewFormItem("API key", p.apiKey),
		widget.NewFormItem("System", p.systemPrompt),
	)
	p.settingsBox = container.NewVBox(form)
	p.settingsBox.Hide()
}

func (p *panel) toggleSettings() {
	if p.settingsBox.Visible() {
		p.settingsBox.Hide()
	} else {
		p.syncSettings(p.o.sess.Settings())
		p.settingsBox.Show()
	}
	p.o.root.Refresh()
}

func (p *panel) syncSettings(s settings.Settings) {
	p.syncing = true
	defer func() { p.syncing = false }()
	provider := s.Provider
	if provider == "" {
		provider = settings.ProviderGemini
	}
	p.provider.SetSelected(provider)
	p.model.SetText(s.Model)
	p.thinking.SetChecked(s.ThinkingEnabled)
	p.search.SetChecked(s.SearchEnabled)
	p.apiKey.SetText(s.APIKey)
	p.systemPrompt.SetText(s.SystemPrompt)
}

// resetPrompt clears the prompt box for a new selection.
func (p *panel) resetPrompt() {
	p.syncing = true
	p.prompt.SetText("")
	p.syncing = false
}

func (p *panel) focusPrompt() {
	if p.o.win != nil && p.mode == modePrompt {
		p.o.win.Canvas().Focus(p.prompt)
	}
}

// flash shows a transient notice until the next state change.
func (p *panel) flash(msg string) {
	p.notice = msg
	p.status.SetText(msg)
	p.status.Show()
}

// update makes the widgets match v.
func (p *panel) update(v session.View) {
	mode := modeFor(v)
	if mode != p.mode {
		p.notice = ""
	}
	p.mode = mode

	if mode == modeHidden {
		p.box.Hide()
		return
	}
	p.box.Show()

	switch mode {
	case modePrompt:
		p.promptRow.Show()
		p.responseBox.Hide()
		if p.prompt.Text != v.Prompt {
			p.syncing = true
			p.prompt.SetText(v.Prompt)
			p.syncing = false
		}
		p.shownText = ""
		return
	}

	p.promptRow.Hide()
	p.settingsBox.Hide()
	p.responseBox.Show()

	text := v.State.Text
	if mode == modeError {
		text = ""
	}
	if text != p.shownText {
		p.response.ParseMarkdown(text)
		p.shownText = text
	}
	if v.State.Thoughts != "" {
		p.thoughts.SetText(v.State.Thoughts)
		p.thoughtsAcc.Show()
	} else {
		p.thoughtsAcc.Hide()
	}
	if v.State.Text != "" {
		p.copyBtn.Enable()
	} else {
		p.copyBtn.Disable()
	}

	status := statusLine(v)
	if p.notice != "" && mode != modeError {
		status = p.notice
	}
	p.status.SetText(status)
	if status == "" {
		p.status.Hide()
	} else {
		p.status.Show()
	}
}

// promptEntry is a single-line entry that closes the overlay on Escape even
// while it has focus.
type promptEntry struct {
	widget.Entry
	onEscape func()
}

func newPromptEntry(onEscape func()) *promptEntry {
	e := &promptEntry{onEscape: onEscape}
	e.ExtendBaseWidget(e)
	return e
}

func (e *promptEntry) TypedKey(ev *fyne.KeyEvent) {
	if ev.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.Entry.TypedKey(ev)
}
