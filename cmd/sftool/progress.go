package main

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// barProgress adapts a schollz/progressbar/v3 bar to sftool.ProgressReporter.
// It lives only here: the core package never renders a progress bar itself.
type barProgress struct {
	bar *progressbar.ProgressBar
}

func (b *barProgress) Begin(label string, total int) {
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *barProgress) Step(n int) {
	if b.bar != nil {
		_ = b.bar.Add(n)
	}
}

func (b *barProgress) Done() {
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}
