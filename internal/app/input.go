package app

import (
	"context"

	"github.com/gdamore/tcell/v2"
)

// PollScreen translates terminal events into intents until the screen is
// finalized or ctx is done.
func PollScreen(ctx context.Context, screen tcell.Screen, intents chan<- Intent) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}

		var intent Intent
		switch e := ev.(type) {
		case *tcell.EventResize:
			screen.Sync()
			intent = IntentRedraw
		case *tcell.EventKey:
			if !isQuitKey(e) {
				continue
			}
			intent = IntentQuit
		default:
			continue
		}

		select {
		case intents <- intent:
		case <-ctx.Done():
			return
		}
	}
}

func isQuitKey(e *tcell.EventKey) bool {
	switch e.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return e.Rune() == 'q' || e.Rune() == 'Q'
	}
	return false
}
