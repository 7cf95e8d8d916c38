package core

import (
	"fmt"

	"github.com/xlfish233/netease-tui/api"
)

// brLadder is the bitrate cycle order.
var brLadder = []int64{128000, 192000, 320000, 999000}

func (c *Core) settingsCommand(cmd api.Command, fx *Effects) {
	a := c.app
	switch cmd.Type {
	case api.CmdSettingsCycleBr:
		a.Br = nextBr(a.Br)
		c.settings.Br = a.Br
		c.saveSettings()
		// Cached audio at other bitrates is now dead weight.
		fx.SendAudio(api.AudioCommand{Type: api.AudioSetCacheBr, Br: a.Br})
		c.nextSong.Reset()
		fx.Toast(fmt.Sprintf("bitrate: %d", a.Br))
		fx.EmitState()

	case api.CmdSettingsCrossfade:
		ms := a.CrossfadeMs + cmd.DeltaMs
		if ms < 0 {
			ms = 0
		}
		if ms > 5000 {
			ms = 5000
		}
		a.CrossfadeMs = ms
		c.settings.CrossfadeMs = ms
		c.saveSettings()
		fx.SendAudio(api.AudioCommand{Type: api.AudioSetCrossfadeMs, CrossfadeMs: ms})
		fx.Toast(fmt.Sprintf("crossfade: %d ms", ms))
		fx.EmitState()
	}
}

func nextBr(br int64) int64 {
	for i, b := range brLadder {
		if b == br {
			return brLadder[(i+1)%len(brLadder)]
		}
	}
	return brLadder[len(brLadder)-1]
}
