package core

import (
	"strings"

	"github.com/xlfish233/netease-tui/api"
)

const searchLimit = 50

func (c *Core) searchCommand(cmd api.Command, fx *Effects) {
	a := c.app
	switch cmd.Type {
	case api.CmdSearchInputChar:
		a.SearchQuery += string(cmd.Char)
		fx.EmitState()

	case api.CmdSearchInputBackspace:
		if len(a.SearchQuery) > 0 {
			runes := []rune(a.SearchQuery)
			a.SearchQuery = string(runes[:len(runes)-1])
		}
		fx.EmitState()

	case api.CmdSearchSubmit:
		query := strings.TrimSpace(a.SearchQuery)
		if query == "" {
			return
		}
		a.SearchStatus = "searching..."
		fx.EmitState()
		// A fresh id supersedes any in-flight search; older results
		// will fail Accept and be dropped.
		id := c.tracker.Issue(KeySearch, c.nextID)
		fx.SendGatewayHi(api.GatewayCommand{
			Type: api.GwSearch, ReqID: id,
			Query: query, Limit: searchLimit, Offset: 0,
		})

	case api.CmdSearchMoveUp:
		if a.SearchSel > 0 {
			a.SearchSel--
		}
		fx.EmitState()

	case api.CmdSearchMoveDown:
		if a.SearchSel+1 < len(a.SearchResults) {
			a.SearchSel++
		}
		fx.EmitState()

	case api.CmdSearchPlaySelected:
		if a.SearchSel < 0 || a.SearchSel >= len(a.SearchResults) {
			return
		}
		// The search result list becomes the play queue.
		queue := append([]api.Song(nil), a.SearchResults...)
		a.Queue.SetSongs(queue, a.SearchSel)
		c.nextSong.Reset()
		c.playCurrent(fx)
	}
}

func (c *Core) searchEvent(evt api.GatewayEvent, fx *Effects) {
	a := c.app
	if !c.tracker.Accept(KeySearch, evt.ReqID) {
		c.log.WithField("req_id", evt.ReqID).Debug("stale search reply dropped")
		return
	}
	a.SearchResults = evt.Songs
	a.SearchSel = 0
	if len(evt.Songs) == 0 {
		a.SearchStatus = "no results"
	} else {
		a.SearchStatus = ""
	}
	fx.EmitState()
}
