package core

import (
	"github.com/xlfish233/netease-tui/api"
	apperr "github.com/xlfish233/netease-tui/pkg/errors"
)

// Effects collects the side effects a handler wants. Handlers never do
// I/O directly; the core drains the buffer after each message.
type Effects struct {
	emitState bool
	toasts    []string
	errors    []appError
	gwHi      []api.GatewayCommand
	gwLo      []api.GatewayCommand
	audio     []api.AudioCommand
}

type appError struct {
	kind apperr.Kind
	msg  string
}

// EmitState marks that a fresh snapshot should be sent to the UI.
func (fx *Effects) EmitState() {
	fx.emitState = true
}

// Toast queues a user-visible notice.
func (fx *Effects) Toast(msg string) {
	fx.toasts = append(fx.toasts, msg)
}

// Error queues a user-visible error with its kind.
func (fx *Effects) Error(kind apperr.Kind, msg string) {
	fx.errors = append(fx.errors, appError{kind: kind, msg: msg})
}

// SendGatewayHi queues a high-priority gateway command.
func (fx *Effects) SendGatewayHi(cmd api.GatewayCommand) {
	fx.gwHi = append(fx.gwHi, cmd)
}

// SendGatewayLo queues a low-priority gateway command.
func (fx *Effects) SendGatewayLo(cmd api.GatewayCommand) {
	fx.gwLo = append(fx.gwLo, cmd)
}

// SendAudio queues a command to the audio engine.
func (fx *Effects) SendAudio(cmd api.AudioCommand) {
	fx.audio = append(fx.audio, cmd)
}
