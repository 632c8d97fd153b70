package notify

import "github.com/gen2brain/beeep"

// BeeepDesktop pushes native OS notifications through beeep.
type BeeepDesktop struct {
	Icon string
}

func (d BeeepDesktop) Push(title, message string) error {
	return beeep.Notify(title, message, d.Icon)
}
