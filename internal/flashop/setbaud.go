package flashop

// SetBaud switches the link to baud, following the shell engine's atomic
// baud-switch contract (send command, switch locally, settle, flush).
func (o *Ops) SetBaud(baud uint32) error {
	return o.eng.SwitchBaud(baud, 500)
}
