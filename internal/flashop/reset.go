package flashop

import "github.com/OpenSiFli/sftool/internal/shell"

// SoftReset tells the RAM stub to reset the chip back into normal firmware
// execution.
func (o *Ops) SoftReset() error {
	resp, err := o.eng.SendCommand(shell.KindSoftReset, shell.SoftReset(), o.mem)
	return requireOK(resp, err, "soft_reset")
}
