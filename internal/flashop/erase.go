package flashop

import (
	"time"

	"github.com/maruel/interrupt"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/shell"
)

// eraseTimeout is the wait period for erase_flash/erase_region, which
// perform a whole-chip or whole-region wipe and so get much more time than
// an ordinary command.
const eraseTimeout = 30 * time.Second

// EraseFlash erases the entire flash chip. A Ctrl-C caught before the
// command is sent aborts the operation; once the stub starts a whole-chip
// wipe it runs to completion uninterrupted, since aborting it mid-flight
// would leave flash in an unknown state.
func (o *Ops) EraseFlash() error {
	if interrupt.IsSet() {
		return errs.Canceled("operation interrupted")
	}
	if err := o.eng.WriteCommand(shell.EraseAll(0)); err != nil {
		return err
	}
	resp, err := o.eng.WaitForResponse(eraseTimeout)
	return requireOK(resp, err, "erase_flash")
}

// EraseRegion erases length bytes starting at address. See EraseFlash for
// why cancellation is only honored before the command is sent.
func (o *Ops) EraseRegion(address, length uint32) error {
	if interrupt.IsSet() {
		return errs.Canceled("operation interrupted")
	}
	if err := o.eng.WriteCommand(shell.Erase(address, length)); err != nil {
		return err
	}
	resp, err := o.eng.WaitForResponse(eraseTimeout)
	return requireOK(resp, err, "erase_region")
}
