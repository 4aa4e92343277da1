package shell

import "testing"

func TestCommandFormatting(t *testing.T) {
	cases := []struct {
		got  Command
		want string
	}{
		{EraseAll(0x12000000), "burn_erase_all 0x12000000\r"},
		{Verify(0x10000000, 0x1000, 0xDEADBEEF), "burn_verify 0x10000000 0x00001000 0xdeadbeef\r"},
		{Erase(0x10000000, 0x1000), "burn_erase 0x10000000 0x00001000\r"},
		{WriteAndErase(0x10000000, 0x1000), "burn_erase_write 0x10000000 0x00001000\r"},
		{Write(0x10000000, 0x1000), "burn_write 0x10000000 0x00001000\r"},
		{Read(0x10000000, 0x1000), "burn_read 0x10000000 0x00001000\r"},
		{SoftReset(), "burn_reset\r"},
		{SetBaud(921600, 500), "burn_speed 921600 500\r"},
	}
	for _, c := range cases {
		if string(c.got) != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestMatchResponseFindsSubstringAnywhere(t *testing.T) {
	// The token need not be newline-anchored: it can be glued to a
	// trailing shell prompt or leading noise bytes.
	buf := []byte("garbage\r\nOK>")
	resp, ok := matchResponse(buf)
	if !ok || resp != RespOK {
		t.Fatalf("matchResponse = (%v, %v), want (RespOK, true)", resp, ok)
	}
}

func TestMatchResponseDistinguishesFailFromOK(t *testing.T) {
	resp, ok := matchResponse([]byte("burn_write Fail\r\n"))
	if !ok || resp != RespFail {
		t.Fatalf("matchResponse = (%v, %v), want (RespFail, true)", resp, ok)
	}
}

func TestMatchResponseRxWait(t *testing.T) {
	resp, ok := matchResponse([]byte("RX_WAIT"))
	if !ok || resp != RespRxWait {
		t.Fatalf("matchResponse = (%v, %v), want (RespRxWait, true)", resp, ok)
	}
}

func TestMatchResponseNoMatch(t *testing.T) {
	if _, ok := matchResponse([]byte("still running...")); ok {
		t.Fatalf("expected no match on a partial buffer")
	}
}
