package vplic_test

import (
	"encoding/binary"
	"fmt"

	"github.com/tinyrange/vplic"
)

func ExampleNew() {
	const base = 0x0C000000
	const size = 0x00400000

	// A memory-backed stand-in for the hardware controller.
	host := vplic.NewMemController(base, size)

	dev, err := vplic.New(vplic.Config{
		Base:     base,
		Size:     size,
		Contexts: 2,
		Host:     host,
		Line: vplic.LineFromFunc(func(high bool) {
			fmt.Println("guest line:", high)
		}),
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	// The hypervisor injects source 9.
	dev.Inject(9)

	// The guest claims it by reading context 0's claim/complete register.
	claimAddr := uint64(base + vplic.ContextBase + vplic.ClaimCompleteOffset)
	buf := make([]byte, 4)
	if err := dev.ReadMMIO(claimAddr, buf); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("claimed:", binary.LittleEndian.Uint32(buf))

	// ... handles the interrupt, then retires it.
	binary.LittleEndian.PutUint32(buf, 9)
	if err := dev.WriteMMIO(claimAddr, buf); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("pending empty:", dev.PendingEmpty())

	// Output:
	// guest line: true
	// claimed: 9
	// guest line: false
	// pending empty: true
}
