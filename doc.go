// Package serialhunter figures out which serial port a physical device is
// connected to. When a host has half a dozen USB-serial adapters attached,
// all named /dev/ttyUSB-something in whatever order the kernel enumerated
// them, this library answers the question "which one is my device?".
//
// # Hunting
//
// A hunt runs a set of probes over every candidate port and collects scored
// matches:
//
//	hunter := serialhunter.NewHunter(
//	    serialhunter.WithProbes(
//	        &serialhunter.SignatureProbe{VendorID: "0403", ProductID: "6010"},
//	        &serialhunter.ChallengeProbe{
//	            Challenge: []byte("*IDN?\r\n"),
//	            Expect:    regexp.MustCompile(`MYDEVICE`),
//	        },
//	    ),
//	    serialhunter.WithPortOptions(serialhunter.WithBaudRate(115200)),
//	)
//
//	report, err := hunter.Hunt(ctx)
//	if best := report.Best(); best != nil {
//	    fmt.Printf("found it on %s (%s: %s)\n", best.Port, best.Probe, best.Evidence)
//	}
//
// Available probes:
//
//   - SignatureProbe: match USB VID/PID/serial/product metadata, no port open
//   - BannerProbe: listen passively for output matching a regex
//   - ChallengeProbe: send a query, match the response
//   - ATProbe: detect Hayes-compatible modems ("AT" → "OK")
//   - NMEAProbe: detect GPS receivers by parseable NMEA 0183 sentences
//
// # Replug detection
//
// When nothing about the device is known, watch for its arrival instead:
//
//	ports, err := serialhunter.AwaitArrival(ctx, 500*time.Millisecond)
//
// Unplug the device, run this, plug it back in; the returned ports are the
// ones that newly appeared.
//
// # Enumeration
//
// List candidate ports and their USB metadata:
//
//	ports, err := serialhunter.ListPorts()
//	for _, p := range ports {
//	    info, _ := serialhunter.GetPortInfo(p)
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID, info.SerialNumber)
//	}
//
// # Port access
//
// Ports open with functional options and support context-aware I/O:
//
//	port, err := serialhunter.Open("/dev/ttyUSB0",
//	    serialhunter.WithBaudRate(9600),
//	    serialhunter.WithReadTimeout(200*time.Millisecond),
//	)
//	defer port.Close()
//
//	n, err := port.WriteContext(ctx, []byte("AT\r\n"))
//	n, err = port.ReadContext(ctx, buffer)
//
// Modem signal query and control (SetRTS, SetDTR, WaitForSignalChange) are
// available for telling otherwise identical adapters apart by hand.
//
// # Pretty codec
//
// DecodePretty renders raw serial bytes as readable text with visible
// whitespace: NULL shows as "␀", space as "·", and non-ASCII bytes as hex
// escapes like "˟F8". EncodePretty converts such text (or plain ASCII) back
// into bytes. Probe evidence strings use this rendering.
//
// # Platform support
//
// Port I/O uses termios and is Linux-only (x86_64 and ARM). Enumeration
// falls back from the cross-platform device registry to a /dev scan. USB
// metadata and device reset rely on sysfs and the usbreset utility.
package serialhunter
