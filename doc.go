// Package bootserial provides serial port backends for the transport package.
//
// Two implementations of transport.ByteChannel are available:
//
//   - Port (Linux) drives the device through termios and ioctls. Reads poll the
//     descriptor, and DTR/RTS change together in one TIOCMSET.
//   - PortablePort uses go.bug.st/serial and runs wherever that library does.
//     DTR and RTS are set one after the other.
//
// # Basic Usage
//
//	port, err := bootserial.NewPort("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t, err := transport.New(port)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := t.Connect(115200); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Disconnect()
//
//	seq, _ := reset.NewSequencer(t)
//	if err := seq.ClassicReset(reset.DefaultResetDelay); err != nil {
//	    log.Fatal(err)
//	}
//
//	frame, err := t.Read(ctx, time.Second, transport.DefaultMinBytes)
//
// # Configuration Options
//
//	port, err := bootserial.NewPort("/dev/ttyUSB0",
//	    bootserial.WithBaudRate(921600),
//	    bootserial.WithChunkSize(1024),
//	    bootserial.WithInitialDTR(false),
//	    bootserial.WithInitialRTS(false),
//	)
//
// Open(0) uses the configured baud rate.
//
// # Error Handling
//
// Open maps OS errors onto sentinels checked with errors.Is:
//
//	if errors.Is(err, bootserial.ErrDeviceInUse) {
//	    // another process holds the port
//	}
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - FlowControl: None
//   - ReadTimeout: 2.5 seconds (blocking Read only)
//   - WriteMode: Buffered
//   - ChunkSize: 4096
package bootserial
