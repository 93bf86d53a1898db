// Command bledump decodes a single hex-encoded frame from argv and
// prints the parsed struct. A debugging aid, not part of the core
// contract, in the shape of the teacher's examples/ directory.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/coreble/bled"
)

func main() {
	kind := flag.String("kind", "header", "frame kind: header, legacy, fast, dct, l2cap, socket")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bledump -kind <header|legacy|fast|dct|l2cap|socket> <hex bytes>")
		os.Exit(2)
	}

	raw, err := hex.DecodeString(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "decoding hex: %v\n", err)
		os.Exit(1)
	}

	if err := dump(*kind, raw); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func dump(kind string, raw []byte) error {
	switch kind {
	case "header":
		h, err := bled.AdvertisementHeaderFromBytes(raw)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", h)
	case "legacy":
		a, err := bled.LegacyAdvertisementFromBytes(raw, false)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", a)
	case "fast":
		a, err := bled.LegacyAdvertisementFromBytes(raw, true)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", a)
	case "dct":
		a, err := bled.DCTAdvertisementFromBytes(raw)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", a)
	case "l2cap":
		p, _, err := bled.L2CAPControlPacketFromBytes(raw)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", p)
	case "socket":
		p, err := bled.SocketFramedPacketFromBytes(raw)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", p)
	default:
		return fmt.Errorf("unknown -kind %q", kind)
	}
	return nil
}
