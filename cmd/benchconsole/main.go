// cmd/benchconsole is a host-side bench harness: it tokenizes typed
// commands ("up", "goto 42", "status") into the board's 2-byte
// wire opcodes and feeds them straight to a protocol.Dispatcher wired
// against a simulated board, exercising the dispatcher without real
// UART hardware — the bench-console analogue of the teacher's
// examples/*/main.go demo programs.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"

	"github.com/faern/fyrtur-motor-board/internal/board"
	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/protocol"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
	"github.com/faern/fyrtur-motor-board/internal/settings"
)

// Mirrors the exact-match opcodes in internal/protocol/opcodes.go
// (unexported there, since only the dispatcher needs them); kept here
// purely as bench-console wire vocabulary.
var (
	opUp      = [2]byte{0x0A, 0xDD}
	opDown    = [2]byte{0x0A, 0xEE}
	opStop    = [2]byte{0x0A, 0xCC}
	opGetStat = [2]byte{0xCC, 0xCC}
)

func frame(op [2]byte) []byte {
	return []byte{0x00, 0x00, 0x00, op[0], op[1]}
}

func main() {
	bridge := board.NewSimBridge()
	clock := board.NewSimClock()
	nvm := board.NewSimNVM()
	analog := board.NewSimAnalog(30*20, 0)

	loaded := settings.Load(nvm)
	controller := motion.New(motion.Config{
		Bridge:            bridge,
		Clock:             clock,
		GearRatio:         60,
		MaxCurtainLength:  loaded.MaxCurtainLength,
		FullCurtainLength: loaded.FullCurtainLength,
		DefaultSpeed:      loaded.DefaultSpeed,
		SlowdownFactor:    settings.DefaultSlowdownFactor,
		MinSlowdownSpeed:  settings.DefaultMinSlowdownSpeed,
		Sleep:             func(time.Duration) {},
	})
	decoder := quadrature.New()
	controller.SetHallCounters(decoder)
	dispatcher := protocol.New(controller, decoder, nvm, analog, loaded)

	fmt.Println("fyrtur bench console. Commands: up, down, stop, status, goto <pct>, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil || len(args) == 0 {
			continue
		}

		switch args[0] {
		case "up":
			run(dispatcher, frame(opUp))
		case "down":
			run(dispatcher, frame(opDown))
		case "stop":
			run(dispatcher, frame(opStop))
		case "status":
			run(dispatcher, frame(opGetStat))
		case "goto":
			if len(args) != 2 {
				fmt.Println("usage: goto <0-100>")
				continue
			}
			pct, err := strconv.Atoi(args[1])
			if err != nil || pct < 0 || pct > 100 {
				fmt.Println("goto expects an integer 0-100")
				continue
			}
			run(dispatcher, []byte{0x00, 0x00, 0x00, 0xDD, byte(pct)})
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command:", args[0])
		}

		fmt.Printf("  location=%d target=%d status=%s percent=%d%%\n",
			controller.Location(), controller.TargetLocation(), controller.Status(), controller.PositionPercent())
	}
}

func run(d *protocol.Dispatcher, rx []byte) {
	reply, err := d.Dispatch(rx)
	if err != nil {
		fmt.Println("dispatch error:", err)
		return
	}
	if reply != nil {
		fmt.Printf("  reply: % x\n", reply)
	}
}
