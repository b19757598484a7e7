//go:build tinygo

// cmd/fyrtur is the firmware entry point: it wires the real GPIO/PWM/ADC
// peripherals into a motion.Controller, starts the five execution
// contexts the design is built around (main loop, 10ms speed-regulator
// tick, 1ms stall-supervisor tick, GPIO Hall-edge interrupt, UART RX
// poll loop), and runs the boot-time lifecycle before handing off.
package main

import (
	"context"
	"machine"
	"net/netip"
	"time"

	"tinygo.org/x/drivers/ch9120"
	"tinygo.org/x/drivers/comboat"
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/sharpmem"

	"github.com/faern/fyrtur-motor-board/internal/board"
	"github.com/faern/fyrtur-motor-board/internal/display"
	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/protocol"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
	"github.com/faern/fyrtur-motor-board/internal/settings"
	"github.com/faern/fyrtur-motor-board/internal/speedreg"
	"github.com/faern/fyrtur-motor-board/internal/stall"
	"github.com/faern/fyrtur-motor-board/internal/telemetry"
)

// Pin/peripheral assignment, following the wiring-comment convention in
// examples/sharpmem/main.go.
var (
	uart = machine.UART0

	highSide1 = machine.GPIO2
	highSide2 = machine.GPIO3
	pwmLow1   = machine.GPIO4 // CCR1, down channel
	pwmLow2   = machine.GPIO5 // CCR4, up channel
	pwmPeriph = machine.PWM2

	hallSensor1 = machine.GPIO6
	hallSensor2 = machine.GPIO7

	voltageADC = machine.ADC{Pin: machine.ADC0}

	displaySPI  = machine.SPI1
	displayCS   = machine.GPIO9
	displaySCK  = machine.SPI1_SCK_PIN
	displaySDO  = machine.SPI1_SDO_PIN
	displaySDI  = machine.SPI1_SDI_PIN

	gearRatio uint16 = 30

	// settingsFlashOffset reserves the last sector of flash for
	// persisted settings; board-specific, chosen well clear of the
	// application image on an rp2040's 2MB flash.
	settingsFlashOffset int64 = 2*1024*1024 - 4096

	modemUART = machine.UART1
	modemTx   = machine.GPIO12
	modemRx   = machine.GPIO13
	modemCfg  = machine.GPIO14
	modemRst  = machine.GPIO15

	mqttBroker = netip.MustParseAddrPort("192.168.1.10:1883")

	// useWiFiModem picks the comboat Combo-AT WiFi driver over the
	// wired ch9120 driver for boards fitted with that modem instead
	// (e.g. the Elecrow W5); both speak the same netdev.Netdever
	// contract, so board.DialTCP works unmodified against either.
	useWiFiModem   = false
	wifiSSID       = "fyrtur"
	wifiPassphrase = "changeme"
)

func main() {
	time.Sleep(time.Second)

	nvm := board.NewMachineNVM(settingsFlashOffset)
	loaded := settings.Load(nvm)

	bridge, err := board.NewMachineBridge(highSide1, highSide2, pwmPeriph, pwmLow1, pwmLow2)
	if err != nil {
		println("bridge configure failed:", err.Error())
		return
	}

	machine.InitADC()
	voltageADC.Configure(machine.ADCConfig{})
	analog := board.NewMachineAnalog(voltageADC, nil)
	clock := board.NewMachineClock()

	controller := motion.New(motion.Config{
		Bridge:            bridge,
		Clock:             clock,
		GearRatio:         gearRatio,
		MaxCurtainLength:  loaded.MaxCurtainLength,
		FullCurtainLength: loaded.FullCurtainLength,
		DefaultSpeed:      loaded.DefaultSpeed,
		SlowdownFactor:    settings.DefaultSlowdownFactor,
		MinSlowdownSpeed:  settings.DefaultMinSlowdownSpeed,
	})

	decoder := quadrature.New()
	controller.SetHallCounters(decoder)

	dispatcher := protocol.New(controller, decoder, nvm, analog, loaded)

	// motor_init: unconditionally stop, then either auto-calibrate
	// (drive up until stall finds the top) or keep the assumed-bottom
	// location (max curtain length) that motion.New seeded.
	controller.MotorStop()
	if loaded.AutoCalibration {
		controller.SetCalibrating(true)
		controller.SetTargetLocation(motion.TargetLocationCalibrate)
		controller.Mailbox().Enqueue(motion.MotorUp)
	}

	hallSensor1.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	hallSensor2.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	hallSensor1.SetInterrupt(machine.PinRising|machine.PinFalling, func(p machine.Pin) {
		decoder.HandleEdge(controller, 1, levelOf(hallSensor1))
	})
	hallSensor2.SetInterrupt(machine.PinRising|machine.PinFalling, func(p machine.Pin) {
		decoder.HandleEdge(controller, 2, levelOf(hallSensor2))
	})

	uart.Configure(machine.UARTConfig{BaudRate: 9600})
	go serveUART(uart, dispatcher)

	sup := stall.New()
	go tick1ms(controller, decoder, sup)
	go tick10ms(controller, decoder)

	if panel, err := buildDisplay(); err != nil {
		println("display not attached:", err.Error())
	} else {
		go runDisplay(panel, controller, decoder)
	}

	if pub, err := connectTelemetry(); err != nil {
		println("telemetry modem not attached:", err.Error())
	} else {
		go pub.Run(context.Background(), 5*time.Second, controller, decoder)
	}

	for {
		if err := controller.ProcessDeferred(); err != nil {
			println("motor process failed:", err.Error())
		}
		time.Sleep(time.Millisecond)
	}
}

func levelOf(p machine.Pin) uint8 {
	if p.Get() {
		return 1
	}
	return 0
}

// tick1ms drives the stall supervisor at the 1ms cadence §4 names.
func tick1ms(c *motion.Controller, d *quadrature.Decoder, sup *stall.Supervisor) {
	clock := board.NewMachineClock()
	for {
		time.Sleep(time.Millisecond)
		sup.Tick1ms(c, d, clock.NowMillis())
	}
}

// tick10ms drives the closed-loop speed regulator at the 10ms cadence.
func tick10ms(c *motion.Controller, d *quadrature.Decoder) {
	var reg speedreg.Regulator
	for {
		time.Sleep(10 * time.Millisecond)
		reg.Tick(c, d)
	}
}

// buildDisplay wires an optional Sharp Memory LCD for a position/status
// readout, following the SPI setup in examples/sharpmem/main.go. It's
// an optional peripheral: boards shipped without one simply fail the
// SPI configure step and run without a panel.
func buildDisplay() (*display.Panel, error) {
	if err := displaySPI.Configure(machine.SPIConfig{
		Frequency: 2000000,
		SCK:       displaySCK,
		SDO:       displaySDO,
		SDI:       displaySDI,
		Mode:      0,
		LSBFirst:  true,
	}); err != nil {
		return nil, err
	}
	displayCS.Configure(machine.PinConfig{Mode: machine.PinOutput})

	dev := sharpmem.New(displaySPI, displayCS)
	dev.Configure(sharpmem.ConfigLS011B7DH03)

	return display.New(&dev, 20), nil
}

// runDisplay refreshes the status panel at ~2Hz, slow enough that it
// never contends meaningfully with the time-critical ticks.
func runDisplay(panel *display.Panel, c *motion.Controller, d *quadrature.Decoder) {
	for {
		if err := panel.Refresh(c, d); err != nil {
			println("display refresh failed:", err.Error())
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// connectTelemetry brings up the network modem (the CH9120 wired modem,
// or the Combo-AT WiFi modem when useWiFiModem is set) and opens
// an MQTT connection to the broker over it, the UART-attached-network
// path SPEC_FULL's telemetry design describes. An absent/unresponsive
// modem is not fatal: the board still runs, it just won't publish.
func connectTelemetry() (*telemetry.Publisher, error) {
	var modem board.Netdever
	if useWiFiModem {
		wifi := comboat.NewDevice(&comboat.Config{
			BaudRate: 115200,
			Uart:     modemUART,
			Tx:       modemTx,
			Rx:       modemRx,
		})
		if err := wifi.NetConnect(&netlink.ConnectParams{Ssid: wifiSSID, Passphrase: wifiPassphrase}); err != nil {
			return nil, err
		}
		modem = wifi
	} else {
		wired := ch9120.NewDevice(&ch9120.Config{
			Uart:    modemUART,
			Tx:      modemTx,
			Rx:      modemRx,
			Cfg:     modemCfg,
			Rst:     modemRst,
			RunBaud: 115200,
		})
		if err := wired.NetConnect(nil); err != nil {
			return nil, err
		}
		modem = wired
	}

	conn, err := board.DialTCP(modem, mqttBroker)
	if err != nil {
		return nil, err
	}

	pub := telemetry.New(telemetry.DefaultConfig())
	if err := pub.Connect(context.Background(), conn); err != nil {
		return nil, err
	}
	return pub, nil
}

// serveUART reads fixed-layout command frames off the wire and feeds
// them to the dispatcher, writing back whatever reply it produces.
// Mirrors ch9120's buffered read-then-parse loop.
func serveUART(u *machine.UART, d *protocol.Dispatcher) {
	var buf [5]byte
	for {
		if u.Buffered() < len(buf) {
			time.Sleep(time.Millisecond)
			continue
		}
		n, err := u.Read(buf[:])
		if err != nil || n < len(buf) {
			continue
		}
		reply, err := d.Dispatch(buf[:n])
		if err != nil {
			continue
		}
		if reply != nil {
			u.Write(reply)
		}
	}
}
